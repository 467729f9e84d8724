package element

import (
	"errors"
	"fmt"
)

type Dimensionality uint8

const (
	D0 Dimensionality = iota // points
	D1                       // lines, faces of quadrilaterals
	D2                       // quadrilaterals
)

type ElementGeometry uint8

const (
	Rectangle ElementGeometry = iota
	Line
)

func (g ElementGeometry) String() string {
	switch g {
	case Rectangle:
		return "Rectangle"
	case Line:
		return "Line"
	}
	return fmt.Sprintf("ElementGeometry(%d)", uint8(g))
}

// Reference square [-1,1]^2, vertices in lexicographic order
const (
	NVertices = 4
	NFaces    = 4
)

var (
	// QuadVertices are the reference coordinates (r,s) of the vertices
	QuadVertices = [NVertices][2]float64{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}}
	// FaceVertices lists the start and end vertex of each face. The face
	// parameter t in [-1,1] runs from the start to the end vertex.
	FaceVertices = [NFaces][2]int{{0, 2}, {1, 3}, {0, 1}, {2, 3}}
	// FaceNormals are the outward unit normals of the reference faces
	FaceNormals = [NFaces][2]float64{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}
)

// FacePoint maps the face parameter t to reference coordinates
func FacePoint(face int, t float64) (r, s float64) {
	switch face {
	case 0:
		return -1, t
	case 1:
		return 1, t
	case 2:
		return t, -1
	default:
		return t, 1
	}
}

// FaceAxis returns the reference direction the face parameter runs along,
// 1 (s) for faces 0 and 1, 0 (r) for faces 2 and 3
func FaceAxis(face int) int {
	if face < 2 {
		return 1
	}
	return 0
}

var (
	// ErrDegenerateGeometry marks a cell or face with zero, negative or
	// non-rectangular measure
	ErrDegenerateGeometry = errors.New("degenerate cell geometry")
	// ErrNonFinite marks a NaN or Inf produced by geometry or quadrature
	ErrNonFinite = errors.New("non-finite value")
)

// SubElement classifies a degree of freedom as belonging to the vector
// (flux) or the scalar (potential) part of a space
type SubElement uint8

const (
	Flux SubElement = iota
	Potential
)

func (s SubElement) String() string {
	if s == Flux {
		return "Flux"
	}
	return "Potential"
}

// Part identifies the real or imaginary copy of a complex field
type Part uint8

const (
	Real Part = iota
	Imag
)

func (p Part) String() string {
	if p == Real {
		return "Real"
	}
	return "Imag"
}

// Coefficient is the complex unit the real dof multiplies, 1 or i
func (p Part) Coefficient() complex128 {
	if p == Imag {
		return 1i
	}
	return 1
}

// DofDescriptor is one entry of a local dof layout
type DofDescriptor struct {
	SubElement SubElement
	Part       Part
	Component  int // vector component of a flux dof, 0 for potentials
	Base       int // index into the scalar or vector base space
}
