package mesh

import (
	"fmt"
	"math"
	"slices"

	"github.com/notargets/DPGKernel/element"
)

// Face is a global mesh face. The face parameter runs from V[0] to V[1].
type Face struct {
	V          [2]int // start and end vertex
	Cells      [2]int // adjacent cells, Cells[1] is -1 on the boundary
	LocalFace  [2]int // local face index within each adjacent cell
	BoundaryID int    // -1 for interior faces
}

func (f Face) IsBoundary() bool { return f.Cells[1] < 0 }

// Mesh is a conforming mesh of axis aligned quadrilaterals with vertices
// stored per cell in lexicographic order
type Mesh struct {
	VX, VY []float64
	EToV   [][element.NVertices]int
	element.ElementConnectivity

	Faces     []Face
	CellFaces [][element.NFaces]int // global face of each local face
}

// BoundaryFunc assigns a boundary id to the boundary face f of cell k
type BoundaryFunc func(m *Mesh, k, f int) int

func (m *Mesh) NumCells() int { return len(m.EToV) }

func (m *Mesh) NumVertices() int { return len(m.VX) }

func (m *Mesh) NumFaces() int { return len(m.Faces) }

// NewSubdividedRectangle creates an nx by ny mesh of the rectangle spanned
// by lower and upper. Cells and vertices are numbered lexicographically.
// When colorize is set the boundary ids are 0 (x = lower x), 1 (x = upper
// x), 2 (y = lower y) and 3 (y = upper y), otherwise all boundary faces get 0.
func NewSubdividedRectangle(nx, ny int, lower, upper [2]float64, colorize bool) (*Mesh, error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("subdivisions must be positive, have %dx%d", nx, ny)
	}
	if !(upper[0] > lower[0] && upper[1] > lower[1]) {
		return nil, fmt.Errorf("empty domain [%g,%g]x[%g,%g]",
			lower[0], upper[0], lower[1], upper[1])
	}
	m := &Mesh{
		VX:   make([]float64, (nx+1)*(ny+1)),
		VY:   make([]float64, (nx+1)*(ny+1)),
		EToV: make([][element.NVertices]int, nx*ny),
	}
	hx := (upper[0] - lower[0]) / float64(nx)
	hy := (upper[1] - lower[1]) / float64(ny)
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			v := i + j*(nx+1)
			m.VX[v] = lower[0] + float64(i)*hx
			m.VY[v] = lower[1] + float64(j)*hy
		}
	}
	// Pin the far boundary exactly so colorizing does not depend on round off
	for j := 0; j <= ny; j++ {
		m.VX[nx+j*(nx+1)] = upper[0]
	}
	for i := 0; i <= nx; i++ {
		m.VY[i+ny*(nx+1)] = upper[1]
	}
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			v := i + j*(nx+1)
			m.EToV[i+j*nx] = [element.NVertices]int{v, v + 1, v + nx + 1, v + nx + 2}
		}
	}
	bc := func(*Mesh, int, int) int { return 0 }
	if colorize {
		bc = func(m *Mesh, k, f int) int {
			v0 := m.EToV[k][element.FaceVertices[f][0]]
			v1 := m.EToV[k][element.FaceVertices[f][1]]
			xm, ym := (m.VX[v0]+m.VX[v1])/2, (m.VY[v0]+m.VY[v1])/2
			tol := 1.e-10 * math.Max(upper[0]-lower[0], upper[1]-lower[1])
			switch {
			case math.Abs(xm-lower[0]) < tol:
				return 0
			case math.Abs(xm-upper[0]) < tol:
				return 1
			case math.Abs(ym-lower[1]) < tol:
				return 2
			default:
				return 3
			}
		}
	}
	m.buildConnectivity(bc)
	return m, nil
}

// buildConnectivity matches faces by their sorted vertex pair and fills
// EToE, EToF, BCType, Faces and CellFaces
func (m *Mesh) buildConnectivity(bc BoundaryFunc) {
	K := m.NumCells()
	m.EToE = make([][element.NFaces]int, K)
	m.EToF = make([][element.NFaces]int, K)
	m.BCType = make([][element.NFaces]int, K)
	m.CellFaces = make([][element.NFaces]int, K)
	m.Faces = m.Faces[:0]

	faceMap := make(map[[2]int]int, 2*K+2)
	for k := 0; k < K; k++ {
		for f := 0; f < element.NFaces; f++ {
			vs := m.EToV[k][element.FaceVertices[f][0]]
			ve := m.EToV[k][element.FaceVertices[f][1]]
			key := [2]int{min(vs, ve), max(vs, ve)}
			if gf, found := faceMap[key]; found {
				face := &m.Faces[gf]
				face.Cells[1], face.LocalFace[1] = k, f
				nbr, nf := face.Cells[0], face.LocalFace[0]
				m.EToE[k][f], m.EToF[k][f] = nbr, nf
				m.EToE[nbr][nf], m.EToF[nbr][nf] = k, f
				m.BCType[k][f], m.BCType[nbr][nf] = -1, -1
				m.CellFaces[k][f] = gf
				continue
			}
			faceMap[key] = len(m.Faces)
			m.CellFaces[k][f] = len(m.Faces)
			m.Faces = append(m.Faces, Face{
				V:         [2]int{vs, ve},
				Cells:     [2]int{k, -1},
				LocalFace: [2]int{f, -1},
			})
		}
	}
	for gf := range m.Faces {
		face := &m.Faces[gf]
		face.BoundaryID = -1
		if !face.IsBoundary() {
			continue
		}
		k, f := face.Cells[0], face.LocalFace[0]
		face.BoundaryID = bc(m, k, f)
		m.EToE[k][f], m.EToF[k][f] = -1, -1
		m.BCType[k][f] = face.BoundaryID
	}
}

// FaceOrientation is +1 when the normal of cell k on face f is the reference
// normal of the face and -1 otherwise. The lower indexed cell of an
// interior face owns the reference normal; boundary faces behave as if the
// neighbor had an infinitely large index.
func (m *Mesh) FaceOrientation(k, f int) float64 {
	nbr := m.EToE[k][f]
	if nbr < 0 || nbr > k {
		return 1
	}
	return -1
}

// FaceReversed reports whether the local face f of cell k runs opposite to
// the global face parameter
func (m *Mesh) FaceReversed(k, f int) bool {
	vs := m.EToV[k][element.FaceVertices[f][0]]
	return vs != m.Faces[m.CellFaces[k][f]].V[0]
}

// CellVertices returns the vertex coordinates of cell k
func (m *Mesh) CellVertices(k int) (vx, vy [element.NVertices]float64) {
	for v, gv := range m.EToV[k] {
		vx[v], vy[v] = m.VX[gv], m.VY[gv]
	}
	return
}

func (m *Mesh) Transform(k int) (element.GeometricTransform, error) {
	vx, vy := m.CellVertices(k)
	gt, err := element.NewGeometricTransform(vx, vy)
	if err != nil {
		return gt, fmt.Errorf("cell %d: %w", k, err)
	}
	return gt, nil
}

// MaxDiameter is the largest cell diagonal, the mesh size h
func (m *Mesh) MaxDiameter() float64 {
	var h float64
	for k := range m.EToV {
		vx, vy := m.CellVertices(k)
		h = math.Max(h, math.Hypot(vx[3]-vx[0], vy[3]-vy[0]))
	}
	return h
}

// BoundaryIDs returns the distinct boundary ids in ascending order
func (m *Mesh) BoundaryIDs() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, face := range m.Faces {
		if face.IsBoundary() && !seen[face.BoundaryID] {
			seen[face.BoundaryID] = true
			ids = append(ids, face.BoundaryID)
		}
	}
	slices.Sort(ids)
	return ids
}

func (m *Mesh) String() string {
	return fmt.Sprintf("Mesh: %d cells, %d vertices, %d faces, h = %.4g",
		m.NumCells(), m.NumVertices(), m.NumFaces(), m.MaxDiameter())
}
