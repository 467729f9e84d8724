package element

import (
	"fmt"
	"math"
)

// GeometricTransform maps the reference square [-1,1]^2 onto an axis
// aligned rectangle. The metric terms are constant over the cell.
type GeometricTransform struct {
	X0, Y0 float64 // Lower left corner
	Hx, Hy float64 // Extents in x and y

	// Components of the inverse Jacobian, ∂r/∂x and ∂s/∂y. The cross terms
	// vanish for axis aligned cells.
	Rx, Sy float64

	// Jacobian determinant |∂(x,y)/∂(r,s)|
	J float64
}

// SurfaceGeometry contains the geometric information of the four faces
type SurfaceGeometry struct {
	Nx, Ny [NFaces]float64 // Unit outward normals
	SJ     [NFaces]float64 // Physical face length / reference face length
}

// relative tolerance used to decide that a cell is an axis aligned rectangle
const rectangleTol = 1.e-10

// NewGeometricTransform builds the transform from vertex coordinates in
// lexicographic order (lower left, lower right, upper left, upper right)
func NewGeometricTransform(vx, vy [NVertices]float64) (gt GeometricTransform, err error) {
	for v := 0; v < NVertices; v++ {
		if math.IsNaN(vx[v]) || math.IsInf(vx[v], 0) ||
			math.IsNaN(vy[v]) || math.IsInf(vy[v], 0) {
			return gt, fmt.Errorf("vertex %d = (%g,%g): %w", v, vx[v], vy[v], ErrNonFinite)
		}
	}
	hx, hy := vx[1]-vx[0], vy[2]-vy[0]
	if !(hx > 0 && hy > 0) {
		return gt, fmt.Errorf("extents (%g,%g) are not positive: %w", hx, hy, ErrDegenerateGeometry)
	}
	scale := math.Max(hx, hy)
	if math.Min(hx, hy) < rectangleTol*scale {
		return gt, fmt.Errorf("extents (%g,%g) have near zero measure: %w", hx, hy, ErrDegenerateGeometry)
	}
	tol := rectangleTol * scale
	if math.Abs(vy[1]-vy[0]) > tol || math.Abs(vx[2]-vx[0]) > tol ||
		math.Abs(vx[3]-vx[1]) > tol || math.Abs(vy[3]-vy[2]) > tol {
		return gt, fmt.Errorf("cell is not an axis aligned rectangle: %w", ErrDegenerateGeometry)
	}
	gt = GeometricTransform{
		X0: vx[0], Y0: vy[0],
		Hx: hx, Hy: hy,
		Rx: 2 / hx, Sy: 2 / hy,
		J: hx * hy / 4,
	}
	return gt, nil
}

// ToPhysical maps reference coordinates to physical coordinates
func (gt GeometricTransform) ToPhysical(r, s float64) (x, y float64) {
	return gt.X0 + (r+1)*gt.Hx/2, gt.Y0 + (s+1)*gt.Hy/2
}

// Diameter is the length of the cell diagonal
func (gt GeometricTransform) Diameter() float64 {
	return math.Hypot(gt.Hx, gt.Hy)
}

func (gt GeometricTransform) Surface() (sg SurfaceGeometry) {
	for f := 0; f < NFaces; f++ {
		sg.Nx[f], sg.Ny[f] = FaceNormals[f][0], FaceNormals[f][1]
		if FaceAxis(f) == 1 {
			sg.SJ[f] = gt.Hy / 2
		} else {
			sg.SJ[f] = gt.Hx / 2
		}
	}
	return
}

// ElementConnectivity defines mesh topology and boundary conditions
type ElementConnectivity struct {
	EToE [][NFaces]int // Element k, face f connects to element EToE[k][f], -1 on the boundary
	EToF [][NFaces]int // Element k, face f connects to face EToF[k][f] of the neighbor
	// Boundary id of each face, -1 for interior faces
	BCType [][NFaces]int
}
