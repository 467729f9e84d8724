package element

import (
	"fmt"

	"github.com/notargets/DPGKernel/element/library/gonudg"
)

// LagrangeQ is the tensor product Lagrange space Q_{Nr,Ns} on the reference
// square with Gauss-Lobatto nodes. Basis function a + b*(Nr+1) is the
// product of the a-th r-direction and b-th s-direction 1D functions.
type LagrangeQ struct {
	R, S gonudg.Lagrange1D
}

// NewLagrangeQ returns the isotropic space Q_N
func NewLagrangeQ(N int) LagrangeQ {
	return NewLagrangeQAniso(N, N)
}

func NewLagrangeQAniso(Nr, Ns int) LagrangeQ {
	return LagrangeQ{R: gonudg.NewLagrange1D(Nr), S: gonudg.NewLagrange1D(Ns)}
}

func (q LagrangeQ) Np() int { return q.R.Np() * q.S.Np() }

func (q LagrangeQ) Index(a, b int) int { return a + b*q.R.Np() }

// Eval fills the values and reference derivatives of every basis function
// at (r,s). Any of the output slices may be nil.
func (q LagrangeQ) Eval(r, s float64, val, dr, ds []float64) {
	var (
		pr  = q.R.Eval(r, nil)
		ps  = q.S.Eval(s, nil)
		dpr = q.R.EvalDeriv(r, nil)
		dps = q.S.EvalDeriv(s, nil)
	)
	for b := range ps {
		for a := range pr {
			i := q.Index(a, b)
			if val != nil {
				val[i] = pr[a] * ps[b]
			}
			if dr != nil {
				dr[i] = dpr[a] * ps[b]
			}
			if ds != nil {
				ds[i] = pr[a] * dps[b]
			}
		}
	}
}

// RaviartThomas is RT_N on the square: the first X.Np() functions are
// (phi,0) with phi in Q_{N+1,N}, the remaining Y.Np() are (0,psi) with psi
// in Q_{N,N+1}
type RaviartThomas struct {
	N    int
	X, Y LagrangeQ
}

func NewRaviartThomas(N int) RaviartThomas {
	return RaviartThomas{
		N: N,
		X: NewLagrangeQAniso(N+1, N),
		Y: NewLagrangeQAniso(N, N+1),
	}
}

func (rt RaviartThomas) Np() int { return rt.X.Np() + rt.Y.Np() }

// Component returns the vector component carried by function i and its
// index within that component's scalar space
func (rt RaviartThomas) Component(i int) (comp, base int) {
	if i < rt.X.Np() {
		return 0, i
	}
	return 1, i - rt.X.Np()
}

// Eval fills the nonzero component value and its derivative along that
// component's own direction (d/dr for x functions, d/ds for y functions),
// which is the reference divergence
func (rt RaviartThomas) Eval(r, s float64, val, div []float64) {
	nx := rt.X.Np()
	rt.X.Eval(r, s, val[:nx], div[:nx], nil)
	rt.Y.Eval(r, s, val[nx:], nil, div[nx:])
}

// FaceQ is the face-wise discontinuous Lagrange space of degree N on the
// four faces of the square
type FaceQ struct {
	L gonudg.Lagrange1D
}

func NewFaceQ(N int) FaceQ { return FaceQ{L: gonudg.NewLagrange1D(N)} }

func (f FaceQ) NFp() int { return f.L.Np() }

func (f FaceQ) Np() int { return NFaces * f.L.Np() }

func (f FaceQ) Index(face, a int) int { return face*f.L.Np() + a }

// EvalFace fills val with the trace of every basis function on face at t
func (f FaceQ) EvalFace(face int, t float64, val []float64) {
	for i := range val {
		val[i] = 0
	}
	phi := f.L.Eval(t, nil)
	for a, p := range phi {
		val[f.Index(face, a)] = p
	}
}

// TraceQ is the trace on the cell boundary of the continuous space Q_N.
// Dofs 0..3 sit on the vertices, then each face carries N-1 interior dofs.
type TraceQ struct {
	L gonudg.Lagrange1D
}

func NewTraceQ(N int) (TraceQ, error) {
	if N < 1 {
		return TraceQ{}, fmt.Errorf("trace space needs degree >= 1, have %d", N)
	}
	return TraceQ{L: gonudg.NewLagrange1D(N)}, nil
}

// NFp is the number of nodes along one face, vertices included
func (tq TraceQ) NFp() int { return tq.L.Np() }

func (tq TraceQ) Np() int { return NVertices + NFaces*(tq.L.Np()-2) }

// FaceDof maps node a (0..N) along face to the local dof index
func (tq TraceQ) FaceDof(face, a int) int {
	N := tq.L.Degree()
	switch a {
	case 0:
		return FaceVertices[face][0]
	case N:
		return FaceVertices[face][1]
	}
	return NVertices + face*(N-1) + a - 1
}

func (tq TraceQ) EvalFace(face int, t float64, val []float64) {
	for i := range val {
		val[i] = 0
	}
	phi := tq.L.Eval(t, nil)
	for a, p := range phi {
		val[tq.FaceDof(face, a)] = p
	}
}
