package gonudg

import (
	"github.com/notargets/gocfd/DG1D"
)

// Lagrange1D is the nodal Lagrange basis on a set of distinct points in
// [-1,1]. Basis function j is one at Nodes[j] and zero at the other nodes.
type Lagrange1D struct {
	Nodes []float64
}

// NewLagrange1D returns the degree N basis on the Gauss-Lobatto nodes, so the
// end points of [-1,1] are always nodes when N > 0
func NewLagrange1D(N int) Lagrange1D {
	return Lagrange1D{Nodes: JacobiGL(0, 0, N)}
}

func (l Lagrange1D) Np() int { return len(l.Nodes) }

func (l Lagrange1D) Degree() int { return len(l.Nodes) - 1 }

// Eval fills phi with all basis values at x, allocating when phi is too short
func (l Lagrange1D) Eval(x float64, phi []float64) []float64 {
	return l.eval(x, 0, phi)
}

// EvalDeriv fills dphi with all basis derivatives at x
func (l Lagrange1D) EvalDeriv(x float64, dphi []float64) []float64 {
	return l.eval(x, 1, dphi)
}

func (l Lagrange1D) eval(x float64, deriv int, out []float64) []float64 {
	np := len(l.Nodes)
	if len(out) < np {
		out = make([]float64, np)
	}
	out = out[:np]
	if np == 1 {
		// Degree zero, the constant function
		out[0] = float64(1 - deriv)
		return out
	}
	for j := 0; j < np; j++ {
		out[j] = DG1D.Lagrange1DPoly(x, l.Nodes, j, deriv)
	}
	return out
}

// EndpointIndex returns the index of the basis function that is one at the
// end point x = -1 (end=0) or x = +1 (end=1), or -1 for degree zero
func (l Lagrange1D) EndpointIndex(end int) int {
	if len(l.Nodes) < 2 {
		return -1
	}
	if end == 0 {
		return 0
	}
	return len(l.Nodes) - 1
}
