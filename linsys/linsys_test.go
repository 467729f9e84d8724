package linsys

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// laplacian builds the 1D Dirichlet Laplacian scaled by sign and a rhs for
// the solution x_i = i+1
func laplacian(n int, sign float64) (*System, []float64) {
	s := NewSystem(n)
	for i := 0; i < n; i++ {
		s.Add(i, i, 2*sign)
		if i > 0 {
			s.Add(i, i-1, -sign)
		}
		if i < n-1 {
			s.Add(i, i+1, -sign)
		}
	}
	exact := make([]float64, n)
	for i := range exact {
		exact[i] = float64(i + 1)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			s.AddRHS(i, s.A.At(i, j)*exact[j])
		}
	}
	return s, exact
}

func TestSystemAccumulates(t *testing.T) {
	s := NewSystem(3)
	s.Add(0, 1, 1.5)
	s.Add(0, 1, 2.5)
	s.Add(2, 2, 0)
	s.AddRHS(1, 3)
	s.AddRHS(1, -1)
	assert.Equal(t, 4., s.A.At(0, 1))
	assert.Equal(t, 1, s.A.NNZ())
	assert.Equal(t, []float64{0, 2, 0}, s.RHS)
	csr := s.Finalize()
	assert.Equal(t, 4., csr.At(0, 1))
}

func TestBufferMerge(t *testing.T) {
	s := NewSystem(5)
	l2g := []int{4, 1, 3}
	g2l := map[int]int{4: 0, 1: 1, 3: 2}
	b := NewBuffer(l2g, g2l)
	b.Add(4, 1, 2)
	b.Add(4, 1, 1)
	b.Add(3, 3, -1)
	b.AddRHS(1, 7)
	assert.Equal(t, 3., b.A.At(0, 1))
	require.NoError(t, s.Merge(b))
	require.NoError(t, s.Merge(b))
	assert.Equal(t, 6., s.A.At(4, 1))
	assert.Equal(t, -2., s.A.At(3, 3))
	assert.Equal(t, []float64{0, 14, 0, 0, 0}, s.RHS)
	assert.Panics(t, func() { b.Add(0, 0, 1) })

	small := NewSystem(2)
	assert.Error(t, small.Merge(b))
}

func TestResidualAndProduct(t *testing.T) {
	s := NewSystem(3)
	s.Add(0, 0, 1)
	s.Add(0, 2, 2)
	s.Add(1, 0, -3)
	s.Add(2, 1, 4)
	A := s.Finalize()
	x := []float64{1, 2, 3}
	assert.InDelta(t, 0., Residual(A, []float64{7, -3, 8}, x), 1.e-14)

	// The product overwrites dst in both orientations
	op := csrMulVec{A}
	dst := mat.NewVecDense(3, []float64{100, 100, 100})
	op.MulVecTo(dst, false, mat.NewVecDense(3, x))
	assert.Equal(t, []float64{7, -3, 8}, dst.RawVector().Data)
	op.MulVecTo(dst, true, mat.NewVecDense(3, x))
	assert.Equal(t, []float64{-5, 12, 2}, dst.RawVector().Data)
}

func TestSolvers(t *testing.T) {
	control := SolverControl{MaxIterations: 1000, RelTolerance: 1.e-12}
	solvers := map[string]Solver{"cg": CG{Control: control}, "direct": Direct{}}
	for name, solver := range solvers {
		for _, sign := range []float64{1, -1} {
			t.Run(fmt.Sprintf("%s/sign=%g", name, sign), func(t *testing.T) {
				s, exact := laplacian(20, sign)
				x := make([]float64, s.N)
				st, err := solver.Solve(s.Finalize(), s.RHS, x)
				require.NoError(t, err)
				assert.True(t, st.Converged)
				assert.Greater(t, st.Iterations, 0)
				assert.InDeltaSlicef(t, exact, x, 1.e-8, "%s solution", name)
			})
		}
	}
}

func TestCGZeroRHS(t *testing.T) {
	s, _ := laplacian(5, 1)
	x := make([]float64, s.N)
	st, err := CG{Control: SolverControl{MaxIterations: 10, RelTolerance: 1.e-10}}.
		Solve(s.Finalize(), make([]float64, s.N), x)
	require.NoError(t, err)
	assert.True(t, st.Converged)
	assert.Equal(t, 0, st.Iterations)
}

func TestCGToleranceIsRelative(t *testing.T) {
	for _, scale := range []float64{1.e-12, 1, 1.e12} {
		t.Run(fmt.Sprintf("scale=%g", scale), func(t *testing.T) {
			s, exact := laplacian(30, -1)
			b := make([]float64, s.N)
			for i, v := range s.RHS {
				b[i] = scale * v
			}
			x := make([]float64, s.N)
			control := SolverControl{MaxIterations: 1000, RelTolerance: 1.e-10}
			st, err := CG{Control: control}.Solve(s.Finalize(), b, x)
			require.NoError(t, err)
			assert.Greater(t, st.Iterations, 0)
			for i := range x {
				assert.InDelta(t, exact[i], x[i]/scale, 1.e-5)
			}
			assert.Less(t, st.Residual, 1.e-8*scale*floats.Norm(s.RHS, 2))
		})
	}
}

func TestCGNotConverged(t *testing.T) {
	s, _ := laplacian(50, 1)
	x := make([]float64, s.N)
	st, err := CG{Control: SolverControl{MaxIterations: 2, RelTolerance: 1.e-12}}.
		Solve(s.Finalize(), s.RHS, x)
	require.Error(t, err)
	var nc *NotConvergedError
	require.True(t, errors.As(err, &nc))
	assert.Equal(t, 2, nc.Iterations)
	assert.Equal(t, st.Residual, nc.Residual)
	assert.Greater(t, nc.Residual, nc.Tolerance)
	assert.False(t, st.Converged)
}

func TestSolverControlValidate(t *testing.T) {
	assert.Error(t, SolverControl{MaxIterations: 0, RelTolerance: 1}.Validate())
	assert.Error(t, SolverControl{MaxIterations: 1, RelTolerance: 0}.Validate())
	assert.NoError(t, SolverControl{MaxIterations: 1, RelTolerance: 1.e-3}.Validate())

	s, _ := laplacian(3, 1)
	_, err := CG{}.Solve(s.Finalize(), s.RHS, make([]float64, 3))
	assert.Error(t, err)
	_, err = CG{Control: SolverControl{MaxIterations: 1, RelTolerance: 1}}.
		Solve(s.Finalize(), s.RHS, make([]float64, 3))
	assert.Error(t, err)
	_, err = CG{Control: SolverControl{MaxIterations: 1, RelTolerance: 0.5}}.
		Solve(s.Finalize(), s.RHS, make([]float64, 2))
	assert.Error(t, err)
}
