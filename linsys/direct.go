package linsys

import (
	"fmt"

	"github.com/edp1096/sparse"
	jb "github.com/james-bowman/sparse"
)

// Direct solves with a sparse LU factorization
type Direct struct{}

func (Direct) Solve(A *jb.CSR, b, x []float64) (st Stats, err error) {
	n, _ := A.Dims()
	if len(b) != n || len(x) != n {
		return st, fmt.Errorf("matrix is %dx%d, rhs has %d and solution %d entries", n, n, len(b), len(x))
	}
	config := &sparse.Configuration{
		Real:           true,
		Expandable:     true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
	}
	lu, err := sparse.Create(int64(n), config)
	if err != nil {
		return st, fmt.Errorf("creating sparse LU matrix: %w", err)
	}
	defer lu.Destroy()
	// 1-based indexing
	A.DoNonZero(func(i, j int, v float64) {
		lu.GetElement(int64(i+1), int64(j+1)).Real += v
	})
	if err = lu.Factor(); err != nil {
		return st, fmt.Errorf("sparse LU factorization failed: %w", err)
	}
	rhs := make([]float64, n+1)
	copy(rhs[1:], b)
	sol, err := lu.Solve(rhs)
	if err != nil {
		return st, fmt.Errorf("sparse LU solve failed: %w", err)
	}
	if len(sol) < n+1 {
		return st, fmt.Errorf("sparse LU returned %d entries for %d unknowns", len(sol), n)
	}
	copy(x, sol[1:n+1])
	st.Iterations = 1
	st.Residual = Residual(A, b, x)
	st.Converged = true
	return
}
