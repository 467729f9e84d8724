package linsys

import (
	"errors"
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/exp/linsolve"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SolverControl stops an iterative solve after MaxIterations or once the
// residual norm drops below RelTolerance * |b|
type SolverControl struct {
	MaxIterations int
	RelTolerance  float64
}

func (sc SolverControl) Validate() error {
	if sc.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be >= 1, have %d", sc.MaxIterations)
	}
	if !(sc.RelTolerance > 0 && sc.RelTolerance < 1) {
		return fmt.Errorf("relative tolerance must be in (0, 1), have %g", sc.RelTolerance)
	}
	return nil
}

type Stats struct {
	Iterations int
	Residual   float64
	Converged  bool
}

// NotConvergedError is returned when the iteration cap is hit before the
// tolerance is met. The solution vector holds the last iterate.
type NotConvergedError struct {
	Iterations int
	Residual   float64
	Tolerance  float64
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("solver did not converge after %d iterations: residual %.4e > tolerance %.4e",
		e.Iterations, e.Residual, e.Tolerance)
}

type Solver interface {
	// Solve solves A x = b, x holds the initial guess on entry
	Solve(A *sparse.CSR, b, x []float64) (Stats, error)
}

// csrMulVec lets linsolve drive a compressed matrix. The CSR product
// accumulates into dst, linsolve expects it overwritten.
type csrMulVec struct {
	*sparse.CSR
}

func (a csrMulVec) MulVecTo(dst *mat.VecDense, trans bool, x mat.Vector) {
	dst.Zero()
	a.CSR.MulVecTo(dst.RawVector().Data, trans, rawVector(x))
}

func rawVector(x mat.Vector) []float64 {
	if v, ok := x.(*mat.VecDense); ok && v.RawVector().Inc == 1 {
		return v.RawVector().Data[:v.Len()]
	}
	return mat.Col(nil, 0, x)
}

// Residual returns |b - A x|
func Residual(A *sparse.CSR, b, x []float64) float64 {
	r := make([]float64, len(b))
	A.MulVecTo(r, false, x)
	floats.SubTo(r, b, r)
	return floats.Norm(r, 2)
}

// CG is the unpreconditioned conjugate gradient method of linsolve. It
// requires a symmetric definite matrix, either sign.
type CG struct {
	Control SolverControl
}

func (cg CG) Solve(A *sparse.CSR, b, x []float64) (st Stats, err error) {
	if err = cg.Control.Validate(); err != nil {
		return
	}
	n, _ := A.Dims()
	if len(b) != n || len(x) != n {
		return st, fmt.Errorf("matrix is %dx%d, rhs has %d and solution %d entries", n, n, len(b), len(x))
	}
	bNorm := floats.Norm(b, 2)
	if bNorm == 0 {
		for i := range x {
			x[i] = 0
		}
		st.Converged = true
		return
	}
	// linsolve skips the iteration when the initial residual is below the
	// absolute tolerance, so the system is solved for unit |b|
	scale := 1 / bNorm
	rhs := mat.NewVecDense(n, nil)
	rhs.ScaleVec(scale, mat.NewVecDense(n, b))
	x0 := mat.NewVecDense(n, nil)
	x0.ScaleVec(scale, mat.NewVecDense(n, x))
	res, err := linsolve.Iterative(csrMulVec{A}, rhs, &linsolve.CG{}, &linsolve.Settings{
		InitX:         x0,
		Tolerance:     cg.Control.RelTolerance,
		MaxIterations: cg.Control.MaxIterations,
	})
	if res != nil {
		floats.ScaleTo(x, bNorm, res.X.RawVector().Data[:n])
		st.Iterations = res.Stats.Iterations
	}
	st.Residual = Residual(A, b, x)
	tol := cg.Control.RelTolerance * bNorm
	switch {
	case errors.Is(err, linsolve.ErrIterationLimit):
		return st, &NotConvergedError{Iterations: st.Iterations, Residual: st.Residual, Tolerance: tol}
	case err != nil:
		return st, fmt.Errorf("conjugate gradient failed after %d iterations: %w", st.Iterations, err)
	}
	st.Converged = true
	return
}
