package gonudg

import (
	"gonum.org/v1/gonum/mat"
)

// Vandermonde1D initializes the 1D Vandermonde matrix V_{ij} = P_j(r_i) of
// orthonormal Legendre polynomials
func Vandermonde1D(N int, R []float64) *mat.Dense {
	V1D := mat.NewDense(len(R), N+1, nil)
	for j := 0; j <= N; j++ {
		V1D.SetCol(j, JacobiP(R, 0, 0, j))
	}
	return V1D
}

// GradVandermonde1D initializes the derivative of the modal basis at R
func GradVandermonde1D(N int, R []float64) *mat.Dense {
	DVr := mat.NewDense(len(R), N+1, nil)
	for j := 0; j <= N; j++ {
		DVr.SetCol(j, GradJacobiP(R, 0, 0, j))
	}
	return DVr
}

// Dmatrix1D computes the nodal differentiation matrix Dr = Vr V^-1 for the
// nodes R, which must number N+1
func Dmatrix1D(N int, R []float64) (Dr *mat.Dense, err error) {
	V := Vandermonde1D(N, R)
	Vr := GradVandermonde1D(N, R)
	var Vinv mat.Dense
	if err = Vinv.Inverse(V); err != nil {
		return nil, err
	}
	Dr = mat.NewDense(len(R), len(R), nil)
	Dr.Mul(Vr, &Vinv)
	return Dr, nil
}
