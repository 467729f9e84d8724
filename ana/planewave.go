// Package ana holds analytical solutions of the first order Helmholtz system
//
//	i kappa u + grad p = 0
//	i kappa p + div u  = 0
package ana

import (
	"math"
	"math/cmplx"
)

// PlaneWave is p = exp(-i kappa (x cos(theta) + y sin(theta))) travelling in
// direction (cos(theta), sin(theta)), with velocity u = (cos(theta), sin(theta)) p
type PlaneWave struct {
	Wavenumber float64
	Theta      float64
}

func NewPlaneWave(kappa, theta float64) PlaneWave {
	return PlaneWave{Wavenumber: kappa, Theta: theta}
}

// Direction returns the unit propagation direction
func (pw PlaneWave) Direction() (dx, dy float64) {
	return math.Cos(pw.Theta), math.Sin(pw.Theta)
}

// P returns the pressure at (x,y)
func (pw PlaneWave) P(x, y float64) complex128 {
	dx, dy := pw.Direction()
	return cmplx.Exp(complex(0, -pw.Wavenumber*(x*dx+y*dy)))
}

// U returns the velocity at (x,y)
func (pw PlaneWave) U(x, y float64) (ux, uy complex128) {
	dx, dy := pw.Direction()
	p := pw.P(x, y)
	return complex(dx, 0) * p, complex(dy, 0) * p
}

// Un returns the normal velocity u.n
func (pw PlaneWave) Un(x, y, nx, ny float64) complex128 {
	ux, uy := pw.U(x, y)
	return complex(nx, 0)*ux + complex(ny, 0)*uy
}

// RobinRatio is the direction cosine k_ratio = d.n of the absorbing
// condition u.n = k_ratio p satisfied on a face with outward normal n
func (pw PlaneWave) RobinRatio(nx, ny float64) float64 {
	dx, dy := pw.Direction()
	return dx*nx + dy*ny
}

// Boundary data for the constrained skeleton components

func (pw PlaneWave) PReal(x, y float64) float64 { return real(pw.P(x, y)) }

func (pw PlaneWave) PImag(x, y float64) float64 { return imag(pw.P(x, y)) }

// UnBottomReal is the real part of u.n on a face with normal (0,-1)
func (pw PlaneWave) UnBottomReal(x, y float64) float64 {
	_, uy := pw.U(x, y)
	return -real(uy)
}

func (pw PlaneWave) UnBottomImag(x, y float64) float64 {
	_, uy := pw.U(x, y)
	return -imag(uy)
}
