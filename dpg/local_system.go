package dpg

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/DPGKernel/element"
)

// LocalSystem holds the dense matrices of one cell. A worker allocates one
// and reuses it for every cell it processes.
type LocalSystem struct {
	Cell int

	G    *mat.Dense    // test x test Gram matrix
	B    *mat.Dense    // test x interior trial
	Bhat *mat.Dense    // test x skeleton trial
	D    *mat.Dense    // skeleton x skeleton, Robin faces only
	L    *mat.VecDense // test load
	Gs   *mat.VecDense // skeleton load

	// GC is the complex Gram matrix before taking real parts, filled only
	// when non nil
	GC *mat.CDense
}

func NewLocalSystem(el *element.DPGElement) *LocalSystem {
	nT, nI, nS := el.NTest(), el.NInterior(), el.NSkeleton()
	return &LocalSystem{
		Cell: -1,
		G:    mat.NewDense(nT, nT, nil),
		B:    mat.NewDense(nT, nI, nil),
		Bhat: mat.NewDense(nT, nS, nil),
		D:    mat.NewDense(nS, nS, nil),
		L:    mat.NewVecDense(nT, nil),
		Gs:   mat.NewVecDense(nS, nil),
	}
}

// RecordComplex enables the complex record of G
func (ls *LocalSystem) RecordComplex() {
	n, _ := ls.G.Dims()
	ls.GC = mat.NewCDense(n, n, nil)
}

func (ls *LocalSystem) Reset() {
	ls.G.Zero()
	ls.B.Zero()
	ls.Bhat.Zero()
	ls.D.Zero()
	ls.L.Zero()
	ls.Gs.Zero()
	if ls.GC != nil {
		data := ls.GC.RawCMatrix().Data
		for i := range data {
			data[i] = 0
		}
	}
}

// checkFinite returns the name of the first object holding a NaN or Inf
func (ls *LocalSystem) checkFinite() (string, bool) {
	named := []struct {
		name string
		data []float64
	}{
		{"G", ls.G.RawMatrix().Data},
		{"B", ls.B.RawMatrix().Data},
		{"Bhat", ls.Bhat.RawMatrix().Data},
		{"D", ls.D.RawMatrix().Data},
		{"l", ls.L.RawVector().Data},
		{"g", ls.Gs.RawVector().Data},
	}
	for _, n := range named {
		for _, v := range n.data {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return n.name, false
			}
		}
	}
	return "", true
}
