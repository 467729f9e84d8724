package basis

import (
	"fmt"
	"math"

	"github.com/notargets/DPGKernel/element"
	"github.com/notargets/DPGKernel/mesh"
)

// CellValues are the physical base function values of one cell. Vector
// valued test functions carry a single nonzero component, given by
// element.RaviartThomas.Component, whose value is stored in TestFlux.
type CellValues struct {
	Cell      int
	Transform element.GeometricTransform
	NQ        int
	JxW       []float64
	X, Y      []float64

	// Indexed [q][base]
	Trial    [][]float64
	TestFlux [][]float64
	TestDiv  [][]float64
	TestPot  [][]float64
	TestGrad [][][2]float64
}

// FaceValues are the physical traces on one face of the current cell
type FaceValues struct {
	Face        int
	Orientation float64 // sign of the reference normal seen from this cell
	BoundaryID  int     // -1 for interior faces
	Normal      [2]float64
	NQ          int
	JxW         []float64
	X, Y        []float64

	// Indexed [q][base]
	TestFluxN [][]float64 // tau . n
	TestPot   [][]float64
	FluxTrace [][]float64
	PotTrace  [][]float64
}

// Evaluator maps reference tables onto the cells of a mesh. An evaluator
// owns its buffers and must not be shared between goroutines.
type Evaluator struct {
	T    *Tables
	Mesh *mesh.Mesh

	cell  CellValues
	faces [element.NFaces]FaceValues
}

func NewEvaluator(t *Tables, m *mesh.Mesh) *Evaluator {
	var (
		el  = t.El
		nq  = t.NQ1D * t.NQ1D
		nRT = el.TestFlux.Np()
		nQ  = el.TestPotential.Np()
	)
	ev := &Evaluator{T: t, Mesh: m}
	ev.cell = CellValues{
		NQ:       nq,
		JxW:      make([]float64, nq),
		X:        make([]float64, nq),
		Y:        make([]float64, nq),
		Trial:    t.Trial,
		TestFlux: t.RT,
		TestDiv:  alloc(nq, nRT),
		TestPot:  t.TestQ,
		TestGrad: make([][][2]float64, nq),
	}
	for q := range ev.cell.TestGrad {
		ev.cell.TestGrad[q] = make([][2]float64, nQ)
	}
	for f := range ev.faces {
		ev.faces[f] = FaceValues{
			Face:      f,
			Normal:    element.FaceNormals[f],
			NQ:        t.NQ1D,
			JxW:       make([]float64, t.NQ1D),
			X:         make([]float64, t.NQ1D),
			Y:         make([]float64, t.NQ1D),
			TestFluxN: alloc(t.NQ1D, nRT),
			TestPot:   t.FaceQ[f],
			FluxTrace: t.FaceFlux[f],
			PotTrace:  t.FaceTrace[f],
		}
		// tau . n does not depend on the cell for axis aligned geometry
		for q := 0; q < t.NQ1D; q++ {
			for i := 0; i < nRT; i++ {
				comp, _ := el.TestFlux.Component(i)
				ev.faces[f].TestFluxN[q][i] = t.FaceRT[f][q][i] * element.FaceNormals[f][comp]
			}
		}
	}
	return ev
}

// Reinit evaluates cell k and its four faces
func (ev *Evaluator) Reinit(k int) error {
	gt, err := ev.Mesh.Transform(k)
	if err != nil {
		return err
	}
	var (
		t   = ev.T
		el  = t.El
		cv  = &ev.cell
		nRT = el.TestFlux.Np()
	)
	cv.Cell, cv.Transform = k, gt
	for q := 0; q < cv.NQ; q++ {
		cv.JxW[q] = t.CellW[q] * gt.J
		if !finite(cv.JxW[q]) || cv.JxW[q] <= 0 {
			return fmt.Errorf("cell %d, point %d, JxW = %g: %w",
				k, q, cv.JxW[q], element.ErrNonFinite)
		}
		cv.X[q], cv.Y[q] = gt.ToPhysical(t.CellR[q], t.CellS[q])
		for i := 0; i < nRT; i++ {
			comp, _ := el.TestFlux.Component(i)
			scale := gt.Rx
			if comp == 1 {
				scale = gt.Sy
			}
			cv.TestDiv[q][i] = t.RTDiv[q][i] * scale
		}
		for i := range cv.TestGrad[q] {
			cv.TestGrad[q][i] = [2]float64{t.TestQDr[q][i] * gt.Rx, t.TestQDs[q][i] * gt.Sy}
		}
	}

	sg := gt.Surface()
	for f := range ev.faces {
		fv := &ev.faces[f]
		fv.Orientation = ev.Mesh.FaceOrientation(k, f)
		fv.BoundaryID = ev.Mesh.BCType[k][f]
		for q, tq := range t.Xq {
			fv.JxW[q] = t.Wq[q] * sg.SJ[f]
			if !finite(fv.JxW[q]) || fv.JxW[q] <= 0 {
				return fmt.Errorf("cell %d, face %d, point %d, JxW = %g: %w",
					k, f, q, fv.JxW[q], element.ErrNonFinite)
			}
			r, s := element.FacePoint(f, tq)
			fv.X[q], fv.Y[q] = gt.ToPhysical(r, s)
		}
	}
	return nil
}

// Cell returns the values of the cell passed to the last Reinit
func (ev *Evaluator) Cell() *CellValues { return &ev.cell }

// Face returns the values of face f of the cell passed to the last Reinit
func (ev *Evaluator) Face(f int) *FaceValues { return &ev.faces[f] }

// Neighbor returns the cell across face f of the current cell, -1 on the
// boundary
func (ev *Evaluator) Neighbor(f int) int { return ev.Mesh.EToE[ev.cell.Cell][f] }

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }
