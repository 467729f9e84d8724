package basis

import (
	"github.com/notargets/DPGKernel/element"
	"github.com/notargets/DPGKernel/element/library/gonudg"
)

// Tables hold the reference values of every base function of a DPG element
// at the cell and face quadrature points. They are immutable once built and
// may be shared by any number of evaluators.
type Tables struct {
	El *element.DPGElement

	NQ1D   int       // Gauss points per direction
	Xq, Wq []float64 // 1D Gauss rule

	// Cell point q = a + b*NQ1D sits at (Xq[a], Xq[b])
	CellR, CellS, CellW []float64

	// Reference tables indexed [q][base]
	Trial, TrialDr, TrialDs [][]float64
	RT, RTDiv               [][]float64
	TestQ, TestQDr, TestQDs [][]float64

	// Face tables indexed [face][q][base], q runs along the face parameter
	FaceRT    [element.NFaces][][]float64
	FaceQ     [element.NFaces][][]float64
	FaceFlux  [element.NFaces][][]float64
	FaceTrace [element.NFaces][][]float64
}

func NewTables(el *element.DPGElement) *Tables {
	t := &Tables{El: el, NQ1D: el.NQ}
	t.Xq, t.Wq = gonudg.Gauss(el.NQ)

	nq := t.NQ1D * t.NQ1D
	t.CellR = make([]float64, nq)
	t.CellS = make([]float64, nq)
	t.CellW = make([]float64, nq)
	for b := 0; b < t.NQ1D; b++ {
		for a := 0; a < t.NQ1D; a++ {
			q := a + b*t.NQ1D
			t.CellR[q], t.CellS[q] = t.Xq[a], t.Xq[b]
			t.CellW[q] = t.Wq[a] * t.Wq[b]
		}
	}

	var (
		nTrial = el.Trial.Np()
		nRT    = el.TestFlux.Np()
		nQ     = el.TestPotential.Np()
	)
	t.Trial, t.TrialDr, t.TrialDs = alloc(nq, nTrial), alloc(nq, nTrial), alloc(nq, nTrial)
	t.RT, t.RTDiv = alloc(nq, nRT), alloc(nq, nRT)
	t.TestQ, t.TestQDr, t.TestQDs = alloc(nq, nQ), alloc(nq, nQ), alloc(nq, nQ)
	for q := 0; q < nq; q++ {
		r, s := t.CellR[q], t.CellS[q]
		el.Trial.Eval(r, s, t.Trial[q], t.TrialDr[q], t.TrialDs[q])
		el.TestFlux.Eval(r, s, t.RT[q], t.RTDiv[q])
		el.TestPotential.Eval(r, s, t.TestQ[q], t.TestQDr[q], t.TestQDs[q])
	}

	scratch := make([]float64, nRT)
	for f := 0; f < element.NFaces; f++ {
		t.FaceRT[f] = alloc(t.NQ1D, nRT)
		t.FaceQ[f] = alloc(t.NQ1D, nQ)
		t.FaceFlux[f] = alloc(t.NQ1D, el.FluxTrace.Np())
		t.FaceTrace[f] = alloc(t.NQ1D, el.PotentialTrace.Np())
		for q, tq := range t.Xq {
			r, s := element.FacePoint(f, tq)
			el.TestFlux.Eval(r, s, t.FaceRT[f][q], scratch)
			el.TestPotential.Eval(r, s, t.FaceQ[f][q], nil, nil)
			el.FluxTrace.EvalFace(f, tq, t.FaceFlux[f][q])
			el.PotentialTrace.EvalFace(f, tq, t.FaceTrace[f][q])
		}
	}
	return t
}

func alloc(nq, n int) [][]float64 {
	data := make([]float64, nq*n)
	out := make([][]float64, nq)
	for q := range out {
		out[q] = data[q*n : (q+1)*n]
	}
	return out
}
