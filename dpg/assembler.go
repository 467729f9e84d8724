package dpg

import (
	"fmt"
	"math/cmplx"

	"github.com/notargets/DPGKernel/basis"
	"github.com/notargets/DPGKernel/element"
	"github.com/notargets/DPGKernel/mesh"
)

// Form holds the parameters of the ultraweak formulation of the first order
// Helmholtz system i kappa u + grad p = 0, i kappa p + div u = f
type Form struct {
	Wavenumber float64
	// Robin maps an absorbing boundary id to its direction cosine k_ratio
	Robin map[int]float64
	// Source is the volumetric source f, nil for none
	Source func(x, y float64) complex128
	// RobinData is the impedance datum on Robin faces, nil for the
	// homogeneous absorbing condition
	RobinData func(x, y float64, id int) complex128
}

// Assembler builds the local DPG matrices of a cell. It owns an evaluator
// and must not be shared between goroutines.
type Assembler struct {
	Form Form
	El   *element.DPGElement
	Ev   *basis.Evaluator

	// conjugated row coefficients and column coefficients of each dof
	testConj, testCoef []complex128
	intCoef, skelCoef  []complex128
}

func NewAssembler(t *basis.Tables, m *mesh.Mesh, form Form) *Assembler {
	a := &Assembler{Form: form, El: t.El, Ev: basis.NewEvaluator(t, m)}
	for _, d := range a.El.Test {
		c := d.Part.Coefficient()
		a.testCoef = append(a.testCoef, c)
		a.testConj = append(a.testConj, cmplx.Conj(c))
	}
	for _, d := range a.El.Interior {
		a.intCoef = append(a.intCoef, d.Part.Coefficient())
	}
	for _, d := range a.El.Skeleton {
		a.skelCoef = append(a.skelCoef, d.Part.Coefficient())
	}
	return a
}

// Assemble fills ls with G, B, Bhat, D, l and g of cell k. Each complex
// contribution conj(c_i) c_j z of a row dof with unit c_i and a column dof
// with unit c_j is accumulated through its real part.
func (a *Assembler) Assemble(k int, ls *LocalSystem) error {
	ls.Reset()
	ls.Cell = k
	if err := a.Ev.Reinit(k); err != nil {
		return &CellError{Cell: k, Op: "reinit", Err: err}
	}
	a.assembleCell(ls)
	for f := 0; f < element.NFaces; f++ {
		a.assembleFace(f, ls)
	}
	if name, ok := ls.checkFinite(); !ok {
		return &CellError{Cell: k, Op: "assemble",
			Err: fmt.Errorf("%s has a NaN or Inf entry: %w", name, ErrNonFinite)}
	}
	return nil
}

func (a *Assembler) assembleCell(ls *LocalSystem) {
	var (
		cv       = a.Ev.Cell()
		test     = a.El.Test
		interior = a.El.Interior
		kappa    = a.Form.Wavenumber
		ik       = complex(0, kappa)
		kk1      = 1 + kappa*kappa
		G        = ls.G.RawMatrix()
		B        = ls.B.RawMatrix()
	)
	for q := 0; q < cv.NQ; q++ {
		var (
			w     = cv.JxW[q]
			trial = cv.Trial[q]
			tau   = cv.TestFlux[q]
			div   = cv.TestDiv[q]
			v     = cv.TestPot[q]
			grad  = cv.TestGrad[q]
		)
		for i, di := range test {
			ci := a.testConj[i]
			row := G.Data[i*G.Stride : i*G.Stride+len(test)]
			for j, dj := range test {
				var z complex128
				switch {
				case di.SubElement == element.Flux && dj.SubElement == element.Flux:
					// (1+kappa^2)(tau_j, tau_i) + (div tau_j, div tau_i)
					var tt float64
					if di.Component == dj.Component {
						tt = tau[di.Base] * tau[dj.Base]
					}
					z = complex(kk1*tt+div[di.Base]*div[dj.Base], 0)
				case di.SubElement == element.Flux:
					// (grad v_j, (i kappa tau_i)*) + (i kappa v_j, (div tau_i)*)
					z = ik * complex(v[dj.Base]*div[di.Base]-grad[dj.Base][di.Component]*tau[di.Base], 0)
				case dj.SubElement == element.Flux:
					// (i kappa tau_j, (grad v_i)*) + (div tau_j, (i kappa v_i)*)
					z = ik * complex(tau[dj.Base]*grad[di.Base][dj.Component]-div[dj.Base]*v[di.Base], 0)
				default:
					// (1+kappa^2)(v_j, v_i) + (grad v_j, grad v_i)
					gi, gj := grad[di.Base], grad[dj.Base]
					z = complex(kk1*v[di.Base]*v[dj.Base]+gi[0]*gj[0]+gi[1]*gj[1], 0)
				}
				val := ci * a.testCoef[j] * z
				row[j] += real(val) * w
				if ls.GC != nil {
					ls.GC.Set(i, j, ls.GC.At(i, j)+val*complex(w, 0))
				}
			}

			brow := B.Data[i*B.Stride : i*B.Stride+len(interior)]
			for j, dj := range interior {
				var z complex128
				switch {
				case di.SubElement == element.Flux && dj.SubElement == element.Flux:
					// (i kappa u_j, tau_i*)
					if di.Component == dj.Component {
						z = ik * complex(trial[dj.Base]*tau[di.Base], 0)
					}
				case di.SubElement == element.Flux:
					// -(p_j, (div tau_i)*)
					z = complex(-trial[dj.Base]*div[di.Base], 0)
				case dj.SubElement == element.Flux:
					// -(u_j, (grad v_i)*)
					z = complex(-trial[dj.Base]*grad[di.Base][dj.Component], 0)
				default:
					// (i kappa p_j, v_i*)
					z = ik * complex(trial[dj.Base]*v[di.Base], 0)
				}
				if z != 0 {
					brow[j] += real(ci*a.intCoef[j]*z) * w
				}
			}

			if a.Form.Source != nil && di.SubElement == element.Potential {
				src := a.Form.Source(cv.X[q], cv.Y[q])
				ls.L.SetVec(i, ls.L.AtVec(i)+real(ci*src)*v[di.Base]*w)
			}
		}
	}
}

func (a *Assembler) assembleFace(f int, ls *LocalSystem) {
	var (
		fv          = a.Ev.Face(f)
		test        = a.El.Test
		skel        = a.El.Skeleton
		orient      = fv.Orientation
		kr, isRobin = 0., false
	)
	if fv.BoundaryID >= 0 {
		kr, isRobin = a.Form.Robin[fv.BoundaryID]
	}
	for q := 0; q < fv.NQ; q++ {
		var (
			w     = fv.JxW[q]
			taun  = fv.TestFluxN[q]
			v     = fv.TestPot[q]
			uhat  = fv.FluxTrace[q]
			phat  = fv.PotTrace[q]
			datum complex128
		)
		if isRobin && a.Form.RobinData != nil {
			datum = a.Form.RobinData(fv.X[q], fv.Y[q], fv.BoundaryID)
		}
		for i, di := range test {
			ci := a.testConj[i]
			for j, dj := range skel {
				var z float64
				switch {
				case di.SubElement == element.Flux && dj.SubElement == element.Potential:
					// (phat_j, (tau_i . n)*)
					z = phat[dj.Base] * taun[di.Base]
				case di.SubElement == element.Potential && dj.SubElement == element.Flux:
					// orientation (uhat_j, v_i*)
					z = orient * uhat[dj.Base] * v[di.Base]
				}
				if z != 0 {
					ls.Bhat.Set(i, j, ls.Bhat.At(i, j)+real(ci*a.skelCoef[j]*complex(z, 0))*w)
				}
			}
			if !isRobin {
				continue
			}
			for j, dj := range test {
				var z float64
				switch {
				case di.SubElement == element.Flux && dj.SubElement == element.Flux:
					z = -taun[dj.Base] * taun[di.Base]
				case di.SubElement == element.Flux:
					z = kr * v[dj.Base] * taun[di.Base]
				case dj.SubElement == element.Flux:
					z = kr * taun[dj.Base] * v[di.Base]
				default:
					z = -kr * kr * v[dj.Base] * v[di.Base]
				}
				if z == 0 {
					continue
				}
				val := ci * a.testCoef[j] * complex(z, 0)
				ls.G.Set(i, j, ls.G.At(i, j)+real(val)*w)
				if ls.GC != nil {
					ls.GC.Set(i, j, ls.GC.At(i, j)+val*complex(w, 0))
				}
			}
		}
		if !isRobin {
			continue
		}
		for i, di := range skel {
			ci := cmplx.Conj(a.skelCoef[i])
			for j, dj := range skel {
				var z float64
				switch {
				case di.SubElement == element.Flux && dj.SubElement == element.Flux:
					z = -orient * orient * uhat[dj.Base] * uhat[di.Base]
				case di.SubElement == element.Flux:
					z = kr * phat[dj.Base] * orient * uhat[di.Base]
				case dj.SubElement == element.Flux:
					z = kr * orient * uhat[dj.Base] * phat[di.Base]
				default:
					z = -kr * kr * phat[dj.Base] * phat[di.Base]
				}
				if z != 0 {
					ls.D.Set(i, j, ls.D.At(i, j)+real(ci*a.skelCoef[j]*complex(z, 0))*w)
				}
			}
			if datum != 0 {
				if di.SubElement == element.Flux {
					ls.Gs.SetVec(i, ls.Gs.AtVec(i)-real(datum*ci)*uhat[di.Base]*w)
				} else {
					ls.Gs.SetVec(i, ls.Gs.AtVec(i)+real(datum*complex(kr, 0)*ci)*phat[di.Base]*w)
				}
			}
		}
	}
}
