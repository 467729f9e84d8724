package runner

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/notargets/DPGKernel/basis"
	"github.com/notargets/DPGKernel/element"
)

// Errors are L2 norms of the difference to the plane wave. Skeleton errors
// are normalised by the total skeleton length.
type Errors struct {
	URe, UIm, PRe, PIm float64
	UhatRe, UhatIm     float64
	PhatRe, PhatIm     float64
	Total              float64 // combined interior error
	SkeletonLength     float64
}

// computeErrors integrates the interior fields over every cell and the
// skeleton fields over every face once. The normal velocity trace is
// compared in absolute value since its sign follows the face orientation.
func (dr *Runner) computeErrors(res *CycleResult) error {
	var (
		ev   = basis.NewEvaluator(dr.Tables, dr.Mesh)
		el   = dr.El
		e    Errors
		cell [2][2]float64 // squared errors [sub][part]
		skel [2][2]float64
	)
	for k := 0; k < dr.Mesh.NumCells(); k++ {
		if err := ev.Reinit(k); err != nil {
			return err
		}
		cv := ev.Cell()
		x := dr.Dofs.InteriorIndices(k)
		for q := 0; q < cv.NQ; q++ {
			var u [2][2]float64 // [part][component]
			var p [2]float64
			for i, d := range el.Interior {
				v := dr.interior[x[i]] * cv.Trial[q][d.Base]
				if d.SubElement == element.Flux {
					u[d.Part][d.Component] += v
				} else {
					p[d.Part] += v
				}
			}
			ux, uy := dr.Wave.U(cv.X[q], cv.Y[q])
			pe := dr.Wave.P(cv.X[q], cv.Y[q])
			w := cv.JxW[q]
			cell[element.Flux][element.Real] += (sq(u[0][0]-real(ux)) + sq(u[0][1]-real(uy))) * w
			cell[element.Flux][element.Imag] += (sq(u[1][0]-imag(ux)) + sq(u[1][1]-imag(uy))) * w
			cell[element.Potential][element.Real] += sq(p[0]-real(pe)) * w
			cell[element.Potential][element.Imag] += sq(p[1]-imag(pe)) * w
		}

		xs := dr.Dofs.SkeletonIndices(k)
		for f := 0; f < element.NFaces; f++ {
			if nb := dr.Mesh.EToE[k][f]; nb >= 0 && nb < k {
				continue
			}
			fv := ev.Face(f)
			for q := 0; q < fv.NQ; q++ {
				var tr [2][2]float64
				for i, d := range el.Skeleton {
					var phi float64
					if d.SubElement == element.Flux {
						phi = fv.FluxTrace[q][d.Base]
					} else {
						phi = fv.PotTrace[q][d.Base]
					}
					tr[d.SubElement][d.Part] += dr.skeleton[xs[i]] * phi
				}
				un := dr.Wave.Un(fv.X[q], fv.Y[q], fv.Normal[0], fv.Normal[1])
				pe := dr.Wave.P(fv.X[q], fv.Y[q])
				w := fv.JxW[q]
				skel[element.Flux][element.Real] += sq(math.Abs(tr[element.Flux][element.Real])-math.Abs(real(un))) * w
				skel[element.Flux][element.Imag] += sq(math.Abs(tr[element.Flux][element.Imag])-math.Abs(imag(un))) * w
				skel[element.Potential][element.Real] += sq(tr[element.Potential][element.Real]-real(pe)) * w
				skel[element.Potential][element.Imag] += sq(tr[element.Potential][element.Imag]-imag(pe)) * w
				e.SkeletonLength += w
			}
		}
	}
	e.URe = math.Sqrt(cell[element.Flux][element.Real])
	e.UIm = math.Sqrt(cell[element.Flux][element.Imag])
	e.PRe = math.Sqrt(cell[element.Potential][element.Real])
	e.PIm = math.Sqrt(cell[element.Potential][element.Imag])
	e.Total = math.Sqrt(floats.Sum(cell[0][:]) + floats.Sum(cell[1][:]))
	e.UhatRe = math.Sqrt(skel[element.Flux][element.Real] / e.SkeletonLength)
	e.UhatIm = math.Sqrt(skel[element.Flux][element.Imag] / e.SkeletonLength)
	e.PhatRe = math.Sqrt(skel[element.Potential][element.Real] / e.SkeletonLength)
	e.PhatIm = math.Sqrt(skel[element.Potential][element.Imag] / e.SkeletonLength)
	res.Errors = e
	return nil
}

func sq(x float64) float64 { return x * x }
