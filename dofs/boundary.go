package dofs

import (
	"fmt"
	"math"

	"github.com/notargets/DPGKernel/element"
)

const valueTol = 1.e-12

// InterpolateBoundaryValues constrains the skeleton dofs of one component
// (sub element and part) on every face with the given boundary id to fn
// evaluated at the dof support points. Vertex dofs of those faces are
// included. Dofs that are already constrained keep their constraint; a
// Dirichlet value there that disagrees with fn is an error. It returns the
// number of new constraints.
func InterpolateBoundaryValues(h *Handler, id int, sub element.SubElement, part element.Part,
	fn func(x, y float64) float64, c *Constraints) (int, error) {
	var (
		el    = h.El
		off   = el.SkeletonOffset(sub, part)
		count int
		found bool
	)
	for _, face := range h.Mesh.Faces {
		if !face.IsBoundary() || face.BoundaryID != id {
			continue
		}
		found = true
		k, f := face.Cells[0], face.LocalFace[0]
		var local []int
		if sub == element.Flux {
			for a := 0; a < el.FluxTrace.NFp(); a++ {
				local = append(local, off+el.FluxTrace.Index(f, a))
			}
		} else {
			for a := 0; a < el.PotentialTrace.NFp(); a++ {
				local = append(local, off+el.PotentialTrace.FaceDof(f, a))
			}
		}
		skel := h.SkeletonIndices(k)
		for _, i := range local {
			g := skel[i]
			v := fn(h.SupportX[g], h.SupportY[g])
			if line, ok := c.Line(g); ok {
				if len(line.Entries) == 0 && math.Abs(line.Inhomogeneity-v) > valueTol*(1+math.Abs(v)) {
					return count, fmt.Errorf("dof %d at (%g, %g) on boundary %d: value %g conflicts with %g",
						g, h.SupportX[g], h.SupportY[g], id, v, line.Inhomogeneity)
				}
				continue
			}
			c.AddLine(g)
			c.SetInhomogeneity(g, v)
			count++
		}
	}
	if !found {
		return 0, fmt.Errorf("no boundary faces with id %d", id)
	}
	return count, nil
}
