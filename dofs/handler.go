package dofs

import (
	"fmt"

	"github.com/notargets/DPGKernel/element"
	"github.com/notargets/DPGKernel/mesh"
)

// Handler numbers the interior and skeleton dofs of a mesh.
//
// Interior dofs are numbered cell by cell, each cell's block following the
// element's interior layout (real velocity, imaginary velocity, real
// pressure, imaginary pressure).
//
// Skeleton dofs are blocked by component: real normal flux trace, imaginary
// normal flux trace, real pressure trace, imaginary pressure trace. Flux
// trace dofs are numbered face by face, pressure trace dofs first by vertex
// and then by face interior node. Face nodes follow the direction of the
// global face.
type Handler struct {
	Mesh *mesh.Mesh
	El   *element.DPGElement

	NInterior, NSkeleton int

	interior [][]int
	skeleton [][]int

	// Support point of every skeleton dof
	SupportX, SupportY []float64

	fluxBlock, potBlock int
}

func Distribute(m *mesh.Mesh, el *element.DPGElement) (*Handler, error) {
	var (
		K   = m.NumCells()
		nI  = el.NInterior()
		nf  = el.FluxTrace.NFp()
		np  = el.PotentialTrace.NFp()
		nfi = np - 2
	)
	h := &Handler{
		Mesh:      m,
		El:        el,
		NInterior: K * nI,
		fluxBlock: m.NumFaces() * nf,
		potBlock:  m.NumVertices() + m.NumFaces()*nfi,
		interior:  make([][]int, K),
		skeleton:  make([][]int, K),
	}
	h.NSkeleton = 2*h.fluxBlock + 2*h.potBlock
	h.SupportX = make([]float64, h.NSkeleton)
	h.SupportY = make([]float64, h.NSkeleton)

	for k := 0; k < K; k++ {
		h.interior[k] = make([]int, nI)
		for i := range h.interior[k] {
			h.interior[k][i] = k*nI + i
		}

		dofs := make([]int, el.NSkeleton())
		for _, part := range []element.Part{element.Real, element.Imag} {
			fOff := el.SkeletonOffset(element.Flux, part)
			pOff := el.SkeletonOffset(element.Potential, part)
			for v := 0; v < element.NVertices; v++ {
				dofs[pOff+v] = h.PotentialVertexDof(m.EToV[k][v], part)
			}
			for f := 0; f < element.NFaces; f++ {
				gf := m.CellFaces[k][f]
				rev := m.FaceReversed(k, f)
				for a := 0; a < nf; a++ {
					ga := a
					if rev {
						ga = nf - 1 - a
					}
					dofs[fOff+el.FluxTrace.Index(f, a)] = h.FluxDof(gf, ga, part)
				}
				for a := 1; a < np-1; a++ {
					ga := a
					if rev {
						ga = np - 1 - a
					}
					dofs[pOff+el.PotentialTrace.FaceDof(f, a)] = h.PotentialFaceDof(gf, ga, part)
				}
			}
		}
		h.skeleton[k] = dofs
	}

	for gf, face := range m.Faces {
		x0, y0 := m.VX[face.V[0]], m.VY[face.V[0]]
		x1, y1 := m.VX[face.V[1]], m.VY[face.V[1]]
		at := func(t float64) (float64, float64) {
			return x0 + (t+1)/2*(x1-x0), y0 + (t+1)/2*(y1-y0)
		}
		for _, part := range []element.Part{element.Real, element.Imag} {
			for a, t := range el.FluxTrace.L.Nodes {
				g := h.FluxDof(gf, a, part)
				h.SupportX[g], h.SupportY[g] = at(t)
			}
			for a := 1; a < np-1; a++ {
				g := h.PotentialFaceDof(gf, a, part)
				h.SupportX[g], h.SupportY[g] = at(el.PotentialTrace.L.Nodes[a])
			}
		}
	}
	for v := 0; v < m.NumVertices(); v++ {
		for _, part := range []element.Part{element.Real, element.Imag} {
			g := h.PotentialVertexDof(v, part)
			h.SupportX[g], h.SupportY[g] = m.VX[v], m.VY[v]
		}
	}

	for k := range h.skeleton {
		for i, g := range h.skeleton[k] {
			if g < 0 || g >= h.NSkeleton {
				return nil, fmt.Errorf("cell %d, local skeleton dof %d: global index %d out of range",
					k, i, g)
			}
		}
	}
	return h, nil
}

// InteriorIndices returns the global interior dofs of cell k in local order
func (h *Handler) InteriorIndices(k int) []int { return h.interior[k] }

// SkeletonIndices returns the global skeleton dofs of cell k in local order
func (h *Handler) SkeletonIndices(k int) []int { return h.skeleton[k] }

// FluxDof is the global dof of node a of the flux trace on global face gf
func (h *Handler) FluxDof(gf, a int, part element.Part) int {
	g := gf*h.El.FluxTrace.NFp() + a
	if part == element.Imag {
		g += h.fluxBlock
	}
	return g
}

func (h *Handler) PotentialVertexDof(v int, part element.Part) int {
	g := 2*h.fluxBlock + v
	if part == element.Imag {
		g += h.potBlock
	}
	return g
}

// PotentialFaceDof is the global dof of interior node a (1..N-1) of the
// pressure trace on global face gf
func (h *Handler) PotentialFaceDof(gf, a int, part element.Part) int {
	nfi := h.El.PotentialTrace.NFp() - 2
	g := 2*h.fluxBlock + h.Mesh.NumVertices() + gf*nfi + a - 1
	if part == element.Imag {
		g += h.potBlock
	}
	return g
}

// SkeletonComponent classifies a global skeleton dof
func (h *Handler) SkeletonComponent(g int) (element.SubElement, element.Part) {
	switch {
	case g < h.fluxBlock:
		return element.Flux, element.Real
	case g < 2*h.fluxBlock:
		return element.Flux, element.Imag
	case g < 2*h.fluxBlock+h.potBlock:
		return element.Potential, element.Real
	}
	return element.Potential, element.Imag
}
