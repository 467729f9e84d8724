package mesh

import (
	"github.com/notargets/DPGKernel/element"
)

// RefineGlobal splits every cell into four. The children of cell K are
// cells 4K..4K+3 in lexicographic order and inherit the boundary ids of the
// parent faces they lie on.
func (m *Mesh) RefineGlobal() *Mesh {
	var (
		NV, NF, K = m.NumVertices(), m.NumFaces(), m.NumCells()
		nm        = &Mesh{
			VX:   make([]float64, NV+NF+K),
			VY:   make([]float64, NV+NF+K),
			EToV: make([][element.NVertices]int, 4*K),
		}
	)
	copy(nm.VX, m.VX)
	copy(nm.VY, m.VY)
	// One new vertex per face midpoint, then one per cell centre
	for gf, face := range m.Faces {
		nm.VX[NV+gf] = (m.VX[face.V[0]] + m.VX[face.V[1]]) / 2
		nm.VY[NV+gf] = (m.VY[face.V[0]] + m.VY[face.V[1]]) / 2
	}
	for k := 0; k < K; k++ {
		vx, vy := m.CellVertices(k)
		c := NV + NF + k
		nm.VX[c] = (vx[0] + vx[3]) / 2
		nm.VY[c] = (vy[0] + vy[3]) / 2

		v := m.EToV[k]
		var mid [element.NFaces]int
		for f := 0; f < element.NFaces; f++ {
			mid[f] = NV + m.CellFaces[k][f]
		}
		nm.EToV[4*k+0] = [element.NVertices]int{v[0], mid[2], mid[0], c}
		nm.EToV[4*k+1] = [element.NVertices]int{mid[2], v[1], c, mid[1]}
		nm.EToV[4*k+2] = [element.NVertices]int{mid[0], c, v[2], mid[3]}
		nm.EToV[4*k+3] = [element.NVertices]int{c, mid[1], mid[3], v[3]}
	}
	// A boundary face of a child lies on the same local face of its parent
	nm.buildConnectivity(func(_ *Mesh, k, f int) int {
		return m.BCType[k/4][f]
	})
	return nm
}
