package utils

import (
	"fmt"
	"slices"
)

// DofConnector maps the global skeleton dofs touched by each partition to a
// partition local numbering, so that every partition can accumulate its
// cells into a private buffer that is merged afterwards
type DofConnector struct {
	NumPartitions int
	K             int   // Total elements
	EToP          []int // Element → partition mapping

	// Partition element mappings
	ElemsPerPartition []int
	GlobalToLocalElem []map[int]int // [partition][globalElem] → localElem
	LocalToGlobalElem [][]int       // [partition][localElem] → globalElem

	// Partition dof mappings, local dofs numbered in order of first touch
	LocalToGlobal [][]int       // [partition][localDof] → globalDof
	GlobalToLocal []map[int]int // [partition][globalDof] → localDof

	// CellDofs are the global dofs written by each element
	CellDofs [][]int
}

// NewDofConnector builds the partition maps. cellDofs returns the global dofs
// an element writes to, after constraint resolution.
func NewDofConnector(EToP []int, cellDofs func(k int) []int) (*DofConnector, error) {
	K := len(EToP)
	if K == 0 {
		return nil, fmt.Errorf("no elements to connect")
	}
	numPartitions := 0
	for k, p := range EToP {
		if p < 0 {
			return nil, fmt.Errorf("element %d has no partition", k)
		}
		if p+1 > numPartitions {
			numPartitions = p + 1
		}
	}
	dc := &DofConnector{
		NumPartitions: numPartitions,
		K:             K,
		EToP:          EToP,
		CellDofs:      make([][]int, K),
	}
	for k := range dc.CellDofs {
		dc.CellDofs[k] = slices.Clone(cellDofs(k))
	}
	dc.buildPartitionMappings()
	dc.buildDofMappings()
	return dc, nil
}

func (dc *DofConnector) buildPartitionMappings() {
	dc.ElemsPerPartition = make([]int, dc.NumPartitions)
	for _, p := range dc.EToP {
		dc.ElemsPerPartition[p]++
	}
	dc.GlobalToLocalElem = make([]map[int]int, dc.NumPartitions)
	dc.LocalToGlobalElem = make([][]int, dc.NumPartitions)
	for p := 0; p < dc.NumPartitions; p++ {
		dc.GlobalToLocalElem[p] = make(map[int]int)
		dc.LocalToGlobalElem[p] = make([]int, 0, dc.ElemsPerPartition[p])
	}
	for globalElem := 0; globalElem < dc.K; globalElem++ {
		partition := dc.EToP[globalElem]
		dc.GlobalToLocalElem[partition][globalElem] = len(dc.LocalToGlobalElem[partition])
		dc.LocalToGlobalElem[partition] = append(dc.LocalToGlobalElem[partition], globalElem)
	}
}

func (dc *DofConnector) buildDofMappings() {
	dc.LocalToGlobal = make([][]int, dc.NumPartitions)
	dc.GlobalToLocal = make([]map[int]int, dc.NumPartitions)
	for p := 0; p < dc.NumPartitions; p++ {
		g2l := make(map[int]int)
		var l2g []int
		for _, k := range dc.LocalToGlobalElem[p] {
			for _, g := range dc.CellDofs[k] {
				if _, ok := g2l[g]; !ok {
					g2l[g] = len(l2g)
					l2g = append(l2g, g)
				}
			}
		}
		dc.LocalToGlobal[p], dc.GlobalToLocal[p] = l2g, g2l
	}
}

// NumLocal returns the number of dofs partition p touches
func (dc *DofConnector) NumLocal(p int) int { return len(dc.LocalToGlobal[p]) }

// SharedDofs returns the global dofs touched by both partitions p and q, in
// the local order of p
func (dc *DofConnector) SharedDofs(p, q int) []int {
	if p < 0 || p >= dc.NumPartitions || q < 0 || q >= dc.NumPartitions {
		return nil
	}
	var shared []int
	for _, g := range dc.LocalToGlobal[p] {
		if _, ok := dc.GlobalToLocal[q][g]; ok {
			shared = append(shared, g)
		}
	}
	return shared
}

// Verify checks index validity and that the maps are mutually inverse and
// cover every dof of every element
func (dc *DofConnector) Verify() error {
	for p := 0; p < dc.NumPartitions; p++ {
		l2g, g2l := dc.LocalToGlobal[p], dc.GlobalToLocal[p]
		if len(l2g) != len(g2l) {
			return fmt.Errorf("partition %d: %d local dofs but %d map entries", p, len(l2g), len(g2l))
		}
		for l, g := range l2g {
			if g < 0 {
				return fmt.Errorf("partition %d: invalid global dof %d at local %d", p, g, l)
			}
			if back, ok := g2l[g]; !ok || back != l {
				return fmt.Errorf("partition %d: global dof %d maps back to %d, want %d", p, g, back, l)
			}
		}
	}
	for k, dofs := range dc.CellDofs {
		p := dc.EToP[k]
		for _, g := range dofs {
			if _, ok := dc.GlobalToLocal[p][g]; !ok {
				return fmt.Errorf("element %d dof %d missing from partition %d", k, g, p)
			}
		}
	}
	return nil
}
