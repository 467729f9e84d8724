package partitions

import (
	"fmt"
	"math"
)

// Partition is a set of cells processed by one worker
type Partition struct {
	ID int

	Elements    []int // Global element indices in this partition, ascending
	NumElements int
	MaxElements int // KpartMax of the layout, sizes per worker workspaces
}

// PartitionLayout manages the complete mesh decomposition
type PartitionLayout struct {
	Partitions []Partition

	KpartMax      int // max(NumElements) across all partitions
	TotalElements int
	NumPartitions int

	// Element to partition mapping, element k belongs to partition EToP[k]
	EToP []int
}

// GetPartition returns the partition containing element k
func (pl *PartitionLayout) GetPartition(elementID int) int {
	if elementID < 0 || elementID >= len(pl.EToP) {
		return -1
	}
	return pl.EToP[elementID]
}

// ValidateLayout checks partition consistency: every element belongs to
// exactly one partition and EToP agrees with the partition lists
func (pl *PartitionLayout) ValidateLayout() error {
	if len(pl.Partitions) != pl.NumPartitions {
		return fmt.Errorf("layout has %d partitions, NumPartitions is %d",
			len(pl.Partitions), pl.NumPartitions)
	}
	if len(pl.EToP) != pl.TotalElements {
		return fmt.Errorf("EToP has %d entries for %d elements", len(pl.EToP), pl.TotalElements)
	}
	seen := make([]int, pl.TotalElements)
	actualMax := 0
	for _, p := range pl.Partitions {
		if p.NumElements != len(p.Elements) {
			return fmt.Errorf("partition %d: NumElements %d != %d listed elements",
				p.ID, p.NumElements, len(p.Elements))
		}
		if p.NumElements > actualMax {
			actualMax = p.NumElements
		}
		if p.MaxElements != pl.KpartMax {
			return fmt.Errorf("partition %d: MaxElements %d != KpartMax %d",
				p.ID, p.MaxElements, pl.KpartMax)
		}
		for _, k := range p.Elements {
			if k < 0 || k >= pl.TotalElements {
				return fmt.Errorf("partition %d: element %d out of range", p.ID, k)
			}
			if pl.EToP[k] != p.ID {
				return fmt.Errorf("partition %d lists element %d, EToP has %d", p.ID, k, pl.EToP[k])
			}
			seen[k]++
		}
	}
	for k, n := range seen {
		if n != 1 {
			return fmt.Errorf("element %d appears in %d partitions", k, n)
		}
	}
	if actualMax != pl.KpartMax {
		return fmt.Errorf("computed KpartMax %d != stored KpartMax %d",
			actualMax, pl.KpartMax)
	}
	return nil
}

// InterfaceFaces counts the faces shared by cells of different partitions.
// Skeleton dofs on these faces receive contributions from more than one
// partition buffer.
func (pl *PartitionLayout) InterfaceFaces(mesh *MeshConnectivity) (count int) {
	for k, nbrs := range mesh.EToE {
		for _, nb := range nbrs {
			if nb > k && pl.EToP[nb] != pl.EToP[k] {
				count++
			}
		}
	}
	return
}

// PartitionStatistics computes load balance metrics
func (pl *PartitionLayout) PartitionStatistics() PartitionStats {
	stats := PartitionStats{
		NumPartitions: pl.NumPartitions,
		MinElements:   math.MaxInt32,
		MaxElements:   0,
		AvgElements:   float64(pl.TotalElements) / float64(pl.NumPartitions),
	}
	for _, p := range pl.Partitions {
		if p.NumElements < stats.MinElements {
			stats.MinElements = p.NumElements
		}
		if p.NumElements > stats.MaxElements {
			stats.MaxElements = p.NumElements
		}
	}
	stats.Imbalance = float64(stats.MaxElements) / stats.AvgElements
	return stats
}

type PartitionStats struct {
	NumPartitions int
	MinElements   int
	MaxElements   int
	AvgElements   float64
	Imbalance     float64 // MaxElements / AvgElements
}

func (s PartitionStats) String() string {
	return fmt.Sprintf("%d partitions, %d..%d cells, imbalance %.3f",
		s.NumPartitions, s.MinElements, s.MaxElements, s.Imbalance)
}
