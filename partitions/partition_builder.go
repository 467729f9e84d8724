package partitions

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// PartitionBuilder constructs partitions from mesh connectivity
type PartitionBuilder struct {
	Mesh *MeshConnectivity

	TargetPartitionSize int // Desired elements per partition
	Strategy            PartitionStrategy
}

// MeshConnectivity provides the mesh topology needed for partitioning.
// Negative or self references in EToE are boundary faces.
type MeshConnectivity struct {
	NumElements int
	EToE        [][]int
}

// PartitionStrategy defines how elements are grouped
type PartitionStrategy int

const (
	BlockPartition PartitionStrategy = iota // Consecutive elements
	RoundRobin                              // Distribute cyclically
	GraphPartition                          // Minimal edge cut of the EToE graph
)

func (s PartitionStrategy) String() string {
	switch s {
	case BlockPartition:
		return "block"
	case RoundRobin:
		return "roundrobin"
	case GraphPartition:
		return "graph"
	}
	return fmt.Sprintf("PartitionStrategy(%d)", int(s))
}

// ParseStrategy maps a configuration name to a strategy
func ParseStrategy(name string) (PartitionStrategy, error) {
	switch strings.ToLower(name) {
	case "block":
		return BlockPartition, nil
	case "roundrobin":
		return RoundRobin, nil
	case "graph":
		return GraphPartition, nil
	}
	return 0, fmt.Errorf("unknown partition strategy %q", name)
}

// BuildPartitions creates a partition layout from mesh connectivity
func (pb *PartitionBuilder) BuildPartitions() (*PartitionLayout, error) {
	if pb.Mesh == nil || pb.Mesh.NumElements < 1 {
		return nil, fmt.Errorf("no elements to partition")
	}
	if pb.TargetPartitionSize < 1 {
		return nil, fmt.Errorf("target partition size must be positive, have %d",
			pb.TargetPartitionSize)
	}
	if pb.Strategy == GraphPartition && len(pb.Mesh.EToE) != pb.Mesh.NumElements {
		return nil, fmt.Errorf("graph partitioning needs EToE for %d elements, have %d",
			pb.Mesh.NumElements, len(pb.Mesh.EToE))
	}
	numPartitions := pb.calculateNumPartitions()

	var eToP []int
	switch pb.Strategy {
	case BlockPartition:
		eToP = pb.blockPartition(numPartitions)
	case RoundRobin:
		eToP = pb.roundRobinPartition(numPartitions)
	case GraphPartition:
		var err error
		if eToP, err = partitionGraph(pb.Mesh, numPartitions); err != nil {
			return nil, fmt.Errorf("graph partitioning into %d parts: %w", numPartitions, err)
		}
		// The partitioner may leave parts empty
		numPartitions = compactPartitions(eToP)
	default:
		return nil, fmt.Errorf("unsupported partition strategy %v", pb.Strategy)
	}

	partitions := pb.createPartitions(eToP, numPartitions)
	kpartMax := pb.calculateKpartMax(partitions)
	for i := range partitions {
		partitions[i].MaxElements = kpartMax
	}
	layout := &PartitionLayout{
		Partitions:    partitions,
		KpartMax:      kpartMax,
		TotalElements: pb.Mesh.NumElements,
		NumPartitions: numPartitions,
		EToP:          eToP,
	}
	if err := layout.ValidateLayout(); err != nil {
		return nil, fmt.Errorf("invalid partition layout: %w", err)
	}
	return layout, nil
}

// calculateNumPartitions determines the partition count, never more than the
// number of elements
func (pb *PartitionBuilder) calculateNumPartitions() int {
	numPartitions := int(math.Ceil(float64(pb.Mesh.NumElements) / float64(pb.TargetPartitionSize)))
	if numPartitions < 1 {
		numPartitions = 1
	}
	return numPartitions
}

func (pb *PartitionBuilder) blockPartition(numPartitions int) []int {
	eToP := make([]int, pb.Mesh.NumElements)
	elementsPerPartition := int(math.Ceil(float64(pb.Mesh.NumElements) / float64(numPartitions)))
	for i := range eToP {
		eToP[i] = i / elementsPerPartition
		if eToP[i] >= numPartitions {
			eToP[i] = numPartitions - 1
		}
	}
	return eToP
}

func (pb *PartitionBuilder) roundRobinPartition(numPartitions int) []int {
	eToP := make([]int, pb.Mesh.NumElements)
	for i := range eToP {
		eToP[i] = i % numPartitions
	}
	return eToP
}

// compactPartitions renumbers the partitions of eToP consecutively keeping
// their order and returns the number of non empty partitions
func compactPartitions(eToP []int) int {
	used := make(map[int]int)
	for _, p := range eToP {
		used[p] = 0
	}
	ids := make([]int, 0, len(used))
	for p := range used {
		ids = append(ids, p)
	}
	sort.Ints(ids)
	for i, p := range ids {
		used[p] = i
	}
	for k, p := range eToP {
		eToP[k] = used[p]
	}
	return len(ids)
}

// createPartitions builds partition structures from element assignments
func (pb *PartitionBuilder) createPartitions(eToP []int, numPartitions int) []Partition {
	partitions := make([]Partition, numPartitions)
	for i := range partitions {
		partitions[i] = Partition{ID: i, Elements: make([]int, 0)}
	}
	for elem, part := range eToP {
		partitions[part].Elements = append(partitions[part].Elements, elem)
		partitions[part].NumElements++
	}
	return partitions
}

// calculateKpartMax finds maximum elements across all partitions
func (pb *PartitionBuilder) calculateKpartMax(partitions []Partition) int {
	kpartMax := 0
	for _, p := range partitions {
		if p.NumElements > kpartMax {
			kpartMax = p.NumElements
		}
	}
	return kpartMax
}
