//go:build cgo && !nometis

package partitions

import (
	"fmt"

	metis "github.com/notargets/go-metis"
)

// partitionGraph splits the element graph with METIS, recursive bisection
// for up to eight parts and k-way beyond. Graphs without edges fall back to
// region growing.
func partitionGraph(mc *MeshConnectivity, numPartitions int) ([]int, error) {
	xadj, adjncy := mc.Graph()
	if numPartitions == 1 || len(adjncy) == 0 {
		return growRegions(mc, numPartitions), nil
	}
	opts := make([]int32, metis.NoOptions)
	if err := metis.SetDefaultOptions(opts); err != nil {
		return nil, err
	}
	opts[metis.OptionNumbering] = 0
	opts[metis.OptionSeed] = 1 // same layout on every run

	var (
		part []int32
		err  error
	)
	if numPartitions <= 8 {
		part, _, err = metis.PartGraphRecursive(xadj, adjncy, int32(numPartitions), opts)
	} else {
		part, _, err = metis.PartGraphKway(xadj, adjncy, int32(numPartitions), opts)
	}
	if err != nil {
		return nil, fmt.Errorf("metis: %w", err)
	}
	eToP := make([]int, len(part))
	for k, p := range part {
		if p < 0 || int(p) >= numPartitions {
			return nil, fmt.Errorf("metis assigned element %d to partition %d of %d", k, p, numPartitions)
		}
		eToP[k] = int(p)
	}
	return eToP, nil
}
