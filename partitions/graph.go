package partitions

// Graph returns the element adjacency of the mesh in the compressed form
// used by METIS: the neighbors of element k are adjncy[xadj[k]:xadj[k+1]].
// Boundary and self references are dropped, repeated neighbors kept once.
func (mc *MeshConnectivity) Graph() (xadj, adjncy []int32) {
	xadj = make([]int32, mc.NumElements+1)
	for k := 0; k < mc.NumElements; k++ {
		start := len(adjncy)
	next:
		for _, nb := range mc.EToE[k] {
			if nb < 0 || nb == k || nb >= mc.NumElements {
				continue
			}
			for _, seen := range adjncy[start:] {
				if seen == int32(nb) {
					continue next
				}
			}
			adjncy = append(adjncy, int32(nb))
		}
		xadj[k+1] = int32(len(adjncy))
	}
	return
}

// growRegions grows each partition breadth first from the lowest
// unassigned element until it holds its share of elements. Disconnected
// leftovers reseed from the next unassigned element.
func growRegions(mc *MeshConnectivity, numPartitions int) []int {
	K := mc.NumElements
	eToP := make([]int, K)
	for i := range eToP {
		eToP[i] = -1
	}
	var (
		next  int // lowest possibly unassigned element
		queue []int
	)
	for p := 0; p < numPartitions; p++ {
		// Spread the remainder over the leading partitions
		size := K / numPartitions
		if p < K%numPartitions {
			size++
		}
		queue = queue[:0]
		for count := 0; count < size; {
			if len(queue) == 0 {
				for eToP[next] >= 0 {
					next++
				}
				eToP[next] = p
				queue = append(queue, next)
				count++
				continue
			}
			k := queue[0]
			queue = queue[1:]
			for _, nb := range mc.EToE[k] {
				if count == size {
					break
				}
				if nb < 0 || nb == k || eToP[nb] >= 0 {
					continue
				}
				eToP[nb] = p
				queue = append(queue, nb)
				count++
			}
		}
	}
	return eToP
}
