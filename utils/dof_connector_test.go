package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/DPGKernel/dofs"
	"github.com/notargets/DPGKernel/element"
	"github.com/notargets/DPGKernel/mesh"
	"github.com/notargets/DPGKernel/partitions"
)

func TestDofConnectorChain(t *testing.T) {
	// Element k touches dofs k and k+1
	chain := func(k int) []int { return []int{k, k + 1} }
	dc, err := NewDofConnector([]int{0, 0, 1, 1}, chain)
	require.NoError(t, err)
	require.NoError(t, dc.Verify())
	assert.Equal(t, 2, dc.NumPartitions)
	assert.Equal(t, []int{0, 1, 2}, dc.LocalToGlobal[0])
	assert.Equal(t, []int{2, 3, 4}, dc.LocalToGlobal[1])
	assert.Equal(t, 0, dc.GlobalToLocal[1][2])
	assert.Equal(t, []int{2}, dc.SharedDofs(0, 1))
	assert.Equal(t, []int{2}, dc.SharedDofs(1, 0))
	assert.Nil(t, dc.SharedDofs(0, 2))
	assert.Equal(t, []int{2, 3}, dc.LocalToGlobalElem[1])
	assert.Equal(t, 1, dc.GlobalToLocalElem[1][3])

	// Corrupting a map is detected
	dc.GlobalToLocal[1][3] = 0
	assert.Error(t, dc.Verify())
}

func TestDofConnectorErrors(t *testing.T) {
	_, err := NewDofConnector(nil, nil)
	assert.Error(t, err)
	_, err = NewDofConnector([]int{0, -1}, func(int) []int { return nil })
	assert.Error(t, err)
}

func TestDofConnectorSkeleton(t *testing.T) {
	m, err := mesh.NewSubdividedRectangle(4, 4, [2]float64{0, 0}, [2]float64{1, 1}, true)
	require.NoError(t, err)
	el, err := element.NewDPGElement(1, 1)
	require.NoError(t, err)
	h, err := dofs.Distribute(m, el)
	require.NoError(t, err)

	conn := &partitions.MeshConnectivity{NumElements: m.NumCells(), EToE: make([][]int, m.NumCells())}
	for k := range conn.EToE {
		conn.EToE[k] = m.EToE[k][:]
	}
	for _, strategy := range []partitions.PartitionStrategy{
		partitions.BlockPartition, partitions.RoundRobin, partitions.GraphPartition} {
		t.Run(strategy.String(), func(t *testing.T) {
			pb := &partitions.PartitionBuilder{Mesh: conn, TargetPartitionSize: 5, Strategy: strategy}
			layout, err := pb.BuildPartitions()
			require.NoError(t, err)
			dc, err := NewDofConnector(layout.EToP, h.SkeletonIndices)
			require.NoError(t, err)
			require.NoError(t, dc.Verify())

			// Every skeleton dof belongs to at least one partition
			covered := make([]bool, h.NSkeleton)
			for p := 0; p < dc.NumPartitions; p++ {
				for _, g := range dc.LocalToGlobal[p] {
					covered[g] = true
				}
			}
			for g, ok := range covered {
				assert.Truef(t, ok, "skeleton dof %d not covered", g)
			}
			// Cut faces share their dofs
			if layout.InterfaceFaces(conn) > 0 {
				var shared int
				for p := 0; p < dc.NumPartitions; p++ {
					for q := p + 1; q < dc.NumPartitions; q++ {
						shared += len(dc.SharedDofs(p, q))
					}
				}
				assert.Greater(t, shared, 0)
			}
		})
	}
}
