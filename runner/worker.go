package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/DPGKernel/dpg"
	"github.com/notargets/DPGKernel/linsys"
)

// worker holds the per goroutine workspace of the cell loops
type worker struct {
	asm  *dpg.Assembler
	ls   *dpg.LocalSystem
	cond *dpg.Condenser
}

func (dr *Runner) newWorker() *worker {
	return &worker{
		asm:  dpg.NewAssembler(dr.Tables, dr.Mesh, dr.Form),
		ls:   dpg.NewLocalSystem(dr.El),
		cond: dpg.NewCondenser(dr.El),
	}
}

// forEachPartition runs fn for every partition, at most dr.workers at a
// time. The first error cancels the remaining partitions.
func (dr *Runner) forEachPartition(fn func(ctx context.Context, p int, w *worker) error) error {
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(dr.workers)
	for p := range dr.Layout.Partitions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, p, dr.newWorker())
		})
	}
	return g.Wait()
}

// assembleSkeleton condenses every cell into its partition buffer, then
// merges the buffers serially in partition order so that the assembled
// system does not depend on scheduling
func (dr *Runner) assembleSkeleton(*CycleResult) error {
	buffers := make([]*linsys.Buffer, dr.Layout.NumPartitions)
	err := dr.forEachPartition(func(ctx context.Context, p int, w *worker) error {
		buf := linsys.NewBuffer(dr.Connector.LocalToGlobal[p], dr.Connector.GlobalToLocal[p])
		for _, k := range dr.Layout.Partitions[p].Elements {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := w.asm.Assemble(k, w.ls); err != nil {
				return err
			}
			if err := w.cond.Condense(w.ls); err != nil {
				return err
			}
			dr.Constraints.DistributeLocalToGlobal(w.cond.CellMatrix, w.cond.CellRHS,
				dr.Dofs.SkeletonIndices(k), buf)
		}
		buffers[p] = buf
		return nil
	})
	if err != nil {
		return err
	}
	for _, buf := range buffers {
		if err = dr.System.Merge(buf); err != nil {
			return err
		}
	}
	return nil
}

// reconstructInterior recovers the interior unknowns of every cell from the
// skeleton solution. Cells own disjoint interior dofs, so workers write the
// solution vector directly.
func (dr *Runner) reconstructInterior(*CycleResult) error {
	dr.interior = make([]float64, dr.Dofs.NInterior)
	return dr.forEachPartition(func(ctx context.Context, p int, w *worker) error {
		xSkel := mat.NewVecDense(dr.El.NSkeleton(), nil)
		xInt := mat.NewVecDense(dr.El.NInterior(), nil)
		for _, k := range dr.Layout.Partitions[p].Elements {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := w.asm.Assemble(k, w.ls); err != nil {
				return err
			}
			for i, g := range dr.Dofs.SkeletonIndices(k) {
				xSkel.SetVec(i, dr.skeleton[g])
			}
			if err := w.cond.Reconstruct(w.ls, xSkel, xInt); err != nil {
				return err
			}
			for i, g := range dr.Dofs.InteriorIndices(k) {
				dr.interior[g] = xInt.AtVec(i)
			}
		}
		return nil
	})
}
