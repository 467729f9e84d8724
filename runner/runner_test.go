package runner

import (
	"bytes"
	"errors"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/james-bowman/sparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/DPGKernel/config"
	"github.com/notargets/DPGKernel/element"
	"github.com/notargets/DPGKernel/linsys"
)

func quiet() Option { return WithLogger(log.New(io.Discard, "", 0)) }

// smallConfig is a resolved version of the reference problem, two
// wavelengths across the unit square
func smallConfig() config.Config {
	cfg := config.Default()
	cfg.Problem.Wavenumber = math.Pi
	cfg.Mesh.Cycles = 1
	cfg.Partitions.Workers = 2
	return cfg
}

func TestConvergence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping convergence study in short mode")
	}
	// run solves every cycle and checks the mesh sequence and the monotone
	// decrease of the combined interior error
	run := func(t *testing.T, cfg config.Config) *ConvergenceHistory {
		dr, err := NewRunner(cfg, quiet())
		require.NoError(t, err)
		history, err := dr.Run()
		require.NoError(t, err)
		require.Len(t, history.Cycles, cfg.Mesh.Cycles)
		for i, c := range history.Cycles {
			assert.Equal(t, 4*(1<<(2*i)), c.Cells)
			assert.Truef(t, c.Converged, "cycle %d", i)
			if i > 0 {
				prev := history.Cycles[i-1]
				assert.InDelta(t, prev.H/2, c.H, 1.e-12)
				assert.Lessf(t, c.Errors.Total, prev.Errors.Total, "cycle %d", i)
			}
		}
		return history
	}

	t.Run("resolved", func(t *testing.T) {
		cfg := smallConfig()
		cfg.Mesh.Cycles = 4
		history := run(t, cfg)
		for i := 1; i < len(history.Cycles); i++ {
			assert.Lessf(t, history.Cycles[i].Errors.PhatRe, history.Cycles[i-1].Errors.PhatRe, "cycle %d", i)
		}
		order, err := history.FittedOrder(Total)
		require.NoError(t, err)
		assert.Greater(t, order, 1.4)
	})

	// Two wavelengths per unit length along the diagonal, four cycles from
	// the 2x2 mesh
	t.Run("reference", func(t *testing.T) {
		cfg := config.Default()
		require.Equal(t, 4*math.Pi, cfg.Problem.Wavenumber)
		require.Equal(t, math.Pi/4, cfg.Problem.Theta)
		require.Equal(t, 1, cfg.Problem.Degree)
		require.Equal(t, 1, cfg.Problem.Delta)
		require.Equal(t, 4, cfg.Mesh.Cycles)
		cfg.Partitions.Workers = 4
		cfg.Output.Dir = ""
		history := run(t, cfg)
		last := history.Cycles[len(history.Cycles)-1]
		assert.Less(t, last.Errors.Total, 0.1)
		order, err := history.FittedOrder(Total)
		require.NoError(t, err)
		assert.Greater(t, order, 1.4)
	})
}

func TestDirichletDataIsEnforced(t *testing.T) {
	dr, err := NewRunner(smallConfig(), quiet())
	require.NoError(t, err)
	res, err := dr.RunCycle()
	require.NoError(t, err)
	assert.Equal(t, 0, res.Cycle)
	assert.Greater(t, res.Constrained, 0)

	h, x := dr.Dofs, dr.SkeletonSolution()
	require.Len(t, x, h.NSkeleton)
	require.Len(t, dr.InteriorSolution(), h.NInterior)
	var checked int
	for g := 0; g < h.NSkeleton; g++ {
		if !dr.Constraints.IsConstrained(g) {
			continue
		}
		sub, part := h.SkeletonComponent(g)
		var want float64
		switch {
		case sub == element.Potential && part == element.Real:
			want = dr.Wave.PReal(h.SupportX[g], h.SupportY[g])
		case sub == element.Potential:
			want = dr.Wave.PImag(h.SupportX[g], h.SupportY[g])
		case part == element.Real:
			want = dr.Wave.UnBottomReal(h.SupportX[g], h.SupportY[g])
		default:
			want = dr.Wave.UnBottomImag(h.SupportX[g], h.SupportY[g])
		}
		assert.InDeltaf(t, want, x[g], 1.e-12, "dof %d", g)
		checked++
	}
	assert.Equal(t, res.Constrained, checked)
}

func TestInvalidConfigFailsBeforeAssembly(t *testing.T) {
	cfg := smallConfig()
	cfg.Problem.Wavenumber = 0
	dr, err := NewRunner(cfg)
	require.Error(t, err)
	assert.Nil(t, dr)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))

	cfg = smallConfig()
	cfg.Solver.Type = "jacobi"
	_, err = NewRunner(cfg)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
}

func TestResultIndependentOfScheduling(t *testing.T) {
	solve := func(modify func(*config.Config)) []float64 {
		cfg := smallConfig()
		cfg.Solver.Type = "direct"
		modify(&cfg)
		dr, err := NewRunner(cfg, quiet())
		require.NoError(t, err)
		_, err = dr.RunCycle()
		require.NoError(t, err)
		_, err = dr.RunCycle()
		require.NoError(t, err)
		return dr.SkeletonSolution()
	}
	ref := solve(func(c *config.Config) { c.Partitions.Workers = 1 })
	variants := map[string]func(*config.Config){
		"graph":      func(c *config.Config) { c.Partitions.Strategy = "graph"; c.Partitions.Workers = 3 },
		"roundrobin": func(c *config.Config) { c.Partitions.Strategy = "roundrobin"; c.Partitions.Workers = 4 },
		"block":      func(c *config.Config) { c.Partitions.Workers = 16 },
	}
	for name, modify := range variants {
		t.Run(name, func(t *testing.T) {
			assert.InDeltaSlice(t, ref, solve(modify), 1.e-10)
		})
	}
	t.Run("cg", func(t *testing.T) {
		x := solve(func(c *config.Config) {
			c.Solver.Type = "cg"
			c.Solver.RelTolerance = 1.e-12
		})
		assert.InDeltaSlice(t, ref, x, 1.e-5)
	})
}

func TestPartitionBufferStatistics(t *testing.T) {
	cycle := func(workers int) CycleResult {
		cfg := smallConfig()
		cfg.Partitions.Workers = workers
		dr, err := NewRunner(cfg, quiet())
		require.NoError(t, err)
		res, err := dr.RunCycle()
		require.NoError(t, err)
		return res
	}
	serial := cycle(1)
	assert.Equal(t, 0, serial.SharedDofs)
	assert.Equal(t, serial.SkeletonDofs, serial.MaxPartitionDofs)

	// Two partitions of two cells meet along the line x = 0.5 or y = 0.5
	split := cycle(2)
	assert.Greater(t, split.SharedDofs, 0)
	assert.Less(t, split.MaxPartitionDofs, split.SkeletonDofs)
	assert.Greater(t, split.InterfaceFaces, 0)
}

func TestUnconvergedSolve(t *testing.T) {
	cfg := smallConfig()
	cfg.Solver.MaxIterations = 1
	dr, err := NewRunner(cfg, quiet())
	require.NoError(t, err)
	_, err = dr.RunCycle()
	require.Error(t, err)
	var nc *linsys.NotConvergedError
	require.True(t, errors.As(err, &nc))
	assert.Equal(t, 1, nc.Iterations)

	var logs bytes.Buffer
	cfg.Solver.AllowUnconverged = true
	dr, err = NewRunner(cfg, WithLogger(log.New(&logs, "", 0)))
	require.NoError(t, err)
	res, err := dr.RunCycle()
	require.NoError(t, err)
	assert.False(t, res.Converged)
	assert.Equal(t, 1, res.Iterations)
	assert.Contains(t, logs.String(), "WARN cycle 0")
}

func TestRunWritesOutputs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping output files in short mode")
	}
	dir := t.TempDir()
	cfg := smallConfig()
	cfg.Mesh.Cycles = 2
	cfg.Output.Dir = dir
	cfg.Output.Verbose = true
	var logs bytes.Buffer
	dr, err := NewRunner(cfg, WithLogger(log.New(&logs, "", 0)))
	require.NoError(t, err)
	history, err := dr.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, dr.Cycle())

	data, err := os.ReadFile(filepath.Join(dir, "L2_error_1_1.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "cycle,cells,"))
	_, err = os.Stat(filepath.Join(dir, "L2_error_1_1.png"))
	assert.NoError(t, err)

	assert.Contains(t, logs.String(), "assemble took")
	assert.Contains(t, history.String(), "phat_re")
}

type failingSolver struct{ err error }

func (s failingSolver) Solve(*sparse.CSR, []float64, []float64) (linsys.Stats, error) {
	return linsys.Stats{}, s.err
}

func TestSolverFailureIsReported(t *testing.T) {
	boom := errors.New("factorization failed")
	cfg := smallConfig()
	cfg.Solver.AllowUnconverged = true
	dr, err := NewRunner(cfg, quiet(), WithSolver(failingSolver{err: boom}))
	require.NoError(t, err)
	_, err = dr.RunCycle()
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Contains(t, err.Error(), "solve")
}
