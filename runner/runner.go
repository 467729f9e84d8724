package runner

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/notargets/DPGKernel/ana"
	"github.com/notargets/DPGKernel/basis"
	"github.com/notargets/DPGKernel/config"
	"github.com/notargets/DPGKernel/dofs"
	"github.com/notargets/DPGKernel/dpg"
	"github.com/notargets/DPGKernel/element"
	"github.com/notargets/DPGKernel/linsys"
	"github.com/notargets/DPGKernel/mesh"
	"github.com/notargets/DPGKernel/partitions"
	"github.com/notargets/DPGKernel/utils"
)

// Boundary ids of the colorized rectangle
const (
	BoundaryLeft   = 0 // Dirichlet pressure trace
	BoundaryRight  = 1 // absorbing
	BoundaryBottom = 2 // Dirichlet normal velocity trace
	BoundaryTop    = 3 // absorbing
)

// Runner drives refinement cycles of the plane wave problem: per cycle it
// numbers dofs, assembles and solves the condensed skeleton system, then
// recovers the interior unknowns cell by cell and measures the L2 errors
type Runner struct {
	Config config.Config
	Logger *log.Logger
	Wave   ana.PlaneWave
	Form   dpg.Form

	El       *element.DPGElement
	Tables   *basis.Tables
	solver   linsys.Solver
	strategy partitions.PartitionStrategy
	workers  int

	// Current cycle
	Mesh        *mesh.Mesh
	Dofs        *dofs.Handler
	Constraints *dofs.Constraints
	Layout      *partitions.PartitionLayout
	Connector   *utils.DofConnector
	System      *linsys.System

	interior, skeleton []float64
	cycle              int
}

type Option func(*Runner)

func WithLogger(l *log.Logger) Option {
	return func(dr *Runner) { dr.Logger = l }
}

// WithSolver replaces the skeleton solver selected by the configuration
func WithSolver(s linsys.Solver) Option {
	return func(dr *Runner) { dr.solver = s }
}

// NewRunner validates the configuration and builds the coarse mesh. No
// assembly happens before Run.
func NewRunner(cfg config.Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dr := &Runner{
		Config: cfg,
		Logger: log.New(os.Stdout, "", log.LstdFlags),
		Wave:   ana.NewPlaneWave(cfg.Problem.Wavenumber, cfg.Problem.Theta),
		cycle:  -1,
	}
	dr.Form = dpg.Form{
		Wavenumber: cfg.Problem.Wavenumber,
		Robin: map[int]float64{
			BoundaryRight: math.Cos(cfg.Problem.Theta),
			BoundaryTop:   math.Sin(cfg.Problem.Theta),
		},
	}
	switch cfg.Solver.Type {
	case "cg":
		dr.solver = linsys.CG{Control: linsys.SolverControl{
			MaxIterations: cfg.Solver.MaxIterations,
			RelTolerance:  cfg.Solver.RelTolerance,
		}}
	case "direct":
		dr.solver = linsys.Direct{}
	}
	var err error
	if dr.strategy, err = partitions.ParseStrategy(cfg.Partitions.Strategy); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	dr.workers = cfg.Partitions.Workers
	if dr.workers == 0 {
		dr.workers = runtime.NumCPU()
	}
	if dr.El, err = element.NewDPGElement(cfg.Problem.Degree, cfg.Problem.Delta); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	dr.Tables = basis.NewTables(dr.El)
	m := cfg.Mesh
	if dr.Mesh, err = mesh.NewSubdividedRectangle(m.Subdivisions[0], m.Subdivisions[1],
		m.Lower, m.Upper, true); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	for _, opt := range opts {
		opt(dr)
	}
	return dr, nil
}

// Run executes every configured cycle and writes the outputs requested by
// the configuration
func (dr *Runner) Run() (*ConvergenceHistory, error) {
	history := &ConvergenceHistory{Degree: dr.El.Degree, Delta: dr.El.Delta}
	for cycle := 0; cycle < dr.Config.Mesh.Cycles; cycle++ {
		res, err := dr.RunCycle()
		if err != nil {
			return history, fmt.Errorf("cycle %d: %w", cycle, err)
		}
		history.Add(res)
	}
	if dir := dr.Config.Output.Dir; dir != "" {
		path, err := history.SaveCSV(dir)
		if err != nil {
			return history, err
		}
		dr.Logger.Printf("wrote %s", path)
		if dr.Config.Output.Plot {
			if path, err = history.SavePlot(dir); err != nil {
				return history, err
			}
			dr.Logger.Printf("wrote %s", path)
		}
	}
	return history, nil
}

// RunCycle advances to the next cycle, refining the mesh globally after
// the first one
func (dr *Runner) RunCycle() (res CycleResult, err error) {
	dr.cycle++
	if dr.cycle > 0 {
		dr.Mesh = dr.Mesh.RefineGlobal()
	}
	res.Cycle = dr.cycle
	res.Cells = dr.Mesh.NumCells()
	res.H = dr.Mesh.MaxDiameter()

	phases := []struct {
		name string
		fn   func(*CycleResult) error
		dur  *time.Duration
	}{
		{"setup", dr.setup, &res.Timing.Setup},
		{"assemble", dr.assembleSkeleton, &res.Timing.Assemble},
		{"solve", dr.solveSkeleton, &res.Timing.Solve},
		{"reconstruct", dr.reconstructInterior, &res.Timing.Reconstruct},
		{"errors", dr.computeErrors, &res.Timing.Errors},
	}
	for _, ph := range phases {
		start := time.Now()
		if err = ph.fn(&res); err != nil {
			return res, fmt.Errorf("%s: %w", ph.name, err)
		}
		*ph.dur = time.Since(start)
		if dr.Config.Output.Verbose {
			dr.Logger.Printf("cycle %d: %s took %v", dr.cycle, ph.name, *ph.dur)
		}
	}
	dr.Logger.Printf("cycle %d: %d cells, %d interior dofs, %d skeleton dofs, %d iterations, residual %.3e",
		res.Cycle, res.Cells, res.InteriorDofs, res.SkeletonDofs, res.Iterations, res.Residual)
	dr.Logger.Printf("cycle %d: L2 error %.6e (u_re %.3e u_im %.3e p_re %.3e p_im %.3e)",
		res.Cycle, res.Errors.Total, res.Errors.URe, res.Errors.UIm, res.Errors.PRe, res.Errors.PIm)
	return res, nil
}

// setup numbers the dofs, applies the Dirichlet data and sizes the system
// and the partition buffers
func (dr *Runner) setup(res *CycleResult) (err error) {
	if dr.Dofs, err = dofs.Distribute(dr.Mesh, dr.El); err != nil {
		return err
	}
	h := dr.Dofs
	res.InteriorDofs, res.SkeletonDofs = h.NInterior, h.NSkeleton

	c := dofs.NewConstraints()
	dirichlet := []struct {
		id   int
		sub  element.SubElement
		part element.Part
		fn   func(x, y float64) float64
	}{
		{BoundaryLeft, element.Potential, element.Real, dr.Wave.PReal},
		{BoundaryLeft, element.Potential, element.Imag, dr.Wave.PImag},
		{BoundaryBottom, element.Flux, element.Real, dr.Wave.UnBottomReal},
		{BoundaryBottom, element.Flux, element.Imag, dr.Wave.UnBottomImag},
	}
	for _, d := range dirichlet {
		if _, err = dofs.InterpolateBoundaryValues(h, d.id, d.sub, d.part, d.fn, c); err != nil {
			return fmt.Errorf("boundary values on id %d: %w", d.id, err)
		}
	}
	if err = c.Close(); err != nil {
		return err
	}
	dr.Constraints = c
	res.Constrained = c.NumConstraints()

	K := dr.Mesh.NumCells()
	conn := &partitions.MeshConnectivity{NumElements: K, EToE: make([][]int, K)}
	for k := range conn.EToE {
		conn.EToE[k] = dr.Mesh.EToE[k][:]
	}
	pb := &partitions.PartitionBuilder{
		Mesh:                conn,
		TargetPartitionSize: (K + dr.workers - 1) / dr.workers,
		Strategy:            dr.strategy,
	}
	if dr.Layout, err = pb.BuildPartitions(); err != nil {
		return err
	}
	res.Partitions = dr.Layout.PartitionStatistics()
	res.InterfaceFaces = dr.Layout.InterfaceFaces(conn)
	dr.Connector, err = utils.NewDofConnector(dr.Layout.EToP, func(k int) []int {
		return c.Targets(h.SkeletonIndices(k), nil)
	})
	if err != nil {
		return err
	}
	if err = dr.Connector.Verify(); err != nil {
		return err
	}
	res.SharedDofs, res.MaxPartitionDofs = dr.bufferStatistics()
	dr.System = linsys.NewSystem(h.NSkeleton)
	if dr.Config.Output.Verbose {
		dr.Logger.Printf("cycle %d: %v, %d interface faces, %d constrained dofs",
			dr.cycle, res.Partitions, res.InterfaceFaces, res.Constrained)
		dr.Logger.Printf("cycle %d: partition buffers hold at most %d dofs, %d dofs shared",
			dr.cycle, res.MaxPartitionDofs, res.SharedDofs)
	}
	return nil
}

// bufferStatistics counts the skeleton dofs merged from more than one
// partition buffer and the size of the largest buffer
func (dr *Runner) bufferStatistics() (shared, maxLocal int) {
	dc := dr.Connector
	seen := make(map[int]bool)
	for p := 0; p < dc.NumPartitions; p++ {
		maxLocal = max(maxLocal, dc.NumLocal(p))
		for q := p + 1; q < dc.NumPartitions; q++ {
			for _, g := range dc.SharedDofs(p, q) {
				seen[g] = true
			}
		}
	}
	return len(seen), maxLocal
}

func (dr *Runner) solveSkeleton(res *CycleResult) error {
	A := dr.System.Finalize()
	x := make([]float64, dr.System.N)
	st, err := dr.solver.Solve(A, dr.System.RHS, x)
	res.Iterations, res.Residual, res.Converged = st.Iterations, st.Residual, st.Converged
	if err != nil {
		var nc *linsys.NotConvergedError
		if !errors.As(err, &nc) || !dr.Config.Solver.AllowUnconverged {
			return err
		}
		dr.Logger.Printf("WARN cycle %d: %v, continuing with the last iterate", dr.cycle, nc)
	}
	dr.Constraints.Distribute(x)
	dr.skeleton = x
	return nil
}

// InteriorSolution returns the interior unknowns of the last cycle, cell
// major in the order [u_re x, u_re y, u_im x, u_im y, p_re, p_im]
func (dr *Runner) InteriorSolution() []float64 { return dr.interior }

// SkeletonSolution returns the skeleton unknowns of the last cycle, blocked
// as [uhat_re | uhat_im | phat_re | phat_im]
func (dr *Runner) SkeletonSolution() []float64 { return dr.skeleton }

// Cycle returns the index of the last cycle run, -1 before the first
func (dr *Runner) Cycle() int { return dr.cycle }
