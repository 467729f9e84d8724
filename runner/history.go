package runner

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/notargets/DPGKernel/partitions"
)

// PhaseTiming is the wall time of each phase of a cycle
type PhaseTiming struct {
	Setup, Assemble, Solve, Reconstruct, Errors time.Duration
}

// CycleResult is everything recorded about one refinement cycle
type CycleResult struct {
	Cycle        int
	Cells        int
	H            float64 // maximal cell diameter
	InteriorDofs int
	SkeletonDofs int
	Constrained  int

	Partitions     partitions.PartitionStats
	InterfaceFaces int
	// Skeleton dofs written by more than one partition buffer, and the
	// largest buffer
	SharedDofs       int
	MaxPartitionDofs int

	Iterations int
	Residual   float64
	Converged  bool

	Errors Errors
	Timing PhaseTiming
}

// Field selects one error norm
type Field int

const (
	Total Field = iota
	URe
	UIm
	PRe
	PIm
	UhatRe
	UhatIm
	PhatRe
	PhatIm
)

var fieldNames = [...]string{"total", "u_re", "u_im", "p_re", "p_im",
	"uhat_re", "uhat_im", "phat_re", "phat_im"}

// Fields lists every error norm in output order
var Fields = []Field{Total, URe, UIm, PRe, PIm, UhatRe, UhatIm, PhatRe, PhatIm}

func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

func (e Errors) Get(f Field) float64 {
	switch f {
	case URe:
		return e.URe
	case UIm:
		return e.UIm
	case PRe:
		return e.PRe
	case PIm:
		return e.PIm
	case UhatRe:
		return e.UhatRe
	case UhatIm:
		return e.UhatIm
	case PhatRe:
		return e.PhatRe
	case PhatIm:
		return e.PhatIm
	}
	return e.Total
}

// ConvergenceHistory accumulates the cycles of a run
type ConvergenceHistory struct {
	Degree, Delta int
	Cycles        []CycleResult
}

func (ch *ConvergenceHistory) Add(res CycleResult) { ch.Cycles = append(ch.Cycles, res) }

func (ch *ConvergenceHistory) H() []float64 {
	h := make([]float64, len(ch.Cycles))
	for i, c := range ch.Cycles {
		h[i] = c.H
	}
	return h
}

func (ch *ConvergenceHistory) Errors(f Field) []float64 {
	e := make([]float64, len(ch.Cycles))
	for i, c := range ch.Cycles {
		e[i] = c.Errors.Get(f)
	}
	return e
}

// Rates returns the observed order log(e_{i-1}/e_i) / log(h_{i-1}/h_i)
// between consecutive cycles
func (ch *ConvergenceHistory) Rates(f Field) []float64 {
	if len(ch.Cycles) < 2 {
		return nil
	}
	h, e := ch.H(), ch.Errors(f)
	rates := make([]float64, len(h)-1)
	for i := 1; i < len(h); i++ {
		rates[i-1] = math.Log(e[i-1]/e[i]) / math.Log(h[i-1]/h[i])
	}
	return rates
}

// FittedOrder is the slope of the least squares fit of log e against log h
func (ch *ConvergenceHistory) FittedOrder(f Field) (float64, error) {
	var lh, le []float64
	for _, c := range ch.Cycles {
		if e := c.Errors.Get(f); e > 0 && c.H > 0 {
			lh = append(lh, math.Log(c.H))
			le = append(le, math.Log(e))
		}
	}
	if len(lh) < 2 {
		return 0, fmt.Errorf("fitting an order needs two cycles with nonzero %v error, have %d", f, len(lh))
	}
	_, beta := stat.LinearRegression(lh, le, nil, false)
	return beta, nil
}

// WriteCSV writes one row per cycle: cycle, cells, dofs, h, iterations and
// every error norm
func (ch *ConvergenceHistory) WriteCSV(out io.Writer) error {
	w := csv.NewWriter(out)
	header := []string{"cycle", "cells", "interior_dofs", "skeleton_dofs", "h", "iterations"}
	for _, f := range Fields {
		header = append(header, f.String())
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, c := range ch.Cycles {
		record := []string{
			strconv.Itoa(c.Cycle),
			strconv.Itoa(c.Cells),
			strconv.Itoa(c.InteriorDofs),
			strconv.Itoa(c.SkeletonDofs),
			strconv.FormatFloat(c.H, 'e', 8, 64),
			strconv.Itoa(c.Iterations),
		}
		for _, f := range Fields {
			record = append(record, strconv.FormatFloat(c.Errors.Get(f), 'e', 8, 64))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (ch *ConvergenceHistory) baseName() string {
	return fmt.Sprintf("L2_error_%d_%d", ch.Degree, ch.Delta)
}

// SaveCSV writes the history to dir and returns the file name
func (ch *ConvergenceHistory) SaveCSV(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ch.baseName()+".csv")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err = ch.WriteCSV(f); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, f.Close()
}

// SavePlot writes a log-log plot of the interior errors against h to dir
// and returns the file name
func (ch *ConvergenceHistory) SavePlot(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, ch.baseName()+".png")
	return path, ch.WritePlot(path)
}

// WritePlot renders the plot to path, the format follows the extension
func (ch *ConvergenceHistory) WritePlot(path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("DPG plane wave, k = %d, delta = %d", ch.Degree, ch.Delta)
	p.X.Label.Text = "h"
	p.Y.Label.Text = "L2 error"
	p.X.Scale, p.Y.Scale = plot.LogScale{}, plot.LogScale{}
	p.X.Tick.Marker, p.Y.Tick.Marker = plot.LogTicks{Prec: -1}, plot.LogTicks{Prec: -1}

	var lines []interface{}
	for _, f := range []Field{Total, URe, PRe, PhatRe} {
		var pts plotter.XYs
		for _, c := range ch.Cycles {
			// log axes cannot show zero
			if e := c.Errors.Get(f); e > 0 && c.H > 0 {
				pts = append(pts, plotter.XY{X: c.H, Y: e})
			}
		}
		if len(pts) > 0 {
			lines = append(lines, f.String(), pts)
		}
	}
	if len(lines) == 0 {
		return fmt.Errorf("no positive errors to plot")
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return err
	}
	p.Legend.Top = true
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

// String formats the history as a table with observed orders
func (ch *ConvergenceHistory) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%5s %7s %9s %9s %10s %12s %6s %12s %6s %12s %6s\n",
		"cycle", "cells", "interior", "skeleton", "h", "total", "rate", "p_re", "rate", "phat_re", "rate")
	total, pre, phat := ch.Rates(Total), ch.Rates(PRe), ch.Rates(PhatRe)
	rate := func(r []float64, i int) string {
		if i == 0 || i > len(r) {
			return "-"
		}
		return strconv.FormatFloat(r[i-1], 'f', 2, 64)
	}
	for i, c := range ch.Cycles {
		fmt.Fprintf(&sb, "%5d %7d %9d %9d %10.4e %12.6e %6s %12.6e %6s %12.6e %6s\n",
			c.Cycle, c.Cells, c.InteriorDofs, c.SkeletonDofs, c.H,
			c.Errors.Total, rate(total, i), c.Errors.PRe, rate(pre, i), c.Errors.PhatRe, rate(phat, i))
	}
	return sb.String()
}
