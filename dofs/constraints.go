package dofs

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Entry is one term a_ij x_j of a constraint line
type Entry struct {
	Index  int
	Weight float64
}

// Line constrains x_Index = sum_j Weight_j x_j + Inhomogeneity
type Line struct {
	Index         int
	Entries       []Entry
	Inhomogeneity float64
}

// Constraints holds affine constraints on global dofs: Dirichlet values
// (lines without entries) and continuity constraints such as hanging nodes.
// Lines are added while open; Close resolves chains so that every entry
// refers to an unconstrained dof.
type Constraints struct {
	lines  map[int]*Line
	order  []int
	closed bool
}

func NewConstraints() *Constraints {
	return &Constraints{lines: make(map[int]*Line)}
}

// Accumulator receives the global contributions of a cell
type Accumulator interface {
	Add(i, j int, v float64)
	AddRHS(i int, v float64)
}

func (c *Constraints) AddLine(i int) {
	if c.closed {
		panic("constraints are closed")
	}
	if _, ok := c.lines[i]; !ok {
		c.lines[i] = &Line{Index: i}
	}
}

func (c *Constraints) AddEntry(i, j int, w float64) error {
	line, ok := c.lines[i]
	switch {
	case c.closed:
		return fmt.Errorf("constraints are closed")
	case !ok:
		return fmt.Errorf("dof %d has no constraint line", i)
	case i == j:
		return fmt.Errorf("dof %d constrained to itself", i)
	}
	line.Entries = append(line.Entries, Entry{Index: j, Weight: w})
	return nil
}

func (c *Constraints) SetInhomogeneity(i int, v float64) {
	if line, ok := c.lines[i]; ok {
		line.Inhomogeneity = v
	}
}

func (c *Constraints) IsConstrained(i int) bool {
	_, ok := c.lines[i]
	return ok
}

func (c *Constraints) Line(i int) (Line, bool) {
	line, ok := c.lines[i]
	if !ok {
		return Line{}, false
	}
	return *line, true
}

func (c *Constraints) NumConstraints() int { return len(c.lines) }

// Close resolves chains of constraints. A cycle is reported as an error.
func (c *Constraints) Close() error {
	if c.closed {
		return nil
	}
	c.order = make([]int, 0, len(c.lines))
	for i := range c.lines {
		c.order = append(c.order, i)
	}
	sort.Ints(c.order)

	for _, i := range c.order {
		line := c.lines[i]
		for depth := 0; ; depth++ {
			if depth > len(c.lines) {
				return fmt.Errorf("constraint of dof %d is circular", i)
			}
			resolved := true
			entries := make([]Entry, 0, len(line.Entries))
			for _, e := range line.Entries {
				target, ok := c.lines[e.Index]
				if !ok {
					entries = append(entries, e)
					continue
				}
				if e.Index == i {
					return fmt.Errorf("constraint of dof %d is circular", i)
				}
				resolved = false
				line.Inhomogeneity += e.Weight * target.Inhomogeneity
				for _, te := range target.Entries {
					entries = append(entries, Entry{Index: te.Index, Weight: e.Weight * te.Weight})
				}
			}
			line.Entries = mergeEntries(entries)
			if resolved {
				break
			}
		}
	}
	c.closed = true
	return nil
}

func mergeEntries(entries []Entry) []Entry {
	sort.Slice(entries, func(a, b int) bool { return entries[a].Index < entries[b].Index })
	out := entries[:0]
	for _, e := range entries {
		if n := len(out); n > 0 && out[n-1].Index == e.Index {
			out[n-1].Weight += e.Weight
			continue
		}
		out = append(out, e)
	}
	return out
}

// DistributeLocalToGlobal adds the cell matrix A and vector b, indexed by
// the global dofs, to dst while eliminating constrained dofs. Constrained
// rows and columns are condensed onto the dofs they depend on and
// inhomogeneities move to the right hand side. Each constrained dof gets
// the average local diagonal on its global diagonal, keeping its sign, and
// the matching right hand side so that the solve reproduces its value.
func (c *Constraints) DistributeLocalToGlobal(A mat.Matrix, b mat.Vector, dofs []int, dst Accumulator) {
	if !c.closed {
		panic("constraints must be closed before distributing")
	}
	n := len(dofs)
	type expansion struct {
		entries []Entry
		value   float64
		line    bool
	}
	exp := make([]expansion, n)
	anyConstrained := false
	for i, g := range dofs {
		if line, ok := c.lines[g]; ok {
			exp[i] = expansion{entries: line.Entries, value: line.Inhomogeneity, line: true}
			anyConstrained = true
			continue
		}
		exp[i] = expansion{entries: []Entry{{Index: g, Weight: 1}}}
	}

	if !anyConstrained {
		for i, gi := range dofs {
			for j, gj := range dofs {
				if a := A.At(i, j); a != 0 {
					dst.Add(gi, gj, a)
				}
			}
			if b != nil {
				dst.AddRHS(gi, b.AtVec(i))
			}
		}
		return
	}

	for i := 0; i < n; i++ {
		rhs := 0.
		if b != nil {
			rhs = b.AtVec(i)
		}
		for j := 0; j < n; j++ {
			a := A.At(i, j)
			if a == 0 {
				continue
			}
			rhs -= a * exp[j].value
			for _, ei := range exp[i].entries {
				for _, ej := range exp[j].entries {
					dst.Add(ei.Index, ej.Index, ei.Weight*ej.Weight*a)
				}
			}
		}
		for _, ei := range exp[i].entries {
			dst.AddRHS(ei.Index, ei.Weight*rhs)
		}
	}

	var diag float64
	for i := 0; i < n; i++ {
		diag += A.At(i, i)
	}
	diag /= float64(n)
	if diag == 0 {
		diag = 1
	}
	for i, g := range dofs {
		if exp[i].line {
			dst.Add(g, g, diag)
			dst.AddRHS(g, diag*exp[i].value)
		}
	}
}

// Distribute sets every constrained entry of x from its constraint line
func (c *Constraints) Distribute(x []float64) {
	if !c.closed {
		panic("constraints must be closed before distributing")
	}
	for _, i := range c.order {
		line := c.lines[i]
		v := line.Inhomogeneity
		for _, e := range line.Entries {
			v += e.Weight * x[e.Index]
		}
		x[i] = v
	}
}

// Targets appends to dst the global dofs written by DistributeLocalToGlobal
// for a cell with the given dofs
func (c *Constraints) Targets(dofs []int, dst []int) []int {
	for _, g := range dofs {
		dst = append(dst, g)
		if line, ok := c.lines[g]; ok {
			for _, e := range line.Entries {
				dst = append(dst, e.Index)
			}
		}
	}
	return dst
}
