package linsys

import (
	"fmt"

	"github.com/james-bowman/sparse"
)

// System is the global skeleton system. The matrix is assembled additively
// into a DOK and compressed once with Finalize.
type System struct {
	N   int
	A   *sparse.DOK
	RHS []float64
}

func NewSystem(n int) *System {
	return &System{N: n, A: sparse.NewDOK(n, n), RHS: make([]float64, n)}
}

// Add accumulates v into A(i,j)
func (s *System) Add(i, j int, v float64) {
	if v == 0 {
		return
	}
	s.A.Set(i, j, s.A.At(i, j)+v)
}

func (s *System) AddRHS(i int, v float64) { s.RHS[i] += v }

// Finalize returns the matrix in compressed row form
func (s *System) Finalize() *sparse.CSR { return s.A.ToCSR() }

// Merge adds a partition buffer into the system
func (s *System) Merge(b *Buffer) error {
	if len(b.LocalToGlobal) != len(b.RHS) {
		return fmt.Errorf("buffer has %d rows and %d global indices",
			len(b.RHS), len(b.LocalToGlobal))
	}
	var err error
	b.A.DoNonZero(func(i, j int, v float64) {
		gi, gj := b.LocalToGlobal[i], b.LocalToGlobal[j]
		if gi >= s.N || gj >= s.N {
			err = fmt.Errorf("buffer entry (%d,%d) maps outside the system size %d", gi, gj, s.N)
			return
		}
		s.Add(gi, gj, v)
	})
	if err != nil {
		return err
	}
	for l, v := range b.RHS {
		s.RHS[b.LocalToGlobal[l]] += v
	}
	return nil
}

// Buffer accumulates the contributions of one partition in partition local
// numbering. Add and AddRHS take global indices, which must belong to the
// partition.
type Buffer struct {
	A             *sparse.DOK
	RHS           []float64
	LocalToGlobal []int
	GlobalToLocal map[int]int
}

func NewBuffer(localToGlobal []int, globalToLocal map[int]int) *Buffer {
	n := len(localToGlobal)
	return &Buffer{
		A:             sparse.NewDOK(n, n),
		RHS:           make([]float64, n),
		LocalToGlobal: localToGlobal,
		GlobalToLocal: globalToLocal,
	}
}

func (b *Buffer) Add(i, j int, v float64) {
	if v == 0 {
		return
	}
	li, lj := b.local(i), b.local(j)
	b.A.Set(li, lj, b.A.At(li, lj)+v)
}

func (b *Buffer) AddRHS(i int, v float64) { b.RHS[b.local(i)] += v }

func (b *Buffer) local(g int) int {
	l, ok := b.GlobalToLocal[g]
	if !ok {
		panic(fmt.Sprintf("global dof %d is not part of this partition buffer", g))
	}
	return l
}
