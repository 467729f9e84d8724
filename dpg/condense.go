package dpg

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/notargets/DPGKernel/element"
)

// Condenser eliminates the interior unknowns of a cell. With
//
//	M4 = B^T G^-1, M5 = Bhat^T G^-1, M1 = M4 B, M2 = M4 Bhat, M3 = M5 Bhat - D
//
// the local normal equations read
//
//	[M1   M2] [x_int ]   [M4 l    ]
//	[M2^T M3] [x_skel] = [M5 l - g]
//
// All buffers are allocated once; a Condenser must not be shared between
// goroutines.
type Condenser struct {
	Ginv, M1, M1inv, M2, M3, M4, M5 *mat.Dense

	// M2^T M1^-1, its products with M2 and M4
	sm1, sm1m2, sm1m4 *mat.Dense
	rhsI, tmpI        *mat.VecDense

	// Mode A output
	CellMatrix *mat.Dense
	CellRHS    *mat.VecDense
}

func NewCondenser(el *element.DPGElement) *Condenser {
	nT, nI, nS := el.NTest(), el.NInterior(), el.NSkeleton()
	return &Condenser{
		Ginv:       mat.NewDense(nT, nT, nil),
		M1:         mat.NewDense(nI, nI, nil),
		M1inv:      mat.NewDense(nI, nI, nil),
		M2:         mat.NewDense(nI, nS, nil),
		M3:         mat.NewDense(nS, nS, nil),
		M4:         mat.NewDense(nI, nT, nil),
		M5:         mat.NewDense(nS, nT, nil),
		sm1:        mat.NewDense(nS, nI, nil),
		sm1m2:      mat.NewDense(nS, nS, nil),
		sm1m4:      mat.NewDense(nS, nT, nil),
		rhsI:       mat.NewVecDense(nI, nil),
		tmpI:       mat.NewVecDense(nI, nil),
		CellMatrix: mat.NewDense(nS, nS, nil),
		CellRHS:    mat.NewVecDense(nS, nil),
	}
}

// Factor computes G^-1 and M1..M5 for the cell held in ls
func (c *Condenser) Factor(ls *LocalSystem) error {
	if err := c.Ginv.Inverse(ls.G); err != nil {
		return &CellError{Cell: ls.Cell, Op: "invert G", Err: fmt.Errorf("%w: %v", ErrSingularGram, err)}
	}
	c.M4.Mul(ls.B.T(), c.Ginv)
	c.M5.Mul(ls.Bhat.T(), c.Ginv)
	c.M1.Mul(c.M4, ls.B)
	if err := c.M1inv.Inverse(c.M1); err != nil {
		return &CellError{Cell: ls.Cell, Op: "invert M1", Err: fmt.Errorf("%w: %v", ErrSingularNormal, err)}
	}
	c.M2.Mul(c.M4, ls.Bhat)
	c.M3.Mul(c.M5, ls.Bhat)
	c.M3.Sub(c.M3, ls.D)
	return nil
}

// Condense factors the cell and forms its skeleton contribution
//
//	CellMatrix = -(M3 - M2^T M1^-1 M2)
//	CellRHS    = -((M5 - M2^T M1^-1 M4) l - g)
//
// The right hand side carries the sign of the matrix.
func (c *Condenser) Condense(ls *LocalSystem) error {
	if err := c.Factor(ls); err != nil {
		return err
	}
	c.sm1.Mul(c.M2.T(), c.M1inv)
	c.sm1m2.Mul(c.sm1, c.M2)
	c.CellMatrix.Sub(c.sm1m2, c.M3)

	c.sm1m4.Mul(c.sm1, c.M4)
	c.sm1m4.Sub(c.M5, c.sm1m4)
	c.CellRHS.MulVec(c.sm1m4, ls.L)
	c.CellRHS.SubVec(ls.Gs, c.CellRHS)
	return nil
}

// Reconstruct factors the cell and solves for its interior unknowns given
// the cell's skeleton values
//
//	x_int = M1^-1 (M4 l - M2 x_skel)
func (c *Condenser) Reconstruct(ls *LocalSystem, xSkel mat.Vector, xInt *mat.VecDense) error {
	if err := c.Factor(ls); err != nil {
		return err
	}
	c.rhsI.MulVec(c.M4, ls.L)
	c.tmpI.MulVec(c.M2, xSkel)
	c.rhsI.SubVec(c.rhsI, c.tmpI)
	xInt.MulVec(c.M1inv, c.rhsI)
	return nil
}
