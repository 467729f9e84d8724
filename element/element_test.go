package element

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDPGElementDofCounts(t *testing.T) {
	tests := []struct {
		k, delta                int
		nInterior, nSkel, nTest int
	}{
		{1, 1, 24, 32, 80},
		// interior 6(k+1)^2, skeleton 8(k+1)+8(k+1), test 4(r+1)(r+2)+2(r+2)^2
		{0, 1, 6, 16, 2*12 + 2*9},
		{2, 1, 54, 48, 4*20 + 2*25},
		{1, 2, 24, 32, 4*20 + 2*25},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("k=%d,delta=%d", tc.k, tc.delta), func(t *testing.T) {
			el, err := NewDPGElement(tc.k, tc.delta)
			require.NoError(t, err)
			assert.Equal(t, tc.nInterior, el.NInterior())
			assert.Equal(t, tc.nSkel, el.NSkeleton())
			assert.Equal(t, tc.nTest, el.NTest())
			assert.Equal(t, tc.k+tc.delta+2, el.NQ)
			props := el.GetProperties()
			assert.Equal(t, Rectangle, props.Type)
			assert.Equal(t, tc.nTest, props.NTest)
		})
	}
}

func TestDPGElementRejectsBadDegrees(t *testing.T) {
	_, err := NewDPGElement(-1, 1)
	assert.Error(t, err)
	_, err = NewDPGElement(1, 0)
	assert.Error(t, err)
}

func TestDPGElementLayoutOrder(t *testing.T) {
	el, err := NewDPGElement(1, 1)
	require.NoError(t, err)
	// interior: u_re(x,y), u_im(x,y), p_re, p_im with 4 functions each
	expect := []struct {
		sub  SubElement
		part Part
		comp int
	}{
		{Flux, Real, 0}, {Flux, Real, 1}, {Flux, Imag, 0}, {Flux, Imag, 1},
		{Potential, Real, 0}, {Potential, Imag, 0},
	}
	for blk, e := range expect {
		for i := 0; i < 4; i++ {
			d := el.Interior[blk*4+i]
			assert.Equal(t, e.sub, d.SubElement)
			assert.Equal(t, e.part, d.Part)
			assert.Equal(t, e.comp, d.Component)
			assert.Equal(t, i, d.Base)
		}
	}
	assert.Equal(t, 0, el.SkeletonOffset(Flux, Real))
	assert.Equal(t, 8, el.SkeletonOffset(Flux, Imag))
	assert.Equal(t, 16, el.SkeletonOffset(Potential, Real))
	assert.Equal(t, 24, el.SkeletonOffset(Potential, Imag))
	for i, d := range el.Skeleton {
		assert.Equal(t, i >= 16, d.SubElement == Potential)
		assert.Equal(t, (i/8)%2 == 1, d.Part == Imag)
	}
	assert.Equal(t, complex(0, 1), Imag.Coefficient())
	assert.Equal(t, complex(1, 0), Real.Coefficient())
}

func TestTraceQSharesVertices(t *testing.T) {
	tq, err := NewTraceQ(3)
	require.NoError(t, err)
	assert.Equal(t, 4+4*2, tq.Np())
	seen := make(map[int]int)
	for f := 0; f < NFaces; f++ {
		for a := 0; a < tq.NFp(); a++ {
			seen[tq.FaceDof(f, a)]++
		}
		assert.Equal(t, FaceVertices[f][0], tq.FaceDof(f, 0))
		assert.Equal(t, FaceVertices[f][1], tq.FaceDof(f, 3))
	}
	require.Len(t, seen, tq.Np())
	for i := 0; i < NVertices; i++ {
		assert.Equal(t, 2, seen[i], "vertex dof %d", i)
	}
	for i := NVertices; i < tq.Np(); i++ {
		assert.Equal(t, 1, seen[i], "face dof %d", i)
	}
	// The trace of a vertex function vanishes on faces not touching it
	val := make([]float64, tq.Np())
	tq.EvalFace(1, -1, val)
	assert.InDelta(t, 1., val[1], 1.e-14)
	assert.InDelta(t, 0., val[0], 1.e-14)

	_, err = NewTraceQ(0)
	assert.Error(t, err)
}

func TestFaceQIsLocalToFace(t *testing.T) {
	fq := NewFaceQ(1)
	val := make([]float64, fq.Np())
	fq.EvalFace(2, 0.3, val)
	for i, v := range val {
		if i/fq.NFp() != 2 {
			assert.Equal(t, 0., v)
		}
	}
	assert.InDelta(t, 1., val[fq.Index(2, 0)]+val[fq.Index(2, 1)], 1.e-14)
}

func TestRaviartThomasDivergence(t *testing.T) {
	rt := NewRaviartThomas(1)
	require.Equal(t, 12, rt.Np())
	val := make([]float64, rt.Np())
	div := make([]float64, rt.Np())
	h := 1.e-6
	r, s := 0.31, -0.42
	rt.Eval(r, s, val, div)
	vp := make([]float64, rt.Np())
	vm := make([]float64, rt.Np())
	scratch := make([]float64, rt.Np())
	for i := 0; i < rt.Np(); i++ {
		comp, _ := rt.Component(i)
		if comp == 0 {
			rt.Eval(r+h, s, vp, scratch)
			rt.Eval(r-h, s, vm, scratch)
		} else {
			rt.Eval(r, s+h, vp, scratch)
			rt.Eval(r, s-h, vm, scratch)
		}
		assert.InDeltaf(t, (vp[i]-vm[i])/(2*h), div[i], 1.e-6, "function %d", i)
	}
}

func TestGeometricTransform(t *testing.T) {
	gt, err := NewGeometricTransform([4]float64{0, 0.5, 0, 0.5}, [4]float64{1, 1, 1.25, 1.25})
	require.NoError(t, err)
	assert.InDelta(t, 0.5*0.25/4, gt.J, 1.e-15)
	assert.InDelta(t, 4., gt.Rx, 1.e-15)
	assert.InDelta(t, 8., gt.Sy, 1.e-15)
	x, y := gt.ToPhysical(1, -1)
	assert.InDelta(t, 0.5, x, 1.e-15)
	assert.InDelta(t, 1., y, 1.e-15)
	assert.InDelta(t, math.Hypot(0.5, 0.25), gt.Diameter(), 1.e-15)
	sg := gt.Surface()
	assert.Equal(t, [4]float64{0.125, 0.125, 0.25, 0.25}, sg.SJ)
	assert.Equal(t, [4]float64{-1, 1, 0, 0}, sg.Nx)

	bad := []struct {
		name   string
		vx, vy [4]float64
		target error
	}{
		{"collapsed", [4]float64{0, 0, 0, 0}, [4]float64{0, 0, 1, 1}, ErrDegenerateGeometry},
		{"inverted", [4]float64{1, 0, 1, 0}, [4]float64{0, 0, 1, 1}, ErrDegenerateGeometry},
		{"skewed", [4]float64{0, 1, 0.2, 1.2}, [4]float64{0, 0, 1, 1}, ErrDegenerateGeometry},
		{"nan", [4]float64{0, math.NaN(), 0, 1}, [4]float64{0, 0, 1, 1}, ErrNonFinite},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewGeometricTransform(tc.vx, tc.vy)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.target))
		})
	}
}
