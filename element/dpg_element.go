package element

import (
	"fmt"
)

// DPGElement is the ultraweak DPG discretization of a first order complex
// system on quadrilaterals. It owns three dof sets, each split into real
// and imaginary copies:
//
//	interior: [u_re (DGQ_k)^2, u_im (DGQ_k)^2, p_re DGQ_k, p_im DGQ_k]
//	skeleton: [uhat_re FaceQ_k, uhat_im FaceQ_k, phat_re TraceQ_{k+1}, phat_im TraceQ_{k+1}]
//	test:     [tau_re RT_{k+d}, tau_im RT_{k+d}, v_re Q_{k+d+1}, v_im Q_{k+d+1}]
type DPGElement struct {
	Degree, Delta int

	Trial          LagrangeQ
	FluxTrace      FaceQ
	PotentialTrace TraceQ
	TestFlux       RaviartThomas
	TestPotential  LagrangeQ

	// Dispatch tables, one descriptor per local dof
	Interior, Skeleton, Test []DofDescriptor

	// Gauss points per direction for cell and face quadrature
	NQ int
}

func NewDPGElement(degree, delta int) (*DPGElement, error) {
	if degree < 0 {
		return nil, fmt.Errorf("trial degree must be >= 0, have %d", degree)
	}
	if delta < 1 {
		return nil, fmt.Errorf("test degree elevation must be >= 1, have %d", delta)
	}
	trace, err := NewTraceQ(degree + 1)
	if err != nil {
		return nil, err
	}
	el := &DPGElement{
		Degree:         degree,
		Delta:          delta,
		Trial:          NewLagrangeQ(degree),
		FluxTrace:      NewFaceQ(degree),
		PotentialTrace: trace,
		TestFlux:       NewRaviartThomas(degree + delta),
		TestPotential:  NewLagrangeQ(degree + delta + 1),
		NQ:             degree + delta + 2,
	}
	el.buildLayouts()
	return el, nil
}

func (el *DPGElement) buildLayouts() {
	nt := el.Trial.Np()
	for _, part := range []Part{Real, Imag} {
		for comp := 0; comp < 2; comp++ {
			for i := 0; i < nt; i++ {
				el.Interior = append(el.Interior,
					DofDescriptor{SubElement: Flux, Part: part, Component: comp, Base: i})
			}
		}
	}
	for _, part := range []Part{Real, Imag} {
		for i := 0; i < nt; i++ {
			el.Interior = append(el.Interior,
				DofDescriptor{SubElement: Potential, Part: part, Base: i})
		}
	}

	for _, part := range []Part{Real, Imag} {
		for i := 0; i < el.FluxTrace.Np(); i++ {
			el.Skeleton = append(el.Skeleton,
				DofDescriptor{SubElement: Flux, Part: part, Base: i})
		}
	}
	for _, part := range []Part{Real, Imag} {
		for i := 0; i < el.PotentialTrace.Np(); i++ {
			el.Skeleton = append(el.Skeleton,
				DofDescriptor{SubElement: Potential, Part: part, Base: i})
		}
	}

	for _, part := range []Part{Real, Imag} {
		for i := 0; i < el.TestFlux.Np(); i++ {
			comp, _ := el.TestFlux.Component(i)
			el.Test = append(el.Test,
				DofDescriptor{SubElement: Flux, Part: part, Component: comp, Base: i})
		}
	}
	for _, part := range []Part{Real, Imag} {
		for i := 0; i < el.TestPotential.Np(); i++ {
			el.Test = append(el.Test,
				DofDescriptor{SubElement: Potential, Part: part, Base: i})
		}
	}
}

func (el *DPGElement) NInterior() int { return len(el.Interior) }

func (el *DPGElement) NSkeleton() int { return len(el.Skeleton) }

func (el *DPGElement) NTest() int { return len(el.Test) }

// SkeletonOffset returns the first local skeleton index of a sub element
// and part, following the skeleton layout above
func (el *DPGElement) SkeletonOffset(sub SubElement, part Part) int {
	nf, nt := el.FluxTrace.Np(), el.PotentialTrace.Np()
	off := 0
	if sub == Potential {
		off = 2 * nf
		if part == Imag {
			off += nt
		}
		return off
	}
	if part == Imag {
		off = nf
	}
	return off
}

func (el *DPGElement) GetProperties() ElementProperties {
	return ElementProperties{
		Name:       fmt.Sprintf("DPG Quadrilateral k=%d delta=%d", el.Degree, el.Delta),
		ShortName:  fmt.Sprintf("DPGQ%d_%d", el.Degree, el.Delta),
		Type:       Rectangle,
		Order:      el.Degree,
		TestOrder:  el.Degree + el.Delta,
		NInterior:  el.NInterior(),
		NSkeleton:  el.NSkeleton(),
		NTest:      el.NTest(),
		NFaces:     NFaces,
		Dimensions: D2,
	}
}

func (el *DPGElement) GetReferenceGeometry() ReferenceGeometry {
	return QuadReferenceGeometry()
}
