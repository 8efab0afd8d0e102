package dcsam

import (
	"math"
	"testing"
)

func TestSumMixtureResponsibilities(t *testing.T) {
	x := Symbol('x', 0)
	tight, wide := twoPriors(t, x)
	mix, err := NewSumMixtureFactor([]Key{x}, nil,
		[]HybridFactor{LiftToHybrid(tight), LiftToHybrid(wide)}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	dv := NewDiscreteValues()

	for _, v := range []float64{0, -2.5, -100} {
		resp := mix.Responsibilities(valuesAt(x, v), dv)
		var sum float64
		for _, r := range resp {
			sum += r
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Fatalf("responsibilities at x=%f sum to %f", v, sum)
		}
	}

	// At the mode the tight component carries most of the responsibility;
	// in the tail the wide one does.
	if resp := mix.Responsibilities(valuesAt(x, 0), dv); resp[0] <= resp[1] {
		t.Fatalf("tight component not dominant at the mode: %v", resp)
	}
	if resp := mix.Responsibilities(valuesAt(x, -2.5), dv); resp[1] <= resp[0] {
		t.Fatalf("wide component not dominant in the tail: %v", resp)
	}
	// Deep in the tail the tight component has vanished numerically but
	// the responsibilities stay finite.
	resp := mix.Responsibilities(valuesAt(x, -100), dv)
	if math.IsNaN(resp[0]) || math.IsNaN(resp[1]) || resp[1] < 0.99 {
		t.Fatalf("extreme tail responsibilities %v", resp)
	}
}

func TestSumMixtureIdenticalComponents(t *testing.T) {
	x := Symbol('x', 0)
	tight, _ := twoPriors(t, x)
	mix, err := NewSumMixtureFactor([]Key{x}, nil,
		[]HybridFactor{LiftToHybrid(tight), LiftToHybrid(tight)}, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	resp := mix.Responsibilities(valuesAt(x, 1), NewDiscreteValues())
	if math.Abs(resp[0]-0.5) > 1e-12 || math.Abs(resp[1]-0.5) > 1e-12 {
		t.Fatalf("identical components should split responsibility: %v", resp)
	}
	if idx := mix.ActiveFactorIdx(valuesAt(x, 1), NewDiscreteValues()); idx != 0 {
		t.Fatalf("tie resolved to %d expected 0", idx)
	}
}

func TestSumMixtureSqrtResidual(t *testing.T) {
	x := Symbol('x', 0)
	tight, wide := twoPriors(t, x)
	mix, err := NewSumMixtureFactor([]Key{x}, nil,
		[]HybridFactor{LiftToHybrid(tight), LiftToHybrid(wide)}, []float64{0.5, 0.5}, false)
	if err != nil {
		t.Fatal(err)
	}
	dv := NewDiscreteValues()
	for _, v := range []float64{0, -2.5, -50} {
		if r := mix.SqrtResidual(valuesAt(x, v), dv); math.IsNaN(r) {
			t.Fatalf("square-root residual at x=%f is NaN", v)
		}
	}
}

func TestSumMixtureLinearize(t *testing.T) {
	x := Symbol('x', 0)
	tight, wide := twoPriors(t, x)
	mix, err := NewSumMixtureFactor([]Key{x}, nil,
		[]HybridFactor{LiftToHybrid(tight), LiftToHybrid(wide)}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	vals := valuesAt(x, -2.5)
	dv := NewDiscreteValues()
	gf := mix.Linearize(vals, dv)
	// Both unit-dimension components are stacked.
	if gf.Dim() != 2 {
		t.Fatalf("stacked system has %d rows expected 2", gf.Dim())
	}
	resp := mix.Responsibilities(vals, dv)
	// Row i is component i's whitened system scaled by sqrt(resp_i).
	want0 := math.Sqrt(resp[0]) * 1.0
	want1 := math.Sqrt(resp[1]) * (1.0 / 8.0)
	jac := gf.Jacobian(x)
	if math.Abs(jac.At(0, 0)-want0) > 1e-12 || math.Abs(jac.At(1, 0)-want1) > 1e-12 {
		t.Fatalf("stacked Jacobian [%f %f] expected [%f %f]", jac.At(0, 0), jac.At(1, 0), want0, want1)
	}
}

func TestSumMixtureZeroWeight(t *testing.T) {
	x := Symbol('x', 0)
	tight, wide := twoPriors(t, x)
	components := []HybridFactor{LiftToHybrid(tight), LiftToHybrid(wide)}
	vals := valuesAt(x, -2.5)
	dv := NewDiscreteValues()

	// A dead component carries responsibility exactly 0; the blended error
	// must reduce to the surviving component's error, not NaN.
	mix, err := NewSumMixtureFactor([]Key{x}, nil, components, []float64{1, 0}, true)
	if err != nil {
		t.Fatal(err)
	}
	want := tight.Error(vals)
	if got := mix.Error(vals, dv); math.IsNaN(got) || math.Abs(got-want) > 1e-12 {
		t.Fatalf("error with a dead component %f expected %f", got, want)
	}

	mix, err = NewSumMixtureFactor([]Key{x}, nil, components, []float64{0.5, 0.5}, true)
	if err != nil {
		t.Fatal(err)
	}
	mix.UpdateWeights([]float64{1, 0})
	if got := mix.Error(vals, dv); math.IsNaN(got) || math.Abs(got-want) > 1e-12 {
		t.Fatalf("error after killing a component %f expected %f", got, want)
	}
}

func TestSumMixtureUpdateWeights(t *testing.T) {
	x := Symbol('x', 0)
	tight, wide := twoPriors(t, x)
	mix, _ := NewSumMixtureFactor([]Key{x}, nil,
		[]HybridFactor{LiftToHybrid(tight), LiftToHybrid(wide)}, []float64{0.5, 0.5}, false)
	vals := valuesAt(x, -2.5)
	dv := NewDiscreteValues()
	before := mix.Error(vals, dv)

	mix.UpdateWeights([]float64{1, 2, 3})
	if got := mix.Error(vals, dv); got != before {
		t.Fatalf("mis-sized weight update changed the factor: %f != %f", got, before)
	}

	mix.UpdateWeights([]float64{0.99, 0.01})
	resp := mix.Responsibilities(vals, dv)
	if resp[0] <= 0.5 {
		t.Fatalf("re-weighting did not shift responsibility: %v", resp)
	}
}
