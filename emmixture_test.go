package dcsam

import (
	"math"
	"testing"
)

func TestEMMixtureError(t *testing.T) {
	x := Symbol('x', 0)
	tight, wide := twoPriors(t, x)
	mix, err := NewEMMixtureFactor([]Key{x}, nil,
		[]HybridFactor{LiftToHybrid(tight), LiftToHybrid(wide)}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	vals := valuesAt(x, -2.5)
	dv := NewDiscreteValues()

	resp := mix.Responsibilities(vals, dv)
	var sum float64
	for _, r := range resp {
		sum += r
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Fatalf("responsibilities sum to %f", sum)
	}

	e0 := tight.Error(vals) + tight.LogNormalizingConstant()
	e1 := wide.Error(vals) + wide.LogNormalizingConstant()
	want := resp[0]*e0 + resp[1]*e1
	if got := mix.Error(vals, dv); math.Abs(got-want) > 1e-12 {
		t.Fatalf("expectation-weighted error %f expected %f", got, want)
	}
	// The expectation lies between the component extremes.
	if got := mix.Error(vals, dv); got < math.Min(e0, e1) || got > math.Max(e0, e1) {
		t.Fatalf("error %f outside component range [%f, %f]", got, e1, e0)
	}
}

func TestEMMixtureDim(t *testing.T) {
	x := Symbol('x', 0)
	tight, wide := twoPriors(t, x)
	mix, err := NewEMMixtureFactor([]Key{x}, nil,
		[]HybridFactor{LiftToHybrid(tight), LiftToHybrid(wide)}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	if mix.Dim() != 2 {
		t.Fatalf("dimension %d expected 2: every component contributes rows", mix.Dim())
	}
	gf := mix.Linearize(valuesAt(x, -2.5), NewDiscreteValues())
	if gf.Dim() != mix.Dim() {
		t.Fatalf("stacked system has %d rows expected %d", gf.Dim(), mix.Dim())
	}
}

func TestEMMixtureEqualErrors(t *testing.T) {
	x := Symbol('x', 0)
	tight, _ := twoPriors(t, x)
	mix, err := NewEMMixtureFactor([]Key{x}, nil,
		[]HybridFactor{LiftToHybrid(tight), LiftToHybrid(tight), LiftToHybrid(tight)}, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	vals := valuesAt(x, 1)
	dv := NewDiscreteValues()
	resp := mix.Responsibilities(vals, dv)
	for i, r := range resp {
		if math.Abs(r-1.0/3.0) > 1e-12 {
			t.Fatalf("resp[%d]=%f expected 1/3", i, r)
		}
	}
	if got, want := mix.Error(vals, dv), tight.Error(vals); math.Abs(got-want) > 1e-12 {
		t.Fatalf("identical components error %f expected %f", got, want)
	}
	if idx := mix.ActiveFactorIdx(vals, dv); idx != 0 {
		t.Fatalf("tie resolved to %d expected 0", idx)
	}
}

func TestEMMixtureZeroWeight(t *testing.T) {
	x := Symbol('x', 0)
	tight, wide := twoPriors(t, x)
	components := []HybridFactor{LiftToHybrid(tight), LiftToHybrid(wide)}
	vals := valuesAt(x, -2.5)
	dv := NewDiscreteValues()

	// A dead component carries responsibility exactly 0; the expectation
	// must reduce to the surviving component's error, not NaN.
	mix, err := NewEMMixtureFactor([]Key{x}, nil, components, []float64{1, 0}, true)
	if err != nil {
		t.Fatal(err)
	}
	want := tight.Error(vals)
	if got := mix.Error(vals, dv); math.IsNaN(got) || math.Abs(got-want) > 1e-12 {
		t.Fatalf("error with a dead component %f expected %f", got, want)
	}

	mix, err = NewEMMixtureFactor([]Key{x}, nil, components, []float64{0.5, 0.5}, true)
	if err != nil {
		t.Fatal(err)
	}
	mix.UpdateWeights([]float64{1, 0})
	if got := mix.Error(vals, dv); math.IsNaN(got) || math.Abs(got-want) > 1e-12 {
		t.Fatalf("error after killing a component %f expected %f", got, want)
	}
}

func TestEMMixtureUpdateWeightsBadSize(t *testing.T) {
	x := Symbol('x', 0)
	tight, wide := twoPriors(t, x)
	mix, _ := NewEMMixtureFactor([]Key{x}, nil,
		[]HybridFactor{LiftToHybrid(tight), LiftToHybrid(wide)}, []float64{0.5, 0.5}, true)
	vals := valuesAt(x, -2.5)
	dv := NewDiscreteValues()
	before := mix.Error(vals, dv)
	mix.UpdateWeights([]float64{1})
	if got := mix.Error(vals, dv); got != before {
		t.Fatalf("mis-sized weight update changed the factor: %f != %f", got, before)
	}
}
