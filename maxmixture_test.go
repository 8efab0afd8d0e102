package dcsam

import (
	"math"
	"testing"
)

func TestNewMaxMixtureFactorErrors(t *testing.T) {
	x := Symbol('x', 0)
	tight, _ := twoPriors(t, x)
	if _, err := NewMaxMixtureFactor([]Key{x}, nil, nil, nil, false); err == nil {
		t.Fatal("empty component list does not fail")
	}
	if _, err := NewMaxMixtureFactor([]Key{x}, nil, []HybridFactor{LiftToHybrid(tight)}, []float64{0.5, 0.5}, false); err == nil {
		t.Fatal("weight count mismatch does not fail")
	}
}

func TestMaxMixtureDominantComponent(t *testing.T) {
	x := Symbol('x', 0)
	tight, wide := twoPriors(t, x)
	mix, err := NewMaxMixtureFactor([]Key{x}, nil,
		[]HybridFactor{LiftToHybrid(tight), LiftToHybrid(wide)}, nil, false)
	if err != nil {
		t.Fatal(err)
	}
	dv := NewDiscreteValues()

	// Far from the priors the wide component wins once normalizing
	// constants are accounted for.
	far := valuesAt(x, -2.5)
	if idx := mix.ActiveFactorIdx(far, dv); idx != 1 {
		t.Fatalf("dominant component at -2.5 is %d expected 1", idx)
	}
	want := wide.Error(far) + wide.LogNormalizingConstant()
	if got := mix.Error(far, dv); math.Abs(got-want) > 1e-12 {
		t.Fatalf("max-mixture error %f expected %f", got, want)
	}

	// At the mode the tight component wins.
	near := valuesAt(x, 0)
	if idx := mix.ActiveFactorIdx(near, dv); idx != 0 {
		t.Fatalf("dominant component at 0 is %d expected 0", idx)
	}
	gf := mix.Linearize(near, dv)
	if got := gf.Jacobian(x).At(0, 0); math.Abs(got-1) > 1e-12 {
		t.Fatalf("linearization Jacobian %f does not match the dominant component", got)
	}
}

func TestMaxMixtureTieBreak(t *testing.T) {
	x := Symbol('x', 0)
	tight, _ := twoPriors(t, x)
	mix, err := NewMaxMixtureFactor([]Key{x}, nil,
		[]HybridFactor{LiftToHybrid(tight), LiftToHybrid(tight)}, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	if idx := mix.ActiveFactorIdx(valuesAt(x, 1), NewDiscreteValues()); idx != 0 {
		t.Fatalf("tie resolved to %d expected 0", idx)
	}
}

func TestMaxMixtureWeights(t *testing.T) {
	x := Symbol('x', 0)
	tight, _ := twoPriors(t, x)
	// Identical components: only the weights discriminate.
	mix, err := NewMaxMixtureFactor([]Key{x}, nil,
		[]HybridFactor{LiftToHybrid(tight), LiftToHybrid(tight)}, []float64{0.1, 0.9}, true)
	if err != nil {
		t.Fatal(err)
	}
	vals := valuesAt(x, 1)
	dv := NewDiscreteValues()
	if idx := mix.ActiveFactorIdx(vals, dv); idx != 1 {
		t.Fatalf("heavier component not dominant: got %d", idx)
	}
	want := tight.Error(vals) - math.Log(0.9)
	if got := mix.Error(vals, dv); math.Abs(got-want) > 1e-12 {
		t.Fatalf("weighted error %f expected %f", got, want)
	}

	mix.UpdateWeights([]float64{0.9, 0.1})
	if idx := mix.ActiveFactorIdx(vals, dv); idx != 0 {
		t.Fatalf("re-weighting did not flip the dominant component: got %d", idx)
	}
}

func TestMaxMixtureUpdateWeightsBadSize(t *testing.T) {
	x := Symbol('x', 0)
	tight, wide := twoPriors(t, x)
	mix, _ := NewMaxMixtureFactor([]Key{x}, nil,
		[]HybridFactor{LiftToHybrid(tight), LiftToHybrid(wide)}, []float64{0.3, 0.7}, true)
	vals := valuesAt(x, -2.5)
	dv := NewDiscreteValues()
	before := mix.Error(vals, dv)
	mix.UpdateWeights([]float64{1, 2, 3})
	if got := mix.Error(vals, dv); got != before {
		t.Fatalf("mis-sized weight update changed the factor: %f != %f", got, before)
	}
}

func TestMaxMixtureAssociationKeys(t *testing.T) {
	x := Symbol('x', 0)
	y := Symbol('x', 1)
	noise, _ := NewDiagonalNoise(1)
	px, _ := NewPriorFactor(x, valuesAt(x, 0).At(x), noise)
	py, _ := NewPriorFactor(y, valuesAt(y, 0).At(y), noise)
	mix, err := NewMaxMixtureFactor([]Key{x, y}, nil,
		[]HybridFactor{LiftToHybrid(px), LiftToHybrid(py)}, nil, true)
	if err != nil {
		t.Fatal(err)
	}
	vals := NewValues()
	vals.Merge(valuesAt(x, 3))
	vals.Merge(valuesAt(y, 1))
	keys := mix.AssociationKeys(vals, NewDiscreteValues())
	if len(keys) != 1 || keys[0] != y {
		t.Fatalf("association keys %v expected [%s]", keys, y)
	}
}
