package dcsam

import (
	"math"
	"testing"

	"github.com/gonum/matrix/mat64"
)

// twoPriors returns two unit-dimension priors on x at 0, with σ=1 and σ=8.
// Near the origin the tight prior dominates; far from it the wide one does.
func twoPriors(t *testing.T, x Key) (tight, wide *PriorFactor) {
	σ1, err := NewDiagonalNoise(1)
	if err != nil {
		t.Fatal(err)
	}
	σ8, err := NewDiagonalNoise(8)
	if err != nil {
		t.Fatal(err)
	}
	tight, err = NewPriorFactor(x, mat64.NewVector(1, nil), σ1)
	if err != nil {
		t.Fatal(err)
	}
	wide, err = NewPriorFactor(x, mat64.NewVector(1, nil), σ8)
	if err != nil {
		t.Fatal(err)
	}
	return
}

func valuesAt(x Key, v float64) Values {
	vals := NewValues()
	vals.Insert(x, mat64.NewVector(1, []float64{v}))
	return vals
}

func TestNewMixtureFactorErrors(t *testing.T) {
	x := Symbol('x', 0)
	d := DiscreteKey{Symbol('d', 0), 2}
	tight, _ := twoPriors(t, x)
	if _, err := NewMixtureFactor([]Key{x}, d, nil, false); err == nil {
		t.Fatal("empty component list does not fail")
	}
	if _, err := NewMixtureFactor([]Key{x}, d, []ContinuousFactor{tight}, false); err == nil {
		t.Fatal("cardinality and component count mismatch does not fail")
	}
}

func TestMixtureFactorSelection(t *testing.T) {
	x := Symbol('x', 0)
	d := DiscreteKey{Symbol('d', 0), 2}
	tight, wide := twoPriors(t, x)
	mix, err := NewMixtureFactor([]Key{x}, d, []ContinuousFactor{tight, wide}, true)
	if err != nil {
		t.Fatal(err)
	}
	vals := valuesAt(x, -2.5)
	for i, component := range []ContinuousFactor{tight, wide} {
		dv := DiscreteValues{d.Key: i}
		if got, want := mix.Error(vals, dv), component.Error(vals); got != want {
			t.Fatalf("selecting %d: error %f expected %f", i, got, want)
		}
		gf := mix.Linearize(vals, dv)
		want := component.Linearize(vals)
		if gf.Jacobian(x).At(0, 0) != want.Jacobian(x).At(0, 0) {
			t.Fatalf("selecting %d: linearization does not match the component", i)
		}
	}
}

func TestMixtureFactorNormalization(t *testing.T) {
	x := Symbol('x', 0)
	d := DiscreteKey{Symbol('d', 0), 2}
	tight, wide := twoPriors(t, x)
	unnormalized, _ := NewMixtureFactor([]Key{x}, d, []ContinuousFactor{tight, wide}, false)
	vals := valuesAt(x, -2.5)
	dv := DiscreteValues{d.Key: 1}
	want := wide.Error(vals) + wide.LogNormalizingConstant()
	if got := unnormalized.Error(vals, dv); math.Abs(got-want) > 1e-12 {
		t.Fatalf("unnormalized error %f expected %f", got, want)
	}
}

func TestMixtureFactorPanics(t *testing.T) {
	x := Symbol('x', 0)
	d := DiscreteKey{Symbol('d', 0), 2}
	tight, wide := twoPriors(t, x)
	mix, _ := NewMixtureFactor([]Key{x}, d, []ContinuousFactor{tight, wide}, true)
	vals := valuesAt(x, 0)

	t.Run("missing selector", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("evaluating without the selector does not panic")
			}
		}()
		mix.Error(vals, NewDiscreteValues())
	})
	t.Run("out of range selector", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("out-of-range selector does not panic")
			}
		}()
		mix.Error(vals, DiscreteValues{d.Key: 2})
	})
}
