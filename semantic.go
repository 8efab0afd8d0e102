package dcsam

import (
	"log"
	"math"
)

// SemanticBearingRangeFactor couples a bearing-range measurement to a
// landmark with a class hypothesis for that landmark: the joint error is the
// geometric bearing-range error plus the negative log-probability of the
// hypothesized class under the detector's class distribution.
type SemanticBearingRangeFactor struct {
	factor *BearingRangeFactor
	dk     DiscreteKey
	probs  []float64
}

// NewSemanticBearingRangeFactor creates a semantic bearing-range factor from
// a geometric measurement and a class probability vector whose length must
// match the class key's cardinality.
func NewSemanticBearingRangeFactor(poseKey, pointKey Key, classKey DiscreteKey, bearing, rng float64, noise NoiseModel, probs []float64) (*SemanticBearingRangeFactor, error) {
	if err := checkCardinality(len(probs), classKey, "probs"); err != nil {
		return nil, err
	}
	factor, err := NewBearingRangeFactor(poseKey, pointKey, bearing, rng, noise)
	if err != nil {
		return nil, err
	}
	cp := make([]float64, len(probs))
	copy(cp, probs)
	return &SemanticBearingRangeFactor{factor, classKey, cp}, nil
}

// Keys implements the HybridFactor interface.
func (f *SemanticBearingRangeFactor) Keys() []Key {
	return f.factor.Keys()
}

// DiscreteKeys implements the HybridFactor interface.
func (f *SemanticBearingRangeFactor) DiscreteKeys() []DiscreteKey {
	return []DiscreteKey{f.dk}
}

// Dim implements the HybridFactor interface.
func (f *SemanticBearingRangeFactor) Dim() int {
	return f.factor.Dim()
}

// Error implements the HybridFactor interface. The class term is additive in
// negative log-likelihood, so a zero-probability class yields +Inf.
func (f *SemanticBearingRangeFactor) Error(continuousVals Values, discreteVals DiscreteValues) float64 {
	return f.factor.Error(continuousVals) - math.Log(f.probs[discreteVals.At(f.dk.Key)])
}

// Linearize implements the HybridFactor interface. The class term is constant
// in the continuous variables, so the linearization is that of the geometric
// factor alone.
func (f *SemanticBearingRangeFactor) Linearize(continuousVals Values, discreteVals DiscreteValues) *GaussianFactor {
	return f.factor.Linearize(continuousVals)
}

// LogNormalizingConstant implements the HybridFactor interface.
func (f *SemanticBearingRangeFactor) LogNormalizingConstant() float64 {
	return f.factor.LogNormalizingConstant()
}

// Equals implements the HybridFactor interface.
func (f *SemanticBearingRangeFactor) Equals(other HybridFactor, tol float64) bool {
	var o *SemanticBearingRangeFactor
	switch t := other.(type) {
	case *SemanticBearingRangeFactor:
		o = t
	case *SmartSemanticBearingRangeFactor:
		o = &t.SemanticBearingRangeFactor
	default:
		return false
	}
	if f.dk != o.dk || len(f.probs) != len(o.probs) {
		return false
	}
	for i, p := range f.probs {
		if math.Abs(p-o.probs[i]) > tol {
			return false
		}
	}
	return f.factor.Equals(o.factor, tol)
}

// SmartSemanticBearingRangeFactor augments SemanticBearingRangeFactor with
// in-place class re-weighting, for detectors that refine their class
// posterior after the factor has been added to a graph.
type SmartSemanticBearingRangeFactor struct {
	SemanticBearingRangeFactor
}

// NewSmartSemanticBearingRangeFactor creates an updateable semantic
// bearing-range factor.
func NewSmartSemanticBearingRangeFactor(poseKey, pointKey Key, classKey DiscreteKey, bearing, rng float64, noise NoiseModel, probs []float64) (*SmartSemanticBearingRangeFactor, error) {
	base, err := NewSemanticBearingRangeFactor(poseKey, pointKey, classKey, bearing, rng, noise, probs)
	if err != nil {
		return nil, err
	}
	return &SmartSemanticBearingRangeFactor{*base}, nil
}

// UpdateProbs replaces the class distribution in place. A vector of the wrong
// length is reported and discarded, leaving the factor unchanged.
func (f *SmartSemanticBearingRangeFactor) UpdateProbs(probs []float64) {
	if len(probs) != len(f.probs) {
		log.Printf("attempted to update probs with incorrectly sized vector (%d != %d)", len(probs), len(f.probs))
		return
	}
	copy(f.probs, probs)
}
