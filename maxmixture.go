package dcsam

import (
	"log"
	"math"
)

// MaxMixtureFactor approximates a mixture of competing hypotheses by the
// dominant one:
//
//	r(x) = min_i r_i(x) - log(w_i)
//
// See Olson and Agarwal, RSS 2012. Components are HybridFactors, so mixtures
// may nest; plain continuous components are wrapped via LiftToHybrid.
type MaxMixtureFactor struct {
	keys         []Key
	discreteKeys []DiscreteKey
	factors      []HybridFactor
	logWeights   []float64
	normalized   bool
}

// NewMaxMixtureFactor creates a max-mixture over the provided components.
// Passing nil weights yields equal weighting.
func NewMaxMixtureFactor(continuousKeys []Key, discreteKeys []DiscreteKey, factors []HybridFactor, weights []float64, normalized bool) (*MaxMixtureFactor, error) {
	lw, err := mixtureLogWeights(factors, weights)
	if err != nil {
		return nil, err
	}
	return &MaxMixtureFactor{continuousKeys, discreteKeys, factors, lw, normalized}, nil
}

// Keys implements the HybridFactor interface.
func (f *MaxMixtureFactor) Keys() []Key {
	return f.keys
}

// DiscreteKeys implements the HybridFactor interface.
func (f *MaxMixtureFactor) DiscreteKeys() []DiscreteKey {
	return f.discreteKeys
}

// Dim implements the HybridFactor interface.
func (f *MaxMixtureFactor) Dim() int {
	return f.factors[0].Dim()
}

// weightedError returns the error of component i including its weight and,
// for uncalibrated components, its normalizing constant.
func (f *MaxMixtureFactor) weightedError(i int, continuousVals Values, discreteVals DiscreteValues) float64 {
	e := f.factors[i].Error(continuousVals, discreteVals) - f.logWeights[i]
	if !f.normalized {
		e += f.factors[i].LogNormalizingConstant()
	}
	return e
}

// ActiveFactorIdx returns the index of the dominant hypothesis, i.e. the
// component minimizing the weighted error. Ties resolve to the lowest index
// encountered.
func (f *MaxMixtureFactor) ActiveFactorIdx(continuousVals Values, discreteVals DiscreteValues) int {
	minError := math.Inf(1)
	minErrorIdx := 0
	for i := range f.factors {
		if e := f.weightedError(i, continuousVals, discreteVals); e < minError {
			minError = e
			minErrorIdx = i
		}
	}
	return minErrorIdx
}

// Error implements the HybridFactor interface: the minimum weighted error
// over all components.
func (f *MaxMixtureFactor) Error(continuousVals Values, discreteVals DiscreteValues) float64 {
	return f.weightedError(f.ActiveFactorIdx(continuousVals, discreteVals), continuousVals, discreteVals)
}

// Linearize implements the HybridFactor interface using the dominant
// component only.
func (f *MaxMixtureFactor) Linearize(continuousVals Values, discreteVals DiscreteValues) *GaussianFactor {
	return f.factors[f.ActiveFactorIdx(continuousVals, discreteVals)].Linearize(continuousVals, discreteVals)
}

// AssociationKeys returns the continuous keys of the dominant component.
func (f *MaxMixtureFactor) AssociationKeys(continuousVals Values, discreteVals DiscreteValues) []Key {
	return f.factors[f.ActiveFactorIdx(continuousVals, discreteVals)].Keys()
}

// LogNormalizingConstant implements the HybridFactor interface.
func (f *MaxMixtureFactor) LogNormalizingConstant() float64 {
	return f.factors[0].LogNormalizingConstant()
}

// UpdateWeights replaces the component weights in place. A weight vector of
// the wrong length is reported and discarded: a partial update would corrupt
// the index alignment between weights and components.
func (f *MaxMixtureFactor) UpdateWeights(weights []float64) {
	if len(weights) != len(f.logWeights) {
		log.Printf("attempted to update weights with incorrectly sized vector (%d != %d)", len(weights), len(f.logWeights))
		return
	}
	f.logWeights = logWeights(weights)
}

// Equals implements the HybridFactor interface.
func (f *MaxMixtureFactor) Equals(other HybridFactor, tol float64) bool {
	o, ok := other.(*MaxMixtureFactor)
	if !ok {
		return false
	}
	return mixtureEqual(f.factors, f.logWeights, f.normalized, o.factors, o.logWeights, o.normalized, tol)
}

// mixtureLogWeights validates the components and returns the log-transformed
// weight vector, zero (equal weighting) when weights is nil.
func mixtureLogWeights(factors []HybridFactor, weights []float64) ([]float64, error) {
	if len(factors) == 0 {
		return nil, errNoComponents
	}
	if weights == nil {
		return make([]float64, len(factors)), nil
	}
	if len(weights) != len(factors) {
		return nil, errWeightCount(len(weights), len(factors))
	}
	return logWeights(weights), nil
}

// mixtureEqual compares the shared state of the weighted mixture variants.
func mixtureEqual(factors []HybridFactor, lw []float64, normalized bool, ofactors []HybridFactor, olw []float64, onormalized bool, tol float64) bool {
	if len(factors) != len(ofactors) || normalized != onormalized {
		return false
	}
	for i, component := range factors {
		if !component.Equals(ofactors[i], tol) {
			return false
		}
	}
	for i, w := range lw {
		if w != olw[i] && !(math.IsInf(w, -1) && math.IsInf(olw[i], -1)) {
			return false
		}
	}
	return true
}
