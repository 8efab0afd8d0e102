package dcsam

import (
	"log"
	"math"
)

// SumMixtureFactor is the discrete-continuous sum-mixture
//
//	r(x) = -log( sum_i w_i * η_i * exp(-r_i(x)) )
//
// evaluated through numerically stable responsibilities, following the
// derivation of Rosen et al. 2013 (RISE) with the log-sum-exp treatment of
// Pfeiffer et al. 2021. logBeta is a constant upper bound on the probability
// of the observed data, β := sum_i w_i * η_i for Gaussian components.
type SumMixtureFactor struct {
	keys         []Key
	discreteKeys []DiscreteKey
	factors      []HybridFactor
	logWeights   []float64
	normalized   bool
	logBeta      float64
}

// NewSumMixtureFactor creates a sum-mixture over the provided components.
// Passing nil weights yields equal weighting.
func NewSumMixtureFactor(continuousKeys []Key, discreteKeys []DiscreteKey, factors []HybridFactor, weights []float64, normalized bool) (*SumMixtureFactor, error) {
	lw, err := mixtureLogWeights(factors, weights)
	if err != nil {
		return nil, err
	}
	f := &SumMixtureFactor{continuousKeys, discreteKeys, factors, lw, normalized, 0}
	f.logBeta = f.computeLogBeta()
	return f, nil
}

// computeLogBeta evaluates log β = log sum_i exp(log w_i + log η_i), where
// -log η_i is the component's log-normalizing constant.
func (f *SumMixtureFactor) computeLogBeta() float64 {
	logWeightedEtas := make([]float64, len(f.factors))
	for i, component := range f.factors {
		logWeightedEtas[i] = f.logWeights[i] - component.LogNormalizingConstant()
	}
	return logSumExp(logWeightedEtas)
}

// Keys implements the HybridFactor interface.
func (f *SumMixtureFactor) Keys() []Key {
	return f.keys
}

// DiscreteKeys implements the HybridFactor interface.
func (f *SumMixtureFactor) DiscreteKeys() []DiscreteKey {
	return f.discreteKeys
}

// Dim implements the HybridFactor interface.
func (f *SumMixtureFactor) Dim() int {
	return f.factors[0].Dim()
}

// ComponentLogProbs returns log p_i = -(r_i - log w_i [+ log normalizing
// constant for uncalibrated components]) for every component.
func (f *SumMixtureFactor) ComponentLogProbs(continuousVals Values, discreteVals DiscreteValues) []float64 {
	logProbs := make([]float64, len(f.factors))
	for i, component := range f.factors {
		e := component.Error(continuousVals, discreteVals) - f.logWeights[i]
		if !f.normalized {
			e += component.LogNormalizingConstant()
		}
		logProbs[i] = -e
	}
	return logProbs
}

// Responsibilities returns the normalized posterior component weights for the
// given assignment. They sum to one for any finite component errors.
func (f *SumMixtureFactor) Responsibilities(continuousVals Values, discreteVals DiscreteValues) []float64 {
	return expNormalize(f.ComponentLogProbs(continuousVals, discreteVals))
}

// Error implements the HybridFactor interface: the responsibility-weighted
// blend of the component negative log-probabilities.
func (f *SumMixtureFactor) Error(continuousVals Values, discreteVals DiscreteValues) float64 {
	logProbs := f.ComponentLogProbs(continuousVals, discreteVals)
	responsibilities := expNormalize(logProbs)
	var total float64
	for i, lp := range logProbs {
		// A zero-weight (or numerically vanished) component has log-prob
		// -Inf and responsibility 0; its contribution is 0, not 0·∞.
		if responsibilities[i] == 0 {
			continue
		}
		total += responsibilities[i] * -lp
	}
	return total
}

// SqrtResidual returns sqrt(log β - r(x)), the square-root residual of Rosen
// et al. 2013. The argument is clamped at zero so that floating point noise
// around the bound cannot produce NaN.
func (f *SumMixtureFactor) SqrtResidual(continuousVals Values, discreteVals DiscreteValues) float64 {
	arg := f.logBeta - f.Error(continuousVals, discreteVals)
	if arg < 0 {
		arg = 0
	}
	return math.Sqrt(arg)
}

// ActiveFactorIdx returns the index of the dominant component, with ties
// resolving to the lowest index encountered.
func (f *SumMixtureFactor) ActiveFactorIdx(continuousVals Values, discreteVals DiscreteValues) int {
	logProbs := f.ComponentLogProbs(continuousVals, discreteVals)
	maxIdx := 0
	for i, lp := range logProbs {
		if lp > logProbs[maxIdx] {
			maxIdx = i
		}
	}
	return maxIdx
}

// Linearize implements the HybridFactor interface: every component is
// linearized, scaled by the square root of its responsibility, and the
// blocks are stacked vertically into one weighted least-squares system.
func (f *SumMixtureFactor) Linearize(continuousVals Values, discreteVals DiscreteValues) *GaussianFactor {
	responsibilities := f.Responsibilities(continuousVals, discreteVals)
	systems := make([]*GaussianFactor, len(f.factors))
	for i, component := range f.factors {
		systems[i] = component.Linearize(continuousVals, discreteVals)
	}
	stacked, err := StackGaussianFactors(responsibilities, systems)
	if err != nil {
		panic(err)
	}
	return stacked
}

// LogNormalizingConstant implements the HybridFactor interface.
func (f *SumMixtureFactor) LogNormalizingConstant() float64 {
	return f.factors[0].LogNormalizingConstant()
}

// UpdateWeights replaces the component weights in place and refreshes the
// log β bound. A weight vector of the wrong length is reported and discarded.
func (f *SumMixtureFactor) UpdateWeights(weights []float64) {
	if len(weights) != len(f.logWeights) {
		log.Printf("attempted to update weights with incorrectly sized vector (%d != %d)", len(weights), len(f.logWeights))
		return
	}
	f.logWeights = logWeights(weights)
	f.logBeta = f.computeLogBeta()
}

// Equals implements the HybridFactor interface.
func (f *SumMixtureFactor) Equals(other HybridFactor, tol float64) bool {
	o, ok := other.(*SumMixtureFactor)
	if !ok || math.Abs(f.logBeta-o.logBeta) > tol {
		return false
	}
	return mixtureEqual(f.factors, f.logWeights, f.normalized, o.factors, o.logWeights, o.normalized, tol)
}
