package dcsam

import "log"

// EMMixtureFactor is the expectation-weighted discrete-continuous mixture
//
//	r(x) = sum_i w'_i * r_i(x),  w'_i ∝ w_i * p(z | x, h_i),  sum_i w'_i = 1
//
// where h_i is the i-th hypothesis. Numerically this is nearly identical to
// SumMixtureFactor, but it represents the expectation step over a latent
// assignment rather than an approximation of the finite mixture likelihood;
// the two types are deliberately not interchangeable.
type EMMixtureFactor struct {
	keys         []Key
	discreteKeys []DiscreteKey
	factors      []HybridFactor
	logWeights   []float64
	normalized   bool
}

// NewEMMixtureFactor creates an expectation-weighted mixture over the
// provided components. Passing nil weights yields equal weighting.
func NewEMMixtureFactor(continuousKeys []Key, discreteKeys []DiscreteKey, factors []HybridFactor, weights []float64, normalized bool) (*EMMixtureFactor, error) {
	lw, err := mixtureLogWeights(factors, weights)
	if err != nil {
		return nil, err
	}
	return &EMMixtureFactor{continuousKeys, discreteKeys, factors, lw, normalized}, nil
}

// Keys implements the HybridFactor interface.
func (f *EMMixtureFactor) Keys() []Key {
	return f.keys
}

// DiscreteKeys implements the HybridFactor interface.
func (f *EMMixtureFactor) DiscreteKeys() []DiscreteKey {
	return f.discreteKeys
}

// Dim implements the HybridFactor interface. Every component contributes its
// own rows to the stacked Jacobian.
func (f *EMMixtureFactor) Dim() int {
	var total int
	for _, component := range f.factors {
		total += component.Dim()
	}
	return total
}

// componentErrors returns e_i = r_i - log w_i [+ log normalizing constant for
// uncalibrated components] for every component.
func (f *EMMixtureFactor) componentErrors(continuousVals Values, discreteVals DiscreteValues) []float64 {
	errs := make([]float64, len(f.factors))
	for i, component := range f.factors {
		e := component.Error(continuousVals, discreteVals) - f.logWeights[i]
		if !f.normalized {
			e += component.LogNormalizingConstant()
		}
		errs[i] = e
	}
	return errs
}

// Responsibilities returns the normalized posterior component weights,
// computed identically to SumMixtureFactor.
func (f *EMMixtureFactor) Responsibilities(continuousVals Values, discreteVals DiscreteValues) []float64 {
	errs := f.componentErrors(continuousVals, discreteVals)
	logProbs := make([]float64, len(errs))
	for i, e := range errs {
		logProbs[i] = -e
	}
	return expNormalize(logProbs)
}

// Error implements the HybridFactor interface: the expectation of the
// component errors under the responsibilities.
func (f *EMMixtureFactor) Error(continuousVals Values, discreteVals DiscreteValues) float64 {
	errs := f.componentErrors(continuousVals, discreteVals)
	logProbs := make([]float64, len(errs))
	for i, e := range errs {
		logProbs[i] = -e
	}
	responsibilities := expNormalize(logProbs)
	var total float64
	for i, e := range errs {
		// A zero-weight component has error +Inf and responsibility 0; its
		// contribution is 0, not 0·∞.
		if responsibilities[i] == 0 {
			continue
		}
		total += responsibilities[i] * e
	}
	return total
}

// ActiveFactorIdx returns the index of the component with the smallest
// weighted error, with ties resolving to the lowest index encountered.
func (f *EMMixtureFactor) ActiveFactorIdx(continuousVals Values, discreteVals DiscreteValues) int {
	errs := f.componentErrors(continuousVals, discreteVals)
	minIdx := 0
	for i, e := range errs {
		if e < errs[minIdx] {
			minIdx = i
		}
	}
	return minIdx
}

// Linearize implements the HybridFactor interface: the vertical stack of all
// component systems, each scaled by the square root of its responsibility.
func (f *EMMixtureFactor) Linearize(continuousVals Values, discreteVals DiscreteValues) *GaussianFactor {
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
func (f *EMMixtureFactor) LogNormalizingConstant() float64 {
	return f.factors[0].LogNormalizingConstant()
}

// UpdateWeights replaces the component weights in place. A weight vector of
// the wrong length is reported and discarded.
func (f *EMMixtureFactor) UpdateWeights(weights []float64) {
	if len(weights) != len(f.logWeights) {
		log.Printf("attempted to update weights with incorrectly sized vector (%d != %d)", len(weights), len(f.logWeights))
		return
	}
	f.logWeights = logWeights(weights)
}

// Equals implements the HybridFactor interface.
func (f *EMMixtureFactor) Equals(other HybridFactor, tol float64) bool {
	o, ok := other.(*EMMixtureFactor)
	if !ok {
		return false
	}
	return mixtureEqual(f.factors, f.logWeights, f.normalized, o.factors, o.logWeights, o.normalized, tol)
}
