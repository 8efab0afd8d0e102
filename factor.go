package dcsam

// ContinuousFactor is a probabilistic constraint over continuous variables
// only. Error returns the negative log-likelihood up to the normalizing
// constant, i.e. one half of the squared whitened residual; it must be finite
// whenever values for every key the factor declares are supplied, and panics
// otherwise.
type ContinuousFactor interface {
	Keys() []Key
	Dim() int
	Error(continuousVals Values) float64
	Linearize(continuousVals Values) *GaussianFactor
	LogNormalizingConstant() float64
	Equals(other ContinuousFactor, tol float64) bool
}

// DiscreteFactor is a probabilistic constraint over discrete variables only.
// Likelihood returns a non-negative (not necessarily normalized) weight for
// the queried assignment.
type DiscreteFactor interface {
	DiscreteKeys() []DiscreteKey
	Likelihood(discreteVals DiscreteValues) float64
	Equals(other DiscreteFactor, tol float64) bool
}

// HybridFactor is a joint discrete-continuous constraint: its error depends
// on an assignment to both variable types. Linearize returns the local linear
// approximation of the currently most relevant continuous cost component;
// its exact semantics depend on the mixture variant.
type HybridFactor interface {
	Keys() []Key
	DiscreteKeys() []DiscreteKey
	Dim() int
	Error(continuousVals Values, discreteVals DiscreteValues) float64
	Linearize(continuousVals Values, discreteVals DiscreteValues) *GaussianFactor
	LogNormalizingConstant() float64
	Equals(other HybridFactor, tol float64) bool
}

// liftedFactor adapts a plain ContinuousFactor to the HybridFactor contract
// with an empty discrete key set, so the mixture families can hold plain
// continuous components and nested hybrid components interchangeably.
type liftedFactor struct {
	factor ContinuousFactor
}

// LiftToHybrid wraps a plain continuous factor as a HybridFactor touching no
// discrete keys.
func LiftToHybrid(factor ContinuousFactor) HybridFactor {
	return liftedFactor{factor}
}

// Keys implements the HybridFactor interface.
func (l liftedFactor) Keys() []Key {
	return l.factor.Keys()
}

// DiscreteKeys implements the HybridFactor interface.
func (l liftedFactor) DiscreteKeys() []DiscreteKey {
	return nil
}

// Dim implements the HybridFactor interface.
func (l liftedFactor) Dim() int {
	return l.factor.Dim()
}

// Error implements the HybridFactor interface.
func (l liftedFactor) Error(continuousVals Values, discreteVals DiscreteValues) float64 {
	return l.factor.Error(continuousVals)
}

// Linearize implements the HybridFactor interface.
func (l liftedFactor) Linearize(continuousVals Values, discreteVals DiscreteValues) *GaussianFactor {
	return l.factor.Linearize(continuousVals)
}

// LogNormalizingConstant implements the HybridFactor interface.
func (l liftedFactor) LogNormalizingConstant() float64 {
	return l.factor.LogNormalizingConstant()
}

// Equals implements the HybridFactor interface.
func (l liftedFactor) Equals(other HybridFactor, tol float64) bool {
	o, ok := other.(liftedFactor)
	if !ok {
		return false
	}
	return l.factor.Equals(o.factor, tol)
}
