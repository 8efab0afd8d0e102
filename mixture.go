package dcsam

import "fmt"

// MixtureFactor is a hard-selection discrete-conditional mixture: the
// discrete selector key picks exactly one live component, whose error and
// linearization define the factor. This is the fully discrete-conditional
// case, typically used for data-association hypotheses.
type MixtureFactor struct {
	keys       []Key
	dk         DiscreteKey
	factors    []ContinuousFactor
	normalized bool
}

// NewMixtureFactor creates a hard-selection mixture over the provided
// component factors. The selector's cardinality must match the component
// count. Set normalized to true when the components are already calibrated
// likelihoods, i.e. their normalizing constants may be skipped.
func NewMixtureFactor(keys []Key, dk DiscreteKey, factors []ContinuousFactor, normalized bool) (*MixtureFactor, error) {
	if len(factors) == 0 {
		return nil, errNoComponents
	}
	if err := checkCardinality(len(factors), dk, "component factors"); err != nil {
		return nil, err
	}
	return &MixtureFactor{keys, dk, factors, normalized}, nil
}

// Keys implements the HybridFactor interface.
func (f *MixtureFactor) Keys() []Key {
	return f.keys
}

// DiscreteKeys implements the HybridFactor interface.
func (f *MixtureFactor) DiscreteKeys() []DiscreteKey {
	return []DiscreteKey{f.dk}
}

// Dim implements the HybridFactor interface.
func (f *MixtureFactor) Dim() int {
	return f.factors[0].Dim()
}

// selected returns the component picked by the discrete assignment. It panics
// if the selector key is unset or out of range: evaluating a mixture without
// its selector is a precondition violation.
func (f *MixtureFactor) selected(discreteVals DiscreteValues) ContinuousFactor {
	assignment := discreteVals.At(f.dk.Key)
	if assignment < 0 || assignment >= len(f.factors) {
		panic(fmt.Errorf("assignment %d to %s exceeds cardinality %d", assignment, f.dk.Key, f.dk.Cardinality))
	}
	return f.factors[assignment]
}

// Error implements the HybridFactor interface: the error of the selected
// component, plus its normalizing constant when the components are not
// calibrated likelihoods.
func (f *MixtureFactor) Error(continuousVals Values, discreteVals DiscreteValues) float64 {
	component := f.selected(discreteVals)
	factorError := component.Error(continuousVals)
	if f.normalized {
		return factorError
	}
	return factorError + component.LogNormalizingConstant()
}

// Linearize implements the HybridFactor interface by delegating entirely to
// the selected component.
func (f *MixtureFactor) Linearize(continuousVals Values, discreteVals DiscreteValues) *GaussianFactor {
	return f.selected(discreteVals).Linearize(continuousVals)
}

// LogNormalizingConstant implements the HybridFactor interface.
func (f *MixtureFactor) LogNormalizingConstant() float64 {
	return f.factors[0].LogNormalizingConstant()
}

// Equals implements the HybridFactor interface.
func (f *MixtureFactor) Equals(other HybridFactor, tol float64) bool {
	o, ok := other.(*MixtureFactor)
	if !ok || o.dk != f.dk || o.normalized != f.normalized || len(o.factors) != len(f.factors) {
		return false
	}
	if !keysEqual(f.keys, o.keys) {
		return false
	}
	for i, component := range f.factors {
		if !component.Equals(o.factors[i], tol) {
			return false
		}
	}
	return true
}

// keysEqual compares two ordered key lists.
func keysEqual(a, b []Key) bool {
	if len(a) != len(b) {
		return false
	}
	for i, k := range a {
		if b[i] != k {
			return false
		}
	}
	return true
}

// discreteKeysEqual compares two ordered discrete key lists.
func discreteKeysEqual(a, b []DiscreteKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i, dk := range a {
		if b[i] != dk {
			return false
		}
	}
	return true
}
