package dcsam

import (
	"fmt"
	"math"
)

// DiscreteAdapter projects a HybridFactor into the discrete domain by
// freezing its continuous variables at cached values, exposing the factor as
// a DiscreteFactor whose weight for an assignment d is exp(-error(c*, d)).
// The orchestrator refreshes the cache after every continuous solve.
type DiscreteAdapter struct {
	factor           HybridFactor
	cachedContinuous Values
	cachedDiscrete   DiscreteValues
}

// NewDiscreteAdapter wraps a hybrid factor for use in a discrete factor
// graph. The adapter starts uninitialized; call UpdateContinuous before
// querying likelihoods.
func NewDiscreteAdapter(factor HybridFactor) *DiscreteAdapter {
	return &DiscreteAdapter{
		factor:           factor,
		cachedContinuous: NewValues(),
		cachedDiscrete:   NewDiscreteValues(),
	}
}

// Factor returns the wrapped hybrid factor.
func (a *DiscreteAdapter) Factor() HybridFactor {
	return a.factor
}

// DiscreteKeys implements the DiscreteFactor interface.
func (a *DiscreteAdapter) DiscreteKeys() []DiscreteKey {
	return a.factor.DiscreteKeys()
}

// AllInitialized returns whether every continuous variable of the wrapped
// factor has a cached value.
func (a *DiscreteAdapter) AllInitialized() bool {
	for _, k := range a.factor.Keys() {
		if !a.cachedContinuous.Exists(k) {
			return false
		}
	}
	return true
}

// UpdateContinuous refreshes the cached continuous linearization point from
// the supplied assignment. Only values for the wrapped factor's own keys are
// copied; keys absent from continuousVals leave the cache untouched.
func (a *DiscreteAdapter) UpdateContinuous(continuousVals Values) {
	for _, k := range a.factor.Keys() {
		if continuousVals.Exists(k) {
			a.cachedContinuous.Insert(k, continuousVals.At(k))
		}
	}
}

// UpdateDiscrete refreshes the cached discrete assignment for the wrapped
// factor's own discrete keys.
func (a *DiscreteAdapter) UpdateDiscrete(discreteVals DiscreteValues) {
	for _, dk := range a.factor.DiscreteKeys() {
		if discreteVals.Exists(dk.Key) {
			a.cachedDiscrete[dk.Key] = discreteVals.At(dk.Key)
		}
	}
}

// Likelihood implements the DiscreteFactor interface: the unnormalized weight
// of assignment discreteVals with the continuous variables held at the cached
// linearization point. It panics if the adapter has not been initialized with
// values for every continuous key.
func (a *DiscreteAdapter) Likelihood(discreteVals DiscreteValues) float64 {
	if !a.AllInitialized() {
		panic(fmt.Errorf("discrete adapter queried before all continuous keys were initialized"))
	}
	return math.Exp(-a.factor.Error(a.cachedContinuous, discreteVals))
}

// DecisionTable tabulates the adapter's likelihood over every joint
// assignment of its discrete keys, last key varying fastest.
func (a *DiscreteAdapter) DecisionTable() *TableFactor {
	dkeys := a.factor.DiscreteKeys()
	size := 1
	for _, dk := range dkeys {
		size *= dk.Cardinality
	}
	table := make([]float64, 0, size)
	forEachAssignment(dkeys, func(assignment DiscreteValues) {
		table = append(table, a.Likelihood(assignment))
	})
	tf, err := NewTableFactor(dkeys, table)
	if err != nil {
		panic(err)
	}
	return tf
}

// Equals implements the DiscreteFactor interface. Adapters compare by their
// wrapped factors; the caches are transient solver state.
func (a *DiscreteAdapter) Equals(other DiscreteFactor, tol float64) bool {
	o, ok := other.(*DiscreteAdapter)
	if !ok {
		return false
	}
	return a.factor.Equals(o.factor, tol)
}

// ContinuousAdapter projects a HybridFactor into the continuous domain by
// freezing its discrete variables at cached values, exposing the factor as a
// ContinuousFactor. The orchestrator refreshes the cache after every discrete
// solve.
type ContinuousAdapter struct {
	factor         HybridFactor
	cachedDiscrete DiscreteValues
}

// NewContinuousAdapter wraps a hybrid factor for use in a continuous solver,
// seeding the discrete cache from the supplied assignment.
func NewContinuousAdapter(factor HybridFactor, discreteVals DiscreteValues) *ContinuousAdapter {
	a := &ContinuousAdapter{
		factor:         factor,
		cachedDiscrete: NewDiscreteValues(),
	}
	a.UpdateDiscrete(discreteVals)
	return a
}

// Factor returns the wrapped hybrid factor.
func (a *ContinuousAdapter) Factor() HybridFactor {
	return a.factor
}

// Keys implements the ContinuousFactor interface.
func (a *ContinuousAdapter) Keys() []Key {
	return a.factor.Keys()
}

// Dim implements the ContinuousFactor interface.
func (a *ContinuousAdapter) Dim() int {
	return a.factor.Dim()
}

// AllInitialized returns whether every discrete variable of the wrapped
// factor has a cached assignment.
func (a *ContinuousAdapter) AllInitialized() bool {
	for _, dk := range a.factor.DiscreteKeys() {
		if !a.cachedDiscrete.Exists(dk.Key) {
			return false
		}
	}
	return true
}

// UpdateDiscrete refreshes the cached discrete assignment for the wrapped
// factor's own discrete keys.
func (a *ContinuousAdapter) UpdateDiscrete(discreteVals DiscreteValues) {
	for _, dk := range a.factor.DiscreteKeys() {
		if discreteVals.Exists(dk.Key) {
			a.cachedDiscrete[dk.Key] = discreteVals.At(dk.Key)
		}
	}
}

// Error implements the ContinuousFactor interface: the wrapped factor's
// error with the discrete variables held at the cached assignment. It panics
// if any discrete key lacks a cached value.
func (a *ContinuousAdapter) Error(continuousVals Values) float64 {
	a.mustBeInitialized()
	return a.factor.Error(continuousVals, a.cachedDiscrete)
}

// Linearize implements the ContinuousFactor interface.
func (a *ContinuousAdapter) Linearize(continuousVals Values) *GaussianFactor {
	a.mustBeInitialized()
	return a.factor.Linearize(continuousVals, a.cachedDiscrete)
}

// LogNormalizingConstant implements the ContinuousFactor interface.
func (a *ContinuousAdapter) LogNormalizingConstant() float64 {
	return a.factor.LogNormalizingConstant()
}

// Equals implements the ContinuousFactor interface. Adapters compare by their
// wrapped factors; the caches are transient solver state.
func (a *ContinuousAdapter) Equals(other ContinuousFactor, tol float64) bool {
	o, ok := other.(*ContinuousAdapter)
	if !ok {
		return false
	}
	return a.factor.Equals(o.factor, tol)
}

func (a *ContinuousAdapter) mustBeInitialized() {
	if !a.AllInitialized() {
		panic(fmt.Errorf("continuous adapter queried before all discrete keys were initialized"))
	}
}
