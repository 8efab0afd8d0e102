package dcsam

import (
	"fmt"
	"log"
	"math"
	"sort"
)

// TableFactor is a dense decision table over an ordered list of discrete
// keys: one non-negative weight per joint assignment, row-major with the last
// key varying fastest.
type TableFactor struct {
	dkeys []DiscreteKey
	table []float64
}

// NewTableFactor creates a decision table. The table length must equal the
// product of the key cardinalities.
func NewTableFactor(dkeys []DiscreteKey, table []float64) (*TableFactor, error) {
	size := 1
	for _, dk := range dkeys {
		size *= dk.Cardinality
	}
	if len(table) != size {
		return nil, fmt.Errorf("table has %d entries but the keys span %d assignments", len(table), size)
	}
	return &TableFactor{dkeys, table}, nil
}

// DiscreteKeys implements the DiscreteFactor interface.
func (f *TableFactor) DiscreteKeys() []DiscreteKey {
	return f.dkeys
}

// Likelihood implements the DiscreteFactor interface.
func (f *TableFactor) Likelihood(discreteVals DiscreteValues) float64 {
	idx := 0
	for _, dk := range f.dkeys {
		assignment := discreteVals.At(dk.Key)
		if assignment < 0 || assignment >= dk.Cardinality {
			panic(fmt.Errorf("assignment %d to %s exceeds cardinality %d", assignment, dk.Key, dk.Cardinality))
		}
		idx = idx*dk.Cardinality + assignment
	}
	return f.table[idx]
}

// Equals implements the DiscreteFactor interface.
func (f *TableFactor) Equals(other DiscreteFactor, tol float64) bool {
	o, ok := other.(*TableFactor)
	if !ok || !discreteKeysEqual(f.dkeys, o.dkeys) {
		return false
	}
	for i, v := range f.table {
		if math.Abs(v-o.table[i]) > tol {
			return false
		}
	}
	return true
}

// DiscretePriorFactor specifies a prior distribution over a single discrete
// variable: p(d = i) = probs[i]. The probs vector length must equal the
// variable's cardinality.
type DiscretePriorFactor struct {
	dk    DiscreteKey
	probs []float64
}

// NewDiscretePriorFactor creates a discrete prior factor.
func NewDiscretePriorFactor(dk DiscreteKey, probs []float64) (*DiscretePriorFactor, error) {
	if err := checkCardinality(len(probs), dk, "probs"); err != nil {
		return nil, err
	}
	cp := make([]float64, len(probs))
	copy(cp, probs)
	return &DiscretePriorFactor{dk, cp}, nil
}

// DiscreteKeys implements the DiscreteFactor interface.
func (f *DiscretePriorFactor) DiscreteKeys() []DiscreteKey {
	return []DiscreteKey{f.dk}
}

// Likelihood implements the DiscreteFactor interface.
func (f *DiscretePriorFactor) Likelihood(discreteVals DiscreteValues) float64 {
	assignment := discreteVals.At(f.dk.Key)
	if assignment < 0 || assignment >= len(f.probs) {
		panic(fmt.Errorf("assignment %d to %s exceeds cardinality %d", assignment, f.dk.Key, f.dk.Cardinality))
	}
	return f.probs[assignment]
}

// DecisionTable returns the prior as a decision table.
func (f *DiscretePriorFactor) DecisionTable() *TableFactor {
	table, err := NewTableFactor([]DiscreteKey{f.dk}, f.probs)
	if err != nil {
		panic(err)
	}
	return table
}

// Equals implements the DiscreteFactor interface.
func (f *DiscretePriorFactor) Equals(other DiscreteFactor, tol float64) bool {
	o, ok := other.(*DiscretePriorFactor)
	if !ok {
		if s, smart := other.(*SmartDiscretePriorFactor); smart {
			o = &s.DiscretePriorFactor
		} else {
			return false
		}
	}
	if o.dk != f.dk || len(o.probs) != len(f.probs) {
		return false
	}
	for i, p := range f.probs {
		if math.Abs(p-o.probs[i]) > tol {
			return false
		}
	}
	return true
}

// SmartDiscretePriorFactor augments DiscretePriorFactor with in-place
// re-weighting, for callers that refine a hypothesis prior as new evidence
// arrives.
type SmartDiscretePriorFactor struct {
	DiscretePriorFactor
}

// NewSmartDiscretePriorFactor creates an updateable discrete prior factor.
func NewSmartDiscretePriorFactor(dk DiscreteKey, probs []float64) (*SmartDiscretePriorFactor, error) {
	base, err := NewDiscretePriorFactor(dk, probs)
	if err != nil {
		return nil, err
	}
	return &SmartDiscretePriorFactor{*base}, nil
}

// UpdateProbs replaces the prior distribution in place. A vector of the
// wrong length is reported and discarded, leaving the factor unchanged.
func (f *SmartDiscretePriorFactor) UpdateProbs(probs []float64) {
	if len(probs) != len(f.probs) {
		log.Printf("attempted to update probs with incorrectly sized vector (%d != %d)", len(probs), len(f.probs))
		return
	}
	copy(f.probs, probs)
}

// DiscreteFactorGraph is the discrete solver consumed by the orchestrator:
// it holds the persistent discrete factor set and computes the most probable
// joint assignment and marginals. Factor weights need not be normalized.
//
// The solve is an exact enumeration of the joint table. Hypothesis sets in
// the problems this engine targets are small; elimination-ordering strategies
// belong to a full-scale discrete solver and are not reimplemented here.
type DiscreteFactorGraph struct {
	factors []DiscreteFactor
}

// NewDiscreteFactorGraph returns an empty discrete factor graph.
func NewDiscreteFactorGraph() *DiscreteFactorGraph {
	return &DiscreteFactorGraph{}
}

// PushFactor appends a factor and returns its index, which stays valid across
// removals.
func (g *DiscreteFactorGraph) PushFactor(factor DiscreteFactor) int {
	g.factors = append(g.factors, factor)
	return len(g.factors) - 1
}

// Remove drops the factor at the given index, keeping the indices of the
// remaining factors stable. Indices referring to already-removed factors are
// the caller's responsibility.
func (g *DiscreteFactorGraph) Remove(index int) {
	g.factors[index] = nil
}

// Size returns the number of live factors.
func (g *DiscreteFactorGraph) Size() int {
	n := 0
	for _, f := range g.factors {
		if f != nil {
			n++
		}
	}
	return n
}

// Factors returns the factor slice, including removed (nil) slots so that
// indices remain meaningful.
func (g *DiscreteFactorGraph) Factors() []DiscreteFactor {
	return g.factors
}

// keys returns the union of the discrete keys of all live factors, ordered
// by Key for deterministic enumeration.
func (g *DiscreteFactorGraph) keys() []DiscreteKey {
	seen := make(map[Key]DiscreteKey)
	for _, f := range g.factors {
		if f == nil {
			continue
		}
		for _, dk := range f.DiscreteKeys() {
			seen[dk.Key] = dk
		}
	}
	dkeys := make([]DiscreteKey, 0, len(seen))
	for _, dk := range seen {
		dkeys = append(dkeys, dk)
	}
	sort.Slice(dkeys, func(i, j int) bool { return dkeys[i].Key < dkeys[j].Key })
	return dkeys
}

// forEachAssignment enumerates every joint assignment over dkeys, invoking fn
// with a reused DiscreteValues. The last key varies fastest; the all-zeros
// assignment is visited first.
func forEachAssignment(dkeys []DiscreteKey, fn func(DiscreteValues)) {
	assignment := make(DiscreteValues, len(dkeys))
	for _, dk := range dkeys {
		assignment[dk.Key] = 0
	}
	for {
		fn(assignment)
		// Odometer increment.
		i := len(dkeys) - 1
		for ; i >= 0; i-- {
			assignment[dkeys[i].Key]++
			if assignment[dkeys[i].Key] < dkeys[i].Cardinality {
				break
			}
			assignment[dkeys[i].Key] = 0
		}
		if i < 0 {
			return
		}
	}
}

// likelihood evaluates the product of all live factor weights at the given
// joint assignment.
func (g *DiscreteFactorGraph) likelihood(assignment DiscreteValues) float64 {
	p := 1.0
	for _, f := range g.factors {
		if f == nil {
			continue
		}
		p *= f.Likelihood(assignment)
	}
	return p
}

// Optimize returns the most probable joint assignment over all discrete keys
// in the graph. Ties resolve to the first assignment in enumeration order.
// An empty graph yields an empty assignment.
func (g *DiscreteFactorGraph) Optimize() DiscreteValues {
	dkeys := g.keys()
	if len(dkeys) == 0 {
		return NewDiscreteValues()
	}
	best := NewDiscreteValues()
	bestLikelihood := math.Inf(-1)
	forEachAssignment(dkeys, func(assignment DiscreteValues) {
		if p := g.likelihood(assignment); p > bestLikelihood {
			bestLikelihood = p
			best = assignment.Copy()
		}
	})
	return best
}

// Marginals returns the normalized marginal probabilities of the given key,
// summing the joint likelihood over all other variables.
func (g *DiscreteFactorGraph) Marginals(dk DiscreteKey) ([]float64, error) {
	dkeys := g.keys()
	found := false
	for _, k := range dkeys {
		if k.Key == dk.Key {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("discrete key %s does not appear in the graph", dk.Key)
	}
	marginals := make([]float64, dk.Cardinality)
	forEachAssignment(dkeys, func(assignment DiscreteValues) {
		marginals[assignment.At(dk.Key)] += g.likelihood(assignment)
	})
	var sum float64
	for _, m := range marginals {
		sum += m
	}
	if sum == 0 {
		for i := range marginals {
			marginals[i] = 1.0 / float64(len(marginals))
		}
		return marginals, nil
	}
	for i := range marginals {
		marginals[i] /= sum
	}
	return marginals, nil
}
