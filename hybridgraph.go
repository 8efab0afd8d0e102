package dcsam

import "sort"

// HybridFactorGraph collects the three factor families of a joint
// discrete-continuous estimation problem. It is a plain container: the
// orchestrator splits it into the per-domain solvers.
type HybridFactorGraph struct {
	continuous []ContinuousFactor
	discrete   []DiscreteFactor
	hybrid     []HybridFactor
}

// NewHybridFactorGraph returns an empty hybrid factor graph.
func NewHybridFactorGraph() *HybridFactorGraph {
	return &HybridFactorGraph{}
}

// PushContinuous appends a purely continuous factor.
func (g *HybridFactorGraph) PushContinuous(factor ContinuousFactor) {
	g.continuous = append(g.continuous, factor)
}

// PushDiscrete appends a purely discrete factor.
func (g *HybridFactorGraph) PushDiscrete(factor DiscreteFactor) {
	g.discrete = append(g.discrete, factor)
}

// PushHybrid appends a joint discrete-continuous factor.
func (g *HybridFactorGraph) PushHybrid(factor HybridFactor) {
	g.hybrid = append(g.hybrid, factor)
}

// Continuous returns the purely continuous factors in insertion order.
func (g *HybridFactorGraph) Continuous() []ContinuousFactor {
	return g.continuous
}

// Discrete returns the purely discrete factors in insertion order.
func (g *HybridFactorGraph) Discrete() []DiscreteFactor {
	return g.discrete
}

// Hybrid returns the joint factors in insertion order.
func (g *HybridFactorGraph) Hybrid() []HybridFactor {
	return g.hybrid
}

// SizeContinuous returns the number of purely continuous factors.
func (g *HybridFactorGraph) SizeContinuous() int {
	return len(g.continuous)
}

// SizeDiscrete returns the number of purely discrete factors.
func (g *HybridFactorGraph) SizeDiscrete() int {
	return len(g.discrete)
}

// SizeHybrid returns the number of joint factors.
func (g *HybridFactorGraph) SizeHybrid() int {
	return len(g.hybrid)
}

// Keys returns the union of the continuous keys of all factors, in ascending
// order.
func (g *HybridFactorGraph) Keys() []Key {
	seen := make(map[Key]bool)
	for _, f := range g.continuous {
		for _, k := range f.Keys() {
			seen[k] = true
		}
	}
	for _, f := range g.hybrid {
		for _, k := range f.Keys() {
			seen[k] = true
		}
	}
	keys := make([]Key, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// DiscreteKeys returns the union of the discrete keys of all factors, ordered
// by Key.
func (g *HybridFactorGraph) DiscreteKeys() []DiscreteKey {
	seen := make(map[Key]DiscreteKey)
	for _, f := range g.discrete {
		for _, dk := range f.DiscreteKeys() {
			seen[dk.Key] = dk
		}
	}
	for _, f := range g.hybrid {
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

// Size returns the total number of factors across all three families.
func (g *HybridFactorGraph) Size() int {
	return len(g.continuous) + len(g.discrete) + len(g.hybrid)
}

// Empty returns whether the graph holds no factors.
func (g *HybridFactorGraph) Empty() bool {
	return g.Size() == 0
}

// Clear removes all factors.
func (g *HybridFactorGraph) Clear() {
	g.continuous = nil
	g.discrete = nil
	g.hybrid = nil
}

// Equals compares two graphs factor by factor, in order, within tol.
func (g *HybridFactorGraph) Equals(other *HybridFactorGraph, tol float64) bool {
	if g.SizeContinuous() != other.SizeContinuous() ||
		g.SizeDiscrete() != other.SizeDiscrete() ||
		g.SizeHybrid() != other.SizeHybrid() {
		return false
	}
	for i, f := range g.continuous {
		if !f.Equals(other.continuous[i], tol) {
			return false
		}
	}
	for i, f := range g.discrete {
		if !f.Equals(other.discrete[i], tol) {
			return false
		}
	}
	for i, f := range g.hybrid {
		if !f.Equals(other.hybrid[i], tol) {
			return false
		}
	}
	return true
}
