package dcsam

// HybridSmoother alternates discrete and continuous MAP solves over a hybrid
// factor graph. Each Update folds a new slice of the problem into the
// persistent solvers, computes the best discrete hypothesis given the current
// continuous estimate, then the best continuous estimate given that
// hypothesis, and refreshes the projection adapters so the next round starts
// consistent.
//
// The alternation is a coordinate-descent scheme: each half-step can only
// decrease the joint negative log-likelihood, but the pair is not guaranteed
// to reach the joint optimum.
type HybridSmoother struct {
	solver ContinuousSolver
	dfg    *DiscreteFactorGraph

	currContinuous Values
	currDiscrete   DiscreteValues

	discreteAdapters   []*DiscreteAdapter
	continuousAdapters []*ContinuousAdapter
}

// NewHybridSmoother creates a smoother around the given continuous backend.
// A nil solver defaults to batch Gauss-Newton.
func NewHybridSmoother(solver ContinuousSolver) *HybridSmoother {
	if solver == nil {
		solver = NewGaussNewton()
	}
	return &HybridSmoother{
		solver:         solver,
		dfg:            NewDiscreteFactorGraph(),
		currContinuous: NewValues(),
		currDiscrete:   NewDiscreteValues(),
	}
}

// DiscreteGraph exposes the persistent discrete factor graph, e.g. for
// marginal queries after a solve.
func (s *HybridSmoother) DiscreteGraph() *DiscreteFactorGraph {
	return s.dfg
}

// ContinuousFactors returns the continuous solver's persistent factor set,
// with removed slots as nil.
func (s *HybridSmoother) ContinuousFactors() []ContinuousFactor {
	return s.solver.GetFactors()
}

// Update folds the factors of graph into the smoother and runs one
// discrete-continuous alternation round. Initial guesses seed variables that
// have no estimate yet and overwrite variables that do.
func (s *HybridSmoother) Update(graph *HybridFactorGraph, continuousGuess Values, discreteGuess DiscreteValues) error {
	return s.UpdateWithRemovals(graph, continuousGuess, discreteGuess, nil, nil)
}

// UpdateWithRemovals is Update plus removal of previously added factors, by
// the indices the solvers assigned at insertion time. Removals are applied
// before the new factors so that a factor may be replaced in a single call.
func (s *HybridSmoother) UpdateWithRemovals(graph *HybridFactorGraph, continuousGuess Values, discreteGuess DiscreteValues, removeContinuous, removeDiscrete []int) error {
	if len(removeContinuous) > 0 {
		if err := s.solver.Update(nil, nil, UpdateParams{RemoveIndices: removeContinuous}); err != nil {
			return err
		}
	}
	for _, idx := range removeDiscrete {
		s.dfg.Remove(idx)
	}

	s.currContinuous.Merge(continuousGuess)
	s.currDiscrete.Merge(discreteGuess)

	// New discrete-domain factors: plain discrete factors as-is, hybrid
	// factors through projection adapters that freeze the continuous side.
	for _, f := range graph.Discrete() {
		s.dfg.PushFactor(f)
	}
	for _, f := range graph.Hybrid() {
		adapter := NewDiscreteAdapter(f)
		s.discreteAdapters = append(s.discreteAdapters, adapter)
		s.dfg.PushFactor(adapter)
	}
	s.refreshDiscreteAdapters()

	// Discrete half-step. Skipped for purely continuous updates: with no
	// discrete or hybrid factors incoming and no discrete guess, the
	// hypothesis cannot change.
	pureContinuous := graph.SizeDiscrete() == 0 && graph.SizeHybrid() == 0 &&
		len(discreteGuess) == 0 && (len(continuousGuess) > 0 || graph.SizeContinuous() > 0)
	if !pureContinuous {
		s.currDiscrete.Merge(s.dfg.Optimize())
	}

	// New continuous-domain factors: plain continuous factors first, then
	// hybrid factors through adapters frozen at the fresh hypothesis.
	newFactors := make([]ContinuousFactor, 0, graph.SizeContinuous()+graph.SizeHybrid())
	newFactors = append(newFactors, graph.Continuous()...)
	for _, f := range graph.Hybrid() {
		adapter := NewContinuousAdapter(f, s.currDiscrete)
		s.continuousAdapters = append(s.continuousAdapters, adapter)
		newFactors = append(newFactors, adapter)
	}

	// Refresh every continuous adapter at the new hypothesis, tracking the
	// variables whose local systems may have changed.
	affected := make(map[Key]bool)
	for _, adapter := range s.continuousAdapters {
		adapter.UpdateDiscrete(s.currDiscrete)
		for _, k := range adapter.Keys() {
			affected[k] = true
		}
	}
	params := UpdateParams{}
	for k := range affected {
		params.AffectedKeys = append(params.AffectedKeys, k)
	}

	// Continuous half-step.
	if err := s.solver.Update(newFactors, continuousGuess, params); err != nil {
		return err
	}
	s.currContinuous = s.solver.CalculateEstimate()

	// Leave the discrete adapters linearized at the final estimate so that
	// CalculateEstimate and the next round see a consistent graph.
	s.refreshDiscreteAdapters()
	return nil
}

// CalculateEstimate returns the joint MAP estimate: the continuous solver's
// current solution and the discrete hypothesis given that solution. It does
// not mutate the smoother state.
func (s *HybridSmoother) CalculateEstimate() (Values, DiscreteValues) {
	discrete := s.currDiscrete.Copy()
	discrete.Merge(s.dfg.Optimize())
	return s.solver.CalculateEstimate(), discrete
}

// SolveDiscrete recomputes the discrete hypothesis at the current continuous
// estimate without touching the continuous solver.
func (s *HybridSmoother) SolveDiscrete() DiscreteValues {
	s.refreshDiscreteAdapters()
	s.currDiscrete.Merge(s.dfg.Optimize())
	return s.currDiscrete.Copy()
}

func (s *HybridSmoother) refreshDiscreteAdapters() {
	for _, adapter := range s.discreteAdapters {
		adapter.UpdateContinuous(s.currContinuous)
		adapter.UpdateDiscrete(s.currDiscrete)
	}
}
