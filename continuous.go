package dcsam

import (
	"fmt"
	"math"
	"sort"

	"github.com/gonum/matrix/mat64"
)

// UpdateParams carries incremental-update hints to a ContinuousSolver.
// AffectedKeys names variables whose factors changed since the last update;
// RemoveIndices names previously pushed factors to drop before adding new
// ones.
type UpdateParams struct {
	AffectedKeys  []Key
	RemoveIndices []int
}

// ContinuousSolver abstracts the nonlinear least-squares backend of the
// alternating optimization. Implementations own the persistent continuous
// factor set and the current estimate; Update folds in new factors and
// initial guesses, and CalculateEstimate returns the current MAP assignment.
type ContinuousSolver interface {
	Update(newFactors []ContinuousFactor, initialGuess Values, params UpdateParams) error
	CalculateEstimate() Values
	GetFactors() []ContinuousFactor
}

// GaussNewton is a batch Gauss-Newton ContinuousSolver: every Update
// relinearizes the full factor set around the current estimate and solves the
// stacked whitened system in the least-squares sense. AffectedKeys hints are
// subsumed by the full relinearization; an incremental backend would exploit
// them.
type GaussNewton struct {
	// MaxIterations caps the number of relinearize-solve rounds per Update.
	MaxIterations int
	// Tolerance is the step-norm convergence threshold.
	Tolerance float64

	factors  []ContinuousFactor
	estimate Values
}

// NewGaussNewton returns a Gauss-Newton solver with default iteration and
// convergence settings.
func NewGaussNewton() *GaussNewton {
	return &GaussNewton{
		MaxIterations: 10,
		Tolerance:     1e-9,
		estimate:      NewValues(),
	}
}

// GetFactors implements the ContinuousSolver interface. Removed factors
// appear as nil slots so that indices remain stable.
func (s *GaussNewton) GetFactors() []ContinuousFactor {
	return s.factors
}

// Update implements the ContinuousSolver interface. Removals are applied
// first, then new factors appended and the initial guess merged into the
// estimate (guessed values overwrite current ones), then the full problem is
// re-solved.
func (s *GaussNewton) Update(newFactors []ContinuousFactor, initialGuess Values, params UpdateParams) error {
	for _, idx := range params.RemoveIndices {
		if idx < 0 || idx >= len(s.factors) {
			return fmt.Errorf("removal index %d out of range [0, %d)", idx, len(s.factors))
		}
		s.factors[idx] = nil
	}
	s.factors = append(s.factors, newFactors...)
	s.estimate.Merge(initialGuess)

	if s.countLive() == 0 {
		return nil
	}
	return s.optimize()
}

// CalculateEstimate implements the ContinuousSolver interface.
func (s *GaussNewton) CalculateEstimate() Values {
	return s.estimate.Copy()
}

func (s *GaussNewton) countLive() int {
	n := 0
	for _, f := range s.factors {
		if f != nil {
			n++
		}
	}
	return n
}

// optimize iterates relinearize-solve-retract until the step norm falls
// below Tolerance or MaxIterations is reached.
func (s *GaussNewton) optimize() error {
	for iter := 0; iter < s.MaxIterations; iter++ {
		stepNorm, err := s.step()
		if err != nil {
			return err
		}
		if stepNorm < s.Tolerance {
			return nil
		}
	}
	return nil
}

// step linearizes every live factor at the current estimate, assembles the
// global stacked system over all keys and solves it in the least-squares
// sense, then applies the increment. It returns the Euclidean norm of the
// increment.
func (s *GaussNewton) step() (float64, error) {
	systems := make([]*GaussianFactor, 0, len(s.factors))
	for _, f := range s.factors {
		if f == nil {
			continue
		}
		systems = append(systems, f.Linearize(s.estimate))
	}

	// Global column layout: keys in ascending order.
	keys, offsets, totalCols, err := columnLayout(systems)
	if err != nil {
		return 0, err
	}
	totalRows := 0
	for _, sys := range systems {
		totalRows += sys.Dim()
	}

	A := mat64.NewDense(totalRows, totalCols, nil)
	b := mat64.NewVector(totalRows, nil)
	row := 0
	for _, sys := range systems {
		for _, k := range sys.Keys() {
			block := sys.Jacobian(k)
			r, c := block.Dims()
			col := offsets[k]
			for bi := 0; bi < r; bi++ {
				for bj := 0; bj < c; bj++ {
					A.Set(row+bi, col+bj, block.At(bi, bj))
				}
			}
		}
		for bi := 0; bi < sys.Dim(); bi++ {
			b.SetVec(row+bi, sys.Rhs().At(bi, 0))
		}
		row += sys.Dim()
	}

	var dx mat64.Dense
	if err := dx.Solve(A, b); err != nil {
		return 0, fmt.Errorf("linearized system is singular: %s", err)
	}

	// Retract: x <- x + dx, writing fresh vectors so callers holding the
	// previous estimate are unaffected.
	var stepNormSq float64
	for _, k := range keys {
		cur := s.estimate.At(k)
		n := cur.Len()
		next := mat64.NewVector(n, nil)
		for i := 0; i < n; i++ {
			d := dx.At(offsets[k]+i, 0)
			next.SetVec(i, cur.At(i, 0)+d)
			stepNormSq += d * d
		}
		s.estimate.Insert(k, next)
	}
	return math.Sqrt(stepNormSq), nil
}

// columnLayout computes the global column offsets of the union of keys in
// the given systems, ordered by key.
func columnLayout(systems []*GaussianFactor) ([]Key, map[Key]int, int, error) {
	colDims := make(map[Key]int)
	firstBlock := make(map[Key]*mat64.Dense)
	for _, sys := range systems {
		for _, k := range sys.Keys() {
			block := sys.Jacobian(k)
			_, c := block.Dims()
			if first, seen := firstBlock[k]; seen {
				name := fmt.Sprintf("block %s", k)
				if err := checkMatDims(first, block, name, name, cols2cols); err != nil {
					return nil, nil, 0, err
				}
				continue
			}
			firstBlock[k] = block
			colDims[k] = c
		}
	}
	keys := make([]Key, 0, len(colDims))
	for k := range colDims {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	offsets := make(map[Key]int, len(keys))
	total := 0
	for _, k := range keys {
		offsets[k] = total
		total += colDims[k]
	}
	return keys, offsets, total, nil
}
