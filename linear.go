package dcsam

import (
	"fmt"
	"math"

	"github.com/gonum/matrix/mat64"
)

// GaussianFactor is a whitened local linear system A·Δx ≈ b over an ordered
// set of continuous keys: one Jacobian block per key, noise model baked in.
// It is the representation exchanged between factor linearization and the
// continuous solver.
type GaussianFactor struct {
	keys      []Key
	jacobians []*mat64.Dense
	rhs       *mat64.Vector
}

// NewGaussianFactor builds a linear system from per-key Jacobian blocks and a
// right-hand-side vector. Every block must have the same number of rows as
// the right-hand side.
func NewGaussianFactor(keys []Key, jacobians []*mat64.Dense, rhs *mat64.Vector) (*GaussianFactor, error) {
	if len(keys) != len(jacobians) {
		return nil, fmt.Errorf("got %d keys but %d Jacobian blocks", len(keys), len(jacobians))
	}
	for i, jac := range jacobians {
		if err := checkMatDims(jac, rhs, fmt.Sprintf("block %s", keys[i]), "rhs", rows2rows); err != nil {
			return nil, err
		}
	}
	return &GaussianFactor{keys, jacobians, rhs}, nil
}

// Keys returns the continuous keys of the system, in block order.
func (g *GaussianFactor) Keys() []Key {
	return g.keys
}

// Jacobian returns the block for key k, or nil if k is not part of the
// system.
func (g *GaussianFactor) Jacobian(k Key) *mat64.Dense {
	for i, key := range g.keys {
		if key == k {
			return g.jacobians[i]
		}
	}
	return nil
}

// Rhs returns the right-hand-side vector b.
func (g *GaussianFactor) Rhs() *mat64.Vector {
	return g.rhs
}

// Dim returns the number of rows of the system.
func (g *GaussianFactor) Dim() int {
	return g.rhs.Len()
}

// Scaled returns a copy of the system with every block and the right-hand
// side multiplied by f.
func (g *GaussianFactor) Scaled(f float64) *GaussianFactor {
	jacobians := make([]*mat64.Dense, len(g.jacobians))
	for i, jac := range g.jacobians {
		var scaled mat64.Dense
		scaled.Scale(f, jac)
		jacobians[i] = &scaled
	}
	rhs := mat64.NewVector(g.rhs.Len(), nil)
	rhs.ScaleVec(f, g.rhs)
	return &GaussianFactor{g.keys, jacobians, rhs}
}

// StackGaussianFactors vertically stacks the provided systems, each scaled by
// the square root of its weight, into a single system over the union of
// their keys (zero blocks where a key is absent from a component). This is
// the combined weighted least-squares system used by the responsibility
// blended mixtures.
func StackGaussianFactors(weights []float64, systems []*GaussianFactor) (*GaussianFactor, error) {
	if len(weights) != len(systems) {
		return nil, fmt.Errorf("got %d weights but %d systems", len(weights), len(systems))
	}
	if len(systems) == 0 {
		return nil, fmt.Errorf("at least one system must be provided")
	}

	// Union of keys in first-seen order; every block of a key must have the
	// same width as the first one seen.
	var keys []Key
	firstBlock := make(map[Key]*mat64.Dense)
	totalRows := 0
	for _, sys := range systems {
		totalRows += sys.Dim()
		for i, k := range sys.keys {
			block := sys.jacobians[i]
			if first, seen := firstBlock[k]; seen {
				name := fmt.Sprintf("block %s", k)
				if err := checkMatDims(first, block, name, name, cols2cols); err != nil {
					return nil, err
				}
				continue
			}
			firstBlock[k] = block
			keys = append(keys, k)
		}
	}

	jacobians := make([]*mat64.Dense, len(keys))
	for i, k := range keys {
		_, c := firstBlock[k].Dims()
		jacobians[i] = mat64.NewDense(totalRows, c, nil)
	}
	rhs := mat64.NewVector(totalRows, nil)

	row := 0
	for s, sys := range systems {
		sqrtW := math.Sqrt(weights[s])
		for i, k := range sys.keys {
			dst := jacobians[indexOfKey(keys, k)]
			block := sys.jacobians[i]
			r, c := block.Dims()
			for bi := 0; bi < r; bi++ {
				for bj := 0; bj < c; bj++ {
					dst.Set(row+bi, bj, sqrtW*block.At(bi, bj))
				}
			}
		}
		for bi := 0; bi < sys.Dim(); bi++ {
			rhs.SetVec(row+bi, sqrtW*sys.rhs.At(bi, 0))
		}
		row += sys.Dim()
	}
	return &GaussianFactor{keys, jacobians, rhs}, nil
}

func indexOfKey(keys []Key, k Key) int {
	for i, key := range keys {
		if key == k {
			return i
		}
	}
	return -1
}
