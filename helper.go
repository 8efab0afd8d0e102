package dcsam

import (
	"errors"
	"math"

	"github.com/gonum/floats"
	"github.com/gonum/matrix/mat64"
)

// Identity returns an identity matrix of the provided size.
func Identity(n int) mat64.Symmetric {
	vals := make([]float64, n*n)
	for j := 0; j < n*n; j += n + 1 {
		vals[j] = 1
	}
	return mat64.NewSymDense(n, vals)
}

// AsSymDense attempts to return a SymDense from the provided Dense.
func AsSymDense(m *mat64.Dense) (*mat64.SymDense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, errors.New("matrix must be square")
	}
	vals := make([]float64, r*c)
	idx := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(j, i) != m.At(i, j) {
				return nil, errors.New("matrix is not symmetric")
			}
			vals[idx] = m.At(i, j)
			idx++
		}
	}
	return mat64.NewSymDense(r, vals), nil
}

// expNormalize converts a set of log probabilities into normalized
// probabilities via a numerically stable exponentiate-then-normalize: the
// maximum log probability is subtracted before exponentiating so that large
// magnitudes cannot overflow. Degenerate input (empty sum, NaN, all -Inf)
// degrades to the uniform distribution rather than producing NaN.
func expNormalize(logProbs []float64) []float64 {
	weights := make([]float64, len(logProbs))
	if len(logProbs) == 0 {
		return weights
	}
	maxLogProb := floats.Max(logProbs)
	if math.IsInf(maxLogProb, -1) || math.IsNaN(maxLogProb) {
		for i := range weights {
			weights[i] = 1.0 / float64(len(weights))
		}
		return weights
	}
	var sum float64
	for i, lp := range logProbs {
		weights[i] = math.Exp(lp - maxLogProb)
		sum += weights[i]
	}
	if sum == 0 || math.IsNaN(sum) {
		for i := range weights {
			weights[i] = 1.0 / float64(len(weights))
		}
		return weights
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights
}

// logSumExp returns log(sum_i exp(v_i)) computed stably.
func logSumExp(v []float64) float64 {
	if len(v) == 0 {
		return math.Inf(-1)
	}
	return floats.LogSumExp(v)
}

// logWeights transforms a weight vector into log space. Zero weights map to
// -Inf, which downstream responsibility computations handle explicitly.
func logWeights(weights []float64) []float64 {
	lw := make([]float64, len(weights))
	for i, w := range weights {
		lw[i] = math.Log(w)
	}
	return lw
}

// wrapAngle maps an angle to (-π, π].
func wrapAngle(θ float64) float64 {
	for θ > math.Pi {
		θ -= 2 * math.Pi
	}
	for θ <= -math.Pi {
		θ += 2 * math.Pi
	}
	return θ
}
