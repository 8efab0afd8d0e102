package dcsam

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/gonum/matrix/mat64"
	"github.com/gonum/stat/distmv"
)

// NoiseModel describes the zero-mean Gaussian measurement noise attached to a
// continuous factor. It supplies the Mahalanobis whitening used to compute
// factor errors, the information matrix consumed by the linear solver, and
// the normalizing constant needed by unnormalized mixture components.
type NoiseModel interface {
	Dim() int                              // Dimension of the noise
	Whiten(r *mat64.Vector) *mat64.Vector  // Returns Σ^(-1/2) * r
	Information() mat64.Symmetric          // Returns the information matrix Λ = Σ^(-1)
	Covariance() mat64.Symmetric           // Returns the covariance matrix Σ
	LogNormalizingConstant() float64       // Returns (d/2)*log(2π) + (1/2)*log det Σ
	Sample(rng *rand.Rand) *mat64.Vector   // Draws one sample from N(0, Σ)
	Equals(other NoiseModel, tol float64) bool
	String() string
}

// DiagonalNoise is a Gaussian noise model with a diagonal covariance matrix.
// It implements the NoiseModel interface.
type DiagonalNoise struct {
	sigmas []float64
}

// NewDiagonalNoise creates a noise model from per-dimension standard
// deviations. All sigmas must be strictly positive.
func NewDiagonalNoise(sigmas ...float64) (*DiagonalNoise, error) {
	if len(sigmas) == 0 {
		return nil, fmt.Errorf("at least one standard deviation must be provided")
	}
	for i, σ := range sigmas {
		if σ <= 0 {
			return nil, fmt.Errorf("sigma[%d]=%f must be strictly positive", i, σ)
		}
	}
	cp := make([]float64, len(sigmas))
	copy(cp, sigmas)
	return &DiagonalNoise{cp}, nil
}

// NewIsotropicNoise creates a diagonal noise model with the same standard
// deviation σ on every dimension.
func NewIsotropicNoise(dim int, σ float64) (*DiagonalNoise, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("dimension %d must be strictly positive", dim)
	}
	sigmas := make([]float64, dim)
	for i := range sigmas {
		sigmas[i] = σ
	}
	return NewDiagonalNoise(sigmas...)
}

// Dim implements the NoiseModel interface.
func (n DiagonalNoise) Dim() int {
	return len(n.sigmas)
}

// Whiten implements the NoiseModel interface.
func (n DiagonalNoise) Whiten(r *mat64.Vector) *mat64.Vector {
	if err := checkVecDim(r, n.Dim(), "residual"); err != nil {
		panic(err)
	}
	w := mat64.NewVector(n.Dim(), nil)
	for i := 0; i < n.Dim(); i++ {
		w.SetVec(i, r.At(i, 0)/n.sigmas[i])
	}
	return w
}

// Information implements the NoiseModel interface.
func (n DiagonalNoise) Information() mat64.Symmetric {
	info := mat64.NewSymDense(n.Dim(), nil)
	for i, σ := range n.sigmas {
		info.SetSym(i, i, 1/(σ*σ))
	}
	return info
}

// Covariance implements the NoiseModel interface.
func (n DiagonalNoise) Covariance() mat64.Symmetric {
	covar := mat64.NewSymDense(n.Dim(), nil)
	for i, σ := range n.sigmas {
		covar.SetSym(i, i, σ*σ)
	}
	return covar
}

// LogNormalizingConstant implements the NoiseModel interface. It returns the
// negative log of the Gaussian normalization η = (2π)^(-d/2) det(Σ)^(-1/2),
// i.e. (d/2)*log(2π) + Σ_i log σ_i.
func (n DiagonalNoise) LogNormalizingConstant() float64 {
	c := 0.5 * float64(n.Dim()) * math.Log(2*math.Pi)
	for _, σ := range n.sigmas {
		c += math.Log(σ)
	}
	return c
}

// Sample implements the NoiseModel interface.
func (n DiagonalNoise) Sample(rng *rand.Rand) *mat64.Vector {
	normal, ok := distmv.NewNormal(make([]float64, n.Dim()), n.Covariance(), rng)
	if !ok {
		panic("noise covariance is not positive definite")
	}
	return mat64.NewVector(n.Dim(), normal.Rand(nil))
}

// GaussianNoise is a Gaussian noise model with a full covariance matrix. It
// implements the NoiseModel interface. Whitening goes through the Cholesky
// factor Σ = L·Lᵀ, so the covariance must be positive definite.
type GaussianNoise struct {
	covar  *mat64.SymDense
	lower  *mat64.TriDense
	logDet float64
}

// NewGaussianNoise creates a noise model from a full covariance matrix.
func NewGaussianNoise(covar mat64.Symmetric) (*GaussianNoise, error) {
	var chol mat64.Cholesky
	if ok := chol.Factorize(covar); !ok {
		return nil, fmt.Errorf("covariance matrix is not positive definite")
	}
	var lower mat64.TriDense
	lower.LFromCholesky(&chol)
	var logDet float64
	for i := 0; i < covar.Symmetric(); i++ {
		logDet += 2 * math.Log(lower.At(i, i))
	}
	d := covar.Symmetric()
	cp := mat64.NewSymDense(d, nil)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			cp.SetSym(i, j, covar.At(i, j))
		}
	}
	return &GaussianNoise{cp, &lower, logDet}, nil
}

// Dim implements the NoiseModel interface.
func (n GaussianNoise) Dim() int {
	return n.covar.Symmetric()
}

// Whiten implements the NoiseModel interface: it solves L·w = r so that
// ||w||² is the squared Mahalanobis norm of r.
func (n GaussianNoise) Whiten(r *mat64.Vector) *mat64.Vector {
	if err := checkVecDim(r, n.Dim(), "residual"); err != nil {
		panic(err)
	}
	var w mat64.Dense
	if err := w.Solve(n.lower, r); err != nil {
		panic(fmt.Errorf("whitening failed: %s", err))
	}
	out := mat64.NewVector(n.Dim(), nil)
	for i := 0; i < n.Dim(); i++ {
		out.SetVec(i, w.At(i, 0))
	}
	return out
}

// Information implements the NoiseModel interface.
func (n GaussianNoise) Information() mat64.Symmetric {
	var inv mat64.Dense
	if err := inv.Inverse(n.covar); err != nil {
		panic(fmt.Errorf("covariance matrix is singular: %s", err))
	}
	info, err := AsSymDense(&inv)
	if err != nil {
		panic(err)
	}
	return info
}

// Covariance implements the NoiseModel interface.
func (n GaussianNoise) Covariance() mat64.Symmetric {
	return n.covar
}

// LogNormalizingConstant implements the NoiseModel interface.
func (n GaussianNoise) LogNormalizingConstant() float64 {
	return 0.5*float64(n.Dim())*math.Log(2*math.Pi) + 0.5*n.logDet
}

// Sample implements the NoiseModel interface.
func (n GaussianNoise) Sample(rng *rand.Rand) *mat64.Vector {
	normal, ok := distmv.NewNormal(make([]float64, n.Dim()), n.covar, rng)
	if !ok {
		panic("noise covariance is not positive definite")
	}
	return mat64.NewVector(n.Dim(), normal.Rand(nil))
}

// Equals implements the NoiseModel interface.
func (n GaussianNoise) Equals(other NoiseModel, tol float64) bool {
	o, ok := other.(*GaussianNoise)
	if !ok || o.Dim() != n.Dim() {
		return false
	}
	for i := 0; i < n.Dim(); i++ {
		for j := 0; j <= i; j++ {
			diff := n.covar.At(i, j) - o.covar.At(i, j)
			if diff > tol || diff < -tol {
				return false
			}
		}
	}
	return true
}

// String implements the Stringer interface.
func (n GaussianNoise) String() string {
	return fmt.Sprintf("GaussianNoise{Σ=%v}", mat64.Formatted(n.covar, mat64.Prefix("")))
}

// Equals implements the NoiseModel interface.
func (n DiagonalNoise) Equals(other NoiseModel, tol float64) bool {
	o, ok := other.(*DiagonalNoise)
	if !ok || o.Dim() != n.Dim() {
		return false
	}
	for i, σ := range n.sigmas {
		diff := σ - o.sigmas[i]
		if diff > tol || diff < -tol {
			return false
		}
	}
	return true
}

// String implements the Stringer interface.
func (n DiagonalNoise) String() string {
	return fmt.Sprintf("DiagonalNoise{σ=%v}", n.sigmas)
}
