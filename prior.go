package dcsam

import (
	"math"

	"github.com/gonum/matrix/mat64"
)

// PriorFactor anchors a single continuous variable to a prior value under a
// Gaussian noise model.
type PriorFactor struct {
	key   Key
	prior *mat64.Vector
	noise NoiseModel
}

// NewPriorFactor creates a prior factor on key with the given prior value and
// noise model.
func NewPriorFactor(key Key, prior *mat64.Vector, noise NoiseModel) (*PriorFactor, error) {
	if err := checkVecDim(prior, noise.Dim(), "prior"); err != nil {
		return nil, err
	}
	return &PriorFactor{key, prior, noise}, nil
}

// Keys implements the ContinuousFactor interface.
func (f *PriorFactor) Keys() []Key {
	return []Key{f.key}
}

// Dim implements the ContinuousFactor interface.
func (f *PriorFactor) Dim() int {
	return f.noise.Dim()
}

// residual returns prior - x.
func (f *PriorFactor) residual(continuousVals Values) *mat64.Vector {
	x := continuousVals.At(f.key)
	if err := checkVecDim(x, f.Dim(), "value"); err != nil {
		panic(err)
	}
	r := mat64.NewVector(f.Dim(), nil)
	r.SubVec(f.prior, x)
	return r
}

// Error implements the ContinuousFactor interface.
func (f *PriorFactor) Error(continuousVals Values) float64 {
	return halfSquaredNorm(f.noise.Whiten(f.residual(continuousVals)))
}

// Linearize implements the ContinuousFactor interface.
func (f *PriorFactor) Linearize(continuousVals Values) *GaussianFactor {
	d := f.Dim()
	jac := mat64.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		unit := mat64.NewVector(d, nil)
		unit.SetVec(i, 1)
		col := f.noise.Whiten(unit)
		for r := 0; r < d; r++ {
			jac.Set(r, i, col.At(r, 0))
		}
	}
	gf, err := NewGaussianFactor([]Key{f.key}, []*mat64.Dense{jac}, f.noise.Whiten(f.residual(continuousVals)))
	if err != nil {
		panic(err)
	}
	return gf
}

// LogNormalizingConstant implements the ContinuousFactor interface.
func (f *PriorFactor) LogNormalizingConstant() float64 {
	return f.noise.LogNormalizingConstant()
}

// Equals implements the ContinuousFactor interface.
func (f *PriorFactor) Equals(other ContinuousFactor, tol float64) bool {
	o, ok := other.(*PriorFactor)
	if !ok || o.key != f.key || !f.noise.Equals(o.noise, tol) {
		return false
	}
	return vecEqual(f.prior, o.prior, tol)
}

// BetweenFactor constrains the difference between two continuous variables to
// a measured relative value under a Gaussian noise model.
type BetweenFactor struct {
	key1, key2 Key
	measured   *mat64.Vector
	noise      NoiseModel
}

// NewBetweenFactor creates a relative constraint x2 - x1 = measured.
func NewBetweenFactor(key1, key2 Key, measured *mat64.Vector, noise NoiseModel) (*BetweenFactor, error) {
	if err := checkVecDim(measured, noise.Dim(), "measured"); err != nil {
		return nil, err
	}
	return &BetweenFactor{key1, key2, measured, noise}, nil
}

// Keys implements the ContinuousFactor interface.
func (f *BetweenFactor) Keys() []Key {
	return []Key{f.key1, f.key2}
}

// Dim implements the ContinuousFactor interface.
func (f *BetweenFactor) Dim() int {
	return f.noise.Dim()
}

// residual returns measured - (x2 - x1).
func (f *BetweenFactor) residual(continuousVals Values) *mat64.Vector {
	x1 := continuousVals.At(f.key1)
	x2 := continuousVals.At(f.key2)
	r := mat64.NewVector(f.Dim(), nil)
	r.SubVec(x2, x1)
	r.SubVec(f.measured, r)
	return r
}

// Error implements the ContinuousFactor interface.
func (f *BetweenFactor) Error(continuousVals Values) float64 {
	return halfSquaredNorm(f.noise.Whiten(f.residual(continuousVals)))
}

// Linearize implements the ContinuousFactor interface.
func (f *BetweenFactor) Linearize(continuousVals Values) *GaussianFactor {
	d := f.Dim()
	jac1 := mat64.NewDense(d, d, nil)
	jac2 := mat64.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		unit := mat64.NewVector(d, nil)
		unit.SetVec(i, 1)
		col := f.noise.Whiten(unit)
		for r := 0; r < d; r++ {
			jac2.Set(r, i, col.At(r, 0))
			jac1.Set(r, i, -col.At(r, 0))
		}
	}
	gf, err := NewGaussianFactor([]Key{f.key1, f.key2}, []*mat64.Dense{jac1, jac2}, f.noise.Whiten(f.residual(continuousVals)))
	if err != nil {
		panic(err)
	}
	return gf
}

// LogNormalizingConstant implements the ContinuousFactor interface.
func (f *BetweenFactor) LogNormalizingConstant() float64 {
	return f.noise.LogNormalizingConstant()
}

// Equals implements the ContinuousFactor interface.
func (f *BetweenFactor) Equals(other ContinuousFactor, tol float64) bool {
	o, ok := other.(*BetweenFactor)
	if !ok || o.key1 != f.key1 || o.key2 != f.key2 || !f.noise.Equals(o.noise, tol) {
		return false
	}
	return vecEqual(f.measured, o.measured, tol)
}

// BearingRangeFactor relates a planar pose (x, y, θ) to a planar point
// (x, y) through a bearing and range measurement. The bearing is expressed in
// the pose frame.
type BearingRangeFactor struct {
	poseKey, pointKey Key
	bearing, rng      float64
	noise             NoiseModel
}

// NewBearingRangeFactor creates a bearing-range measurement factor. The noise
// model must be two dimensional: bearing first, range second.
func NewBearingRangeFactor(poseKey, pointKey Key, bearing, rng float64, noise NoiseModel) (*BearingRangeFactor, error) {
	if noise.Dim() != 2 {
		return nil, checkVecDim(mat64.NewVector(noise.Dim(), nil), 2, "bearing-range noise")
	}
	return &BearingRangeFactor{poseKey, pointKey, bearing, rng, noise}, nil
}

// Keys implements the ContinuousFactor interface.
func (f *BearingRangeFactor) Keys() []Key {
	return []Key{f.poseKey, f.pointKey}
}

// Dim implements the ContinuousFactor interface.
func (f *BearingRangeFactor) Dim() int {
	return 2
}

// predict returns the predicted bearing and range plus the relative offsets
// needed for the Jacobians.
func (f *BearingRangeFactor) predict(continuousVals Values) (bearing, rng, dx, dy float64) {
	pose := continuousVals.At(f.poseKey)
	point := continuousVals.At(f.pointKey)
	if err := checkVecDim(pose, 3, "pose"); err != nil {
		panic(err)
	}
	if err := checkVecDim(point, 2, "point"); err != nil {
		panic(err)
	}
	dx = point.At(0, 0) - pose.At(0, 0)
	dy = point.At(1, 0) - pose.At(1, 0)
	bearing = wrapAngle(math.Atan2(dy, dx) - pose.At(2, 0))
	rng = math.Hypot(dx, dy)
	return
}

// residual returns the measurement residual [measured - predicted].
func (f *BearingRangeFactor) residual(continuousVals Values) *mat64.Vector {
	bearing, rng, _, _ := f.predict(continuousVals)
	return mat64.NewVector(2, []float64{wrapAngle(f.bearing - bearing), f.rng - rng})
}

// Error implements the ContinuousFactor interface.
func (f *BearingRangeFactor) Error(continuousVals Values) float64 {
	return halfSquaredNorm(f.noise.Whiten(f.residual(continuousVals)))
}

// Linearize implements the ContinuousFactor interface. The Jacobians of the
// bearing and range predictions are analytic.
func (f *BearingRangeFactor) Linearize(continuousVals Values) *GaussianFactor {
	_, rng, dx, dy := f.predict(continuousVals)
	q := dx*dx + dy*dy

	// Rows: bearing, range. Columns: pose (x, y, θ) and point (x, y).
	hPose := mat64.NewDense(2, 3, []float64{
		dy / q, -dx / q, -1,
		-dx / rng, -dy / rng, 0,
	})
	hPoint := mat64.NewDense(2, 2, []float64{
		-dy / q, dx / q,
		dx / rng, dy / rng,
	})
	gf, err := NewGaussianFactor(
		[]Key{f.poseKey, f.pointKey},
		[]*mat64.Dense{whitenDense(f.noise, hPose), whitenDense(f.noise, hPoint)},
		f.noise.Whiten(f.residual(continuousVals)))
	if err != nil {
		panic(err)
	}
	return gf
}

// LogNormalizingConstant implements the ContinuousFactor interface.
func (f *BearingRangeFactor) LogNormalizingConstant() float64 {
	return f.noise.LogNormalizingConstant()
}

// Equals implements the ContinuousFactor interface.
func (f *BearingRangeFactor) Equals(other ContinuousFactor, tol float64) bool {
	o, ok := other.(*BearingRangeFactor)
	if !ok {
		return false
	}
	return o.poseKey == f.poseKey && o.pointKey == f.pointKey &&
		math.Abs(o.bearing-f.bearing) <= tol && math.Abs(o.rng-f.rng) <= tol &&
		f.noise.Equals(o.noise, tol)
}

// halfSquaredNorm returns 0.5 * ||v||².
func halfSquaredNorm(v *mat64.Vector) float64 {
	var sum float64
	for i := 0; i < v.Len(); i++ {
		sum += v.At(i, 0) * v.At(i, 0)
	}
	return 0.5 * sum
}

// whitenDense applies the noise whitening column by column to a raw Jacobian.
func whitenDense(noise NoiseModel, jac *mat64.Dense) *mat64.Dense {
	r, c := jac.Dims()
	out := mat64.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		col := mat64.NewVector(r, nil)
		for i := 0; i < r; i++ {
			col.SetVec(i, jac.At(i, j))
		}
		w := noise.Whiten(col)
		for i := 0; i < r; i++ {
			out.Set(i, j, w.At(i, 0))
		}
	}
	return out
}

// vecEqual compares two vectors elementwise within tol.
func vecEqual(a, b *mat64.Vector, tol float64) bool {
	if a.Len() != b.Len() {
		return false
	}
	for i := 0; i < a.Len(); i++ {
		if math.Abs(a.At(i, 0)-b.At(i, 0)) > tol {
			return false
		}
	}
	return true
}
