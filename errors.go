package dcsam

import (
	"errors"
	"fmt"

	"github.com/gonum/matrix/mat64"
)

// DimensionAgreement defines how two matrices' dimensions should agree.
type DimensionAgreement uint8

const (
	dimErrMsg                    = "dimensions must agree: "
	cols2cols DimensionAgreement = iota + 1
	rows2rows
)

// checkMatDims checks the matrix dimensions match provided a DimensionAgreement. Returns an error if not.
func checkMatDims(m1, m2 mat64.Matrix, name1, name2 string, method DimensionAgreement) error {
	r1, c1 := m1.Dims()
	r2, c2 := m2.Dims()
	switch method {
	case cols2cols:
		if c1 != c2 {
			return fmt.Errorf("%s%s(...x%d) %s(...x%d)", dimErrMsg, name1, c1, name2, c2)
		}
	case rows2rows:
		if r1 != r2 {
			return fmt.Errorf("%s%s(%dx...) %s(%dx...)", dimErrMsg, name1, r1, name2, r2)
		}
	}
	return nil
}

// checkVecDim checks that the vector has the expected length.
func checkVecDim(v *mat64.Vector, dim int, name string) error {
	if v == nil {
		return fmt.Errorf("%s must not be nil", name)
	}
	if v.Len() != dim {
		return fmt.Errorf("%s%s(%dx1) expected %dx1", dimErrMsg, name, v.Len(), dim)
	}
	return nil
}

// errNoComponents is returned by mixture constructors given an empty
// component list.
var errNoComponents = errors.New("at least one component factor must be provided")

// errWeightCount reports a weight vector whose length does not match the
// component count.
func errWeightCount(weights, factors int) error {
	return fmt.Errorf("got %d weights for %d component factors", weights, factors)
}

// checkCardinality checks that a slice sized per discrete category matches
// the cardinality of the discrete key.
func checkCardinality(n int, dk DiscreteKey, name string) error {
	if n != dk.Cardinality {
		return fmt.Errorf("%s has %d entries but %s has cardinality %d", name, n, dk.Key, dk.Cardinality)
	}
	return nil
}
