package dcsam

import (
	"testing"

	"github.com/gonum/matrix/mat64"
)

func TestCheckDims(t *testing.T) {
	i22 := mat64.NewDense(2, 2, []float64{1, 0, 0, 1})
	i33 := mat64.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	methods := []DimensionAgreement{cols2cols, rows2rows}
	for _, meth := range methods {
		if err := checkMatDims(i22, i22, "i22", "i22", meth); err != nil {
			t.Fatalf("method %+v fails: %s", meth, err)
		}
		if err := checkMatDims(i22, i33, "i22", "i33", meth); err == nil {
			t.Fatalf("method %+v does not error when using i22 and i33 ", meth)
		}
	}
}

func TestCheckVecDim(t *testing.T) {
	if err := checkVecDim(mat64.NewVector(2, nil), 2, "v"); err != nil {
		t.Fatalf("matching dimension fails: %s", err)
	}
	if err := checkVecDim(mat64.NewVector(2, nil), 3, "v"); err == nil {
		t.Fatal("mismatched dimension does not error")
	}
	if err := checkVecDim(nil, 2, "v"); err == nil {
		t.Fatal("nil vector does not error")
	}
}

func TestCheckCardinality(t *testing.T) {
	d := DiscreteKey{Symbol('d', 0), 3}
	if err := checkCardinality(3, d, "probs"); err != nil {
		t.Fatalf("matching cardinality fails: %s", err)
	}
	if err := checkCardinality(2, d, "probs"); err == nil {
		t.Fatal("mismatched cardinality does not error")
	}
}
