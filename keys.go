package dcsam

import (
	"fmt"
	"sort"

	"github.com/gonum/matrix/mat64"
)

// Key is an opaque unique identifier for a variable. Continuous and discrete
// variables share the same identifier type but live in disjoint namespaces.
type Key uint64

// Symbol builds a Key from a single character tag and an index, e.g.
// Symbol('x', 1) for the first pose or Symbol('d', 1) for the first
// hypothesis selector.
func Symbol(c byte, index uint64) Key {
	return Key(c)<<56 | Key(index&((1<<56)-1))
}

// Chr returns the character tag of a Key built via Symbol.
func (k Key) Chr() byte {
	return byte(k >> 56)
}

// Index returns the index of a Key built via Symbol.
func (k Key) Index() uint64 {
	return uint64(k) & ((1 << 56) - 1)
}

// String implements the Stringer interface.
func (k Key) String() string {
	c := k.Chr()
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' {
		return fmt.Sprintf("%c%d", c, k.Index())
	}
	return fmt.Sprintf("%d", uint64(k))
}

// DiscreteKey identifies a discrete variable together with its cardinality,
// i.e. the number of values the variable may take. The cardinality is fixed
// at key creation time.
type DiscreteKey struct {
	Key         Key
	Cardinality int
}

// Values stores an assignment to continuous variables as a mapping from Key
// to a point on the variable's manifold, here represented as a vector.
type Values map[Key]*mat64.Vector

// NewValues returns an empty continuous assignment.
func NewValues() Values {
	return Values{}
}

// Exists returns whether key k has been assigned a value.
func (v Values) Exists(k Key) bool {
	_, found := v[k]
	return found
}

// At returns the value assigned to key k. It panics if k is unset: reading an
// unassigned continuous variable is a precondition violation.
func (v Values) At(k Key) *mat64.Vector {
	val, found := v[k]
	if !found {
		panic(fmt.Errorf("continuous key %s is not assigned a value", k))
	}
	return val
}

// Insert assigns a value to key k, overwriting any previous assignment.
func (v Values) Insert(k Key, val *mat64.Vector) {
	v[k] = val
}

// Merge inserts-or-updates every assignment of other into v. Last writer
// wins; keys absent from other are untouched.
func (v Values) Merge(other Values) {
	for k, val := range other {
		v[k] = val
	}
}

// Keys returns the assigned keys in ascending order.
func (v Values) Keys() []Key {
	keys := make([]Key, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Copy returns a shallow copy of the assignment (vectors are shared).
func (v Values) Copy() Values {
	cp := make(Values, len(v))
	for k, val := range v {
		cp[k] = val
	}
	return cp
}

// Equals returns whether both assignments hold the same keys with values
// equal within tol.
func (v Values) Equals(other Values, tol float64) bool {
	if len(v) != len(other) {
		return false
	}
	for k, val := range v {
		oval, found := other[k]
		if !found || oval.Len() != val.Len() {
			return false
		}
		for i := 0; i < val.Len(); i++ {
			diff := val.At(i, 0) - oval.At(i, 0)
			if diff > tol || diff < -tol {
				return false
			}
		}
	}
	return true
}

// DiscreteValues stores an assignment to discrete variables as a mapping from
// Key to the realized category index.
type DiscreteValues map[Key]int

// NewDiscreteValues returns an empty discrete assignment.
func NewDiscreteValues() DiscreteValues {
	return DiscreteValues{}
}

// Exists returns whether key k has been assigned a value.
func (d DiscreteValues) Exists(k Key) bool {
	_, found := d[k]
	return found
}

// At returns the category assigned to key k. It panics if k is unset: reading
// an unassigned discrete variable is a precondition violation.
func (d DiscreteValues) At(k Key) int {
	val, found := d[k]
	if !found {
		panic(fmt.Errorf("discrete key %s is not assigned a value", k))
	}
	return val
}

// Merge inserts-or-updates every assignment of other into d.
func (d DiscreteValues) Merge(other DiscreteValues) {
	for k, val := range other {
		d[k] = val
	}
}

// Copy returns a copy of the assignment.
func (d DiscreteValues) Copy() DiscreteValues {
	cp := make(DiscreteValues, len(d))
	for k, val := range d {
		cp[k] = val
	}
	return cp
}

// Equals returns whether both assignments are identical.
func (d DiscreteValues) Equals(other DiscreteValues) bool {
	if len(d) != len(other) {
		return false
	}
	for k, val := range d {
		oval, found := other[k]
		if !found || oval != val {
			return false
		}
	}
	return true
}
