package variables

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/go-factorgo/factorgo/fgerr"
)

// Values is the mapping from Key to an owned Variable of the matching
// type. It is mutated in place during optimization; linearization never
// touches it except to read.
type Values struct {
	m map[Key]Variable
}

// NewValues returns an empty Values.
func NewValues() *Values {
	return &Values{m: make(map[Key]Variable)}
}

// Set inserts or overwrites the variable at key. If key's type tag is
// registered (see Register) and disagrees with v's concrete type, Set
// returns ErrTypeMismatch and leaves the map untouched.
func (vs *Values) Set(key Key, v Variable) error {
	if t, ok := TypeOf(key.Tag()); ok {
		if t != reflect.TypeOf(v) {
			return fmt.Errorf("%w: key %s declared for %s, got %s", fgerr.ErrTypeMismatch, key, t, typeName(v))
		}
	}
	vs.m[key] = v
	return nil
}

// Get returns the variable at key, or ErrMissingKey.
func (vs *Values) Get(key Key) (Variable, error) {
	v, ok := vs.m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fgerr.ErrMissingKey, key)
	}
	return v, nil
}

// Has reports whether key is present.
func (vs *Values) Has(key Key) bool {
	_, ok := vs.m[key]
	return ok
}

// Delete removes key, if present.
func (vs *Values) Delete(key Key) {
	delete(vs.m, key)
}

// Len returns the number of variables stored.
func (vs *Values) Len() int { return len(vs.m) }

// Keys returns all keys in deterministic (ascending) order.
func (vs *Values) Keys() []Key {
	out := make([]Key, 0, len(vs.m))
	for k := range vs.m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns a shallow copy of vs: the map is copied but the Variable
// values themselves (immutable value types in this package) are shared.
func (vs *Values) Clone() *Values {
	out := make(map[Key]Variable, len(vs.m))
	for k, v := range vs.m {
		out[k] = v
	}
	return &Values{m: out}
}

// CopyFrom overwrites vs's entries with other's. Used by the
// Levenberg-Marquardt optimizer to commit an accepted trial step into the
// caller's Values without reallocating.
func (vs *Values) CopyFrom(other *Values) {
	for k, v := range other.m {
		vs.m[k] = v
	}
}

// ColumnLookup resolves a Key to its column offset and tangent width in an
// assembled delta vector. linear.ColumnMap implements this; Values.Retract
// depends only on the interface so this package does not need to import
// linear.
type ColumnLookup interface {
	Offset(key Key) (offset, width int, ok bool)
}

// Retract updates every variable v in vs to v ⊕ delta[offset:offset+width],
// where offset and width come from cols. Variables with no entry in cols
// are left unchanged. There is no partial retraction exposed beyond this:
// callers update the whole Values at once from one assembled delta.
func (vs *Values) Retract(delta []float64, cols ColumnLookup) {
	for k, v := range vs.m {
		offset, width, ok := cols.Offset(k)
		if !ok {
			continue
		}
		vs.m[k] = Oplus(v, delta[offset:offset+width])
	}
}

func typeName(v Variable) string {
	return fmt.Sprintf("%T", v)
}
