// Package linear assembles the sparse block Jacobian and whitened residual
// a Graph produces against a Values, and defines the external sparse
// solver contract the optimizers delegate to.
package linear

import (
	"github.com/go-factorgo/factorgo/graph"
	"github.com/go-factorgo/factorgo/variables"
)

type colEntry struct {
	offset, width int
}

// ColumnMap assigns each variable key a column offset and width in the
// assembled Jacobian, built deterministically by walking factors in
// insertion order and recording each key the first time it is seen.
type ColumnMap struct {
	entries map[variables.Key]colEntry
	order   []variables.Key
	total   int
}

// BuildColumnMap walks g's factors in order and records each key's
// deterministic position, without widths. It is kept for callers that only
// need key order (e.g. tests); the optimizer uses BuildColumnMapFromValues,
// which resolves tangent widths from Values and is immediately usable for
// assembly.
func BuildColumnMap(g *graph.Graph) *ColumnMap {
	cm := &ColumnMap{entries: make(map[variables.Key]colEntry)}
	for _, f := range g.Factors() {
		for _, k := range f.Keys {
			if _, ok := cm.entries[k]; ok {
				continue
			}
			cm.entries[k] = colEntry{}
			cm.order = append(cm.order, k)
		}
	}
	return cm
}

// BuildColumnMapFromValues is the form the optimizer actually uses: it
// resolves each key's tangent width from its current Value before
// assigning offsets, yielding a complete, immediately usable ColumnMap.
func BuildColumnMapFromValues(g *graph.Graph, values *variables.Values) (*ColumnMap, error) {
	cm := &ColumnMap{entries: make(map[variables.Key]colEntry)}
	offset := 0
	for _, f := range g.Factors() {
		for _, k := range f.Keys {
			if _, ok := cm.entries[k]; ok {
				continue
			}
			v, err := values.Get(k)
			if err != nil {
				return nil, err
			}
			w := v.Dim()
			cm.entries[k] = colEntry{offset: offset, width: w}
			cm.order = append(cm.order, k)
			offset += w
		}
	}
	cm.total = offset
	return cm, nil
}

// Offset implements variables.ColumnLookup.
func (cm *ColumnMap) Offset(key variables.Key) (offset, width int, ok bool) {
	e, ok := cm.entries[key]
	return e.offset, e.width, ok
}

// N returns the total number of columns (sum of tangent widths).
func (cm *ColumnMap) N() int { return cm.total }

// Keys returns the keys in the deterministic order they were first seen.
func (cm *ColumnMap) Keys() []variables.Key { return cm.order }
