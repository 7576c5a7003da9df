// Package graph implements the ordered collection of Factors an Optimizer
// linearizes against Values.
package graph

import "github.com/go-factorgo/factorgo/factor"

// Graph stores factors in insertion order. Order affects only the
// determinism of row/column assembly, never the optimized solution.
type Graph struct {
	factors []*factor.Factor
}

// New returns an empty Graph.
func New() *Graph { return &Graph{} }

// Add appends f to the graph.
func (g *Graph) Add(f *factor.Factor) { g.factors = append(g.factors, f) }

// Factors returns the factors in insertion order. Callers must not mutate
// the returned slice.
func (g *Graph) Factors() []*factor.Factor { return g.factors }

// Len returns the number of factors.
func (g *Graph) Len() int { return len(g.factors) }
