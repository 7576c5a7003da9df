// Package scalar defines the numeric type threaded through the rest of
// factorgo. Precision is picked at build time rather than through a type
// parameter: build with -tags f32 for float32, otherwise float64 is used.
package scalar

// Real is the scalar field factorgo's manifolds and linear algebra operate
// over. See real_f64.go / real_f32.go for the build-tag-selected definition.

// Eps is a small tolerance used for series-expansion cutoffs (small-angle
// branches in SO3/SE3) and singularity checks.
const Eps = 1e-8

// InjectivityRadius bounds the tangent norm within which log(exp(tau)) == tau
// is guaranteed for the rotation groups (SO3's log is only single-valued for
// angles below pi).
const InjectivityRadius = 3.14159265358979323846 - 1e-6
