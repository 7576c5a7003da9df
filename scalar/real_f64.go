//go:build !f32

package scalar

// Real is the default double-precision scalar type.
type Real = float64
