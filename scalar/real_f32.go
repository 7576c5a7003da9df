//go:build f32

package scalar

// Real is the single-precision scalar type, selected with -tags f32.
type Real = float32
