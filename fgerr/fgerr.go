// Package fgerr centralizes the error kinds the optimizer core can report,
// per the error handling design: TypeMismatch and MissingKey are fatal and
// surfaced before any iteration runs; Singular feeds Levenberg-Marquardt's
// damping increase; NonFinite aborts immediately.
package fgerr

import "errors"

var (
	// ErrTypeMismatch is returned when a key's declared type tag disagrees
	// with the concrete type of the Variable being inserted or referenced.
	ErrTypeMismatch = errors.New("factorgo: variable type mismatch for key")
	// ErrMissingKey is returned when a factor references a key absent from
	// Values.
	ErrMissingKey = errors.New("factorgo: key not found in values")
	// ErrSingular is returned when the sparse solver cannot factor the
	// normal equations, even after damping.
	ErrSingular = errors.New("factorgo: normal equations are singular")
	// ErrNonFinite is returned when a residual or Jacobian evaluates to
	// NaN or Inf.
	ErrNonFinite = errors.New("factorgo: residual or Jacobian is not finite")
	// ErrIO wraps errors surfaced as-is from external loaders (g2o, etc).
	ErrIO = errors.New("factorgo: I/O error")
	// ErrDamping is returned when Levenberg-Marquardt rejects every damped
	// step it tries within one iteration (MaxRejections+1 attempts).
	ErrDamping = errors.New("factorgo: levenberg-marquardt rejected every damped step without improving error")
)
