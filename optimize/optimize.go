// Package optimize implements the Gauss-Newton and Levenberg-Marquardt
// solvers that drive a graph of factors toward a local optimum of its
// total whitened, robust-weighted sum of squares.
package optimize

import (
	"log"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/go-factorgo/factorgo/graph"
	"github.com/go-factorgo/factorgo/linear"
	"github.com/go-factorgo/factorgo/variables"
)

// TerminationReason records why an Optimizer stopped iterating.
type TerminationReason int

const (
	NotTerminated TerminationReason = iota
	ConvergedAbsolute
	ConvergedRelative
	MaxIterations
	LMFailure
)

func (r TerminationReason) String() string {
	switch r {
	case ConvergedAbsolute:
		return "converged-absolute"
	case ConvergedRelative:
		return "converged-relative"
	case MaxIterations:
		return "max-iterations"
	case LMFailure:
		return "lm-failure"
	default:
		return "not-terminated"
	}
}

// Params controls convergence checks and, for Levenberg-Marquardt, damping.
type Params struct {
	MaxIterations     int
	AbsoluteTolerance float64 // stop if the error change from the prior iteration drops below this
	RelativeTolerance float64 // stop if (prevErr-err)/prevErr falls below this
	InitialLambda     float64 // LM only
	MinLambda         float64 // LM only
	MaxLambda         float64 // LM only
	LambdaUp          float64 // LM only, multiplier on rejected steps
	LambdaDown        float64 // LM only, divisor on accepted steps
	MaxRejections     int     // LM only, rejections tolerated per iteration before giving up
	Verbose           bool
	Parallel          bool
}

// DefaultGaussNewtonParams mirrors the damping-free defaults a batch
// least-squares solver needs: generous iteration budget, tight relative
// tolerance, since Gauss-Newton has no step-rejection safety net.
func DefaultGaussNewtonParams() Params {
	return Params{
		MaxIterations:     100,
		AbsoluteTolerance: 1e-10,
		RelativeTolerance: 1e-8,
	}
}

// DefaultLevenbergMarquardtParams mirrors common LM defaults: initial
// damping 1e-5, bounds [1e-20, 1e20], increase factor 3 on a rejected step,
// decrease factor 2 on an accepted one, giving up after 5 rejections in a
// single iteration.
func DefaultLevenbergMarquardtParams() Params {
	return Params{
		MaxIterations:     100,
		AbsoluteTolerance: 1e-10,
		RelativeTolerance: 1e-8,
		InitialLambda:     1e-5,
		MinLambda:         1e-20,
		MaxLambda:         1e20,
		LambdaUp:          3,
		LambdaDown:        2,
		MaxRejections:     5,
	}
}

// Report summarizes an optimization run.
type Report struct {
	InitialError float64
	FinalError   float64
	Iterations   int
	Termination  TerminationReason
}

// Optimizer drives Values toward a local minimum of the total error of g's
// factors, mutating Values in place.
type Optimizer interface {
	Optimize(g *graph.Graph, values *variables.Values) (Report, error)
}

func totalError(r *mat.VecDense) float64 {
	sum := 0.0
	for i := 0; i < r.Len(); i++ {
		v := r.AtVec(i)
		sum += v * v
	}
	return 0.5 * sum
}

func logStep(verbose bool, iter int, err float64, accepted bool, lambda float64) {
	if !verbose {
		return
	}
	status := "accepted"
	if !accepted {
		status = "rejected"
	}
	if lambda > 0 {
		log.Printf("optimize: iter=%d error=%g lambda=%g step=%s", iter, err, lambda, status)
	} else {
		log.Printf("optimize: iter=%d error=%g step=%s", iter, err, status)
	}
}

func checkConvergence(p Params, prevErr, err float64) TerminationReason {
	if math.Abs(prevErr-err) <= p.AbsoluteTolerance {
		return ConvergedAbsolute
	}
	if prevErr > 0 {
		rel := math.Abs(prevErr-err) / prevErr
		if rel <= p.RelativeTolerance {
			return ConvergedRelative
		}
	}
	return NotTerminated
}

func linearizeOpts(p Params) linear.Opts {
	return linear.Opts{Parallel: p.Parallel}
}
