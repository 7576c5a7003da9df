package optimize

import (
	"errors"
	"fmt"

	"github.com/go-factorgo/factorgo/fgerr"
	"github.com/go-factorgo/factorgo/graph"
	"github.com/go-factorgo/factorgo/linear"
	"github.com/go-factorgo/factorgo/variables"
)

// LevenbergMarquardt damps the normal equations by lambda*diag(J^T J), growing lambda
// on rejected steps (more gradient-descent-like, smaller and safer) and
// shrinking it on accepted steps (more Gauss-Newton-like, faster). Within a
// single iteration, a rejected step is retried at the same linearization
// point with the grown lambda, up to Params.MaxRejections times before the
// run gives up and reports lm-failure.
type LevenbergMarquardt struct {
	Params Params
	Solver linear.Solver
}

// NewLevenbergMarquardt returns an LM optimizer with the given params,
// using the default dense solver.
func NewLevenbergMarquardt(p Params) *LevenbergMarquardt {
	return &LevenbergMarquardt{Params: p, Solver: linear.NewDenseSolver()}
}

func (o *LevenbergMarquardt) Optimize(g *graph.Graph, values *variables.Values) (Report, error) {
	p := o.Params
	solver := o.Solver
	if solver == nil {
		solver = linear.NewDenseSolver()
	}

	minLambda := p.MinLambda
	if minLambda <= 0 {
		minLambda = 1e-20
	}
	maxLambda := p.MaxLambda
	if maxLambda <= 0 {
		maxLambda = 1e20
	}
	lambdaUp := p.LambdaUp
	if lambdaUp <= 0 {
		lambdaUp = 3
	}
	lambdaDown := p.LambdaDown
	if lambdaDown <= 0 {
		lambdaDown = 2
	}
	maxRejections := p.MaxRejections
	if maxRejections <= 0 {
		maxRejections = 5
	}

	sj, r, cm, err := linear.Linearize(g, values, linearizeOpts(p))
	if err != nil {
		return Report{}, err
	}
	initialErr := totalError(r)
	prevErr := initialErr
	rep := Report{InitialError: initialErr, FinalError: initialErr}

	lambda := p.InitialLambda
	if lambda <= 0 {
		lambda = 1e-5
	}

	for iter := 0; iter < p.MaxIterations; iter++ {
		accepted := false
		var curErr float64

		for rejection := 0; rejection <= maxRejections; rejection++ {
			dx, err := solver.SolveDamped(sj, r, lambda)
			if err != nil {
				if !errors.Is(err, fgerr.ErrSingular) {
					return rep, err
				}
				lambda = minFloat(lambda*lambdaUp, maxLambda)
				logStep(p.Verbose, iter, prevErr, false, lambda)
				continue
			}
			dx.ScaleVec(-1, dx)

			trial := values.Clone()
			trial.Retract(dx.RawVector().Data, cm)

			trialSJ, trialR, trialCM, err := linear.Linearize(g, trial, linearizeOpts(p))
			if err != nil {
				return rep, err
			}
			trialErr := totalError(trialR)

			if trialErr < prevErr {
				values.CopyFrom(trial)
				sj, r, cm = trialSJ, trialR, trialCM
				lambda = maxFloat(lambda/lambdaDown, minLambda)
				logStep(p.Verbose, iter, trialErr, true, lambda)
				curErr = trialErr
				accepted = true
				break
			}

			lambda = minFloat(lambda*lambdaUp, maxLambda)
			logStep(p.Verbose, iter, trialErr, false, lambda)
			curErr = trialErr
		}

		rep.Iterations = iter + 1
		if !accepted {
			rep.Termination = LMFailure
			rep.FinalError = prevErr
			return rep, fmt.Errorf("%w: %d consecutive rejections at lambda=%g", fgerr.ErrDamping, maxRejections+1, lambda)
		}

		rep.FinalError = curErr
		if reason := checkConvergence(p, prevErr, curErr); reason != NotTerminated {
			rep.Termination = reason
			return rep, nil
		}
		prevErr = curErr
	}
	rep.Termination = MaxIterations
	return rep, nil
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
