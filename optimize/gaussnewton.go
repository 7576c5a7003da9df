package optimize

import (
	"log"

	"github.com/go-factorgo/factorgo/graph"
	"github.com/go-factorgo/factorgo/linear"
	"github.com/go-factorgo/factorgo/variables"
)

// GaussNewton repeatedly linearizes, solves J dx = -r, and retracts by dx
// until convergence or the iteration budget is exhausted. Unlike
// Levenberg-Marquardt it never rejects a step: if the error rises it still
// accepts and logs the event, trusting the problem to be well-enough
// conditioned near the solution.
type GaussNewton struct {
	Params Params
	Solver linear.Solver
}

// NewGaussNewton returns a GaussNewton optimizer with the given params,
// using the default dense solver.
func NewGaussNewton(p Params) *GaussNewton {
	return &GaussNewton{Params: p, Solver: linear.NewDenseSolver()}
}

func (o *GaussNewton) Optimize(g *graph.Graph, values *variables.Values) (Report, error) {
	p := o.Params
	solver := o.Solver
	if solver == nil {
		solver = linear.NewDenseSolver()
	}

	sj, r, cm, err := linear.Linearize(g, values, linearizeOpts(p))
	if err != nil {
		return Report{}, err
	}
	initialErr := totalError(r)
	prevErr := initialErr
	rep := Report{InitialError: initialErr, FinalError: initialErr}

	for iter := 0; iter < p.MaxIterations; iter++ {
		dx, err := solver.Solve(sj, r)
		if err != nil {
			return rep, err
		}
		dx.ScaleVec(-1, dx)
		values.Retract(dx.RawVector().Data, cm)

		sj, r, cm, err = linear.Linearize(g, values, linearizeOpts(p))
		if err != nil {
			return rep, err
		}
		curErr := totalError(r)
		logStep(p.Verbose, iter, curErr, true, 0)
		if curErr > prevErr {
			log.Printf("optimize: gauss-newton error rose from %g to %g at iter=%d, accepting anyway", prevErr, curErr, iter)
		}

		rep.Iterations = iter + 1
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
