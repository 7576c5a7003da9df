package imu

import (
	"gonum.org/v1/gonum/mat"

	"github.com/go-factorgo/factorgo/factor"
	"github.com/go-factorgo/factorgo/noise"
	"github.com/go-factorgo/factorgo/robust"
	"github.com/go-factorgo/factorgo/variables"
)

// NewFactor builds the 15-dimensional preintegration factor over
// (pose_i, vel_i, bias_i, pose_j, vel_j, bias_j), whitened by Delta's
// accumulated 15x15 covariance. Bias drift between the two keyframes is
// one of the factor's own residual rows rather than a separate factor, so
// the bias estimate is correlated with rotation/velocity/position through
// the same noise model the preintegration actually propagated.
func NewFactor(d Delta, params Params, poseI, velI, biasI, poseJ, velJ, biasJ variables.Key) (*factor.Factor, error) {
	covDense := mat.NewDense(stateDim, stateDim, nil)
	for i := 0; i < stateDim; i++ {
		for j := 0; j < stateDim; j++ {
			covDense.Set(i, j, d.Cov.At(i, j))
		}
	}
	n, err := noise.FromCov(covDense)
	if err != nil {
		return nil, err
	}

	res := NewResidual(d, params.Gravity)
	return factor.New(res, []variables.Key{poseI, velI, biasI, poseJ, velJ, biasJ}, n, robust.L2{})
}
