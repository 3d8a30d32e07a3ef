// Package weights computes the per-element damping weights that regularize
// the inversion and the reciprocal column weights that precondition the
// sensitivity matrix. The solver works the change-of-variables system
// [S W^-1; I] d(Wm) instead of [S; W] dm, so damping and column weights are
// the same scale factor seen from opposite sides of the substitution.
package weights

import (
	"math"

	"github.com/invgeo/tomograd/grid"
	"github.com/invgeo/tomograd/parallel"
	"github.com/invgeo/tomograd/types"
	"gonum.org/v1/gonum/floats"
)

// Grid supplies per-element geometry for the locally owned slice.
type Grid interface {
	VerticalCenter(i int) float64
	CellBounds(i int) (x1, x2, y1, y2 float64)
}

// Sensitivity supplies read-only columns of the rank-local sensitivity
// block; Column(i) has length NData.
type Sensitivity interface {
	NData() int
	Column(i int) []float64
}

// Engine owns the damping and column weight slices for one rank's elements.
// Weights are computed once per weighting invocation and may be recomputed
// between joint-inversion passes; consumers only read them.
type Engine struct {
	Type     types.DepthWeightingType
	Beta, Z0 float64

	comm parallel.Communicator
	grid Grid

	Damping []float64 // normalized: global max is 1.0, never zero
	Column  []float64 // reciprocal of Damping
}

func NewEngine(c parallel.Communicator, g Grid, wtype types.DepthWeightingType, beta, z0 float64) *Engine {
	return &Engine{
		Type: wtype, Beta: beta, Z0: z0,
		comm: c, grid: g,
	}
}

// Compute fills the damping and column weights for nLocal elements. sens and
// data are only consulted by the sensitivity-derived strategies and may be
// nil for the empirical depth law. All ranks must call Compute together: the
// normalization step is a collective.
func (we *Engine) Compute(nLocal int, sens Sensitivity, data []grid.DataPoint) error {
	we.Damping = make([]float64, nLocal)
	we.Column = make([]float64, nLocal)

	switch we.Type {
	case types.DW_EmpiricalDepth:
		if err := we.empiricalDepth(); err != nil {
			return err
		}
	case types.DW_SensitivityBelowData:
		// The upstream system flags this path unsupported; the
		// implementation below stays present but unreachable from here.
		return &types.ConfigurationError{
			Param: "depth_weighting_type", Value: int(we.Type),
			Msg: "sensitivity-below-data weighting is not supported",
		}
	case types.DW_IntegratedSensitivity:
		if err := we.integratedSensitivity(sens); err != nil {
			return err
		}
	default:
		return &types.ConfigurationError{
			Param: "depth_weighting_type", Value: int(we.Type),
			Msg: "unknown depth weighting type",
		}
	}

	if err := we.Normalize(); err != nil {
		return err
	}
	return we.deriveColumnWeights()
}

// empiricalDepth is the default strategy: weight = (depth+Z0)^(-beta/2).
func (we *Engine) empiricalDepth() error {
	for i := range we.Damping {
		depth := we.grid.VerticalCenter(i) + we.Z0
		if depth <= 0 {
			return &types.NumericalError{
				Element: i, Value: depth,
				Msg: "depth + Z0 must be positive for the empirical depth law",
			}
		}
		we.Damping[i] = math.Pow(depth, -we.Beta/2)
	}
	return nil
}

// sensitivityBelowData weights each element by the square root of its
// sensitivity at the one data point whose footprint contains the element's
// horizontal cell bounds. If footprints overlap, the first covering data
// point in scan order wins.
func (we *Engine) sensitivityBelowData(sens Sensitivity, data []grid.DataPoint) error {
	for i := range we.Damping {
		x1, x2, y1, y2 := we.grid.CellBounds(i)
		found := -1
		for d, pt := range data {
			if pt.Covers(x1, x2, y1, y2) {
				found = d
				break
			}
		}
		if found < 0 {
			return &types.NotFoundError{
				Element: i,
				Msg:     "no data footprint covers the element's cell bounds",
			}
		}
		s := sens.Column(i)[found]
		if s < 0 {
			return &types.NumericalError{
				Element: i, Value: s,
				Msg: "negative sensitivity under square root",
			}
		}
		we.Damping[i] = math.Sqrt(s)
	}
	return nil
}

// integratedSensitivity weights each element by the square root of the
// Euclidean norm of its full sensitivity column.
func (we *Engine) integratedSensitivity(sens Sensitivity) error {
	if sens == nil {
		return &types.ConfigurationError{
			Param: "sensitivity", Value: nil,
			Msg: "integrated-sensitivity weighting requires the sensitivity matrix",
		}
	}
	for i := range we.Damping {
		we.Damping[i] = math.Sqrt(floats.Norm(sens.Column(i), 2))
	}
	return nil
}

// Normalize divides every local weight by the global maximum so the maximum
// over all ranks is exactly 1.0. Applying it twice is a no-op. A zero global
// maximum means a degenerate model: fatal, not recoverable.
func (we *Engine) Normalize() error {
	localMax := 0.
	if len(we.Damping) > 0 {
		localMax = floats.Max(we.Damping)
	}
	globalMax, err := we.comm.AllReduceMax(localMax)
	if err != nil {
		return err
	}
	if globalMax == 0 {
		err := &types.NumericalError{
			Element: -1, Value: globalMax,
			Msg: "zero normalization constant: all damping weights vanish",
		}
		we.comm.Abort(err)
		return err
	}
	// Divide rather than multiply by the reciprocal: max/max is exactly 1.0,
	// so reapplying the normalization is a true no-op.
	for i := range we.Damping {
		we.Damping[i] /= globalMax
	}
	return nil
}

// deriveColumnWeights sets column_weight = 1/damping_weight. A zero damping
// weight after normalization would silently corrupt the preconditioning, so
// it is fatal.
func (we *Engine) deriveColumnWeights() error {
	for i, w := range we.Damping {
		if w == 0 {
			return &types.NumericalError{
				Element: i, Value: w,
				Msg: "zero damping weight has no reciprocal column weight",
			}
		}
		we.Column[i] = 1 / w
	}
	return nil
}
