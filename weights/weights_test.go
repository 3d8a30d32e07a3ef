package weights

import (
	"math"
	"testing"

	"github.com/invgeo/tomograd/grid"
	"github.com/invgeo/tomograd/parallel"
	"github.com/invgeo/tomograd/types"
	"github.com/stretchr/testify/assert"
)

// stubGrid reports fixed depths; bounds put element i in the unit cell
// [i,i+1]x[0,1].
type stubGrid struct {
	depths []float64
}

func (s stubGrid) VerticalCenter(i int) float64 { return s.depths[i] }

func (s stubGrid) CellBounds(i int) (x1, x2, y1, y2 float64) {
	return float64(i), float64(i + 1), 0, 1
}

// stubSens serves fixed columns.
type stubSens struct {
	cols [][]float64
}

func (s stubSens) NData() int             { return len(s.cols[0]) }
func (s stubSens) Column(i int) []float64 { return s.cols[i] }

func TestEmpiricalDepthLaw(t *testing.T) {
	// depth 10, Z0 = 0, beta = 2 gives raw weight 10^-1 = 0.1
	we := NewEngine(parallel.Serial{}, stubGrid{depths: []float64{10}}, types.DW_EmpiricalDepth, 2, 0)
	we.Damping = make([]float64, 1)
	we.Column = make([]float64, 1)
	assert.NoError(t, we.empiricalDepth())
	assert.InDelta(t, 0.1, we.Damping[0], 1e-15)

	// A second element at depth 0 violates depth+Z0 > 0
	we2 := NewEngine(parallel.Serial{}, stubGrid{depths: []float64{10, 0}}, types.DW_EmpiricalDepth, 2, 0)
	err := we2.Compute(2, nil, nil)
	var numErr *types.NumericalError
	assert.ErrorAs(t, err, &numErr)
	assert.Equal(t, 1, numErr.Element)
}

func TestComputeNormalizesToUnitMax(t *testing.T) {
	g := stubGrid{depths: []float64{1, 4, 9, 16}}
	we := NewEngine(parallel.Serial{}, g, types.DW_EmpiricalDepth, 2, 0)
	assert.NoError(t, we.Compute(4, nil, nil))
	// Raw weights 1, 1/4, 1/9, 1/16; shallowest already dominates
	assert.Equal(t, 1., we.Damping[0])
	assert.InDelta(t, 1./16, we.Damping[3], 1e-15)
}

func TestNormalizationIdempotent(t *testing.T) {
	g := stubGrid{depths: []float64{2, 5, 11}}
	we := NewEngine(parallel.Serial{}, g, types.DW_EmpiricalDepth, 1.5, 3)
	assert.NoError(t, we.Compute(3, nil, nil))
	once := append([]float64(nil), we.Damping...)
	assert.NoError(t, we.Normalize())
	assert.Equal(t, once, we.Damping)
}

// The normalized maximum must be exactly 1.0, whatever the raw weight
// values, so that a second normalization divides by exactly one and leaves
// every weight untouched.
func TestNormalizationExactUnitMax(t *testing.T) {
	for _, depths := range [][]float64{
		{7, 14}, // raw weights whose reciprocal-scaled max rounds below 1
		{3, 9, 27},
		{0.1, 0.3, 0.7, 11},
		{5},
	} {
		for _, beta := range []float64{0.5, 1, 2, 3} {
			we := NewEngine(parallel.Serial{}, stubGrid{depths: depths}, types.DW_EmpiricalDepth, beta, 0)
			assert.NoError(t, we.Compute(len(depths), nil, nil))
			max := we.Damping[0]
			for _, w := range we.Damping[1:] {
				if w > max {
					max = w
				}
			}
			assert.Equal(t, 1., max)

			once := append([]float64(nil), we.Damping...)
			assert.NoError(t, we.Normalize())
			assert.Equal(t, once, we.Damping)
		}
	}
}

func TestReciprocalRoundTrip(t *testing.T) {
	g := stubGrid{depths: []float64{3, 7, 21, 55}}
	we := NewEngine(parallel.Serial{}, g, types.DW_EmpiricalDepth, 2, 1)
	assert.NoError(t, we.Compute(4, nil, nil))
	for i := range we.Damping {
		assert.InDelta(t, 1., we.Damping[i]*we.Column[i], 1e-14)
	}
}

func TestIntegratedSensitivity(t *testing.T) {
	sens := stubSens{cols: [][]float64{{3, 4}, {0.5, 0}}}
	we := NewEngine(parallel.Serial{}, nil, types.DW_IntegratedSensitivity, 0, 0)
	assert.NoError(t, we.Compute(2, sens, nil))
	// Raw: sqrt(5) and sqrt(0.5); normalized by sqrt(5)
	assert.Equal(t, 1., we.Damping[0])
	assert.InDelta(t, math.Sqrt(0.5/5), we.Damping[1], 1e-15)
}

func TestAllZeroWeightsFatal(t *testing.T) {
	sens := stubSens{cols: [][]float64{{0, 0}, {0, 0}}}
	we := NewEngine(parallel.Serial{}, nil, types.DW_IntegratedSensitivity, 0, 0)
	err := we.Compute(2, sens, nil)
	var numErr *types.NumericalError
	assert.ErrorAs(t, err, &numErr)
}

func TestUnknownWeightingType(t *testing.T) {
	we := NewEngine(parallel.Serial{}, nil, types.DepthWeightingType(9), 0, 0)
	err := we.Compute(1, nil, nil)
	var cfgErr *types.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

// The type-2 path is rejected at the public entry while its implementation
// stays testable.
func TestSensitivityBelowDataGuarded(t *testing.T) {
	g := stubGrid{depths: []float64{1, 2}}
	we := NewEngine(parallel.Serial{}, g, types.DW_SensitivityBelowData, 2, 0)
	err := we.Compute(2, nil, nil)
	var cfgErr *types.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestSensitivityBelowDataInternals(t *testing.T) {
	var (
		g    = stubGrid{depths: []float64{1, 2}}
		sens = stubSens{cols: [][]float64{{4, 9}, {16, 25}}}
		data = []grid.DataPoint{
			{X1: 0, X2: 1, Y1: 0, Y2: 1},
			{X1: 1, X2: 2, Y1: 0, Y2: 1},
		}
	)
	we := NewEngine(parallel.Serial{}, g, types.DW_SensitivityBelowData, 2, 0)
	we.Damping = make([]float64, 2)
	we.Column = make([]float64, 2)
	assert.NoError(t, we.sensitivityBelowData(sens, data))
	assert.Equal(t, 2., we.Damping[0]) // sqrt(cols[0][0])
	assert.Equal(t, 5., we.Damping[1]) // sqrt(cols[1][1])

	// Element 1's cell lies outside every footprint
	err := we.sensitivityBelowData(sens, data[:1])
	var nfErr *types.NotFoundError
	assert.ErrorAs(t, err, &nfErr)
	assert.Equal(t, 1, nfErr.Element)

	// Negative sensitivity under the square root
	bad := stubSens{cols: [][]float64{{-4, 9}, {16, 25}}}
	err = we.sensitivityBelowData(bad, data)
	var numErr *types.NumericalError
	assert.ErrorAs(t, err, &numErr)
}

// The normalization constant is the maximum across all ranks, so every
// rank's weights end up on the same global scale.
func TestNormalizationAcrossRanks(t *testing.T) {
	depths := [][]float64{{1, 2}, {4}, {8, 32, 64}}
	err := parallel.Run(3, func(c parallel.Communicator) error {
		g := stubGrid{depths: depths[c.Rank()]}
		we := NewEngine(c, g, types.DW_EmpiricalDepth, 2, 0)
		if err := we.Compute(len(depths[c.Rank()]), nil, nil); err != nil {
			return err
		}
		// Global max raw weight is 1/1 on rank 0; every weight is its raw
		// value unchanged, and only rank 0 holds the unit maximum.
		for i, d := range depths[c.Rank()] {
			assert.InDelta(t, 1/d, we.Damping[i], 1e-15)
			assert.InDelta(t, d, we.Column[i], 1e-12)
		}
		return nil
	})
	assert.NoError(t, err)
}
