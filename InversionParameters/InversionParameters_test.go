package InversionParameters

import (
	"testing"

	"github.com/invgeo/tomograd/parallel"
	"github.com/invgeo/tomograd/types"
	"github.com/stretchr/testify/assert"
)

const gravParfile = `
Title: "Synthetic gravity block"
Problem: gravity
Gravity:
  Nx: 8
  Ny: 8
  Nz: 4
  Dx: 100
  Dy: 100
  Dz: 50
  Zmin: 0
  DepthWeightingType: 1
  Beta: 2.0
  Z0: 12.5
  Damping: 0.01
  MaxIterations: 50
  Tolerance: 1.0e-8
  SparseTolerance: 1.0e-15
  DensityPrior: 0.0
`

func TestParseGravityParfile(t *testing.T) {
	var p Parameters
	assert.NoError(t, p.Parse([]byte(gravParfile)))
	assert.Equal(t, types.P_Gravity, p.ProblemType())
	assert.NoError(t, p.Validate(4))
	assert.Equal(t, 256, p.Gravity.NElements())
	assert.Equal(t, 2.0, p.Gravity.Beta)
	assert.Equal(t, 12.5, p.Gravity.Z0)
	assert.Equal(t, 1e-15, p.Gravity.SparseTolerance)
	assert.Equal(t, parallel.SpreadRemainder, p.PartitionPolicy())
}

const ectParfile = `
Title: "12 electrode ring"
Problem: ect
ECT:
  Nx: 6
  Ny: 6
  Nz: 3
  Dx: 1
  Dy: 1
  Dz: 1
  DepthWeightingType: 1
  Beta: 1.0
  Z0: 0.5
  Damping: 0.1
  MaxIterations: 20
  NElectrodes: 12
`

func TestParseECTParfile(t *testing.T) {
	var p Parameters
	assert.NoError(t, p.Parse([]byte(ectParfile)))
	assert.Equal(t, types.P_ECT, p.ProblemType())
	assert.NoError(t, p.Validate(2))
	assert.Equal(t, 12, p.ECT.NElectrodes)
	assert.Equal(t, parallel.LastRankRemainder, p.PartitionPolicy())
}

func TestValidateRejections(t *testing.T) {
	var cfgErr *types.ConfigurationError

	// Unknown problem kind
	p := Parameters{Problem: "seismic"}
	assert.ErrorAs(t, p.Validate(1), &cfgErr)

	// Missing the section for the selected problem
	p = Parameters{Problem: "gravity"}
	assert.ErrorAs(t, p.Validate(1), &cfgErr)

	// Joint requires both sections
	p = Parameters{Problem: "joint", Gravity: &GravityParameters{}}
	assert.ErrorAs(t, p.Validate(1), &cfgErr)

	good := func() (p Parameters) {
		assert.NoError(t, p.Parse([]byte(gravParfile)))
		return
	}

	// Unknown weighting type
	p = good()
	p.Gravity.DepthWeightingType = 7
	assert.ErrorAs(t, p.Validate(1), &cfgErr)

	// More ranks than elements
	p = good()
	assert.ErrorAs(t, p.Validate(1000), &cfgErr)

	// Degenerate grid
	p = good()
	p.Gravity.Nz = 0
	assert.ErrorAs(t, p.Validate(1), &cfgErr)
}
