package InversionParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
	"github.com/invgeo/tomograd/parallel"
	"github.com/invgeo/tomograd/types"
)

// Parameters obtained from the YAML Parfile. The struct is built once on the
// coordinating process, validated, and passed by value into every rank; it
// is never mutated after that (the source's broadcast of scalar parameters
// becomes construct-once, share-immutably).
type ModelParameters struct {
	Nx                 int     `yaml:"Nx"`
	Ny                 int     `yaml:"Ny"`
	Nz                 int     `yaml:"Nz"`
	Dx                 float64 `yaml:"Dx"`
	Dy                 float64 `yaml:"Dy"`
	Dz                 float64 `yaml:"Dz"`
	Zmin               float64 `yaml:"Zmin"`
	DepthWeightingType int     `yaml:"DepthWeightingType"`
	Beta               float64 `yaml:"Beta"`
	Z0                 float64 `yaml:"Z0"`
	Damping            float64 `yaml:"Damping"`
	MaxIterations      int     `yaml:"MaxIterations"`
	Tolerance          float64 `yaml:"Tolerance"`
	// SparseTolerance > 0 truncates kernel entries at or below it and stores
	// the sensitivity block in compressed sparse rows.
	SparseTolerance float64 `yaml:"SparseTolerance"`
}

func (mp *ModelParameters) NElements() int { return mp.Nx * mp.Ny * mp.Nz }

// ECTParameters carries the capacitance-tomography variant.
type ECTParameters struct {
	ModelParameters
	NElectrodes int `yaml:"NElectrodes"`
}

// GravityParameters and MagneticParameters share the embedded base the way
// the source copied a common record between the two problem families; here
// the sharing is explicit embedding, not copying.
type GravityParameters struct {
	ModelParameters
	DensityPrior float64 `yaml:"DensityPrior"`
}

type MagneticParameters struct {
	ModelParameters
	SusceptibilityPrior float64 `yaml:"SusceptibilityPrior"`
}

// Parameters is the tagged union over problem kinds: only the variants
// relevant to Problem are populated (both gravity and magnetic for a joint
// run).
type Parameters struct {
	Title    string              `yaml:"Title"`
	Problem  string              `yaml:"Problem"`
	NPasses  int                 `yaml:"NPasses"` // joint-inversion alternating passes
	ECT      *ECTParameters      `yaml:"ECT"`
	Gravity  *GravityParameters  `yaml:"Gravity"`
	Magnetic *MagneticParameters `yaml:"Magnetic"`
}

func (p *Parameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, p)
}

func (p *Parameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", p.Title)
	fmt.Printf("[%s]\t\t= Problem\n", p.Problem)
	for _, mp := range p.activeModels() {
		fmt.Printf("%d x %d x %d\t= Grid (Nx x Ny x Nz), %d elements\n",
			mp.Nx, mp.Ny, mp.Nz, mp.NElements())
		fmt.Printf("[%d]\t\t\t= Depth Weighting Type\n", mp.DepthWeightingType)
		fmt.Printf("%8.5f\t\t= Beta\n", mp.Beta)
		fmt.Printf("%8.5f\t\t= Z0\n", mp.Z0)
		fmt.Printf("%8.5f\t\t= Damping\n", mp.Damping)
	}
}

// ProblemType resolves the Problem string; P_None for unknown values.
func (p *Parameters) ProblemType() types.ProblemType {
	return types.ProblemNameMap[p.Problem]
}

// PartitionPolicy returns the remainder policy in force for the problem
// family. The ECT partition concentrates the remainder on the last rank; the
// gravity/magnetic partition spreads it over the first ranks. The two are
// deliberately distinct.
func (p *Parameters) PartitionPolicy() parallel.RemainderPolicy {
	if p.ProblemType() == types.P_ECT {
		return parallel.LastRankRemainder
	}
	return parallel.SpreadRemainder
}

func (p *Parameters) activeModels() (mps []*ModelParameters) {
	switch p.ProblemType() {
	case types.P_ECT:
		if p.ECT != nil {
			mps = append(mps, &p.ECT.ModelParameters)
		}
	case types.P_Gravity:
		if p.Gravity != nil {
			mps = append(mps, &p.Gravity.ModelParameters)
		}
	case types.P_Magnetic:
		if p.Magnetic != nil {
			mps = append(mps, &p.Magnetic.ModelParameters)
		}
	case types.P_Joint:
		if p.Gravity != nil {
			mps = append(mps, &p.Gravity.ModelParameters)
		}
		if p.Magnetic != nil {
			mps = append(mps, &p.Magnetic.ModelParameters)
		}
	}
	return
}

// Validate checks the whole parameter set before any rank starts computing.
// Every failure is a ConfigurationError; nothing downstream re-validates.
func (p *Parameters) Validate(nRanks int) error {
	pt := p.ProblemType()
	if pt == types.P_None {
		return &types.ConfigurationError{
			Param: "Problem", Value: p.Problem,
			Msg: "unknown problem type (want ect, gravity, magnetic or joint)",
		}
	}
	mps := p.activeModels()
	switch {
	case pt == types.P_Joint && len(mps) != 2:
		return &types.ConfigurationError{
			Param: "Problem", Value: p.Problem,
			Msg: "joint inversion requires both Gravity and Magnetic sections",
		}
	case pt != types.P_Joint && len(mps) != 1:
		return &types.ConfigurationError{
			Param: "Problem", Value: p.Problem,
			Msg: "missing the parameter section for the selected problem",
		}
	}
	if pt == types.P_ECT && p.ECT.NElectrodes < 2 {
		return &types.ConfigurationError{
			Param: "NElectrodes", Value: p.ECT.NElectrodes,
			Msg: "capacitance tomography needs at least two electrodes",
		}
	}
	for _, mp := range mps {
		if err := mp.validate(nRanks); err != nil {
			return err
		}
	}
	return nil
}

func (mp *ModelParameters) validate(nRanks int) error {
	if mp.Nx < 1 || mp.Ny < 1 || mp.Nz < 1 {
		return &types.ConfigurationError{
			Param: "Nx/Ny/Nz", Value: fmt.Sprintf("%d/%d/%d", mp.Nx, mp.Ny, mp.Nz),
			Msg: "grid dimensions must be positive",
		}
	}
	if mp.Dx <= 0 || mp.Dy <= 0 || mp.Dz <= 0 {
		return &types.ConfigurationError{
			Param: "Dx/Dy/Dz", Value: fmt.Sprintf("%g/%g/%g", mp.Dx, mp.Dy, mp.Dz),
			Msg: "cell sizes must be positive",
		}
	}
	switch types.DepthWeightingType(mp.DepthWeightingType) {
	case types.DW_EmpiricalDepth, types.DW_SensitivityBelowData, types.DW_IntegratedSensitivity:
	default:
		return &types.ConfigurationError{
			Param: "DepthWeightingType", Value: mp.DepthWeightingType,
			Msg: "unknown depth weighting type (want 1, 2 or 3)",
		}
	}
	if mp.NElements() < nRanks {
		return &types.ConfigurationError{
			Param: "nelements", Value: mp.NElements(),
			Msg: fmt.Sprintf("fewer elements than ranks (%d)", nRanks),
		}
	}
	if mp.MaxIterations < 1 {
		return &types.ConfigurationError{
			Param: "MaxIterations", Value: mp.MaxIterations,
			Msg: "at least one solver iteration is required",
		}
	}
	return nil
}
