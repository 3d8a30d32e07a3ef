package inversion

import (
	"fmt"
	"math"

	"github.com/invgeo/tomograd/InversionParameters"
	"github.com/invgeo/tomograd/grid"
	"github.com/invgeo/tomograd/parallel"
	"github.com/invgeo/tomograd/sensitivity"
	"github.com/invgeo/tomograd/types"
	"github.com/invgeo/tomograd/weights"
)

// Method bundles everything one inversion method (gravity, magnetic or ECT)
// needs on one rank: partition, local grid view, sensitivity block, weight
// engine and the model arrays.
type Method struct {
	Name   string
	Grid   grid.Grid
	PM     *parallel.PartitionMap
	View   grid.LocalView
	Sens   sensitivity.Matrix
	Arrays *Arrays

	Damping float64
	MaxIter int
	Tol     float64
}

// NewMethod partitions the method's element space, builds the rank-local
// sensitivity block with kernel, and computes the weights. The partition and
// weight computation follow the configured policy and weighting type.
func NewMethod(c parallel.Communicator, name string, mp *InversionParameters.ModelParameters,
	policy parallel.RemainderPolicy,
	kernel func(view grid.LocalView, g grid.Grid) (sensitivity.Matrix, []grid.DataPoint)) (m *Method, err error) {

	g := grid.Grid{
		Nx: mp.Nx, Ny: mp.Ny, Nz: mp.Nz,
		Dx: mp.Dx, Dy: mp.Dy, Dz: mp.Dz,
		Zmin: mp.Zmin,
	}
	pm, err := parallel.NewPartitionMapStrict(policy, c.Size(), g.NElements())
	if err != nil {
		return
	}
	start, end := pm.RankRange(c.Rank())
	view := grid.LocalView{Grid: g, Offset: start, Count: end - start}

	sens, data := kernel(view, g)
	if mp.SparseTolerance > 0 {
		if dense, ok := sens.(*sensitivity.Dense); ok {
			sens = sensitivity.NewCSR(dense, mp.SparseTolerance)
		}
	}

	we := weights.NewEngine(c, view, types.DepthWeightingType(mp.DepthWeightingType), mp.Beta, mp.Z0)
	if err = we.Compute(view.Count, sens, data); err != nil {
		return
	}

	m = &Method{
		Name: name, Grid: g, PM: pm, View: view, Sens: sens,
		Arrays:  NewArrays(c, pm, we),
		Damping: mp.Damping, MaxIter: mp.MaxIterations, Tol: mp.Tolerance,
	}
	return
}

// GravityMethod, MagneticMethod and ECTMethod wire the problem-specific
// kernels. The gravity/magnetic family spreads the partition remainder; the
// ECT family concentrates it on the last rank.

func GravityMethod(c parallel.Communicator, mp *InversionParameters.GravityParameters) (*Method, error) {
	return NewMethod(c, "gravity", &mp.ModelParameters, parallel.SpreadRemainder,
		func(view grid.LocalView, g grid.Grid) (sensitivity.Matrix, []grid.DataPoint) {
			data := g.SurfaceData()
			return sensitivity.GravityKernel(view, data), data
		})
}

func MagneticMethod(c parallel.Communicator, mp *InversionParameters.MagneticParameters) (*Method, error) {
	return NewMethod(c, "magnetic", &mp.ModelParameters, parallel.SpreadRemainder,
		func(view grid.LocalView, g grid.Grid) (sensitivity.Matrix, []grid.DataPoint) {
			data := g.SurfaceData()
			return sensitivity.MagneticKernel(view, data), data
		})
}

func ECTMethod(c parallel.Communicator, mp *InversionParameters.ECTParameters) (*Method, error) {
	return NewMethod(c, "ect", &mp.ModelParameters, parallel.LastRankRemainder,
		func(view grid.LocalView, g grid.Grid) (sensitivity.Matrix, []grid.DataPoint) {
			return sensitivity.CapacitanceKernel(view, ElectrodeRing(g, mp.NElectrodes)), nil
		})
}

// ElectrodeRing places ne electrodes on a circle at the model surface,
// centered on the grid, radius half the smaller horizontal extent.
func ElectrodeRing(g grid.Grid, ne int) (electrodes []grid.DataPoint) {
	var (
		cx     = g.Xmin + 0.5*float64(g.Nx)*g.Dx
		cy     = g.Ymin + 0.5*float64(g.Ny)*g.Dy
		radius = 0.5 * math.Min(float64(g.Nx)*g.Dx, float64(g.Ny)*g.Dy)
	)
	electrodes = make([]grid.DataPoint, ne)
	for k := 0; k < ne; k++ {
		theta := 2 * math.Pi * float64(k) / float64(ne)
		electrodes[k] = grid.DataPoint{
			X: cx + radius*math.Cos(theta),
			Y: cy + radius*math.Sin(theta),
		}
	}
	return
}

// SyntheticBlockModel writes a unit-contrast block spanning the central half
// of the grid in each dimension into the rank's local model slice. Used to
// manufacture observed data for demonstration runs and tests.
func SyntheticBlockModel(view grid.LocalView) (mLocal []float64) {
	var (
		g = view.Grid
	)
	mLocal = make([]float64, view.Count)
	for i := 0; i < view.Count; i++ {
		ci, cj, ck := g.Indices(view.Offset + i)
		if insideCentralHalf(ci, g.Nx) && insideCentralHalf(cj, g.Ny) && insideCentralHalf(ck, g.Nz) {
			mLocal[i] = 1
		}
	}
	return
}

func insideCentralHalf(i, n int) bool {
	return i >= n/4 && i < n-n/4
}

// RunMethod inverts synthetic observations of the central-block model with
// the given method and returns the solver stats. The recovered model stays
// in m.Arrays.Model.
func RunMethod(c parallel.Communicator, m *Method) (stats SolverStats, err error) {
	truth := SyntheticBlockModel(m.View)
	d, err := Forward(c, m.Sens, truth)
	if err != nil {
		return
	}
	return m.Arrays.Solve(m.Sens, d, m.Damping, m.MaxIter, m.Tol)
}

// RunJoint alternates gravity and magnetic passes. Before each pass the
// weights are recomputed and the pass's prior is reset to its current model,
// so each method is damped toward where the previous passes left it.
func RunJoint(c parallel.Communicator, gravity, magnetic *Method, nPasses int) (stats []SolverStats, err error) {
	if nPasses < 1 {
		nPasses = 1
	}
	methods := []*Method{gravity, magnetic}
	for pass := 0; pass < nPasses; pass++ {
		for _, m := range methods {
			copy(m.Arrays.Prior, m.Arrays.Model)
			if err = m.Arrays.WE.Compute(m.View.Count, m.Sens, nil); err != nil {
				return
			}
			var st SolverStats
			if st, err = RunMethod(c, m); err != nil {
				return
			}
			stats = append(stats, st)
			if c.Rank() == 0 {
				fmt.Printf("pass %d %s: %d iterations, residual %.3e -> %.3e\n",
					pass+1, m.Name, st.Iterations, st.InitialResidual, st.FinalResidual)
			}
		}
	}
	return
}
