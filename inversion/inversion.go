// Package inversion holds the per-rank inversion context and the damped
// conjugate-gradient least-squares solver operating on the reweighted system
// [S W^-1; alpha I] u = [r; 0] with u = W dm, the change of variables that
// puts the data misfit and the damping toward the prior on a comparable
// numerical scale.
package inversion

import (
	"fmt"

	"github.com/invgeo/tomograd/parallel"
	"github.com/invgeo/tomograd/sensitivity"
	"github.com/invgeo/tomograd/weights"
	"gonum.org/v1/gonum/floats"
)

// Arrays is one rank's inversion state: the local slice of the model vector
// plus the weight engine that owns the damping and column weights. Model
// ordering follows the global element order restricted to the rank's range.
type Arrays struct {
	Comm parallel.Communicator
	PM   *parallel.PartitionMap

	Model []float64 // local slice of the current model
	Prior []float64 // local slice of the prior (reference) model
	WE    *weights.Engine
}

func NewArrays(c parallel.Communicator, pm *parallel.PartitionMap, we *weights.Engine) (a *Arrays) {
	var (
		nLocal = pm.RankCount(c.Rank())
	)
	return &Arrays{
		Comm:  c,
		PM:    pm,
		Model: make([]float64, nLocal),
		Prior: make([]float64, nLocal),
		WE:    we,
	}
}

// GatherModel assembles the full model vector identically on every rank.
func (a *Arrays) GatherModel() ([]float64, error) {
	return parallel.GatherFullArray(a.Comm, a.Model, nil, false)
}

// Forward computes the predicted data S*m for the distributed model: each
// rank's column-block product, reduced over all ranks. The result is
// replicated identically everywhere.
func Forward(c parallel.Communicator, s sensitivity.Matrix, mLocal []float64) ([]float64, error) {
	y := make([]float64, s.NData())
	s.MulVec(y, mLocal)
	if err := c.AllReduceSumVec(y); err != nil {
		return nil, err
	}
	return y, nil
}

// SolverStats reports a completed solve.
type SolverStats struct {
	Iterations      int
	InitialResidual float64
	FinalResidual   float64
}

// Solve runs damped CGLS against observed data d (replicated on all ranks)
// and updates the local model in place. Damping alpha pulls u = W(m - prior)
// toward zero, i.e. the model toward the prior. Data-space vectors are
// replicated on every rank; model-space vectors are distributed, and every
// model-space dot product is a deterministic collective, so all ranks walk
// identical iterates.
func (a *Arrays) Solve(s sensitivity.Matrix, d []float64, alpha float64, maxIter int, tol float64) (stats SolverStats, err error) {
	var (
		c      = a.Comm
		nLocal = len(a.Model)
		nData  = s.NData()
		cw     = a.WE.Column
	)
	if len(cw) != nLocal {
		panic(fmt.Sprintf("column weights %d, local model %d", len(cw), nLocal))
	}

	// A p = S (cw .* p), reduced over ranks.
	applyA := func(p []float64) ([]float64, error) {
		scaled := make([]float64, nLocal)
		for i := range scaled {
			scaled[i] = cw[i] * p[i]
		}
		return Forward(c, s, scaled)
	}
	// Aᵀ r = cw .* (Sᵀ r), purely local.
	applyAT := func(r []float64) []float64 {
		x := make([]float64, nLocal)
		s.MulVecT(x, r)
		for i := range x {
			x[i] *= cw[i]
		}
		return x
	}
	modelDot := func(x, y []float64) (dot float64, err error) {
		return c.AllReduceSum(floats.Dot(x, y))
	}

	// Residual of the current model
	pred, err := Forward(c, s, a.Model)
	if err != nil {
		return
	}
	r := make([]float64, nData)
	for i := range r {
		r[i] = d[i] - pred[i]
	}
	stats.InitialResidual = floats.Norm(r, 2)
	stats.FinalResidual = stats.InitialResidual

	var (
		u  = make([]float64, nLocal) // u = W (m - prior), starts at W(m-prior)
		sv []float64                 // gradient Aᵀr - alpha² u
		p  []float64
	)
	for i := range u {
		u[i] = a.WE.Damping[i] * (a.Model[i] - a.Prior[i])
	}

	sv = applyAT(r)
	for i := range sv {
		sv[i] -= alpha * alpha * u[i]
	}
	p = append([]float64(nil), sv...)

	gamma, err := modelDot(sv, sv)
	if err != nil {
		return
	}

	for it := 0; it < maxIter; it++ {
		stats.Iterations = it + 1
		q, ferr := applyA(p)
		if ferr != nil {
			err = ferr
			return
		}
		pp, derr := modelDot(p, p)
		if derr != nil {
			err = derr
			return
		}
		delta := floats.Dot(q, q) + alpha*alpha*pp
		if delta == 0 {
			break
		}
		step := gamma / delta
		for i := range u {
			u[i] += step * p[i]
		}
		for i := range r {
			r[i] -= step * q[i]
		}

		sv = applyAT(r)
		for i := range sv {
			sv[i] -= alpha * alpha * u[i]
		}
		gammaNew, derr := modelDot(sv, sv)
		if derr != nil {
			err = derr
			return
		}
		stats.FinalResidual = floats.Norm(r, 2)
		if gamma == 0 {
			break
		}
		beta := gammaNew / gamma
		gamma = gammaNew
		for i := range p {
			p[i] = sv[i] + beta*p[i]
		}
		if stats.InitialResidual > 0 && stats.FinalResidual/stats.InitialResidual < tol {
			break
		}
	}

	// Undo the change of variables: m = prior + W^-1 u
	for i := range a.Model {
		a.Model[i] = a.Prior[i] + cw[i]*u[i]
	}
	return
}
