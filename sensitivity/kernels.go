package sensitivity

import (
	"math"

	"github.com/invgeo/tomograd/grid"
)

// First-order forward kernels. Each column is the response at every data
// point to a unit property perturbation in one locally owned cell. The cell
// is collapsed to its center (point-source approximation); detailed kernel
// physics is outside this system's scope.

const gravConst = 6.674e-11

// GravityKernel fills the vertical-attraction response of each local cell at
// each surface data point, per unit density contrast.
func GravityKernel(view grid.LocalView, data []grid.DataPoint) (s *Dense) {
	var (
		vol = view.CellVolume()
	)
	s = NewDense(len(data), view.Count)
	for i := 0; i < view.Count; i++ {
		x, y, z := view.Center(i)
		for d, pt := range data {
			var (
				dx = x - pt.X
				dy = y - pt.Y
				r2 = dx*dx + dy*dy + z*z
				r  = math.Sqrt(r2)
			)
			s.M.Set(d, i, gravConst*vol*z/(r2*r))
		}
	}
	return
}

// MagneticKernel uses a dipole-amplitude falloff per unit susceptibility;
// the induced field geometry is reduced to its vertical amplitude.
func MagneticKernel(view grid.LocalView, data []grid.DataPoint) (s *Dense) {
	var (
		vol = view.CellVolume()
	)
	s = NewDense(len(data), view.Count)
	for i := 0; i < view.Count; i++ {
		x, y, z := view.Center(i)
		for d, pt := range data {
			var (
				dx = x - pt.X
				dy = y - pt.Y
				r2 = dx*dx + dy*dy + z*z
			)
			s.M.Set(d, i, vol*z/(r2*r2))
		}
	}
	return
}

// CapacitanceKernel builds the ECT block: one data row per electrode pair,
// each entry the product of inverse squared distances from the cell to both
// electrodes of the pair (the sensitivity of that pair's capacitance to a
// permittivity perturbation in the cell, to first order).
func CapacitanceKernel(view grid.LocalView, electrodes []grid.DataPoint) (s *Dense) {
	var (
		ne    = len(electrodes)
		nData = ne * (ne - 1) / 2
		vol   = view.CellVolume()
	)
	s = NewDense(nData, view.Count)
	for i := 0; i < view.Count; i++ {
		x, y, z := view.Center(i)
		d := 0
		for a := 0; a < ne; a++ {
			for b := a + 1; b < ne; b++ {
				var (
					ra = distSq(x, y, z, electrodes[a])
					rb = distSq(x, y, z, electrodes[b])
				)
				s.M.Set(d, i, vol/(ra*rb))
				d++
			}
		}
	}
	return
}

func distSq(x, y, z float64, p grid.DataPoint) float64 {
	var (
		dx = x - p.X
		dy = y - p.Y
	)
	return dx*dx + dy*dy + z*z
}

// NPairs returns the data count of a CapacitanceKernel with ne electrodes.
func NPairs(ne int) int { return ne * (ne - 1) / 2 }
