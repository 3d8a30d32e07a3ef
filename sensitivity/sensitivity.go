// Package sensitivity stores each rank's column block of the sensitivity
// matrix (nData rows by nLocal columns, one column per locally owned
// element) and builds first-order forward kernels for the supported problem
// types. Storage is either dense (gonum) or sparse CSR for kernels whose
// entries decay quickly enough to truncate.
package sensitivity

import (
	"fmt"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a rank-local sensitivity block. Columns are read-only to
// consumers; the weighting engine and the solver never mutate them.
type Matrix interface {
	Dims() (nData, nLocal int)
	NData() int

	// Column returns element i's sensitivity column, length NData().
	Column(i int) []float64

	// MulVec overwrites y (length nData) with S*x (x length nLocal).
	MulVec(y, x []float64)

	// MulVecT overwrites x (length nLocal) with Sᵀ*y (y length nData).
	MulVecT(x, y []float64)
}

// Dense wraps a gonum dense block.
type Dense struct {
	M *mat.Dense
}

func NewDense(nData, nLocal int) *Dense {
	return &Dense{M: mat.NewDense(nData, nLocal, nil)}
}

func (s *Dense) Dims() (nData, nLocal int) { return s.M.Dims() }

func (s *Dense) NData() (nData int) {
	nData, _ = s.M.Dims()
	return
}

func (s *Dense) Column(i int) (col []float64) {
	return mat.Col(nil, i, s.M)
}

func (s *Dense) MulVec(y, x []float64) {
	var (
		nData, nLocal = s.M.Dims()
	)
	checkDims(len(y), len(x), nData, nLocal)
	yv := mat.NewVecDense(nData, y)
	yv.MulVec(s.M, mat.NewVecDense(nLocal, x))
}

func (s *Dense) MulVecT(x, y []float64) {
	var (
		nData, nLocal = s.M.Dims()
	)
	checkDims(len(y), len(x), nData, nLocal)
	xv := mat.NewVecDense(nLocal, x)
	xv.MulVec(s.M.T(), mat.NewVecDense(nData, y))
}

// CSR wraps a compressed sparse row block for truncated kernels.
type CSR struct {
	M           *sparse.CSR
	nData, nLoc int
}

// NewCSR sparsifies a dense block, dropping entries with absolute value at
// or below tol.
func NewCSR(d *Dense, tol float64) *CSR {
	var (
		nData, nLocal = d.M.Dims()
		dok           = sparse.NewDOK(nData, nLocal)
	)
	for r := 0; r < nData; r++ {
		for c := 0; c < nLocal; c++ {
			if v := d.M.At(r, c); v > tol || v < -tol {
				dok.Set(r, c, v)
			}
		}
	}
	return &CSR{M: dok.ToCSR(), nData: nData, nLoc: nLocal}
}

func (s *CSR) Dims() (nData, nLocal int) { return s.nData, s.nLoc }
func (s *CSR) NData() int                { return s.nData }

func (s *CSR) Column(i int) (col []float64) {
	col = make([]float64, s.nData)
	for r := 0; r < s.nData; r++ {
		col[r] = s.M.At(r, i)
	}
	return
}

func (s *CSR) MulVec(y, x []float64) {
	checkDims(len(y), len(x), s.nData, s.nLoc)
	for i := range y {
		y[i] = 0
	}
	s.M.DoNonZero(func(r, c int, v float64) {
		y[r] += v * x[c]
	})
}

func (s *CSR) MulVecT(x, y []float64) {
	checkDims(len(y), len(x), s.nData, s.nLoc)
	for i := range x {
		x[i] = 0
	}
	s.M.DoNonZero(func(r, c int, v float64) {
		x[c] += v * y[r]
	})
}

func checkDims(ny, nx, nData, nLocal int) {
	if ny != nData || nx != nLocal {
		panic(fmt.Sprintf("sensitivity dims %dx%d, vectors %d/%d", nData, nLocal, ny, nx))
	}
}
