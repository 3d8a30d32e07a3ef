package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndexRoundTrip(t *testing.T) {
	g := Grid{Nx: 4, Ny: 3, Nz: 5, Dx: 1, Dy: 2, Dz: 0.5}
	for e := 0; e < g.NElements(); e++ {
		i, j, k := g.Indices(e)
		assert.Equal(t, e, i+g.Nx*(j+g.Ny*k))
	}
}

func TestVerticalCenter(t *testing.T) {
	g := Grid{Nx: 2, Ny: 2, Nz: 3, Dx: 1, Dy: 1, Dz: 10, Zmin: 0}
	// First layer of 4 cells at depth 5, second at 15, third at 25
	assert.Equal(t, 5., g.VerticalCenter(0))
	assert.Equal(t, 5., g.VerticalCenter(3))
	assert.Equal(t, 15., g.VerticalCenter(4))
	assert.Equal(t, 25., g.VerticalCenter(11))

	v := LocalView{Grid: g, Offset: 4, Count: 4}
	assert.Equal(t, 15., v.VerticalCenter(0))
}

func TestSurfaceDataCoversColumns(t *testing.T) {
	g := Grid{Nx: 3, Ny: 2, Nz: 4, Dx: 2, Dy: 3, Dz: 1}
	data := g.SurfaceData()
	assert.Equal(t, 6, len(data))
	for e := 0; e < g.NElements(); e++ {
		x1, x2, y1, y2 := g.CellBounds(e)
		covering := 0
		for _, d := range data {
			if d.Covers(x1, x2, y1, y2) {
				covering++
			}
		}
		assert.Equal(t, 1, covering) // exactly one footprint per column
	}
}
