// Package grid models the regular 3D cell grid an inversion discretizes its
// volume into, plus the surface observation layout. Geometry is read-only
// input to the weighting and forward-kernel code.
package grid

// Grid is a regular block of Nx*Ny*Nz cells. X varies fastest in the global
// element ordering, then Y, then Z; depth increases with Z from Zmin at the
// top of the model.
type Grid struct {
	Nx, Ny, Nz int
	Dx, Dy, Dz float64
	Xmin, Ymin float64
	Zmin       float64 // depth of the top of the model, positive down
}

func (g Grid) NElements() int { return g.Nx * g.Ny * g.Nz }

func (g Grid) CellVolume() float64 { return g.Dx * g.Dy * g.Dz }

// Indices decomposes global element index e into (i, j, k) cell indices.
func (g Grid) Indices(e int) (i, j, k int) {
	i = e % g.Nx
	j = (e / g.Nx) % g.Ny
	k = e / (g.Nx * g.Ny)
	return
}

// Center returns the cell's center coordinates; z is depth, positive down.
func (g Grid) Center(e int) (x, y, z float64) {
	i, j, k := g.Indices(e)
	x = g.Xmin + (float64(i)+0.5)*g.Dx
	y = g.Ymin + (float64(j)+0.5)*g.Dy
	z = g.Zmin + (float64(k)+0.5)*g.Dz
	return
}

// VerticalCenter returns the midpoint depth of element e's cell.
func (g Grid) VerticalCenter(e int) (depth float64) {
	_, _, depth = g.Center(e)
	return
}

// CellBounds returns element e's horizontal footprint.
func (g Grid) CellBounds(e int) (x1, x2, y1, y2 float64) {
	i, j, _ := g.Indices(e)
	x1 = g.Xmin + float64(i)*g.Dx
	x2 = x1 + g.Dx
	y1 = g.Ymin + float64(j)*g.Dy
	y2 = y1 + g.Dy
	return
}

// LocalView adapts the contiguous global range [offset, offset+count) owned
// by one rank, exposing local element indices 0..count-1.
type LocalView struct {
	Grid
	Offset int
	Count  int
}

func (v LocalView) VerticalCenter(i int) float64 { return v.Grid.VerticalCenter(v.Offset + i) }

func (v LocalView) CellBounds(i int) (x1, x2, y1, y2 float64) {
	return v.Grid.CellBounds(v.Offset + i)
}

func (v LocalView) Center(i int) (x, y, z float64) { return v.Grid.Center(v.Offset + i) }

// DataPoint is one surface observation with the horizontal footprint
// rectangle it is responsible for.
type DataPoint struct {
	X, Y           float64
	X1, X2, Y1, Y2 float64
}

// Covers reports whether the point's footprint contains the cell bounds.
func (d DataPoint) Covers(x1, x2, y1, y2 float64) bool {
	return d.X1 <= x1 && x2 <= d.X2 && d.Y1 <= y1 && y2 <= d.Y2
}

// SurfaceData lays one observation point above each column of cells, its
// footprint the column's horizontal extent. The scan runs X fastest to match
// the element ordering.
func (g Grid) SurfaceData() (data []DataPoint) {
	data = make([]DataPoint, 0, g.Nx*g.Ny)
	for j := 0; j < g.Ny; j++ {
		for i := 0; i < g.Nx; i++ {
			var (
				x1 = g.Xmin + float64(i)*g.Dx
				y1 = g.Ymin + float64(j)*g.Dy
			)
			data = append(data, DataPoint{
				X: x1 + 0.5*g.Dx, Y: y1 + 0.5*g.Dy,
				X1: x1, X2: x1 + g.Dx,
				Y1: y1, Y2: y1 + g.Dy,
			})
		}
	}
	return
}
