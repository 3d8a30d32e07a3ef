package inversion

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/invgeo/tomograd/grid"
)

// WriteModel gathers the full model vector (a collective: every rank must
// call) and writes "x y z value" lines from rank 0 in global element order.
// Other ranks gather and return without writing.
func (a *Arrays) WriteModel(g grid.Grid, path string) error {
	full, err := a.GatherModel()
	if err != nil {
		return err
	}
	if a.Comm.Rank() != 0 {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeModel(f, g, full)
}

func writeModel(w io.Writer, g grid.Grid, full []float64) error {
	bw := bufio.NewWriter(w)
	for e, v := range full {
		x, y, z := g.Center(e)
		fmt.Fprintf(bw, "%g %g %g %g\n", x, y, z, v)
	}
	return bw.Flush()
}
