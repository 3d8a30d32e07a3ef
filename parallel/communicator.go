// Package parallel provides the distributed-memory machinery under the
// inversion solver: the collective-communication abstraction, the in-process
// rank group used for testing and shared-memory runs, the element partition
// map, and the global array exchange.
//
// All cross-rank coordination is via blocking collectives; there are no
// point-to-point messages in this core. A collective either returns the same
// logical result on every rank or the whole run is aborted.
package parallel

import "fmt"

// Communicator is the transport seen by the partition and weighting logic.
// Ranks are numbered 0 <= Rank() < Size(). Every method except Rank, Size
// and Abort is a synchronization barrier: all ranks must reach the call
// before any proceeds.
//
// When Size() == 1 every collective degenerates to a local computation with
// no communication.
type Communicator interface {
	Rank() int
	Size() int

	// Bcast overwrites vals on every rank with root's contents.
	Bcast(vals []float64, root int) error

	// AllReduceSum returns the sum of x over all ranks, identical everywhere.
	// The reduction order is fixed (ascending rank) so the result is
	// bit-identical on every rank.
	AllReduceSum(x float64) (float64, error)

	// AllReduceSumVec sums vals elementwise over all ranks, in place.
	// Every rank must supply the same length.
	AllReduceSumVec(vals []float64) error

	// AllReduceMax returns the maximum of x over all ranks.
	AllReduceMax(x float64) (float64, error)

	// AllGatherV gathers every rank's local slice; parts[r] holds rank r's
	// contribution on every rank. Lengths may differ per rank.
	AllGatherV(local []float64) (parts [][]float64, err error)

	// Abort terminates the whole run: every rank blocked in a collective is
	// unblocked with an AbortError wrapping err. Fail-fast, no recovery.
	Abort(err error)
}

// AbortError is what a rank blocked in a collective receives when another
// rank aborts the run.
type AbortError struct {
	Rank int // rank that called Abort
	Err  error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("run aborted by rank %d: %v", e.Rank, e.Err)
}

func (e *AbortError) Unwrap() error { return e.Err }
