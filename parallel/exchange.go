package parallel

import (
	"fmt"

	"github.com/invgeo/tomograd/types"
)

// TotalCount returns the sum of localCount over all ranks; every rank
// receives the identical total.
func TotalCount(c Communicator, localCount int) (total int, err error) {
	sum, err := c.AllReduceSum(float64(localCount))
	if err != nil {
		return
	}
	total = int(sum)
	return
}

// RankOffsets converts per-rank counts to each rank's starting offset in the
// assembled global array (prefix sums in rank order) plus the grand total.
func RankOffsets(counts []int) (offsets []int, total int) {
	offsets = make([]int, len(counts))
	for n, count := range counts {
		offsets[n] = total
		total += count
	}
	return
}

// GatherFullArray assembles the full, globally ordered array from every
// rank's contiguous local slice and returns it on every rank (a
// broadcast-gather, not a gather-to-root). Rank 0's elements occupy the
// first block of the result, rank 1's the next, and so on: for any global
// index the assembled value is exactly the unique local contribution that
// produced it, independent of timing.
//
// With inPlace == false, local holds the rank's slice and global may be nil
// (allocated to the total size); the caller's own block is copied into place
// along with the other ranks'. With inPlace == true, global must be
// pre-allocated at the total size with the caller's own slice already
// resident at its offset; only the other ranks' blocks are written, and
// local is the caller's view into that region.
//
// A mismatch between the gathered counts and the supplied global buffer
// means the partitioning invariant was violated; that is a fatal
// ConfigurationError, not a recoverable condition.
func GatherFullArray(c Communicator, local, global []float64, inPlace bool) ([]float64, error) {
	parts, err := c.AllGatherV(local)
	if err != nil {
		return nil, err
	}
	counts := make([]int, len(parts))
	for n, p := range parts {
		counts[n] = len(p)
	}
	offsets, total := RankOffsets(counts)

	if global == nil {
		if inPlace {
			return nil, &types.ConfigurationError{
				Param: "in_place", Value: true,
				Msg: "in-place gather requires a pre-allocated global buffer",
			}
		}
		global = make([]float64, total)
	}
	if len(global) != total {
		return nil, &types.ConfigurationError{
			Param: "global buffer", Value: len(global),
			Msg: fmt.Sprintf("rank counts sum to %d, disagreeing with the supplied buffer", total),
		}
	}
	for n, p := range parts {
		if inPlace && n == c.Rank() {
			continue // own slice already resident at its offset
		}
		copy(global[offsets[n]:offsets[n]+counts[n]], p)
	}
	return global, nil
}
