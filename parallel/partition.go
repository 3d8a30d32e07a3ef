package parallel

import (
	"fmt"

	"github.com/invgeo/tomograd/types"
)

// RemainderPolicy selects where the remainder elements of an uneven split
// land. The two inversion families use different policies; they are kept
// distinct and explicitly chosen per call site.
type RemainderPolicy uint8

const (
	// SpreadRemainder gives one extra element to each of the first
	// (nElements mod nRanks) ranks, for a maximum imbalance of one.
	// Used by the gravity/magnetic partition.
	SpreadRemainder RemainderPolicy = iota
	// LastRankRemainder gives every rank the base quotient and appends the
	// whole remainder to the last rank. Used by the ECT partition, where the
	// remainder is a single extra unit from an odd node count.
	LastRankRemainder
)

// ElementsForRank returns how many elements rank owns under the given
// policy. Pure function, no communication.
func ElementsForRank(nElements, rank, nRanks int, policy RemainderPolicy) (localCount int) {
	var (
		q = nElements / nRanks
		r = nElements % nRanks
	)
	localCount = q
	switch policy {
	case SpreadRemainder:
		if rank < r {
			localCount++
		}
	case LastRankRemainder:
		if rank == nRanks-1 {
			localCount += r
		}
	}
	return
}

// PartitionMap assigns the global element index space [0, NElements) to
// NRanks ranks as contiguous, order-preserving ranges. Built once per run
// after configuration is fixed; immutable thereafter.
type PartitionMap struct {
	NElements int
	NRanks    int
	Policy    RemainderPolicy
	Ranges    [][2]int // half-open [start, end) global range per rank
}

func NewPartitionMap(policy RemainderPolicy, nRanks, nElements int) (pm *PartitionMap) {
	pm = &PartitionMap{
		NElements: nElements,
		NRanks:    nRanks,
		Policy:    policy,
		Ranges:    make([][2]int, nRanks),
	}
	start := 0
	for n := 0; n < nRanks; n++ {
		count := ElementsForRank(nElements, n, nRanks, policy)
		pm.Ranges[n] = [2]int{start, start + count}
		start += count
	}
	return
}

// NewPartitionMapStrict additionally requires every rank to own at least one
// element, failing with a ConfigurationError otherwise. Use the plain
// constructor where empty ranks are acceptable.
func NewPartitionMapStrict(policy RemainderPolicy, nRanks, nElements int) (pm *PartitionMap, err error) {
	if nElements < nRanks {
		err = &types.ConfigurationError{
			Param: "nelements", Value: nElements,
			Msg: fmt.Sprintf("fewer elements than ranks (%d), some rank would own zero elements", nRanks),
		}
		return
	}
	pm = NewPartitionMap(policy, nRanks, nElements)
	return
}

// RankRange returns rank's half-open global index range.
func (pm *PartitionMap) RankRange(rank int) (start, end int) {
	start, end = pm.Ranges[rank][0], pm.Ranges[rank][1]
	return
}

// RankCount returns how many elements rank owns. rank == -1 addresses the
// whole (unpartitioned) index space.
func (pm *PartitionMap) RankCount(rank int) (count int) {
	if rank == -1 {
		return pm.NElements
	}
	start, end := pm.RankRange(rank)
	return end - start
}

// RankOf locates the rank owning global element g, starting from a
// proportional guess and walking at most a step or two for either policy.
func (pm *PartitionMap) RankOf(g int) (rank int) {
	if g < 0 || g >= pm.NElements {
		panic(fmt.Sprintf("global element %d outside partition of %d elements", g, pm.NElements))
	}
	rank = int(float64(pm.NRanks*g) / float64(pm.NElements))
	if rank >= pm.NRanks {
		rank = pm.NRanks - 1
	}
	for !(pm.Ranges[rank][0] <= g && g < pm.Ranges[rank][1]) {
		if pm.Ranges[rank][0] > g {
			rank--
		} else {
			rank++
		}
		if rank < 0 || rank >= pm.NRanks {
			panic(fmt.Sprintf("global element %d outside partition of %d elements", g, pm.NElements))
		}
	}
	return
}

// GlobalIndex converts rank-local element index i to the global index.
func (pm *PartitionMap) GlobalIndex(i, rank int) (g int) {
	return pm.Ranges[rank][0] + i
}

// LocalIndex converts global element index g to (rank, local index).
func (pm *PartitionMap) LocalIndex(g int) (rank, i int) {
	rank = pm.RankOf(g)
	i = g - pm.Ranges[rank][0]
	return
}
