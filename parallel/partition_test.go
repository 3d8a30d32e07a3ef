package parallel

import (
	"math"
	"testing"

	"github.com/invgeo/tomograd/types"
	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	getHisto := func(policy RemainderPolicy, nElements, nRanks int) (histo map[int]int) {
		pm := NewPartitionMap(policy, nRanks, nElements)
		histo = make(map[int]int)
		for n := 0; n < pm.NRanks; n++ {
			histo[pm.RankCount(n)]++
		}
		return
	}
	getTotal := func(histo map[int]int) (total int) {
		for key, count := range histo {
			total += key * count
		}
		return
	}
	{ // Spread policy: imbalance of at most one, sum preserved
		assert.Equal(t, map[int]int{0: 30, 1: 2}, getHisto(SpreadRemainder, 2, 32))
		assert.Equal(t, map[int]int{1: 32}, getHisto(SpreadRemainder, 32, 32))
		assert.Equal(t, map[int]int{8: 32}, getHisto(SpreadRemainder, 256, 32))
		assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(SpreadRemainder, 287, 32))
		for n := 0; n < 4000; n++ {
			var (
				keys   [2]float64
				keyNum int
			)
			histo := getHisto(SpreadRemainder, n, 32)
			for key := range histo {
				keys[keyNum] = float64(key)
				keyNum++
			}
			if keyNum == 2 {
				assert.Equal(t, 1., math.Abs(keys[0]-keys[1]))
			}
			assert.Equal(t, n, getTotal(histo))
		}
	}
	{ // Last-rank policy: base quotient everywhere, remainder on the last rank
		assert.Equal(t, map[int]int{8: 31, 9: 1}, getHisto(LastRankRemainder, 257, 32))
		assert.Equal(t, map[int]int{8: 32}, getHisto(LastRankRemainder, 256, 32))
		for n := 0; n < 4000; n++ {
			for _, nRanks := range []int{1, 2, 3, 5, 32} {
				histo := getHisto(LastRankRemainder, n, nRanks)
				assert.Equal(t, n, getTotal(histo))
				q := n / nRanks
				pm := NewPartitionMap(LastRankRemainder, nRanks, n)
				for rank := 0; rank < nRanks-1; rank++ {
					assert.Equal(t, q, pm.RankCount(rank))
				}
				assert.Equal(t, q+n%nRanks, pm.RankCount(nRanks-1))
			}
		}
	}
	{ // Ranges are contiguous and order preserving for both policies
		for _, policy := range []RemainderPolicy{SpreadRemainder, LastRankRemainder} {
			pm := NewPartitionMap(policy, 7, 451)
			start := 0
			for n := 0; n < pm.NRanks; n++ {
				s, e := pm.RankRange(n)
				assert.Equal(t, start, s)
				assert.True(t, e >= s)
				start = e
			}
			assert.Equal(t, 451, start)
		}
	}
}

func TestPartitionMapStrict(t *testing.T) {
	_, err := NewPartitionMapStrict(SpreadRemainder, 8, 5)
	assert.Error(t, err)
	var cfgErr *types.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)

	pm, err := NewPartitionMapStrict(SpreadRemainder, 8, 8)
	assert.NoError(t, err)
	for n := 0; n < 8; n++ {
		assert.Equal(t, 1, pm.RankCount(n))
	}
}

func TestPartitionLookup(t *testing.T) {
	for _, policy := range []RemainderPolicy{SpreadRemainder, LastRankRemainder} {
		for nElements := 10; nElements < 500; nElements += 7 {
			pm := NewPartitionMap(policy, 5, nElements)
			for g := 0; g < nElements; g++ {
				rank, i := pm.LocalIndex(g)
				s, e := pm.RankRange(rank)
				assert.True(t, g >= s && g < e)
				assert.Equal(t, g, pm.GlobalIndex(i, rank))
			}
		}
	}
}
