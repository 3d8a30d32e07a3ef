package parallel

import (
	"fmt"
	"sync"
)

// Run spawns nRanks cooperating ranks as goroutines, each a single
// sequential flow over its own slice of the problem, and executes body on
// every rank. Collectives on the supplied Communicator are deposit/barrier
// exchanges through shared memory with a deterministic read order, so every
// rank computes bit-identical reduction results.
//
// The first error returned by any body (or passed to Abort) terminates the
// whole group: ranks blocked in a collective are released with an
// AbortError. Run returns that first error.
func Run(nRanks int, body func(c Communicator) error) error {
	if nRanks < 1 {
		return fmt.Errorf("nRanks must be >= 1, have %d", nRanks)
	}
	g := &group{
		nRanks: nRanks,
		slots:  make([][]float64, nRanks),
	}
	g.cond = sync.NewCond(&g.mu)
	var wg sync.WaitGroup
	wg.Add(nRanks)
	for n := 0; n < nRanks; n++ {
		c := &groupComm{g: g, rank: n}
		go func() {
			defer wg.Done()
			if err := body(c); err != nil {
				c.Abort(err)
			}
		}()
	}
	wg.Wait()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failed
}

// group is the shared state of one in-process rank group. slots hold each
// rank's deposit for the collective in flight; the generation counter makes
// the barrier reusable.
type group struct {
	nRanks int
	slots  [][]float64

	mu     sync.Mutex
	cond   *sync.Cond
	count  int
	gen    int
	failed error
}

// await blocks until all ranks have arrived, or returns the abort error.
func (g *group) await() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failed != nil {
		return g.failed
	}
	gen := g.gen
	g.count++
	if g.count == g.nRanks {
		g.count = 0
		g.gen++
		g.cond.Broadcast()
		return nil
	}
	for gen == g.gen && g.failed == nil {
		g.cond.Wait()
	}
	return g.failed
}

func (g *group) abort(rank int, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failed == nil {
		if _, ok := err.(*AbortError); ok {
			g.failed = err
		} else {
			g.failed = &AbortError{Rank: rank, Err: err}
		}
	}
	g.cond.Broadcast()
}

type groupComm struct {
	g    *group
	rank int
}

func (c *groupComm) Rank() int { return c.rank }
func (c *groupComm) Size() int { return c.g.nRanks }

func (c *groupComm) Abort(err error) { c.g.abort(c.rank, err) }

// exchange deposits local in this rank's slot, waits for all deposits, reads
// every slot in ascending rank order through read, then waits again so no
// rank re-deposits before all have read.
func (c *groupComm) exchange(local []float64, read func(parts [][]float64)) error {
	g := c.g
	if g.nRanks == 1 {
		read([][]float64{local})
		return nil
	}
	g.slots[c.rank] = local
	if err := g.await(); err != nil {
		return err
	}
	read(g.slots)
	return g.await()
}

func (c *groupComm) Bcast(vals []float64, root int) error {
	if root < 0 || root >= c.g.nRanks {
		panic(fmt.Sprintf("broadcast root %d out of range", root))
	}
	return c.exchange(vals, func(parts [][]float64) {
		if c.rank != root {
			copy(vals, parts[root])
		}
	})
}

func (c *groupComm) AllReduceSum(x float64) (sum float64, err error) {
	err = c.exchange([]float64{x}, func(parts [][]float64) {
		for _, p := range parts {
			sum += p[0]
		}
	})
	return
}

func (c *groupComm) AllReduceSumVec(vals []float64) error {
	local := append([]float64(nil), vals...)
	return c.exchange(local, func(parts [][]float64) {
		for i := range vals {
			vals[i] = 0
		}
		for _, p := range parts {
			if len(p) != len(vals) {
				panic(fmt.Sprintf("vector reduce length mismatch: %d vs %d", len(p), len(vals)))
			}
			for i, v := range p {
				vals[i] += v
			}
		}
	})
}

func (c *groupComm) AllReduceMax(x float64) (max float64, err error) {
	err = c.exchange([]float64{x}, func(parts [][]float64) {
		max = parts[0][0]
		for _, p := range parts[1:] {
			if p[0] > max {
				max = p[0]
			}
		}
	})
	return
}

func (c *groupComm) AllGatherV(local []float64) (parts [][]float64, err error) {
	err = c.exchange(local, func(slots [][]float64) {
		parts = make([][]float64, len(slots))
		for n, s := range slots {
			// Copy before the release barrier: slots are reused by the
			// next collective and depositors may mutate their arrays.
			parts[n] = append([]float64(nil), s...)
		}
	})
	return
}

// Serial is a single-rank Communicator for runs without a rank group; every
// collective is the identity.
type Serial struct{}

func (Serial) Rank() int { return 0 }
func (Serial) Size() int { return 1 }
func (Serial) Bcast(vals []float64, root int) error { return nil }
func (Serial) AllReduceSum(x float64) (float64, error) { return x, nil }
func (Serial) AllReduceSumVec(vals []float64) error { return nil }
func (Serial) AllReduceMax(x float64) (float64, error) { return x, nil }
func (Serial) AllGatherV(local []float64) ([][]float64, error) {
	return [][]float64{local}, nil
}
func (Serial) Abort(err error) {}
