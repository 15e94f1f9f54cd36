package debug

import (
	"fmt"
	"sync/atomic"
	"time"
)

// BlockStats accumulates per-block processing timings. Record is safe to
// call from the audio thread: it only touches atomics and never allocates.
// Readers on other goroutines see eventually consistent values.
type BlockStats struct {
	blocks     atomic.Uint64
	events     atomic.Uint64
	totalNs    atomic.Uint64
	lastNs     atomic.Int64
	maxNs      atomic.Int64
	overBudget atomic.Uint64

	budgetNs atomic.Int64
}

// BlockSummary is a copy of the statistics suitable for reporting.
type BlockSummary struct {
	Blocks     uint64
	Events     uint64
	Last       time.Duration
	Max        time.Duration
	Average    time.Duration
	OverBudget uint64
}

// SetBudget sets the per-block time above which a block is counted as over
// budget. Zero disables the check.
func (s *BlockStats) SetBudget(d time.Duration) {
	s.budgetNs.Store(int64(d))
}

// Record adds one processed block.
func (s *BlockStats) Record(elapsed time.Duration, events int) {
	ns := int64(elapsed)
	s.blocks.Add(1)
	s.events.Add(uint64(events))
	s.totalNs.Add(uint64(ns))
	s.lastNs.Store(ns)
	for {
		cur := s.maxNs.Load()
		if ns <= cur || s.maxNs.CompareAndSwap(cur, ns) {
			break
		}
	}
	if budget := s.budgetNs.Load(); budget > 0 && ns > budget {
		s.overBudget.Add(1)
	}
}

// Summary returns the current statistics.
func (s *BlockStats) Summary() BlockSummary {
	sum := BlockSummary{
		Blocks:     s.blocks.Load(),
		Events:     s.events.Load(),
		Last:       time.Duration(s.lastNs.Load()),
		Max:        time.Duration(s.maxNs.Load()),
		OverBudget: s.overBudget.Load(),
	}
	if sum.Blocks > 0 {
		sum.Average = time.Duration(s.totalNs.Load() / sum.Blocks)
	}
	return sum
}

// Reset clears all statistics but keeps the budget.
func (s *BlockStats) Reset() {
	s.blocks.Store(0)
	s.events.Store(0)
	s.totalNs.Store(0)
	s.lastNs.Store(0)
	s.maxNs.Store(0)
	s.overBudget.Store(0)
}

// String generates a one-line performance report.
func (b BlockSummary) String() string {
	return fmt.Sprintf("blocks=%d events=%d avg=%v max=%v last=%v over_budget=%d",
		b.Blocks, b.Events, b.Average, b.Max, b.Last, b.OverBudget)
}
