package store

import (
	"sync/atomic"
	"time"
)

// sequencer hands out strictly increasing values seeded from the wall clock
// in nanoseconds, so ordering survives restarts and same-millisecond writes.
type sequencer struct {
	last atomic.Int64
}

func (s *sequencer) next(now time.Time) int64 {
	for {
		prev := s.last.Load()
		n := now.UnixNano()
		if n <= prev {
			n = prev + 1
		}
		if s.last.CompareAndSwap(prev, n) {
			return n
		}
	}
}
