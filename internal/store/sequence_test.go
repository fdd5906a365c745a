package store

import (
	"sync"
	"testing"
	"time"
)

func TestSequencerStrictlyIncreasesWithinSameInstant(t *testing.T) {
	var s sequencer
	now := time.UnixMilli(1700000000000)

	a := s.next(now)
	b := s.next(now)
	c := s.next(now.Add(-time.Second))
	if !(a < b && b < c) {
		t.Fatalf("sequence = %d, %d, %d, want strictly increasing", a, b, c)
	}
	if a != now.UnixNano() {
		t.Fatalf("first value = %d, want clock seed %d", a, now.UnixNano())
	}
}

func TestSequencerUniqueUnderConcurrency(t *testing.T) {
	var s sequencer
	now := time.Now()

	const n = 200
	out := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out <- s.next(now)
		}()
	}
	wg.Wait()
	close(out)

	seen := map[int64]bool{}
	for v := range out {
		if seen[v] {
			t.Fatalf("duplicate sequence value %d", v)
		}
		seen[v] = true
	}
}
