package chat

import (
	"errors"
	"sync"
	"testing"
)

func TestGateOnePerUser(t *testing.T) {
	g := NewGate()

	if err := g.Begin("u1"); err != nil {
		t.Fatalf("first Begin = %v", err)
	}
	if !g.Busy("u1") {
		t.Fatal("u1 should be busy")
	}
	if err := g.Begin("u1"); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Begin = %v, want ErrBusy", err)
	}
	if err := g.Begin("u2"); err != nil {
		t.Fatalf("other user Begin = %v", err)
	}

	g.Done("u1")
	if g.Busy("u1") {
		t.Fatal("u1 should be idle after Done")
	}
	if err := g.Begin("u1"); err != nil {
		t.Fatalf("Begin after Done = %v", err)
	}
}

func TestGateConcurrentBegin(t *testing.T) {
	g := NewGate()
	const workers = 32

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Begin("u1") == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if admitted != 1 {
		t.Fatalf("admitted = %d, want 1", admitted)
	}
}
