package chat

import (
	"errors"
	"sync"
)

// ErrBusy is returned while a previous question of the same user is pending.
var ErrBusy = errors.New("a response is already being generated")

// Gate admits one in-flight question per user.
type Gate struct {
	mu      sync.Mutex
	pending map[string]struct{}
}

func NewGate() *Gate {
	return &Gate{pending: make(map[string]struct{})}
}

// Begin marks userID busy, or returns ErrBusy when it already is.
func (g *Gate) Begin(userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.pending[userID]; ok {
		return ErrBusy
	}
	g.pending[userID] = struct{}{}
	return nil
}

// Done marks userID idle again.
func (g *Gate) Done(userID string) {
	g.mu.Lock()
	delete(g.pending, userID)
	g.mu.Unlock()
}

// Busy reports whether userID has a question in flight.
func (g *Gate) Busy(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[userID]
	return ok
}
