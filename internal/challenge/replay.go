package challenge

import (
	"sync"
	"time"
)

// ReplayGuard is an in-memory consumed-token set. Tokens are stateless, so
// without it the same signed challenge could be redeemed repeatedly within
// the window; the guard bounds each token to a single redemption.
type ReplayGuard struct {
	mu       sync.Mutex
	now      func() int64
	consumed map[string]int64 // token -> embedded issuance time
}

// NewReplayGuard creates a ReplayGuard. Pass nil for now to use the system
// clock.
func NewReplayGuard(now func() int64) *ReplayGuard {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &ReplayGuard{now: now, consumed: make(map[string]int64)}
}

// Consume marks token as redeemed. It returns true on first consumption and
// false if the token was already used.
func (g *ReplayGuard) Consume(token string, issuedAt int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, used := g.consumed[token]; used {
		return false
	}
	g.consumed[token] = issuedAt
	return true
}

// Prune drops entries whose window has lapsed; an expired token is rejected
// by the window check regardless, so tracking it is pointless. Returns the
// number of entries removed. Safe to call from a background goroutine.
func (g *ReplayGuard) Prune() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now() - int64(Window/time.Second)
	n := 0
	for token, issuedAt := range g.consumed {
		if issuedAt < cutoff {
			delete(g.consumed, token)
			n++
		}
	}
	return n
}
