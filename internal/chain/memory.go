package chain

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is an in-memory, thread-safe Ledger implementation. Appends
// are serialized by the write lock; reads run concurrently with each other
// but always observe the chain either before or after an append, never
// mid-append.
type MemoryLedger struct {
	mu     sync.RWMutex
	now    func() int64
	blocks []*Block
}

// New creates a MemoryLedger holding only the genesis block.
func New() *MemoryLedger {
	return NewWithClock(nil)
}

// NewWithClock is like New but with an injectable wall-clock source returning
// unix seconds. Pass nil to use the system clock.
func NewWithClock(now func() int64) *MemoryLedger {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	l := &MemoryLedger{now: now}
	genesis := NewBlock(GenesisData)
	genesis.finalize(0, l.now(), "")
	l.blocks = append(l.blocks, genesis)
	return l
}

// Append implements Ledger.
func (l *MemoryLedger) Append(_ context.Context, b *Block) (*Block, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tip := l.blocks[len(l.blocks)-1]
	b.finalize(tip.Height+1, l.now(), tip.Hash)

	// Store a private copy: a caller retaining b must not be able to mutate
	// the chain after append.
	cp := *b
	l.blocks = append(l.blocks, &cp)
	return b, nil
}

// Height implements Ledger.
func (l *MemoryLedger) Height(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks) - 1, nil
}

// Tip implements Ledger.
func (l *MemoryLedger) Tip(_ context.Context) (*Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cp := *l.blocks[len(l.blocks)-1]
	return &cp, nil
}

// ByHeight implements Ledger.
func (l *MemoryLedger) ByHeight(_ context.Context, height int) (*Block, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if height < 0 || height >= len(l.blocks) {
		return nil, false, nil
	}
	cp := *l.blocks[height]
	return &cp, true, nil
}

// ByHash implements Ledger. Linear scan, first match wins.
func (l *MemoryLedger) ByHash(_ context.Context, hash string) (*Block, bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, b := range l.blocks {
		if b.Hash == hash {
			cp := *b
			return &cp, true, nil
		}
	}
	return nil, false, nil
}

// StarsByOwner implements Ledger.
func (l *MemoryLedger) StarsByOwner(_ context.Context, owner string) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var stars []string
	for _, b := range l.blocks {
		claim, ok := b.Claim()
		if !ok {
			continue
		}
		if claim.Owner == owner {
			stars = append(stars, claim.Star)
		}
	}
	return stars, nil
}

// Validate implements Ledger. The linkage check is a strict comparison
// against the stored predecessor hash; a mismatch is reported, never
// repaired.
func (l *MemoryLedger) Validate(_ context.Context) ([]*Block, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var bad []*Block
	for i, b := range l.blocks {
		ok := b.ValidateSelf()
		if i > 0 && b.PrevHash != l.blocks[i-1].Hash {
			ok = false
		}
		if !ok {
			cp := *b
			bad = append(bad, &cp)
		}
	}
	return bad, nil
}
