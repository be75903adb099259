package chain

import "context"

// Ledger is the interface for the append-only star chain.
// Both MemoryLedger and PostgresLedger implement this interface.
type Ledger interface {
	// Append links b to the current tip, finalizes its hash, and stores it.
	// This is the single mutation entry point; blocks are never altered or
	// removed afterwards.
	Append(ctx context.Context, b *Block) (*Block, error)

	// Height returns the height of the chain tip (0 for a genesis-only chain).
	Height(ctx context.Context) (int, error)

	// Tip returns the most recently appended block.
	Tip(ctx context.Context) (*Block, error)

	// ByHeight returns the block at the given height. A miss is reported as
	// false, not as an error.
	ByHeight(ctx context.Context, height int) (*Block, bool, error)

	// ByHash returns the first block whose hash matches. A miss is reported
	// as false, not as an error.
	ByHash(ctx context.Context, hash string) (*Block, bool, error)

	// StarsByOwner returns the stars claimed by owner, oldest first. The
	// genesis block is never included. Computed fresh on every call.
	StarsByOwner(ctx context.Context, owner string) ([]string, error)

	// Validate walks the whole chain and returns every block that fails its
	// self-hash check or does not link to its predecessor. The scan never
	// short-circuits, so one pass reports every corrupted block. An intact
	// chain yields an empty result.
	Validate(ctx context.Context) ([]*Block, error)
}
