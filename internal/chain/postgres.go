package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// advisoryLockKey is a stable PostgreSQL advisory lock key used to serialise
// concurrent Append calls. The value is arbitrary but must be consistent
// across all starkeepd instances sharing a database.
const advisoryLockKey = int64(7_421_633_905)

// PostgresLedger persists the star chain to a PostgreSQL database.
// It implements the Ledger interface.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	now    func() int64
	logger *zap.Logger
}

// NewPostgresLedger creates a PostgresLedger backed by the given connection
// pool. Pass nil for now to use the system clock.
func NewPostgresLedger(pool *pgxpool.Pool, now func() int64, logger *zap.Logger) *PostgresLedger {
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &PostgresLedger{pool: pool, now: now, logger: logger}
}

// EnsureGenesis inserts the genesis block if the blocks table is empty.
// Call once at startup, after migrations have run.
func (l *PostgresLedger) EnsureGenesis(ctx context.Context) error {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return fmt.Errorf("acquire advisory lock: %w", err)
	}

	var n int
	if err := tx.QueryRow(ctx, "SELECT COUNT(*) FROM blocks").Scan(&n); err != nil {
		return fmt.Errorf("count blocks: %w", err)
	}
	if n > 0 {
		return nil
	}

	genesis := NewBlock(GenesisData)
	genesis.finalize(0, l.now(), "")

	if err := insertBlock(ctx, tx, genesis); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit genesis: %w", err)
	}

	l.logger.Info("genesis block created", zap.String("hash", genesis.Hash))
	return nil
}

// Append implements Ledger. It acquires a PostgreSQL advisory lock, reads the
// chain tip, finalizes the block against it, and inserts it — all within a
// single transaction, so concurrent appends cannot interleave.
func (l *PostgresLedger) Append(ctx context.Context, b *Block) (*Block, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", advisoryLockKey); err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	var tipHeight int
	var tipHash string
	if err := tx.QueryRow(ctx,
		"SELECT height, hash FROM blocks ORDER BY height DESC LIMIT 1",
	).Scan(&tipHeight, &tipHash); err != nil {
		return nil, fmt.Errorf("read chain tip: %w", err)
	}

	b.finalize(tipHeight+1, l.now(), tipHash)

	if err := insertBlock(ctx, tx, b); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit block: %w", err)
	}

	l.logger.Debug("block appended",
		zap.Int("height", b.Height),
		zap.String("hash", b.Hash),
	)
	cp := *b
	return &cp, nil
}

// Height implements Ledger.
func (l *PostgresLedger) Height(ctx context.Context) (int, error) {
	var h int
	if err := l.pool.QueryRow(ctx,
		"SELECT height FROM blocks ORDER BY height DESC LIMIT 1",
	).Scan(&h); err != nil {
		return 0, fmt.Errorf("read chain height: %w", err)
	}
	return h, nil
}

// Tip implements Ledger.
func (l *PostgresLedger) Tip(ctx context.Context) (*Block, error) {
	b, err := scanBlock(l.pool.QueryRow(ctx,
		`SELECT height, timestamp, data, prev_hash, hash
		 FROM blocks ORDER BY height DESC LIMIT 1`,
	))
	if err != nil {
		return nil, fmt.Errorf("read chain tip: %w", err)
	}
	return b, nil
}

// ByHeight implements Ledger.
func (l *PostgresLedger) ByHeight(ctx context.Context, height int) (*Block, bool, error) {
	b, err := scanBlock(l.pool.QueryRow(ctx,
		`SELECT height, timestamp, data, prev_hash, hash
		 FROM blocks WHERE height = $1`, height,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get block %d: %w", height, err)
	}
	return b, true, nil
}

// ByHash implements Ledger.
func (l *PostgresLedger) ByHash(ctx context.Context, hash string) (*Block, bool, error) {
	b, err := scanBlock(l.pool.QueryRow(ctx,
		`SELECT height, timestamp, data, prev_hash, hash
		 FROM blocks WHERE hash = $1 ORDER BY height ASC LIMIT 1`, hash,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get block by hash: %w", err)
	}
	return b, true, nil
}

// StarsByOwner implements Ledger. Claims are decoded in Go rather than with
// JSON operators in SQL so the filter semantics stay identical to
// MemoryLedger.
func (l *PostgresLedger) StarsByOwner(ctx context.Context, owner string) ([]string, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT height, timestamp, data, prev_hash, hash
		 FROM blocks ORDER BY height ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var stars []string
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block row: %w", err)
		}
		claim, ok := b.Claim()
		if !ok {
			continue
		}
		if claim.Owner == owner {
			stars = append(stars, claim.Star)
		}
	}
	return stars, rows.Err()
}

// Validate implements Ledger. It streams all rows ordered by height and
// checks every block; the scan is total, so a single pass reports every
// corrupted block. O(n) in chain length.
func (l *PostgresLedger) Validate(ctx context.Context) ([]*Block, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT height, timestamp, data, prev_hash, hash
		 FROM blocks ORDER BY height ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query blocks: %w", err)
	}
	defer rows.Close()

	var bad []*Block
	var prev *Block
	for rows.Next() {
		curr, err := scanBlock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan block row: %w", err)
		}

		ok := curr.ValidateSelf()
		if prev != nil && curr.PrevHash != prev.Hash {
			ok = false
		}
		if !ok {
			bad = append(bad, curr)
		}
		prev = curr
	}
	return bad, rows.Err()
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanBlock(row rowScanner) (*Block, error) {
	b := &Block{}
	if err := row.Scan(&b.Height, &b.Timestamp, &b.Data, &b.PrevHash, &b.Hash); err != nil {
		return nil, err
	}
	return b, nil
}

func insertBlock(ctx context.Context, tx pgx.Tx, b *Block) error {
	if _, err := tx.Exec(ctx,
		`INSERT INTO blocks (height, timestamp, data, prev_hash, hash)
		 VALUES ($1, $2, $3, $4, $5)`,
		b.Height, b.Timestamp, b.Data, b.PrevHash, b.Hash,
	); err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}
