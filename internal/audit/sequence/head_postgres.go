package sequence

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fsuels/auditledger/internal/audit"
	"github.com/fsuels/auditledger/pkg/platform/sentinel"
)

// Head is the durable chain-head accessor: a singleton row carrying the
// highest sequence, its hash, and an optimistic-concurrency version.
// Conflicts surface as sentinel.ErrSequenceConflict for the caller to
// retry with a fresh read; no row locks are taken, so unrelated work is
// never blocked.
type Head struct{}

const headRowID = 1

// Ensure creates the chain-head row at genesis if it does not exist.
func (Head) Ensure(ctx context.Context, db *sql.DB) error {
	query := `
		INSERT INTO audit_chain_head (id, sequence, head_hash, version)
		VALUES ($1, 0, $2, 0)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := db.ExecContext(ctx, query, headRowID, audit.GenesisHash); err != nil {
		return fmt.Errorf("ensure chain head: %w", err)
	}
	return nil
}

// Read returns the current head within the given transaction. No lock is
// taken; staleness is detected at CompareAndSwap time.
func (Head) Read(ctx context.Context, tx *sql.Tx) (seq uint64, hash string, version int64, err error) {
	query := `SELECT sequence, head_hash, version FROM audit_chain_head WHERE id = $1`
	if err := tx.QueryRowContext(ctx, query, headRowID).Scan(&seq, &hash, &version); err != nil {
		return 0, "", 0, fmt.Errorf("read chain head: %w", err)
	}
	return seq, hash, version, nil
}

// CompareAndSwap advances the head to (newSeq, newHash) only if the row
// still carries the version observed at Read. A stale version returns
// sentinel.ErrSequenceConflict.
func (Head) CompareAndSwap(ctx context.Context, tx *sql.Tx, version int64, newSeq uint64, newHash string) error {
	query := `
		UPDATE audit_chain_head
		SET sequence = $1, head_hash = $2, version = version + 1
		WHERE id = $3 AND version = $4
	`
	result, err := tx.ExecContext(ctx, query, newSeq, newHash, headRowID, version)
	if err != nil {
		return fmt.Errorf("advance chain head: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance chain head: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrSequenceConflict
	}
	return nil
}
