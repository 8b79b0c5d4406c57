package engramstore

import (
	"fmt"

	"github.com/actiquest-dev/membria-core/internal/apperrors"
)

// PendingSignal is one queued text artifact awaiting extraction by the
// batch processor (§4.9's "pending signals" worker).
type PendingSignal struct {
	ID          int64
	Payload     string
	Source      string
	EnqueuedAt  int64
	ClaimedAt   int64
	ProcessedAt int64
}

// Enqueue adds a pending signal, refusing the write with apperrors.ErrQueueFull
// once the unclaimed queue depth reaches hardCap. The batch processor is
// the sole consumer (§5's single-producer/single-consumer policy).
func (s *Store) Enqueue(payload, source string, enqueuedAt int64, hardCap int) error {
	depth, err := s.PendingDepth()
	if err != nil {
		return err
	}
	if hardCap > 0 && depth >= int64(hardCap) {
		return apperrors.ErrQueueFull
	}
	_, err = s.db.Exec(
		`INSERT INTO pending_signals (payload, source, enqueued_at) VALUES (?, ?, ?)`,
		payload, source, enqueuedAt,
	)
	if err != nil {
		return fmt.Errorf("engramstore: enqueue signal: %w", err)
	}
	return nil
}

// PendingDepth returns the count of signals neither claimed nor processed,
// the value the batch processor's backpressure check (soft/hard cap)
// compares against.
func (s *Store) PendingDepth() (int64, error) {
	var depth int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM pending_signals WHERE claimed_at = 0`).Scan(&depth)
	if err != nil {
		return 0, fmt.Errorf("engramstore: pending depth: %w", err)
	}
	return depth, nil
}

// ClaimBatch atomically claims up to limit unclaimed signals (sets
// claimed_at) and returns them, oldest first. Claimed rows are invisible to
// subsequent ClaimBatch calls; MarkProcessed does not release them, and a
// claimed row that was never processed becomes claimable again only after
// ReleaseStaleClaims resets it.
func (s *Store) ClaimBatch(limit int, claimedAt int64) ([]PendingSignal, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("engramstore: claim batch: begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT id, payload, source, enqueued_at FROM pending_signals
		 WHERE claimed_at = 0 ORDER BY id ASC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("engramstore: claim batch: query: %w", err)
	}
	var batch []PendingSignal
	for rows.Next() {
		var p PendingSignal
		if err := rows.Scan(&p.ID, &p.Payload, &p.Source, &p.EnqueuedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("engramstore: claim batch: scan: %w", err)
		}
		p.ClaimedAt = claimedAt
		batch = append(batch, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, p := range batch {
		if _, err := tx.Exec(`UPDATE pending_signals SET claimed_at = ? WHERE id = ?`, claimedAt, p.ID); err != nil {
			return nil, fmt.Errorf("engramstore: claim batch: mark claimed: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("engramstore: claim batch: commit: %w", err)
	}
	return batch, nil
}

// MarkProcessed stamps processed_at on a claimed signal once the extractor
// has consumed it and its resulting decisions have been written.
func (s *Store) MarkProcessed(id int64, processedAt int64) error {
	_, err := s.db.Exec(`UPDATE pending_signals SET processed_at = ? WHERE id = ?`, processedAt, id)
	if err != nil {
		return fmt.Errorf("engramstore: mark processed: %w", err)
	}
	return nil
}

// ReleaseStaleClaims resets claimed_at to 0 for any signal claimed before
// cutoff and never marked processed, recovering signals orphaned by a
// crashed batch-processor run so a crash never loses a queued signal.
func (s *Store) ReleaseStaleClaims(cutoff int64) (int64, error) {
	res, err := s.db.Exec(
		`UPDATE pending_signals SET claimed_at = 0 WHERE claimed_at > 0 AND claimed_at < ? AND processed_at = 0`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("engramstore: release stale claims: %w", err)
	}
	return res.RowsAffected()
}
