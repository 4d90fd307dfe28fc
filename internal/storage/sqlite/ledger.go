package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/wsjrdp/dues/internal/models"
)

// CreateLedgerEntry books a payment or correction and sets entry.ID.
func (s *SQLiteStore) CreateLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error {
	if entry.CreatedAt == 0 {
		entry.CreatedAt = time.Now().Unix()
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO accounting_entries (subject_id, amount_cents, created_at, comment, reference) VALUES (?, ?, ?, ?, ?)",
		entry.ParticipantID, entry.AmountCents, entry.CreatedAt, nullable(entry.Memo), nullable(entry.Reference),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read ledger entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListLedgerByParticipant returns the entries booked for one participant,
// oldest first.
func (s *SQLiteStore) ListLedgerByParticipant(ctx context.Context, participantID int64) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, amount_cents, created_at, comment, reference FROM accounting_entries WHERE subject_id = ? ORDER BY id",
		participantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []models.LedgerEntry
	for rows.Next() {
		e := models.LedgerEntry{ParticipantID: participantID}
		var memo, reference sql.NullString
		if err := rows.Scan(&e.ID, &e.AmountCents, &e.CreatedAt, &memo, &reference); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Memo = memo.String
		e.Reference = reference.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}
