// Package sqlstore implements storage.Store on top of database/sql. The
// queries only use portable SQL with '?' placeholders so the same code
// serves the SQLite and MySQL backends.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/wsjrdp/dues/internal/models"
	"github.com/wsjrdp/dues/internal/storage"
)

// Ensure Store implements storage.Store
var _ storage.Store = (*Store)(nil)

// Mandate history values stored in people.sepa_history.
const (
	historyNew  = "new"
	historyUsed = "used"
)

// Store implements storage.Store using a *sql.DB.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New wraps an open database. The caller has already set up the schema.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// FetchRoster returns eligible participants ordered by ID.
func (s *Store) FetchRoster(ctx context.Context, filter storage.RosterFilter) ([]models.Participant, error) {
	query := `SELECT id, first_name, last_name, role_wish, status,
		sepa_name, sepa_iban, sepa_mandate_date, sepa_history,
		fee_reduction_cents, early_payer
		FROM people
		WHERE (sepa_status IS NULL OR sepa_status = ?)`
	args := []any{storage.StatusCollected}

	if len(filter.Statuses) > 0 {
		query += " AND status IN (" + placeholders(len(filter.Statuses)) + ")"
		for _, st := range filter.Statuses {
			args = append(args, st)
		}
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	var roster []models.Participant
	for rows.Next() {
		var (
			p                               models.Participant
			first, last, role, status       sql.NullString
			holder, iban, signedAt, history sql.NullString
			reduction                       sql.NullInt64
			earlyPayer                      sql.NullBool
		)
		if err := rows.Scan(&p.ID, &first, &last, &role, &status, &holder, &iban, &signedAt, &history,
			&reduction, &earlyPayer); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}

		p.FirstName = first.String
		p.LastName = last.String
		p.Status = status.String
		p.RawRole = role.String
		if r, err := models.ParseRole(role.String); err == nil {
			p.Role = r
		}
		p.Mandate = models.Mandate{
			AccountHolder: holder.String,
			IBAN:          iban.String,
			SignedAt:      parseDate(p.ID, signedAt.String),
		}
		p.Agreement = models.DuesAgreement{
			FeeReductionCents: reduction.Int64,
			EarlyPayer:        earlyPayer.Bool,
		}
		switch history.String {
		case historyNew:
			p.MandateHistory = models.HistoryNew
		case historyUsed:
			p.MandateHistory = models.HistoryUsed
		}
		roster = append(roster, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roster: %w", err)
	}

	return roster, nil
}

// FetchLedger returns all accounting entries ordered by ID.
func (s *Store) FetchLedger(ctx context.Context) ([]models.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, subject_id, amount_cents, created_at, comment, reference FROM accounting_entries ORDER BY id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	var ledger []models.LedgerEntry
	for rows.Next() {
		var (
			e               models.LedgerEntry
			memo, reference sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ParticipantID, &e.AmountCents, &e.CreatedAt, &memo, &reference); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Memo = memo.String
		e.Reference = reference.String
		ledger = append(ledger, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger: %w", err)
	}

	return ledger, nil
}

// RecordCollection books entry and sets the participant's SEPA status in
// one transaction. A repeated reference books nothing and returns
// storage.ErrAlreadyRecorded.
func (s *Store) RecordCollection(ctx context.Context, participantID int64, status string, entry models.LedgerEntry) error {
	if entry.CreatedAt == 0 {
		entry.CreatedAt = s.now().Unix()
	}

	return WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		if entry.Reference != "" {
			var exists int
			err := tx.QueryRowContext(ctx,
				"SELECT 1 FROM accounting_entries WHERE reference = ? LIMIT 1",
				entry.Reference,
			).Scan(&exists)
			if err == nil {
				return fmt.Errorf("%w: %s", storage.ErrAlreadyRecorded, entry.Reference)
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("failed to look up reference: %w", err)
			}
		}

		// sepa_history only moves forward, a used mandate stays used.
		res, err := tx.ExecContext(ctx,
			"UPDATE people SET sepa_status = ?, sepa_history = ? WHERE id = ?",
			status, historyUsed, participantID,
		)
		if err != nil {
			return fmt.Errorf("failed to update sepa status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %d", models.ErrParticipantNotFound, participantID)
		}

		_, err = tx.ExecContext(ctx,
			"INSERT INTO accounting_entries (subject_id, amount_cents, created_at, comment, reference) VALUES (?, ?, ?, ?, ?)",
			participantID, entry.AmountCents, entry.CreatedAt, nullString(entry.Memo), nullString(entry.Reference),
		)
		if err != nil {
			return fmt.Errorf("failed to insert accounting entry: %w", err)
		}
		return nil
	})
}

// WithTransaction runs fn in a transaction. It rolls back when fn returns an
// error or panics and commits otherwise.
func WithTransaction(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("failed to rollback transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// parseDate accepts "2006-01-02" with an optional time part. Unparseable
// dates are treated as missing so the participant shows up in diagnostics.
func parseDate(id int64, s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		slog.Warn("Unparseable mandate date", "participant_id", id, "value", s)
		return time.Time{}
	}
	return t
}
