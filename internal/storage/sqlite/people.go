package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wsjrdp/dues/internal/models"
)

// CreateParticipant inserts a person into the roster. sepaStatus may be
// empty for people not yet collected from.
func (s *SQLiteStore) CreateParticipant(ctx context.Context, p models.Participant, sepaStatus string) error {
	query := `
		INSERT INTO people (id, first_name, last_name, role_wish, status,
			sepa_name, sepa_iban, sepa_mandate_date, sepa_status, sepa_history,
			fee_reduction_cents, early_payer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	role := p.RawRole
	if p.Role.Valid() {
		role = p.Role.DBName()
	}
	var signedAt sql.NullString
	if !p.Mandate.SignedAt.IsZero() {
		signedAt = sql.NullString{String: p.Mandate.SignedAt.Format("2006-01-02"), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		p.ID,
		p.FirstName,
		p.LastName,
		role,
		p.Status,
		p.Mandate.AccountHolder,
		p.Mandate.IBAN,
		signedAt,
		nullable(sepaStatus),
		nullable(historyName(p.MandateHistory)),
		p.Agreement.FeeReductionCents,
		p.Agreement.EarlyPayer,
	)

	if err != nil {
		return fmt.Errorf("failed to create participant: %w", err)
	}

	return nil
}

// GetSEPAStatus returns the participant's SEPA status, empty when unset.
func (s *SQLiteStore) GetSEPAStatus(ctx context.Context, id int64) (string, error) {
	var status sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT sepa_status FROM people WHERE id = ?", id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %d", models.ErrParticipantNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get sepa status: %w", err)
	}

	return status.String, nil
}

func historyName(h models.MandateHistory) string {
	switch h {
	case models.HistoryNew:
		return "new"
	case models.HistoryUsed:
		return "used"
	}
	return ""
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
