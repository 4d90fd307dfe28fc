// Package batch turns per-participant balances into a SEPA direct debit
// batch plus a diagnostics listing of everyone left out.
package batch

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wsjrdp/dues/internal/calculator"
	"github.com/wsjrdp/dues/internal/models"
)

const (
	ReasonNoBalance      = "no balance due"
	ReasonMissingIBAN    = "missing IBAN"
	ReasonMissingMandate = "missing mandate signature date"
	ReasonInvalidIBAN    = "invalid IBAN"
	ReasonUnknownRole    = "unknown role"
	ReasonDuplicate      = "duplicate participant"
)

// Config holds the per-edition settings of a collection run.
type Config struct {
	Creditor models.Creditor

	// ProgramName appears in every remittance text, e.g. "WSJ 2023".
	ProgramName string

	// InstallmentLabel names the installment, e.g. "Vierzehnte Rate".
	InstallmentLabel string

	// ArrearsPrefix is put in front of the remittance text of debits above
	// LargeResidualThreshold.
	ArrearsPrefix string

	// MandatePrefix namespaces mandate identifiers, e.g. "wsjrdp".
	MandatePrefix string

	// LargeResidualThreshold in cents. Balances above it are treated as
	// several unpaid installments.
	LargeResidualThreshold int64

	// PlausibleMin and PlausibleMax bound the amounts expected in this run.
	// Amounts outside are logged for review but still collected. Zero
	// disables a bound.
	PlausibleMin int64
	PlausibleMax int64

	CollectionDate time.Time

	// Currency defaults to EUR.
	Currency string

	// Now defaults to time.Now.
	Now func() time.Time

	// NewToken returns the random tail of end-to-end references. Defaults
	// to ten hex digits of a random UUID.
	NewToken func() string
}

// Validate reports the first missing or malformed setting.
func (c Config) Validate() error {
	required := []struct {
		key, value string
	}{
		{"CREDITOR_NAME", c.Creditor.Name},
		{"CREDITOR_IBAN", c.Creditor.IBAN},
		{"CREDITOR_BIC", c.Creditor.BIC},
		{"CREDITOR_ID", c.Creditor.ID},
		{"MANDATE_PREFIX", c.MandatePrefix},
		{"INSTALLMENT_LABEL", c.InstallmentLabel},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &models.ConfigurationError{Key: r.key, Reason: "must not be empty"}
		}
	}
	if !ValidIBAN(NormalizeIBAN(c.Creditor.IBAN)) {
		return &models.ConfigurationError{Key: "CREDITOR_IBAN", Reason: "not a valid IBAN"}
	}
	if c.LargeResidualThreshold < 0 {
		return &models.ConfigurationError{Key: "LARGE_RESIDUAL_THRESHOLD_CENTS", Reason: "must not be negative"}
	}
	if c.PlausibleMax != 0 && c.PlausibleMin > c.PlausibleMax {
		return &models.ConfigurationError{Key: "PLAUSIBLE_MIN_CENTS", Reason: "greater than PLAUSIBLE_MAX_CENTS"}
	}
	if c.CollectionDate.IsZero() {
		return &models.ConfigurationError{Key: "COLLECTION_DATE", Reason: "must be set"}
	}
	return nil
}

// Builder assembles batches. It holds no state between calls.
type Builder struct {
	cfg Config
}

// NewBuilder validates cfg and returns a Builder.
func NewBuilder(cfg Config) (*Builder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Currency == "" {
		cfg.Currency = "EUR"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewToken == nil {
		cfg.NewToken = randomToken
	}
	cfg.Creditor.IBAN = NormalizeIBAN(cfg.Creditor.IBAN)
	return &Builder{cfg: cfg}, nil
}

// Build emits one transaction per participant with a positive balance and
// a usable mandate. Everyone else lands in the returned Diagnostics; a
// problem with one participant never stops the others.
func (b *Builder) Build(snapshots []calculator.Snapshot) (*models.Batch, models.Diagnostics) {
	batch := &models.Batch{
		CreatedAt:      b.cfg.Now(),
		Creditor:       b.cfg.Creditor,
		CollectionDate: b.cfg.CollectionDate,
	}
	var diags models.Diagnostics
	seen := make(map[int64]bool, len(snapshots))

	for _, snap := range snapshots {
		p := snap.Participant
		remittance := b.Remittance(p, snap.BalanceDue)

		diag := models.Diagnostic{
			ParticipantID:   p.ID,
			Name:            p.DisplayName(),
			Kind:            models.DiagnosticSkipped,
			BalanceDueCents: snap.BalanceDue,
			Remittance:      remittance,
		}

		if seen[p.ID] {
			diag.Reason = ReasonDuplicate
			diag.Codes = []string{ReasonDuplicate}
			diag.BalanceDueCents = 0
			diags.Skipped = append(diags.Skipped, diag)
			slog.Warn("Participant listed twice, keeping first entry", "participant_id", p.ID)
			continue
		}
		seen[p.ID] = true

		if !p.Role.Valid() {
			diag.Reason = ReasonUnknownRole
			diag.Codes = []string{ReasonUnknownRole}
			if p.RawRole != "" {
				diag.Reason = fmt.Sprintf("%s %q", ReasonUnknownRole, p.RawRole)
			}
			diags.Skipped = append(diags.Skipped, diag)
			slog.Warn("Participant skipped", "participant_id", p.ID, "reason", diag.Reason)
			continue
		}

		if snap.BalanceDue <= 0 {
			diag.Kind = models.DiagnosticZeroBalance
			diag.Reason = ReasonNoBalance
			diag.Codes = []string{ReasonNoBalance}
			diag.BalanceDueCents = 0
			diags.ZeroBalance = append(diags.ZeroBalance, diag)
			slog.Debug("No balance due", "participant_id", p.ID, "name", p.DisplayName())
			continue
		}

		tx, err := b.transaction(snap, remittance)
		if err != nil {
			diag.Reason = err.Reason()
			diag.Codes = err.Reasons
			diags.Skipped = append(diags.Skipped, diag)
			slog.Warn("Participant skipped", "participant_id", p.ID, "reason", diag.Reason)
			continue
		}

		b.checkPlausible(p, tx.AmountCents)
		batch.Transactions = append(batch.Transactions, tx)
		batch.ControlSumCents += tx.AmountCents
	}

	slog.Info("Batch built",
		"transactions", batch.Len(),
		"control_sum_cents", batch.ControlSumCents,
		"skipped", len(diags.Skipped),
		"zero_balance", len(diags.ZeroBalance),
	)
	return batch, diags
}

// MandateID derives the mandate reference from the participant ID.
func (b *Builder) MandateID(participantID int64) string {
	return b.cfg.MandatePrefix + strconv.FormatInt(participantID, 10)
}

// EndToEndID references one collection from one participant. The ledger
// entry count moves with every booking and the token separates reruns on
// an unchanged ledger, so no two collections share a reference.
func (b *Builder) EndToEndID(participantID int64, ledgerEntries int) string {
	return b.MandateID(participantID) + "-" + strconv.Itoa(ledgerEntries) + "-" + b.cfg.NewToken()
}

// Remittance composes the statement text the payer sees, e.g.
// "Vierzehnte Rate WSJ 2023 Erika Mustermann T 123".
func (b *Builder) Remittance(p models.Participant, amount int64) string {
	parts := []string{b.cfg.InstallmentLabel, b.cfg.ProgramName, p.DisplayName(), p.Role.Letter(), strconv.FormatInt(p.ID, 10)}
	var nonEmpty []string
	for _, s := range parts {
		if s = strings.TrimSpace(s); s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	text := strings.Join(nonEmpty, " ")
	if b.isLargeResidual(amount) && b.cfg.ArrearsPrefix != "" {
		text = b.cfg.ArrearsPrefix + " " + text
	}
	return truncate(Transliterate(text), maxRemittanceLen)
}

// SequenceType picks FRST or RCUR. A recorded mandate history wins; without
// one, a balance above the large-residual threshold is taken to mean the
// mandate has not been collected on yet.
func (b *Builder) SequenceType(p models.Participant, amount int64) models.SequenceType {
	switch p.MandateHistory {
	case models.HistoryNew:
		return models.SequenceFirst
	case models.HistoryUsed:
		return models.SequenceRecurring
	}
	if b.isLargeResidual(amount) {
		return models.SequenceFirst
	}
	return models.SequenceRecurring
}

func (b *Builder) isLargeResidual(amount int64) bool {
	return amount > b.cfg.LargeResidualThreshold
}

func (b *Builder) transaction(snap calculator.Snapshot, remittance string) (models.DirectDebitTransaction, *models.ValidationError) {
	p, amount := snap.Participant, snap.BalanceDue
	iban := NormalizeIBAN(p.Mandate.IBAN)

	var reasons []string
	switch {
	case iban == "":
		reasons = append(reasons, ReasonMissingIBAN)
	case !ValidIBAN(iban):
		reasons = append(reasons, ReasonInvalidIBAN)
	}
	if p.Mandate.SignedAt.IsZero() {
		reasons = append(reasons, ReasonMissingMandate)
	}
	if len(reasons) > 0 {
		return models.DirectDebitTransaction{}, &models.ValidationError{ParticipantID: p.ID, Reasons: reasons}
	}

	holder := p.Mandate.AccountHolder
	if strings.TrimSpace(holder) == "" {
		holder = p.DisplayName()
	}

	return models.DirectDebitTransaction{
		ParticipantID:   p.ID,
		DebtorName:      truncate(Transliterate(holder), maxNameLen),
		IBAN:            iban,
		AmountCents:     amount,
		Currency:        b.cfg.Currency,
		Remittance:      remittance,
		MandateID:       b.MandateID(p.ID),
		MandateSignedAt: p.Mandate.SignedAt,
		EndToEndID:      b.EndToEndID(p.ID, snap.Entries),
		CollectionDate:  b.cfg.CollectionDate,
		SequenceType:    b.SequenceType(p, amount),
	}, nil
}

func (b *Builder) checkPlausible(p models.Participant, amount int64) {
	if (b.cfg.PlausibleMin > 0 && amount < b.cfg.PlausibleMin) ||
		(b.cfg.PlausibleMax > 0 && amount > b.cfg.PlausibleMax) {
		slog.Warn("Check amount",
			"participant_id", p.ID,
			"name", p.DisplayName(),
			"amount_cents", amount,
			"min_cents", b.cfg.PlausibleMin,
			"max_cents", b.cfg.PlausibleMax,
		)
	}
}

func randomToken() string {
	id := uuid.New()
	return hex.EncodeToString(id[:5])
}
