package models

import (
	"strings"
	"time"
)

// MandateHistory records whether a participant's SEPA mandate has already
// been used for a collection.
type MandateHistory int

const (
	// HistoryUnknown means no collection history is recorded; the batch
	// builder then infers the sequence type from the amount owed.
	HistoryUnknown MandateHistory = iota
	// HistoryNew means the mandate has never been collected on.
	HistoryNew
	// HistoryUsed means at least one collection has gone through.
	HistoryUsed
)

// Mandate is the standing authorization to collect from a bank account.
type Mandate struct {
	// AccountHolder is the name on the debited account. It may differ from
	// the participant's name (e.g. parents paying for a youth participant).
	AccountHolder string

	// IBAN as entered during registration; not yet normalized.
	IBAN string

	// SignedAt is the mandate signature date. Zero when unknown.
	SignedAt time.Time
}

// DuesAgreement is a special arrangement on top of the role's tariff.
// The zero value means the regular installments apply.
type DuesAgreement struct {
	// FeeReductionCents is taken off the total, starting with the last
	// installment and working backwards.
	FeeReductionCents int64

	// EarlyPayer owes the whole (reduced) fee in one installment, due in
	// the month of the role's first regular installment.
	EarlyPayer bool
}

// IsZero reports whether no agreement applies.
func (a DuesAgreement) IsZero() bool {
	return a.FeeReductionCents == 0 && !a.EarlyPayer
}

// Participant is a registered person taken from the roster feed.
// The calculator treats it as read-only input.
type Participant struct {
	// ID is the registration database primary key.
	ID int64

	// Role selects the tariff row.
	Role Role

	// RawRole is the role string as stored, kept for diagnostics when it
	// could not be resolved.
	RawRole string

	FirstName string
	LastName  string

	// Status is the registration status, e.g. "vollständig".
	Status string

	Mandate Mandate

	// MandateHistory tells whether the mandate was collected on before.
	MandateHistory MandateHistory

	Agreement DuesAgreement
}

// DisplayName returns "First Last", skipping empty parts.
func (p Participant) DisplayName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Initials returns "F. L." for use in reports that must not show full names.
func (p Participant) Initials() string {
	var parts []string
	for _, n := range []string{p.FirstName, p.LastName} {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		parts = append(parts, strings.ToUpper(string([]rune(n)[0]))+".")
	}
	return strings.Join(parts, " ")
}
