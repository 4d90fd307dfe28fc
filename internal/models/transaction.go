package models

import "time"

// SequenceType is the SEPA direct debit sequence type.
type SequenceType string

const (
	SequenceFirst     SequenceType = "FRST"
	SequenceRecurring SequenceType = "RCUR"
)

// Creditor identifies the collecting organization.
type Creditor struct {
	Name string
	IBAN string
	BIC  string
	// ID is the SEPA creditor identifier, e.g. "DE81WSJ00002017275".
	ID string
}

// DirectDebitTransaction is one instruction to collect an amount from a
// participant's account. Immutable once added to a Batch.
type DirectDebitTransaction struct {
	ParticipantID int64

	// DebtorName is the account holder, transliterated to the SEPA charset.
	DebtorName string

	// IBAN is normalized: uppercase, no whitespace.
	IBAN string

	// AmountCents is strictly positive.
	AmountCents int64

	// Currency is the ISO 4217 code, always "EUR" for SEPA core debits.
	Currency string

	// Remittance is the unstructured text shown on the payer's statement.
	Remittance string

	// MandateID is derived from the participant ID and stable across runs.
	MandateID       string
	MandateSignedAt time.Time

	// EndToEndID is unique per collection; it keys the booking in the ledger.
	EndToEndID string

	CollectionDate time.Time
	SequenceType   SequenceType
}

// Batch is the set of transactions submitted together in one collection run.
type Batch struct {
	// MessageID is filled in by the writer when empty.
	MessageID string

	CreatedAt      time.Time
	Creditor       Creditor
	CollectionDate time.Time
	Transactions   []DirectDebitTransaction

	// ControlSumCents is the sum of all transaction amounts.
	ControlSumCents int64
}

// Len returns the number of transactions.
func (b *Batch) Len() int {
	return len(b.Transactions)
}

// BySequence returns the transactions with the given sequence type, in
// batch order.
func (b *Batch) BySequence(seq SequenceType) []DirectDebitTransaction {
	var out []DirectDebitTransaction
	for _, tx := range b.Transactions {
		if tx.SequenceType == seq {
			out = append(out, tx)
		}
	}
	return out
}

// DiagnosticKind separates validation failures from audit lines.
type DiagnosticKind string

const (
	DiagnosticSkipped     DiagnosticKind = "skipped"
	DiagnosticZeroBalance DiagnosticKind = "zero_balance"
)

// Diagnostic names a participant left out of the batch and why.
type Diagnostic struct {
	ParticipantID int64
	Name          string
	Kind          DiagnosticKind
	Reason        string

	// Codes are the fixed reason constants behind Reason, without
	// participant data. A participant may fail several checks at once.
	Codes []string

	// BalanceDueCents is what the participant still owes. Non-zero for
	// skipped participants who must be asked to pay by transfer.
	BalanceDueCents int64

	// Remittance is the text the participant would have seen on the debit.
	Remittance string
}

// Diagnostics pairs every batch with the participants it omitted.
type Diagnostics struct {
	Skipped     []Diagnostic
	ZeroBalance []Diagnostic
}

// All returns skipped entries followed by zero-balance entries.
func (d Diagnostics) All() []Diagnostic {
	out := make([]Diagnostic, 0, len(d.Skipped)+len(d.ZeroBalance))
	out = append(out, d.Skipped...)
	return append(out, d.ZeroBalance...)
}
