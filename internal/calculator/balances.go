package calculator

import (
	"fmt"

	"github.com/wsjrdp/dues/internal/models"
)

// Schedule is the part of the tariff table the calculator needs.
type Schedule interface {
	AgreedDueThrough(role models.Role, month int, agreement models.DuesAgreement) (int64, error)
}

// Snapshot is the debt position of one participant at a target month.
// It is derived on every run and never stored.
type Snapshot struct {
	Participant models.Participant
	Month       int
	DueThrough  int64 // cumulative installments up to and including Month
	Paid        int64 // sum of ledger entries; negative when payments were booked
	BalanceDue  int64 // max(0, DueThrough + Paid)

	// Entries counts the participant's ledger entries. It changes with every
	// booking, so it tells collections on the same date apart.
	Entries int
}

// Overpaid reports whether recorded payments exceed the dues so far.
// The surplus is not carried as credit; see BalanceDue.
func (s Snapshot) Overpaid() bool {
	return s.DueThrough+s.Paid < 0
}

// BalanceDue computes what participant owes as of month, net of payments.
//
// Algorithm:
//   - due_through = installments [0..month] for the participant's role,
//     after the participant's fee reduction and early-payer agreement
//   - paid = sum of the participant's ledger entries (payments are negative)
//   - balance = due_through + paid, clamped to zero
//
// Ledger entries for other participants are ignored.
func BalanceDue(schedule Schedule, participant models.Participant, ledger []models.LedgerEntry, month int) (int64, error) {
	snap, err := snapshot(schedule, participant, SumLedger(ledger)[participant.ID], month)
	if err != nil {
		return 0, err
	}
	return snap.BalanceDue, nil
}

// CalculateBalances computes one Snapshot per roster entry, in roster order.
// The ledger is aggregated once; entries referencing IDs that are not on the
// roster are ignored. Calling it twice on the same input yields the same
// result.
func CalculateBalances(schedule Schedule, roster []models.Participant, ledger []models.LedgerEntry, month int) ([]Snapshot, error) {
	totals := SumLedger(ledger)

	snapshots := make([]Snapshot, 0, len(roster))
	for _, p := range roster {
		snap, err := snapshot(schedule, p, totals[p.ID], month)
		if err != nil {
			return nil, fmt.Errorf("failed to calculate balance for participant %d: %w", p.ID, err)
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// LedgerTotal is the aggregate of one participant's ledger entries.
type LedgerTotal struct {
	Amount  int64
	Entries int
}

// SumLedger totals ledger amounts per participant ID.
func SumLedger(ledger []models.LedgerEntry) map[int64]LedgerTotal {
	totals := make(map[int64]LedgerTotal)
	for _, e := range ledger {
		t := totals[e.ParticipantID]
		t.Amount += e.AmountCents
		t.Entries++
		totals[e.ParticipantID] = t
	}
	return totals
}

func snapshot(schedule Schedule, p models.Participant, total LedgerTotal, month int) (Snapshot, error) {
	snap := Snapshot{Participant: p, Month: month, Paid: total.Amount, Entries: total.Entries}

	// Participants with an unresolvable role have no tariff row. They are
	// reported by the batch builder rather than failing the whole run.
	if !p.Role.Valid() {
		return snap, nil
	}

	due, err := schedule.AgreedDueThrough(p.Role, month, p.Agreement)
	if err != nil {
		return snap, err
	}
	snap.DueThrough = due

	balance := due + snap.Paid
	if balance < 0 {
		balance = 0
	}
	snap.BalanceDue = balance
	return snap, nil
}
