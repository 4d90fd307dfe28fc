// Package report writes the human-facing outputs of a collection run: the
// diagnostics listing, the collection preview and the PDF notices.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/wsjrdp/dues/internal/models"
	"github.com/wsjrdp/dues/internal/sepa"
)

// DiagnosticsHeader is the first row of the diagnostics CSV.
var DiagnosticsHeader = []string{"participant_id", "name", "kind", "reason", "balance_due"}

// PreviewHeader is the first row of the collection preview.
var PreviewHeader = []string{"Teilnehmer*in", "Kontoinhaber*in", "IBAN", "Mandatsreferenz", "Datum SEPA-Mandat", "Betrag"}

// WriteDiagnosticsCSV lists every participant left out of the batch. The
// header is written even when there are no rows.
func WriteDiagnosticsCSV(w io.Writer, diags models.Diagnostics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(DiagnosticsHeader); err != nil {
		return fmt.Errorf("failed to write diagnostics header: %w", err)
	}
	for _, d := range diags.All() {
		record := []string{
			strconv.FormatInt(d.ParticipantID, 10),
			d.Name,
			string(d.Kind),
			d.Reason,
			sepa.FormatAmount(d.BalanceDueCents),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write diagnostic for participant %d: %w", d.ParticipantID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePreviewCSV lists the transactions of b for review before the file is
// submitted. Participants are shown by initials only. people maps
// participant IDs to roster entries; unknown IDs get an empty name column.
// The last row carries the control sum.
func WritePreviewCSV(w io.Writer, b *models.Batch, people map[int64]models.Participant) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PreviewHeader); err != nil {
		return fmt.Errorf("failed to write preview header: %w", err)
	}

	var sum int64
	for _, tx := range b.Transactions {
		sum += tx.AmountCents
		record := []string{
			people[tx.ParticipantID].Initials(),
			tx.DebtorName,
			tx.IBAN,
			tx.MandateID,
			tx.MandateSignedAt.Format("2006-01-02"),
			sepa.FormatAmount(tx.AmountCents),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write preview row for participant %d: %w", tx.ParticipantID, err)
		}
	}

	if err := cw.Write([]string{"", "", "", "", "Summe", sepa.FormatAmount(sum)}); err != nil {
		return fmt.Errorf("failed to write preview sum: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

// ParticipantIndex maps a roster by ID.
func ParticipantIndex(roster []models.Participant) map[int64]models.Participant {
	out := make(map[int64]models.Participant, len(roster))
	for _, p := range roster {
		out[p.ID] = p
	}
	return out
}
