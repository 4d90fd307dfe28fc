// Package sepa renders direct debit batches as ISO 20022 pain.008.001.02
// documents and reads them back for inspection.
package sepa

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wsjrdp/dues/internal/models"
)

// ErrEmptyBatch is returned when a batch has no transactions. A pain.008
// message must carry at least one payment information block.
var ErrEmptyBatch = errors.New("batch has no transactions")

// Sequence types are written in this order, one PmtInf block each.
var sequenceOrder = []models.SequenceType{models.SequenceFirst, models.SequenceRecurring}

// Writer renders batches.
type Writer struct {
	// NewMessageID generates message identifiers (max. 35 characters).
	// Defaults to a UUID without dashes.
	NewMessageID func() string
}

// NewWriter returns a Writer with UUID message identifiers.
func NewWriter() *Writer {
	return &Writer{NewMessageID: func() string {
		return strings.ReplaceAll(uuid.NewString(), "-", "")
	}}
}

// WriteBatch renders b to out. If b has no MessageID one is assigned to it.
func (w *Writer) WriteBatch(out io.Writer, b *models.Batch) error {
	if b.Len() == 0 {
		return ErrEmptyBatch
	}
	if b.MessageID == "" {
		b.MessageID = w.NewMessageID()
	}

	doc := document{
		Xmlns: Namespace,
		Initn: customerDDInitn{
			GrpHdr: groupHeader{
				MsgID:    b.MessageID,
				CreDtTm:  b.CreatedAt.Format("2006-01-02T15:04:05"),
				NbOfTxs:  b.Len(),
				CtrlSum:  FormatAmount(b.ControlSumCents),
				InitgPty: partyName{Nm: b.Creditor.Name},
			},
		},
	}

	for _, seq := range sequenceOrder {
		txs := b.BySequence(seq)
		if len(txs) == 0 {
			continue
		}
		doc.Initn.PmtInf = append(doc.Initn.PmtInf, paymentInfoFor(b, seq, txs))
	}

	if _, err := io.WriteString(out, xml.Header); err != nil {
		return fmt.Errorf("failed to write xml header: %w", err)
	}
	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode pain.008: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return fmt.Errorf("failed to flush pain.008: %w", err)
	}
	_, err := io.WriteString(out, "\n")
	return err
}

func paymentInfoFor(b *models.Batch, seq models.SequenceType, txs []models.DirectDebitTransaction) paymentInfo {
	var sum int64
	infos := make([]directDebitTxInf, 0, len(txs))
	for _, tx := range txs {
		sum += tx.AmountCents
		infos = append(infos, directDebitTxInf{
			EndToEndID: tx.EndToEndID,
			InstdAmt:   amount{Ccy: tx.Currency, Value: FormatAmount(tx.AmountCents)},
			DrctDbtTx: directDebitTx{
				MndtID:    tx.MandateID,
				DtOfSgntr: tx.MandateSignedAt.Format("2006-01-02"),
			},
			// BICs entered at registration are unreliable and not required
			// for SEPA core debits within the EEA.
			DbtrAgt:  agent{Other: "NOTPROVIDED"},
			Dbtr:     partyName{Nm: tx.DebtorName},
			DbtrAcct: account{IBAN: tx.IBAN},
			RmtInf:   remittanceInfo{Ustrd: tx.Remittance},
		})
	}

	id := b.MessageID
	if len(id) > 30 {
		id = id[:30]
	}

	return paymentInfo{
		PmtInfID:  id + "-" + string(seq),
		PmtMtd:    "DD",
		BtchBookg: true,
		NbOfTxs:   len(txs),
		CtrlSum:   FormatAmount(sum),
		PmtTpInf: paymentTypeInfo{
			SvcLvl:    code{Cd: "SEPA"},
			LclInstrm: code{Cd: "CORE"},
			SeqTp:     string(seq),
		},
		ReqdColltnDt: b.CollectionDate.Format("2006-01-02"),
		Cdtr:         partyName{Nm: b.Creditor.Name},
		CdtrAcct:     account{IBAN: b.Creditor.IBAN},
		CdtrAgt:      agent{BIC: b.Creditor.BIC},
		ChrgBr:       "SLEV",
		CdtrSchmeID:  schemeID{ID: b.Creditor.ID, SchemeNm: "SEPA"},
		DrctDbtTxInf: infos,
	}
}

// FormatAmount renders cents as a decimal string with two places.
func FormatAmount(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// ParseAmount converts a decimal amount string back to cents.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
