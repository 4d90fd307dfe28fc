package sepa

import (
	"encoding/xml"
	"fmt"
	"io"
	"time"
)

// Summary is a flattened view of a pain.008 document, used to check a
// file before it is handed to the bank.
type Summary struct {
	MessageID       string
	CreatedAt       string
	NumTransactions int
	ControlSumCents int64
	Payments        []PaymentSummary
}

// PaymentSummary describes one PmtInf block.
type PaymentSummary struct {
	ID              string
	SequenceType    string
	CollectionDate  time.Time
	NumTransactions int
	ControlSumCents int64
	Transactions    []TransactionSummary
}

// TransactionSummary describes one DrctDbtTxInf entry.
type TransactionSummary struct {
	EndToEndID  string
	MandateID   string
	DebtorName  string
	IBAN        string
	AmountCents int64
	Remittance  string
}

// ReadSummary parses a pain.008.001.02 document and verifies that the
// declared counts and control sums match the transactions it contains.
func ReadSummary(r io.Reader) (*Summary, error) {
	var doc document
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode pain.008: %w", err)
	}

	hdr := doc.Initn.GrpHdr
	ctrl, err := ParseAmount(hdr.CtrlSum)
	if err != nil {
		return nil, fmt.Errorf("group header: %w", err)
	}
	s := &Summary{
		MessageID:       hdr.MsgID,
		CreatedAt:       hdr.CreDtTm,
		NumTransactions: hdr.NbOfTxs,
		ControlSumCents: ctrl,
	}

	var count int
	var total int64
	for _, pi := range doc.Initn.PmtInf {
		ps, err := readPayment(pi)
		if err != nil {
			return nil, err
		}
		count += len(ps.Transactions)
		for _, tx := range ps.Transactions {
			total += tx.AmountCents
		}
		s.Payments = append(s.Payments, ps)
	}

	if count != s.NumTransactions {
		return nil, fmt.Errorf("group header declares %d transactions, found %d", s.NumTransactions, count)
	}
	if total != s.ControlSumCents {
		return nil, fmt.Errorf("group header control sum %s, transactions sum to %s",
			FormatAmount(s.ControlSumCents), FormatAmount(total))
	}
	return s, nil
}

func readPayment(pi paymentInfo) (PaymentSummary, error) {
	ctrl, err := ParseAmount(pi.CtrlSum)
	if err != nil {
		return PaymentSummary{}, fmt.Errorf("payment %s: %w", pi.PmtInfID, err)
	}
	date, err := time.Parse("2006-01-02", pi.ReqdColltnDt)
	if err != nil {
		return PaymentSummary{}, fmt.Errorf("payment %s: invalid collection date: %w", pi.PmtInfID, err)
	}

	ps := PaymentSummary{
		ID:              pi.PmtInfID,
		SequenceType:    pi.PmtTpInf.SeqTp,
		CollectionDate:  date,
		NumTransactions: pi.NbOfTxs,
		ControlSumCents: ctrl,
	}

	var total int64
	for _, tx := range pi.DrctDbtTxInf {
		cents, err := ParseAmount(tx.InstdAmt.Value)
		if err != nil {
			return PaymentSummary{}, fmt.Errorf("transaction %s: %w", tx.EndToEndID, err)
		}
		total += cents
		ps.Transactions = append(ps.Transactions, TransactionSummary{
			EndToEndID:  tx.EndToEndID,
			MandateID:   tx.DrctDbtTx.MndtID,
			DebtorName:  tx.Dbtr.Nm,
			IBAN:        tx.DbtrAcct.IBAN,
			AmountCents: cents,
			Remittance:  tx.RmtInf.Ustrd,
		})
	}

	if len(ps.Transactions) != ps.NumTransactions || total != ps.ControlSumCents {
		return PaymentSummary{}, fmt.Errorf("payment %s: declared %d/%s, found %d/%s", pi.PmtInfID,
			ps.NumTransactions, FormatAmount(ps.ControlSumCents), len(ps.Transactions), FormatAmount(total))
	}
	return ps, nil
}
