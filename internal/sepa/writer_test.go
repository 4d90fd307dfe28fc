package sepa

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wsjrdp/dues/internal/models"
)

var collection = time.Date(2023, time.January, 5, 0, 0, 0, 0, time.UTC)

func testBatch() *models.Batch {
	signed := time.Date(2021, time.November, 20, 0, 0, 0, 0, time.UTC)
	tx := func(id int64, cents int64, seq models.SequenceType) models.DirectDebitTransaction {
		return models.DirectDebitTransaction{
			ParticipantID:   id,
			DebtorName:      "Erika Mustermann",
			IBAN:            "DE89370400440532013000",
			AmountCents:     cents,
			Currency:        "EUR",
			Remittance:      "Vierzehnte Rate WSJ 2023 Erika Mustermann T 1",
			MandateID:       "wsjrdp" + string(rune('0'+id)),
			MandateSignedAt: signed,
			EndToEndID:      "wsjrdp" + string(rune('0'+id)) + "-20230105",
			CollectionDate:  collection,
			SequenceType:    seq,
		}
	}
	return &models.Batch{
		CreatedAt: time.Date(2023, time.January, 2, 10, 30, 0, 0, time.UTC),
		Creditor: models.Creditor{
			Name: "Ring deutscher Pfadfinder innenverbaende e.V.",
			IBAN: "DE34520900000077228802",
			BIC:  "GENODE51KS1",
			ID:   "DE81WSJ00002017275",
		},
		CollectionDate: collection,
		Transactions: []models.DirectDebitTransaction{
			tx(1, 30000, models.SequenceRecurring),
			tx(2, 90050, models.SequenceFirst),
			tx(3, 15000, models.SequenceRecurring),
		},
		ControlSumCents: 135050,
	}
}

func fixedWriter() *Writer {
	return &Writer{NewMessageID: func() string { return "0123456789abcdef0123456789abcdef" }}
}

func TestWriteBatch(t *testing.T) {
	var buf bytes.Buffer
	b := testBatch()
	require.NoError(t, fixedWriter().WriteBatch(&buf, b))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, out, `<Document xmlns="urn:iso:std:iso:20022:tech:xsd:pain.008.001.02">`)
	assert.Contains(t, out, "<MsgId>0123456789abcdef0123456789abcdef</MsgId>")
	assert.Contains(t, out, "<CreDtTm>2023-01-02T10:30:00</CreDtTm>")
	assert.Contains(t, out, "<CtrlSum>1350.50</CtrlSum>")
	assert.Contains(t, out, `<InstdAmt Ccy="EUR">900.50</InstdAmt>`)
	assert.Contains(t, out, "<ReqdColltnDt>2023-01-05</ReqdColltnDt>")
	assert.Contains(t, out, "<DtOfSgntr>2021-11-20</DtOfSgntr>")
	assert.Contains(t, out, "<Id>NOTPROVIDED</Id>")
	assert.Contains(t, out, "<Prtry>SEPA</Prtry>")
	assert.Equal(t, "0123456789abcdef0123456789abcdef", b.MessageID)

	// FRST block comes before RCUR.
	assert.Less(t, strings.Index(out, "<SeqTp>FRST</SeqTp>"), strings.Index(out, "<SeqTp>RCUR</SeqTp>"))
}

func TestWriteBatchRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixedWriter().WriteBatch(&buf, testBatch()))

	s, err := ReadSummary(&buf)
	require.NoError(t, err)
	assert.Equal(t, 3, s.NumTransactions)
	assert.Equal(t, int64(135050), s.ControlSumCents)
	require.Len(t, s.Payments, 2)

	first := s.Payments[0]
	assert.Equal(t, "FRST", first.SequenceType)
	assert.Equal(t, "0123456789abcdef0123456789abcd-FRST", first.ID)
	assert.Equal(t, collection, first.CollectionDate)
	require.Len(t, first.Transactions, 1)
	assert.Equal(t, int64(90050), first.Transactions[0].AmountCents)
	assert.Equal(t, "wsjrdp2", first.Transactions[0].MandateID)

	recurring := s.Payments[1]
	assert.Equal(t, "RCUR", recurring.SequenceType)
	assert.Equal(t, 2, recurring.NumTransactions)
	assert.Equal(t, int64(45000), recurring.ControlSumCents)
	assert.Equal(t, "wsjrdp1-20230105", recurring.Transactions[0].EndToEndID)
}

func TestWriteBatchSingleSequence(t *testing.T) {
	b := testBatch()
	b.Transactions = b.BySequence(models.SequenceRecurring)
	b.ControlSumCents = 45000

	var buf bytes.Buffer
	require.NoError(t, fixedWriter().WriteBatch(&buf, b))
	assert.NotContains(t, buf.String(), "FRST")

	s, err := ReadSummary(&buf)
	require.NoError(t, err)
	assert.Len(t, s.Payments, 1)
}

func TestWriteEmptyBatch(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter().WriteBatch(&buf, &models.Batch{})
	assert.True(t, errors.Is(err, ErrEmptyBatch))
	assert.Zero(t, buf.Len())
}

func TestNewWriterMessageID(t *testing.T) {
	id := NewWriter().NewMessageID()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
}

func TestReadSummaryRejectsBadControlSum(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, fixedWriter().WriteBatch(&buf, testBatch()))

	tampered := strings.Replace(buf.String(), "<CtrlSum>1350.50</CtrlSum>", "<CtrlSum>1350.51</CtrlSum>", 1)
	_, err := ReadSummary(strings.NewReader(tampered))
	assert.Error(t, err)
}

func TestAmounts(t *testing.T) {
	tests := []struct {
		cents int64
		text  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{30000, "300.00"},
		{410000, "4100.00"},
		{90050, "900.50"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.text, FormatAmount(tt.cents))
		got, err := ParseAmount(tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.cents, got)
	}

	_, err := ParseAmount("zwölf")
	assert.Error(t, err)
}
