package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/wsjrdp/dues/internal/models"
	"github.com/wsjrdp/dues/internal/sepa"
)

const qrSize = 512

// notice wraps a gofpdf document with the layout shared by all notices.
type notice struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func newNotice(title string) *notice {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	// Core fonts are cp1252; translate umlauts and the euro sign.
	return &notice{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (n *notice) heading(text string) {
	n.pdf.SetFont("Helvetica", "B", 16)
	n.pdf.MultiCell(0, 8, n.tr(text), "", "L", false)
	n.pdf.Ln(4)
}

func (n *notice) paragraph(text string) {
	n.pdf.SetFont("Helvetica", "", 11)
	n.pdf.MultiCell(0, 5.5, n.tr(text), "", "L", false)
	n.pdf.Ln(3)
}

func (n *notice) field(label, value string) {
	n.pdf.SetFont("Helvetica", "", 11)
	n.pdf.CellFormat(55, 7, n.tr(label+":"), "", 0, "L", false, 0, "")
	n.pdf.SetFont("Helvetica", "B", 11)
	n.pdf.CellFormat(0, 7, n.tr(value), "", 1, "L", false, 0, "")
}

func (n *notice) image(name string, png []byte, size float64) {
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	n.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
	n.pdf.ImageOptions(name, n.pdf.GetX(), n.pdf.GetY(), size, size, false, opts, 0, "")
	n.pdf.Ln(size + 4)
}

func (n *notice) output(w io.Writer) error {
	if err := n.pdf.Output(w); err != nil {
		return fmt.Errorf("failed to generate PDF: %w", err)
	}
	return nil
}

// WritePreNotifications renders one SEPA pre-notification page per
// transaction of b.
func WritePreNotifications(w io.Writer, b *models.Batch) error {
	if b.Len() == 0 {
		return fmt.Errorf("failed to generate pre-notifications: %w", sepa.ErrEmptyBatch)
	}

	n := newNotice("Ankündigung SEPA-Lastschrifteinzug")
	due := b.CollectionDate.Format("02.01.2006")
	for _, tx := range b.Transactions {
		n.pdf.AddPage()
		n.heading("Ankündigung SEPA-Lastschrifteinzug")
		n.paragraph(fmt.Sprintf(
			"%s zieht den folgenden Betrag am %s per SEPA-Basislastschrift von deinem Konto ein. "+
				"Bitte sorge für ausreichende Deckung.", b.Creditor.Name, due))
		n.field("Betrag", germanEuros(tx.AmountCents))
		n.field("Fälligkeitsdatum", due)
		n.field("Kontoinhaber*in", tx.DebtorName)
		n.field("IBAN", groupIBAN(tx.IBAN))
		n.field("Mandatsreferenz", tx.MandateID)
		n.field("Gläubiger-ID", b.Creditor.ID)
		n.field("Verwendungszweck", tx.Remittance)
	}
	return n.output(w)
}

// TransferCandidates returns the skipped participants who still owe money
// and must be asked to pay by bank transfer.
func TransferCandidates(diags models.Diagnostics) []models.Diagnostic {
	var out []models.Diagnostic
	for _, d := range diags.Skipped {
		if d.BalanceDueCents > 0 {
			out = append(out, d)
		}
	}
	return out
}

// WriteTransferNotices renders one payment request per transfer candidate,
// each with a GiroCode for banking apps.
func WriteTransferNotices(w io.Writer, creditor models.Creditor, diags models.Diagnostics) error {
	candidates := TransferCandidates(diags)
	if len(candidates) == 0 {
		return fmt.Errorf("failed to generate transfer notices: no participant owes a transfer")
	}

	n := newNotice("Zahlungsaufforderung")
	for _, d := range candidates {
		png, err := GiroCodePNG(creditor, d.BalanceDueCents, d.Remittance, qrSize)
		if err != nil {
			return fmt.Errorf("participant %d: %w", d.ParticipantID, err)
		}

		n.pdf.AddPage()
		n.heading("Zahlungsaufforderung")
		n.paragraph(fmt.Sprintf(
			"Hallo %s, wir konnten den fälligen Beitrag nicht per Lastschrift einziehen (%s). "+
				"Bitte überweise den Betrag auf das unten genannte Konto oder scanne den Code mit deiner Banking-App.",
			d.Name, d.Reason))
		n.field("Betrag", germanEuros(d.BalanceDueCents))
		n.field("Empfänger", creditor.Name)
		n.field("IBAN", groupIBAN(creditor.IBAN))
		n.field("BIC", creditor.BIC)
		n.field("Verwendungszweck", d.Remittance)
		n.pdf.Ln(4)
		n.image(fmt.Sprintf("girocode_%d", d.ParticipantID), png, 50)
	}
	return n.output(w)
}

// germanEuros formats cents as "1.234,50 €".
func germanEuros(cents int64) string {
	s := sepa.FormatAmount(cents)
	intPart, frac, _ := strings.Cut(s, ".")
	neg := strings.HasPrefix(intPart, "-")
	intPart = strings.TrimPrefix(intPart, "-")

	var grouped []string
	for len(intPart) > 3 {
		grouped = append([]string{intPart[len(intPart)-3:]}, grouped...)
		intPart = intPart[:len(intPart)-3]
	}
	grouped = append([]string{intPart}, grouped...)

	out := strings.Join(grouped, ".") + "," + frac + " €"
	if neg {
		out = "-" + out
	}
	return out
}

// groupIBAN inserts a space every four characters.
func groupIBAN(iban string) string {
	iban = strings.ReplaceAll(iban, " ", "")
	var b strings.Builder
	for i, r := range iban {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
