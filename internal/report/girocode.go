package report

import (
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"

	"github.com/wsjrdp/dues/internal/models"
	"github.com/wsjrdp/dues/internal/sepa"
)

// GiroCode returns the EPC069-12 payload (version 002, UTF-8) for a SEPA
// credit transfer to creditor. Banking apps prefill a transfer from it.
func GiroCode(creditor models.Creditor, amountCents int64, remittance string) string {
	lines := []string{
		"BCD",
		"002",
		"1",
		"SCT",
		creditor.BIC,
		clip(creditor.Name, 70),
		strings.ReplaceAll(creditor.IBAN, " ", ""),
		"EUR" + sepa.FormatAmount(amountCents),
		"", // purpose
		"", // structured reference
		clip(remittance, 140),
	}
	return strings.Join(lines, "\n")
}

// GiroCodePNG renders the GiroCode payload as a PNG of size pixels.
// EPC069-12 requires error correction level M.
func GiroCodePNG(creditor models.Creditor, amountCents int64, remittance string, size int) ([]byte, error) {
	qr, err := qrcode.New(GiroCode(creditor, amountCents, remittance), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	png, err := qr.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR to PNG: %w", err)
	}
	return png, nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
