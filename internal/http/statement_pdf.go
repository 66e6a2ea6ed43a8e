package http

import (
	"bytes"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/phpdave11/gofpdf"

	"github.com/nordvault/bank-backend/internal/ledger"
)

const statementMaxRows = 200

// StatementPDF renders an account statement for a date range as a
// downloadable PDF. Defaults to the last 30 days.
func (h *LedgerHandler) StatementPDF(c *fiber.Ctx) error {
	userID, err := userUUID(c)
	if err != nil {
		return fiber.ErrUnauthorized
	}
	id, err := accountID(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid account id")
	}

	fromStr := strings.TrimSpace(c.Query("from"))
	toStr := strings.TrimSpace(c.Query("to"))
	if fromStr == "" || toStr == "" {
		end := time.Now()
		fromStr = end.AddDate(0, 0, -29).Format("2006-01-02")
		toStr = end.Format("2006-01-02")
	}

	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "from must be YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "to must be YYYY-MM-DD")
	}
	// The range is inclusive of the "to" day.
	to = to.AddDate(0, 0, 1)

	acct, entries, err := h.Engine.Statement(userContext(c), userID, id, from, to)
	if err != nil {
		return httpError(err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Account Statement")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, "Account: "+acct.Number+" ("+string(acct.Kind)+")")
	pdf.Ln(5)
	pdf.Cell(0, 6, "Period: "+fromStr+" to "+toStr)
	pdf.Ln(5)
	pdf.Cell(0, 6, "Closing balance: "+acct.Balance.String())
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetTextColor(20, 20, 20)

	colW := []float64{30, 34, 86, 32}
	writeHeader := func() {
		pdf.CellFormat(colW[0], 8, "TYPE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colW[1], 8, "DATE", "1", 0, "C", true, 0, "")
		pdf.CellFormat(colW[2], 8, "DESCRIPTION", "1", 0, "L", true, 0, "")
		pdf.CellFormat(colW[3], 8, "AMOUNT", "1", 1, "R", true, 0, "")
	}
	writeHeader()

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(30, 30, 30)

	for i, entry := range entries {
		if i >= statementMaxRows {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 8, "truncated (too many rows)", "1", 1, "C", false, 0, "")
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
			pdf.SetFont("Helvetica", "B", 10)
			writeHeader()
			pdf.SetFont("Helvetica", "", 9)
		}

		pdf.CellFormat(colW[0], 8, strings.ToUpper(string(entry.Type)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[1], 8, entry.CreatedAt.Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(colW[2], 8, trimTo(entry.Description, 64), "1", 0, "L", false, 0, "")
		pdf.CellFormat(colW[3], 8, signedAmount(entry), "1", 1, "R", false, 0, "")
	}

	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Generated "+time.Now().Format(time.RFC3339), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "pdf build failed")
	}

	filename := "statement-" + acct.Number + "-" + fromStr + "-to-" + toStr + ".pdf"
	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Send(buf.Bytes())
}

// signedAmount renders debits with a leading minus for readability;
// stored amounts are always positive.
func signedAmount(t ledger.Transaction) string {
	switch t.Type {
	case ledger.Withdrawal, ledger.TransferOut:
		return "-" + t.Amount.String()
	default:
		return t.Amount.String()
	}
}

func trimTo(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
