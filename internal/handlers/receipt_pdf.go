package handlers

import (
	"bytes"
	"fmt"

	"dukapos/internal/models"
	"dukapos/internal/services"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// renderReceiptPDF lays a sale out as a narrow till receipt.
func renderReceiptPDF(r *services.SaleReceipt) ([]byte, error) {
	sale := r.Sale
	const width = 80.0
	const margin = 5.0
	contentWidth := width - 2*margin

	// the page grows with the number of lines
	height := 110.0 + float64(len(sale.Items))*6
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, margin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(contentWidth, 7, tr(r.OrganizationName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(contentWidth, 4, "Receipt: "+sale.ReceiptNumber, "", 1, "C", false, 0, "")
	pdf.CellFormat(contentWidth, 4, sale.CreatedAt.Format("02-Jan-2006 15:04"), "", 1, "C", false, 0, "")
	pdf.CellFormat(contentWidth, 4, "Cashier: "+sale.CashierID.String()[:8], "", 1, "C", false, 0, "")
	pdf.Ln(2)

	colWidths := []float64{34, 8, 14, 14}
	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(240, 240, 240)
	for i, header := range []string{"Item", "Qty", "Price", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(colWidths[i], 5, header, "B", 0, align, true, 0, "")
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 8)
	for _, item := range sale.Items {
		amount := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		pdf.CellFormat(colWidths[0], 6, tr(truncate(item.Name, 22)), "", 0, "L", false, 0, "")
		pdf.CellFormat(colWidths[1], 6, fmt.Sprintf("%d", item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[2], 6, item.UnitPrice.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(colWidths[3], 6, amount.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.Ln(1)
	pdf.Line(margin, pdf.GetY(), width-margin, pdf.GetY())
	pdf.Ln(1)

	total := func(label string, v decimal.Decimal, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 8)
		pdf.CellFormat(contentWidth-24, 5, label, "", 0, "R", false, 0, "")
		pdf.CellFormat(24, 5, v.StringFixed(2), "", 1, "R", false, 0, "")
	}
	total("Subtotal", sale.Subtotal, false)
	total("Discount", sale.Discount.Neg(), false)
	total(r.TaxLabel, sale.Tax, false)
	total(fmt.Sprintf("Total (%s)", r.Currency), sale.Total, true)
	pdf.Ln(1)
	total("Paid ("+paymentLabel(sale.PaymentMethod)+")", sale.AmountPaid, false)
	if sale.ChangeDue.IsPositive() {
		total("Change", sale.ChangeDue, false)
	}
	if sale.MPesaReceiptNumber != nil {
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(contentWidth, 5, "M-Pesa ref: "+*sale.MPesaReceiptNumber, "", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(contentWidth, 4, "Thank you for shopping with us", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func paymentLabel(method string) string {
	switch method {
	case models.PaymentMPesa:
		return "M-Pesa"
	case models.PaymentCard:
		return "Card"
	default:
		return "Cash"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "."
}
