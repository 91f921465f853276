package handler

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/rl1809/campus-market/internal/core/domain"
)

const qrSize = 256

// otpQRCode encodes the order and its code as a PNG data URI the seller's
// device can scan at handover.
func otpQRCode(orderID, otp string) (string, error) {
	png, err := qrcode.Encode(orderID+"|"+otp, qrcode.Medium, qrSize)
	if err != nil {
		return "", fmt.Errorf("encode qr: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

func renderReceipt(view domain.OrderView) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "Campus Market Receipt")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 12)
	lines := []string{
		"Order: " + view.ID,
		"Status: " + string(view.Status),
		"Placed: " + view.CreatedAt.Format("2006-01-02 15:04 MST"),
		"Completed: " + view.UpdatedAt.Format("2006-01-02 15:04 MST"),
		"Total: " + view.TotalAmount.StringFixed(2),
	}
	if view.Item != nil {
		lines = append(lines, "Item: "+view.Item.Name, "Category: "+string(view.Item.Category))
	} else {
		lines = append(lines, "Item: (listing removed)")
	}
	if view.Buyer != nil {
		lines = append(lines, fmt.Sprintf("Buyer: %s %s <%s>", view.Buyer.FirstName, view.Buyer.LastName, view.Buyer.Email))
	}
	if view.Seller != nil {
		lines = append(lines, fmt.Sprintf("Seller: %s %s <%s>", view.Seller.FirstName, view.Seller.LastName, view.Seller.Email))
	}
	for _, line := range lines {
		pdf.Cell(0, 10, line)
		pdf.Ln(8)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
