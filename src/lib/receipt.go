package lib

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
)

type ReceiptData struct {
	BookingID     uint
	PassengerName string
	VehicleID     string
	Seats         []string
	Departure     string
	Destination   string
	DepartureDate string
	DepartureTime string
	UnitPrice     int64
	TotalPrice    int64
	Currency      string
	Method        string
	Receipt       string
	PaidAt        time.Time
}

// RenderReceipt draws a one page A4 receipt for a confirmed booking and
// returns the document with a suggested file name.
func RenderReceipt(d ReceiptData) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Booking Receipt", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "BOOKING RECEIPT")
	pdf.Ln(12)

	currency := strings.ToUpper(d.Currency)
	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Booking       : #%d", d.BookingID),
		fmt.Sprintf("Passenger     : %s", orDash(d.PassengerName)),
		fmt.Sprintf("Vehicle       : %s", orDash(d.VehicleID)),
		fmt.Sprintf("Seats         : %s", orDash(strings.Join(d.Seats, ", "))),
		fmt.Sprintf("Route         : %s -> %s", orDash(d.Departure), orDash(d.Destination)),
		fmt.Sprintf("Departure     : %s %s", orDash(d.DepartureDate), orDash(d.DepartureTime)),
		fmt.Sprintf("Unit price    : %s %d", currency, d.UnitPrice),
		fmt.Sprintf("Total paid    : %s %d", currency, d.TotalPrice),
		fmt.Sprintf("Method        : %s", orDash(d.Method)),
		fmt.Sprintf("Receipt no.   : %s", orDash(d.Receipt)),
	}
	if !d.PaidAt.IsZero() {
		lines = append(lines, fmt.Sprintf("Paid at       : %s", d.PaidAt.Format("2006-01-02 15:04")))
	}
	for _, s := range lines {
		pdf.Cell(0, 7, s)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Present this receipt when boarding. Seats are valid for the departure shown above only.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), fmt.Sprintf("RECEIPT_%d.pdf", d.BookingID), nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
