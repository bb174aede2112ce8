// Package template lays out printable tickets.
package template

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/goregular"

	"ms-theatre/internal/models"
)

const fontFamily = "goregular"

type TicketPDFGenerator struct{}

func NewTicketPDFGenerator() *TicketPDFGenerator {
	return &TicketPDFGenerator{}
}

// Generate renders a single A4 page with the seat details and the QR code
// the door staff will scan.
func (g *TicketPDFGenerator) Generate(ticket models.TicketView, qrCode []byte) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFontData(fontFamily, goregular.TTF); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	if err := pdf.SetFont(fontFamily, "", 20); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetXY(40, 40)
	pdf.Cell(nil, "THEATRE TICKET")

	if err := pdf.SetFont(fontFamily, "", 13); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetXY(40, 90)
	for _, line := range ticketLines(ticket) {
		pdf.SetX(40)
		pdf.Cell(nil, line)
		pdf.Br(22)
	}

	if len(qrCode) > 0 {
		img, err := png.Decode(bytes.NewReader(qrCode))
		if err != nil {
			return nil, fmt.Errorf("failed to decode QR code: %w", err)
		}
		if err := pdf.ImageFrom(img, 40, pdf.GetY()+20, &gopdf.Rect{W: 180, H: 180}); err != nil {
			return nil, fmt.Errorf("failed to draw QR code: %w", err)
		}
	}

	pdf.SetXY(40, 780)
	pdf.Cell(nil, "Present this page at the hall entrance.")

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func ticketLines(t models.TicketView) []string {
	lines := []string{fmt.Sprintf("Ticket #%d (reservation #%d)", t.ID, t.Reservation)}
	if p := t.Performance; p != nil {
		lines = append(lines,
			"Play: "+p.PlayTitle,
			"Hall: "+p.TheatreHallName,
			"Show time: "+p.ShowTime.UTC().Format("Mon 02 Jan 2006 15:04 MST"),
		)
	}
	return append(lines, fmt.Sprintf("Row %d, seat %d", t.Row, t.Seat))
}
