package stubapi

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/frahmantamala/gatepass/internal/gatepass"
)

// RenderPDF lays out a single approved pass on one A4 page.
func RenderPDF(gp gatepass.GatePass) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Gate Pass #%d", gp.ID), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "GATE PASS", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Pass No. %d", gp.ID), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Workman", gp.WorkmanUsername},
		{"Time out", gatepass.FormatTime(gp.TimeOut)},
		{"Time in", gatepass.FormatTime(gp.TimeIn)},
		{"Purpose", gp.Purpose},
		{"Status", string(gp.ApprovalStatus)},
		{"Approved by", orDash(gp.ApprovedByUsername)},
		{"Approved at", gatepass.FormatDateTime(gp.ApprovedAt)},
		{"Requested at", gatepass.FormatDateTime(&gp.CreatedAt)},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(45, 9, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 9, row[1], "1", "L", false)
	}

	pdf.Ln(20)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.CellFormat(0, 6, "Present this pass at the gate on exit and re-entry.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render gate pass pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
