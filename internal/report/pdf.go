package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/thebringerofdeath789/535xi-sub001/internal/patch"
)

// SavePDF renders the session report into a PDF document.
func SavePDF(rep SessionReport, out string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Calibration Session Report", false)
	pdf.SetAuthor("calctl", false)
	pdf.SetCreator("calctl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, "Calibration Session Report")
	addSummarySection(pdf, rep)
	addZoneMatrixSection(pdf, rep.Zones)
	if rep.PatchSet != nil {
		addPatchSection(pdf, *rep.PatchSet)
	}

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addSummarySection(pdf *gofpdf.Fpdf, rep SessionReport) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "Variant", value: emptyFallback(rep.Variant, "-")},
		{label: "Software", value: emptyFallback(rep.Revision, "-")},
		{label: "Image", value: emptyFallback(rep.ImagePath, "-")},
		{label: "SHA-256", value: emptyFallback(rep.ImageSha256, "-")},
		{label: "Checksum Zones", value: strconv.Itoa(len(rep.Zones))},
		{label: "Overall", value: passLabel(rep.Pass)},
	}
	if rep.PatchSet != nil {
		items = append(items,
			struct{ label, value string }{"Patches Applied", strconv.Itoa(rep.PatchSet.Applied)},
			struct{ label, value string }{"Patches Failed", strconv.Itoa(rep.PatchSet.Failed)},
		)
	}
	for _, item := range items {
		pdf.CellFormat(50, 6, item.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, item.value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addZoneMatrixSection(pdf *gofpdf.Fpdf, rows []ZoneStatus) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Zone Matrix")
	pdf.Ln(9)

	headers := []string{"Zone", "Type", "Span", "Computed", "Stored", "Valid"}
	widths := []float64{34, 16, 52, 30, 30, 18}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	lineHeight := 5.0
	for _, row := range rows {
		values := []string{
			row.Name,
			strings.ToUpper(row.Kind),
			fmt.Sprintf("0x%06X-0x%06X", row.Start, row.End),
			row.Computed,
			row.Stored,
			passLabel(row.Valid),
		}
		renderTableRow(pdf, widths, values, lineHeight)
	}
	pdf.Ln(4)
}

func addPatchSection(pdf *gofpdf.Fpdf, set patch.SetResult) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Patches")
	pdf.Ln(9)

	if len(set.Results) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No patches in this session.", "", "L", false)
		return
	}

	for i, r := range set.Results {
		pdf.SetFont("Helvetica", "B", 10)
		header := fmt.Sprintf("%d. %s (%s)", i+1, r.Name, string(r.State))
		pdf.MultiCell(0, 5, header, "", "L", false)

		pdf.SetFont("Helvetica", "", 9)
		meta := fmt.Sprintf("Offset 0x%06X · %d bytes", r.Offset, r.Size)
		if len(r.Zones) > 0 {
			meta += " · Zones " + strings.Join(r.Zones, ", ")
		}
		pdf.MultiCell(0, 4, meta, "", "L", false)

		if msg := strings.TrimSpace(r.Reason); msg != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, msg, "", "L", false)
		}

		pdf.Ln(2)
	}
}

func renderTableRow(pdf *gofpdf.Fpdf, widths []float64, values []string, lineHeight float64) {
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := strings.TrimSpace(val)
		if text == "" {
			text = "-"
		}
		lines := pdf.SplitText(text, widths[i]-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		cellText := strings.Join(lines, "\n")
		pdf.MultiCell(widths[i], lineHeight, cellText, "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

func passLabel(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
