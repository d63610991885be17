package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// ReportTitle heads every PDF export.
const ReportTitle = "RUR2 – R2v3.1 Pre-Certification Self-Assessment"

const (
	pdfLineHeight = 5.0
	pdfIndent     = 7.0
)

// WritePDF renders r as a PDF: a title and summary page, then one page per
// clause. Unanswered questions print as "blank".
func WritePDF(w io.Writer, r *Report) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(ReportTitle, true)
	pdf.SetCreationDate(r.CreatedAt)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, tr(ReportTitle), "", "C", false)
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "BU", 14)
	pdf.CellFormat(0, 8, "Assessment Summary", "", 1, "L", false, 0, "")
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range []string{
		"Assessment ID: " + r.AssessmentID,
		"Created: " + r.CreatedAt.UTC().Format(time.RFC3339),
		"Standard: " + r.StandardCode,
		fmt.Sprintf("Total Questions: %d", r.TotalQuestions),
		fmt.Sprintf("Required Questions: %d", r.RequiredCount),
		fmt.Sprintf("Answered Questions: %d", r.AnsweredCount),
	} {
		pdf.CellFormat(0, pdfLineHeight, tr(line), "", 1, "L", false, 0, "")
	}

	left, _, _, _ := pdf.GetMargins()
	for _, s := range r.Sections {
		pdf.AddPage()
		pdf.SetFont("Helvetica", "BU", 12)
		pdf.MultiCell(0, 6, tr(s.ClauseRef+": "+s.ClauseTitle), "", "L", false)
		pdf.Ln(2)

		for _, item := range s.Items {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, pdfLineHeight, tr(item.QuestionID+" - "+item.Text), "", "L", false)

			pdf.SetLeftMargin(left + pdfIndent)
			pdf.SetX(left + pdfIndent)
			pdf.MultiCell(0, pdfLineHeight, tr("Answer: "+item.DisplayAnswer("blank")), "", "L", false)
			if flags := item.Flags(); len(flags) > 0 {
				pdf.SetFont("Helvetica", "", 8)
				pdf.MultiCell(0, 4, tr("["+strings.Join(flags, ", ")+"]"), "", "L", false)
			}
			pdf.SetLeftMargin(left)
			pdf.SetX(left)
			pdf.Ln(2)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("rendering pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing pdf: %w", err)
	}
	return nil
}
