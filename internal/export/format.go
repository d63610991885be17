package export

import (
	"fmt"
	"io"
	"strings"
)

// Format selects an export renderer.
type Format string

// Supported formats.
const (
	FormatPDF   Format = "pdf"
	FormatExcel Format = "excel"
)

// ParseFormat accepts "pdf", "excel" or "xlsx".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf":
		return FormatPDF, nil
	case "excel", "xlsx":
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q", s)
	}
}

// ContentType returns the MIME type of the rendered document.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename returns the download name for an assessment.
func (f Format) Filename(assessmentID string) string {
	ext := "xlsx"
	if f == FormatPDF {
		ext = "pdf"
	}
	return fmt.Sprintf("RUR2_Assessment_%s.%s", assessmentID, ext)
}

// Write renders r in format f.
func (f Format) Write(w io.Writer, r *Report) error {
	switch f {
	case FormatPDF:
		return WritePDF(w, r)
	case FormatExcel:
		return WriteExcel(w, r)
	default:
		return fmt.Errorf("unsupported export format: %q", string(f))
	}
}
