package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// Sheet names of the workbook export.
const (
	SheetSummary  = "Summary"
	SheetAnswers  = "Answers"
	SheetCoverage = "Coverage"
)

// AnswerColumns are the header cells of the Answers sheet.
var AnswerColumns = []interface{}{
	"clauseRef", "questionId", "text", "answer", "required",
	"evidenceRequired", "appendix", "category_code", "category", "category_name",
}

// WriteExcel renders r as a workbook with Summary, Answers and Coverage
// sheets. Unanswered questions have an empty answer cell.
func WriteExcel(w io.Writer, r *Report) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing workbook: %w", cerr)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("naming summary sheet: %w", err)
	}
	for _, name := range []string{SheetAnswers, SheetCoverage} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("adding sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	summary := [][]interface{}{
		{"Assessment Summary"},
		{"Assessment ID", r.AssessmentID},
		{"Created", r.CreatedAt.UTC().Format(time.RFC3339)},
		{"Standard", r.StandardCode},
		{"Total Questions", r.TotalQuestions},
		{"Required Questions", r.RequiredCount},
		{"Answered Questions", r.AnsweredCount},
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return err
	}

	answers := [][]interface{}{AnswerColumns}
	coverage := [][]interface{}{{"Clause", "Total Questions", "Answered Questions"}}
	for _, s := range r.Sections {
		for _, item := range s.Items {
			answers = append(answers, []interface{}{
				s.ClauseRef,
				item.QuestionID,
				item.Text,
				item.DisplayAnswer(""),
				item.Required,
				item.EvidenceRequired,
				item.Appendix,
				item.CategoryCode,
				item.Category,
				item.CategoryName,
			})
		}
		coverage = append(coverage, []interface{}{s.ClauseRef, len(s.Items), s.Answered})
	}
	if err := writeRows(f, SheetAnswers, answers); err != nil {
		return err
	}
	if err := writeRows(f, SheetCoverage, coverage); err != nil {
		return err
	}

	for sheet, last := range map[string]string{SheetSummary: "A1", SheetAnswers: "J1", SheetCoverage: "C1"} {
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return fmt.Errorf("styling %s header: %w", sheet, err)
		}
	}
	if err := f.SetColWidth(SheetAnswers, "C", "C", 80); err != nil {
		return fmt.Errorf("sizing answers sheet: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := row
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
