package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Row is one validated question from the CSV.
type Row struct {
	QuestionID       string
	ClauseRef        string
	Text             string
	ResponseType     string
	Required         bool
	EvidenceRequired bool
	Appendix         *string
	Weight           float64
	HelpText         *string
	Category         *string
	CategoryCode     *string
	CategoryName     *string
}

// SkippedRow records why a data row was not imported. Line is the 1-based
// line in the file.
type SkippedRow struct {
	Line   int
	Reason error
}

// ParseResult is the outcome of parsing a whole file. Headers is nil when
// the file held no records at all.
type ParseResult struct {
	Delimiter     rune
	Headers       HeaderMap
	Rows          []Row
	Skipped       []SkippedRow
	TotalDataRows int
}

// Duplicates counts valid rows whose question id already appeared earlier
// in the same file.
func (r *ParseResult) Duplicates() int {
	seen := make(map[string]struct{}, len(r.Rows))
	for _, row := range r.Rows {
		seen[row.QuestionID] = struct{}{}
	}
	return len(r.Rows) - len(seen)
}

// ClauseRefs returns the distinct clause refs of the valid rows in
// first-seen order.
func (r *ParseResult) ClauseRefs() []string {
	seen := make(map[string]struct{})
	var refs []string
	for _, row := range r.Rows {
		if _, ok := seen[row.ClauseRef]; ok {
			continue
		}
		seen[row.ClauseRef] = struct{}{}
		refs = append(refs, row.ClauseRef)
	}
	return refs
}

// ParseRow validates and coerces one data record.
func ParseRow(record []string, m HeaderMap) (Row, error) {
	for _, f := range RequiredFields {
		if m.cell(record, f) == "" {
			return Row{}, fmt.Errorf("%w: %s", ErrMissingField, f)
		}
	}

	return Row{
		QuestionID:       m.cell(record, FieldQuestionID),
		ClauseRef:        m.cell(record, FieldClauseRef),
		Text:             m.cell(record, FieldText),
		ResponseType:     m.cell(record, FieldResponseType),
		Required:         parseBool(m.cell(record, FieldRequired)),
		EvidenceRequired: parseBool(m.cell(record, FieldEvidenceRequired)),
		Appendix:         optional(m.cell(record, FieldAppendix)),
		Weight:           parseWeight(m.cell(record, FieldWeight)),
		HelpText:         optional(m.cell(record, FieldHelpText)),
		Category:         optional(m.cell(record, FieldCategory)),
		CategoryCode:     optional(m.cell(record, FieldCategoryCode)),
		CategoryName:     optional(m.cell(record, FieldCategoryName)),
	}, nil
}

// Parse reads a whole CSV file. Only a syntax error is fatal; invalid rows
// are collected in Skipped.
func Parse(r io.Reader) (*ParseResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	content := strings.TrimPrefix(string(raw), utf8BOM)

	res := &ParseResult{Delimiter: DetectDelimiter(firstLine(content))}

	cr := csv.NewReader(strings.NewReader(content))
	cr.Comma = res.Delimiter
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return res, nil
	}
	if err != nil {
		return nil, malformed(err)
	}
	res.Headers = MapHeaders(header)

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, malformed(err)
		}
		res.TotalDataRows++

		row, err := ParseRow(record, res.Headers)
		if err != nil {
			line, _ := cr.FieldPos(0)
			res.Skipped = append(res.Skipped, SkippedRow{Line: line, Reason: err})
			continue
		}
		res.Rows = append(res.Rows, row)
	}
	return res, nil
}

func malformed(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return fmt.Errorf("%w: line %d: %v", ErrMalformedCSV, perr.Line, perr.Err)
	}
	return fmt.Errorf("%w: %v", ErrMalformedCSV, err)
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func parseWeight(s string) float64 {
	if s == "" {
		return 1
	}
	w, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
		return 1
	}
	return w
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
