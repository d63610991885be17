package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/assessd/internal/export"
	"github.com/fyrsmithlabs/assessd/internal/importer"
	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
	"github.com/fyrsmithlabs/assessd/pkg/client"
)

func httpClient() *http.Client {
	return &http.Client{Timeout: timeout}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check assessd server health",
		Long: `Check the health status of the assessd HTTP server.

Examples:
  # Check health
  assessctl health

  # Check health on a different server
  assessctl health --server http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: runHealth,
	}
}

func runHealth(cmd *cobra.Command, args []string) error {
	resp, err := newClient().Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to reach %s: %w", serverURL, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Server Status: %s\n", resp.Status)
	fmt.Fprintf(cmd.OutOrStdout(), "Server URL: %s\n", serverURL)
	return nil
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new assessment",
		Args:  cobra.NoArgs,
		RunE:  runCreate,
	}
	cmd.Flags().String("standard", "", "standard version code (server default when empty)")
	return cmd
}

func runCreate(cmd *cobra.Command, args []string) error {
	code, _ := cmd.Flags().GetString("standard")
	resp, err := newClient().CreateAssessment(cmd.Context(), code)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.ID)
	return nil
}

func newQuestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions <assessment-id>",
		Short: "List the questions of an assessment grouped by clause",
		Args:  cobra.ExactArgs(1),
		RunE:  runQuestions,
	}
	cmd.Flags().Bool("json", false, "print the raw JSON response")
	return cmd
}

func runQuestions(cmd *cobra.Command, args []string) error {
	resp, err := newClient().Questions(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintf(out, "Assessment %s (%s)\n", resp.AssessmentID, resp.StandardCode)
	fmt.Fprintf(out, "Answered %d of %d, %d required\n", resp.AnsweredCount, resp.TotalQuestions, resp.RequiredCount)
	for _, g := range resp.Groups {
		fmt.Fprintf(out, "\n%s  %s\n", g.ClauseRef, g.ClauseTitle)
		for _, q := range g.Questions {
			answer := "-"
			if q.Answer != nil {
				answer = q.Answer.String()
			}
			marker := " "
			if q.Required {
				marker = "*"
			}
			fmt.Fprintf(out, "  %s %-12s %-8s %s\n", marker, q.QuestionID, answer, q.Text)
		}
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <assessment-id>",
		Short: "Download an assessment report",
		Long: `Download an assessment as a PDF or Excel report.

Examples:
  # PDF into the current directory
  assessctl export 8f14e45f-ceea-467a-9e56-1f7d3c2a0b11

  # Excel to stdout
  assessctl export 8f14e45f-ceea-467a-9e56-1f7d3c2a0b11 --format excel --out - > report.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}
	cmd.Flags().StringP("format", "f", string(export.FormatPDF), "report format: pdf or excel")
	cmd.Flags().StringP("out", "o", "", "output path, - for stdout (default RUR2_Assessment_<id>.<ext>)")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	formatFlag, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	id := args[0]
	path, _ := cmd.Flags().GetString("out")

	if path == "-" {
		return newClient().Export(cmd.Context(), id, string(format), cmd.OutOrStdout())
	}
	if path == "" {
		path = format.Filename(id)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := newClient().Export(cmd.Context(), id, string(format), f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Upload a CSV question bank",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return fmt.Errorf("%s: only .csv files can be imported", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	resp, err := newClient().ImportQuestions(cmd.Context(), filepath.Base(path), f)
	out := cmd.OutOrStdout()
	if err != nil {
		var se *client.StatusError
		if errors.As(err, &se) {
			for _, line := range se.Response.Logs {
				fmt.Fprintln(out, line)
			}
		}
		return err
	}
	for _, line := range resp.Logs {
		fmt.Fprintln(out, line)
	}
	if resp.Report != nil {
		fmt.Fprintf(out, "Imported %d question(s), skipped %d, duplicates %d\n",
			resp.Report.Imported, resp.Report.Skipped, resp.Report.Duplicates)
	}
	return nil
}

func newCoverageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coverage",
		Short: "Show question counts per clause bucket",
		Args:  cobra.NoArgs,
		RunE:  runCoverage,
	}
}

func runCoverage(cmd *cobra.Command, args []string) error {
	resp, err := newClient().Coverage(cmd.Context())
	if err != nil {
		return err
	}
	printCoverage(cmd, resp)
	return nil
}

func printCoverage(cmd *cobra.Command, resp *api.CoverageResponse) {
	out := cmd.OutOrStdout()
	for _, bucket := range importer.CoverageBuckets {
		fmt.Fprintf(out, "%-8s %d\n", bucket, resp.Coverage[bucket])
	}
	fmt.Fprintf(out, "%-8s %d\n", importer.OtherBucket, resp.Other)
	fmt.Fprintf(out, "%-8s %d\n", "Total", resp.Total)
}
