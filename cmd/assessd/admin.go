package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/assessd/internal/config"
	"github.com/fyrsmithlabs/assessd/internal/export"
	"github.com/fyrsmithlabs/assessd/internal/importer"
)

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a CSV question bank into the database",
		Long: `Import a CSV question bank directly into the configured database,
without going through the HTTP server.

The delimiter (comma, semicolon, tab or pipe) is detected from the header line.
Rows are upserted by question id, so re-importing a file is safe.

Examples:
  # Import a bank
  assessd import r2v3_questions.csv

  # Import from stdin
  cat r2v3_questions.csv | assessd import -`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

func newCoverageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coverage",
		Short: "Show question counts per clause bucket",
		Args:  cobra.NoArgs,
		RunE:  runCoverage,
	}
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <assessment-id>",
		Short: "Write an assessment report to a file",
		Long: `Render an assessment as a PDF or Excel report straight from the database.

Examples:
  # PDF into the current directory
  assessd export 8f14e45f-ceea-467a-9e56-1f7d3c2a0b11

  # Excel to an explicit path
  assessd export 8f14e45f-ceea-467a-9e56-1f7d3c2a0b11 --format excel --out report.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: runExport,
	}
	cmd.Flags().StringP("format", "f", string(export.FormatPDF), "report format: pdf or excel")
	cmd.Flags().StringP("out", "o", "", "output path (default RUR2_Assessment_<id>.<ext>)")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	return cfg, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	var in io.Reader
	if args[0] == "-" {
		in = cmd.InOrStdin()
	} else {
		if !strings.EqualFold(filepath.Ext(args[0]), ".csv") {
			return fmt.Errorf("%s: only .csv files can be imported", args[0])
		}
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()
		in = f
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	deps, err := initDependencies(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	report, err := deps.importer().Import(cmd.Context(), in)
	out := cmd.OutOrStdout()
	if report != nil {
		for _, line := range report.Logs {
			fmt.Fprintln(out, line)
		}
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	fmt.Fprintf(out, "Imported %d question(s), skipped %d, duplicates %d\n",
		report.Imported, report.Skipped, report.Duplicates)
	return nil
}

func runCoverage(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	deps, err := initDependencies(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	report, err := deps.importer().Coverage(cmd.Context())
	if err != nil {
		return err
	}
	printCoverage(cmd.OutOrStdout(), report)
	return nil
}

func printCoverage(w io.Writer, report *importer.CoverageReport) {
	for _, bc := range report.Ordered() {
		fmt.Fprintf(w, "%-8s %d\n", bc.Bucket, bc.Count)
	}
	fmt.Fprintf(w, "%-8s %d\n", importer.OtherBucket, report.Other)
	fmt.Fprintf(w, "%-8s %d\n", "Total", report.Total)
}

func runExport(cmd *cobra.Command, args []string) error {
	formatFlag, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(formatFlag)
	if err != nil {
		return err
	}
	id := args[0]
	path, _ := cmd.Flags().GetString("out")
	if path == "" {
		path = format.Filename(id)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	deps, err := initDependencies(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	loader := deps.exporter()
	report, err := loader.Load(cmd.Context(), id)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := loader.Render(cmd.Context(), report, format, f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	deps.logger.Debug("export written", zap.String("path", path), zap.String("format", string(format)))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
