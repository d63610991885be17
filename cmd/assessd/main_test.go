package main

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/assessd/internal/assessment"
	"github.com/fyrsmithlabs/assessd/internal/config"
	"github.com/fyrsmithlabs/assessd/internal/importer"
)

const testBank = `question_id,clause_ref,text,response_type,required
CR1-1,CR1,Is there a written policy?,yes_no,yes
CR2-1,CR2.1,Describe the review cycle,text,no
APP-A-1,APP-A,Is data sanitized?,yes_no,yes
`

// isolate points config loading at an empty home and a fresh sqlite file.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("ASSESSD_DATABASE_DSN", filepath.Join(dir, "assessd.db"))
	t.Setenv("ASSESSD_LOGGING_LEVEL", "error")
	configPath = ""
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, cmd := range root.Commands() {
		names[cmd.Name()] = true
		assert.NotEmpty(t, cmd.Short, cmd.Name())
	}
	for _, want := range []string{"serve", "import", "coverage", "export", "version"} {
		assert.True(t, names[want], "missing %s command", want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    dev")
	assert.Contains(t, out, "Commit:")
}

func TestImportCmd(t *testing.T) {
	dir := isolate(t)
	csvPath := filepath.Join(dir, "bank.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testBank), 0600))

	out, err := execute(t, "import", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 3 question(s), skipped 0, duplicates 0")
	assert.Contains(t, out, "total imported")

	out, err = execute(t, "coverage")
	require.NoError(t, err)
	assert.Contains(t, out, "CR1      1")
	assert.Contains(t, out, "APP-A    1")
	assert.Contains(t, out, "Total    3")
}

func TestImportCmd_Stdin(t *testing.T) {
	isolate(t)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetIn(strings.NewReader(testBank))
	root.SetArgs([]string{"import", "-"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "Imported 3")
}

func TestImportCmd_HelpNamesEveryDelimiter(t *testing.T) {
	help := newImportCmd().Long
	for _, d := range importer.Delimiters {
		assert.Contains(t, help, importer.DelimiterName(d))
	}
}

func TestImportCmd_RejectsNonCSV(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "bank.txt")
	require.NoError(t, os.WriteFile(path, []byte(testBank), 0600))

	_, err := execute(t, "import", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only .csv files")
}

func TestExportCmd(t *testing.T) {
	dir := isolate(t)
	csvPath := filepath.Join(dir, "bank.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(testBank), 0600))
	_, err := execute(t, "import", csvPath)
	require.NoError(t, err)

	cfg, err := config.LoadWithFile("")
	require.NoError(t, err)
	deps, err := initDependencies(context.Background(), cfg)
	require.NoError(t, err)
	created, err := assessment.NewService(deps.store, deps.log).Create(context.Background(), "")
	require.NoError(t, err)
	deps.Close()

	pdfPath := filepath.Join(dir, "report.pdf")
	out, err := execute(t, "export", created.ID, "--out", pdfPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+pdfPath)

	data, err := os.ReadFile(pdfPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	xlsxPath := filepath.Join(dir, "report.xlsx")
	_, err = execute(t, "export", created.ID, "-f", "xlsx", "-o", xlsxPath)
	require.NoError(t, err)
	data, err = os.ReadFile(xlsxPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")))
}

func TestExportCmd_Errors(t *testing.T) {
	isolate(t)

	_, err := execute(t, "export", "8f14e45f-ceea-467a-9e56-1f7d3c2a0b11", "--format", "docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export format")

	_, err = execute(t, "export", "8f14e45f-ceea-467a-9e56-1f7d3c2a0b11", "--out", filepath.Join(t.TempDir(), "x.pdf"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestRunIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	isolate(t)
	t.Setenv("ASSESSD_SERVER_HTTP_PORT", "18086")

	cfg, err := config.LoadWithFile("")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg)
	}()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://localhost:18086/health")
		return err == nil
	}, 3*time.Second, 50*time.Millisecond)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shutdown in time")
	}
}
