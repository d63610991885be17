package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/assessd/internal/config"
	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
	"github.com/fyrsmithlabs/assessd/pkg/autosave"
)

func newAnswerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answer <assessment-id> [question=value ...]",
		Short: "Save answers for an assessment",
		Long: `Save answers for an assessment through the autosave batcher.

Each answer is given as question=value. Values are sent as text and the
server coerces them to the question's response type, so yes/no questions
accept yes, no, true, false, y, n, 1 and 0. With --stdin, one
question=value pair is read per line; blank lines and lines starting with
# are ignored.

Later values for the same question replace earlier ones. Edits are
batched, at most 100 per request. The quiet period and teardown timeout
come from the autosave section of the assessd config; --debounce overrides
the quiet period.

Examples:
  # Answer two questions
  assessctl answer 8f14e45f-ceea-467a-9e56-1f7d3c2a0b11 CR1-1=yes "CR2-1=Reviewed every March"

  # Answer from a file
  assessctl answer 8f14e45f-ceea-467a-9e56-1f7d3c2a0b11 --stdin < answers.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAnswer,
	}
	cmd.Flags().Bool("stdin", false, "read question=value lines from stdin")
	cmd.Flags().Duration("debounce", autosave.DefaultDebounce, "quiet period before a batch is sent (default from autosave.debounce)")
	return cmd
}

// autosaveSettings reads the autosave section of the config. Flags the user
// set take precedence.
func autosaveSettings(cmd *cobra.Command) (config.AutosaveConfig, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return config.AutosaveConfig{}, err
	}
	settings := cfg.Autosave
	if cmd.Flags().Changed("debounce") {
		settings.Debounce, _ = cmd.Flags().GetDuration("debounce")
	}
	return settings, nil
}

// parseAnswer splits a question=value pair.
func parseAnswer(s string) (string, api.Value, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", api.Value{}, fmt.Errorf("invalid answer %q: want question=value", s)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", api.Value{}, fmt.Errorf("invalid answer %q: empty value", s)
	}
	return key, api.Text(value), nil
}

func readAnswerLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read answers: %w", err)
	}
	return lines, nil
}

func runAnswer(cmd *cobra.Command, args []string) error {
	assessmentID := args[0]
	pairs := args[1:]
	if fromStdin, _ := cmd.Flags().GetBool("stdin"); fromStdin {
		lines, err := readAnswerLines(cmd.InOrStdin())
		if err != nil {
			return err
		}
		pairs = append(pairs, lines...)
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no answers given")
	}
	settings, err := autosaveSettings(cmd)
	if err != nil {
		return err
	}

	type edit struct {
		key   string
		value api.Value
	}
	edits := make([]edit, 0, len(pairs))
	for _, p := range pairs {
		key, value, err := parseAnswer(p)
		if err != nil {
			return err
		}
		edits = append(edits, edit{key, value})
	}

	var (
		mu    sync.Mutex
		final = make(map[string]autosave.Status)
	)
	agg := autosave.New(assessmentID, newClient(), autosave.Config{
		Debounce:        settings.Debounce,
		SavedDisplay:    settings.SavedDisplay,
		TeardownTimeout: settings.TeardownTimeout,
		OnStatus: func(key string, s autosave.Status) {
			// Saved keys fade back to idle; report the outcome instead.
			if s == autosave.StatusIdle {
				return
			}
			mu.Lock()
			final[key] = s
			mu.Unlock()
		},
	})

	// The batcher sends everything pending in one request, so flush before
	// the server's batch limit is reached.
	queued := make(map[string]bool)
	for _, e := range edits {
		if !queued[e.key] && len(queued) == api.MaxBatchSize {
			if err := agg.Flush(cmd.Context()); err != nil {
				agg.Close()
				return err
			}
			queued = make(map[string]bool)
		}
		queued[e.key] = true
		agg.RecordEdit(e.key, e.value)
	}
	agg.Close()
	agg.Wait()

	mu.Lock()
	defer mu.Unlock()
	keys := make([]string, 0, len(final))
	for k := range final {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := cmd.OutOrStdout()
	failed := 0
	for _, k := range keys {
		fmt.Fprintf(out, "%-12s %s\n", k, final[k])
		if final[k] != autosave.StatusSaved {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d answer(s) not saved", failed, len(keys))
	}
	fmt.Fprintf(out, "Saved %d answer(s)\n", len(keys))
	return nil
}
