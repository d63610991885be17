package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	api "github.com/fyrsmithlabs/assessd/pkg/api/v1"
)

// Status is the save state of one question.
type Status string

// Save states.
const (
	StatusIdle   Status = "idle"
	StatusSaving Status = "saving"
	StatusSaved  Status = "saved"
	StatusError  Status = "error"
)

// Defaults for Config.
const (
	DefaultDebounce        = 600 * time.Millisecond
	DefaultSavedDisplay    = 2 * time.Second
	DefaultTeardownTimeout = 10 * time.Second
)

// ErrClosed is returned by Flush after Close.
var ErrClosed = errors.New("autosave: aggregator closed")

// Submitter sends one batch of answers.
type Submitter interface {
	SubmitBatch(ctx context.Context, assessmentID string, items []api.AnswerItem) (int, error)
}

// Config tunes an Aggregator. Zero durations take the defaults.
type Config struct {
	Debounce        time.Duration
	SavedDisplay    time.Duration
	TeardownTimeout time.Duration
	// OnStatus is called after every status change, outside any lock.
	OnStatus func(key string, s Status)
	Clock    Clock
	Logger   *zap.Logger
}

func (c *Config) applyDefaults() {
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.SavedDisplay <= 0 {
		c.SavedDisplay = DefaultSavedDisplay
	}
	if c.TeardownTimeout <= 0 {
		c.TeardownTimeout = DefaultTeardownTimeout
	}
	if c.Clock == nil {
		c.Clock = realClock{}
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

type keyState struct {
	status Status
	// gen increments on every status change so a stale revert can tell it
	// lost the race.
	gen    uint64
	revert Timer
}

type notification struct {
	key    string
	status Status
}

// Aggregator batches answer edits for one assessment. All methods are safe
// for concurrent use.
type Aggregator struct {
	assessmentID string
	submitter    Submitter
	cfg          Config

	mu      sync.Mutex
	values  map[string]api.Value
	pending []string
	queued  map[string]bool
	keys    map[string]*keyState
	timer   Timer
	// timerGen identifies the live debounce timer. A callback whose Stop
	// lost the race sees a newer gen and does nothing.
	timerGen uint64
	closed   bool

	// inflight counts submissions in progress, teardown included.
	inflight sync.WaitGroup
}

// New creates an Aggregator that saves through submitter.
func New(assessmentID string, submitter Submitter, cfg Config) *Aggregator {
	cfg.applyDefaults()
	return &Aggregator{
		assessmentID: assessmentID,
		submitter:    submitter,
		cfg:          cfg,
		values:       make(map[string]api.Value),
		queued:       make(map[string]bool),
		keys:         make(map[string]*keyState),
	}
}

// RecordEdit stores value as the latest answer for key and restarts the
// debounce timer. A previous error status on key is cleared. Edits after
// Close are ignored.
func (a *Aggregator) RecordEdit(key string, value api.Value) {
	var notes []notification

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.values[key] = value
	if !a.queued[key] {
		a.queued[key] = true
		a.pending = append(a.pending, key)
	}
	if ks := a.keys[key]; ks != nil && ks.status == StatusError {
		notes = append(notes, a.setStatusLocked(key, StatusIdle))
	}
	a.stopDebounceLocked()
	gen := a.timerGen
	a.timer = a.cfg.Clock.AfterFunc(a.cfg.Debounce, func() { a.onDebounce(gen) })
	a.mu.Unlock()

	a.notify(notes)
}

func (a *Aggregator) onDebounce(gen uint64) {
	if err := a.flush(context.Background(), false, gen); err != nil && !errors.Is(err, ErrClosed) {
		a.cfg.Logger.Warn("autosave flush failed",
			zap.String("assessment.id", a.assessmentID), zap.Error(err))
	}
}

// Flush submits every pending answer now as one batch. Keys move to saving,
// then to saved or error. Failed keys are not retried.
func (a *Aggregator) Flush(ctx context.Context) error {
	return a.flush(ctx, false, 0)
}

// flush submits the pending answers. A non-zero debounceGen makes it a
// timer callback that only runs while that timer is still the live one.
func (a *Aggregator) flush(ctx context.Context, teardown bool, debounceGen uint64) error {
	a.mu.Lock()
	if debounceGen != 0 && debounceGen != a.timerGen {
		a.mu.Unlock()
		return nil
	}
	if a.closed && !teardown {
		a.mu.Unlock()
		return ErrClosed
	}
	a.stopDebounceLocked()
	if len(a.pending) == 0 {
		a.mu.Unlock()
		return nil
	}

	keys := a.pending
	items := make([]api.AnswerItem, len(keys))
	gens := make(map[string]uint64, len(keys))
	notes := make([]notification, 0, len(keys))
	for i, key := range keys {
		v := a.values[key]
		items[i] = api.AnswerItem{QuestionID: key, Value: &v}
		notes = append(notes, a.setStatusLocked(key, StatusSaving))
		gens[key] = a.keys[key].gen
	}
	a.pending = nil
	a.queued = make(map[string]bool)
	if !teardown {
		a.inflight.Add(1)
		defer a.inflight.Done()
	}
	a.mu.Unlock()
	a.notify(notes)

	_, err := a.submitter.SubmitBatch(ctx, a.assessmentID, items)

	final := StatusSaved
	if err != nil {
		final = StatusError
	}

	notes = notes[:0]
	a.mu.Lock()
	for _, key := range keys {
		ks := a.keys[key]
		if ks == nil || ks.gen != gens[key] {
			continue
		}
		notes = append(notes, a.setStatusLocked(key, final))
		if final == StatusSaved && !a.closed {
			key, gen := key, ks.gen
			ks.revert = a.cfg.Clock.AfterFunc(a.cfg.SavedDisplay, func() { a.revertSaved(key, gen) })
		}
	}
	a.mu.Unlock()
	a.notify(notes)

	if err != nil {
		return fmt.Errorf("saving %d answers: %w", len(items), err)
	}
	return nil
}

func (a *Aggregator) revertSaved(key string, gen uint64) {
	var notes []notification
	a.mu.Lock()
	if ks := a.keys[key]; ks != nil && ks.gen == gen && ks.status == StatusSaved {
		notes = append(notes, a.setStatusLocked(key, StatusIdle))
	}
	a.mu.Unlock()
	a.notify(notes)
}

// setStatusLocked records a transition and cancels any pending revert.
// Callers hold a.mu.
func (a *Aggregator) setStatusLocked(key string, s Status) notification {
	ks := a.keys[key]
	if ks == nil {
		ks = &keyState{status: StatusIdle}
		a.keys[key] = ks
	}
	if ks.revert != nil {
		ks.revert.Stop()
		ks.revert = nil
	}
	ks.status = s
	ks.gen++
	return notification{key: key, status: s}
}

func (a *Aggregator) notify(notes []notification) {
	if a.cfg.OnStatus == nil {
		return
	}
	for _, n := range notes {
		a.cfg.OnStatus(n.key, n.status)
	}
}

// Status reports the save state of key.
func (a *Aggregator) Status(key string) Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	if ks := a.keys[key]; ks != nil {
		return ks.status
	}
	return StatusIdle
}

// Pending returns the number of keys waiting for the next flush.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Reset drops pending edits and statuses and stops all timers.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopTimersLocked()
	a.values = make(map[string]api.Value)
	a.pending = nil
	a.queued = make(map[string]bool)
	a.keys = make(map[string]*keyState)
}

// stopDebounceLocked cancels the debounce timer and retires its gen.
func (a *Aggregator) stopDebounceLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.timerGen++
}

func (a *Aggregator) stopTimersLocked() {
	a.stopDebounceLocked()
	for _, ks := range a.keys {
		if ks.revert != nil {
			ks.revert.Stop()
			ks.revert = nil
		}
	}
}

// Close stops the timers and, if edits are pending, starts exactly one
// background flush bounded by the teardown timeout. It does not wait for
// that flush; call Wait for that. Later edits are ignored.
func (a *Aggregator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.stopTimersLocked()
	hasPending := len(a.pending) > 0
	if hasPending {
		a.inflight.Add(1)
	}
	a.mu.Unlock()

	if !hasPending {
		return
	}
	go func() {
		defer a.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.TeardownTimeout)
		defer cancel()
		if err := a.flush(ctx, true, 0); err != nil {
			a.cfg.Logger.Warn("autosave teardown flush failed",
				zap.String("assessment.id", a.assessmentID), zap.Error(err))
		}
	}()
}

// Wait blocks until every submission started before Close, including the
// teardown flush, has finished. Call it after Close.
func (a *Aggregator) Wait() {
	a.inflight.Wait()
}
