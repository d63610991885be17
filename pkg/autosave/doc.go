// Package autosave coalesces rapid answer edits into batched saves.
//
// An Aggregator belongs to one open assessment form. Every edit replaces
// the pending value for its question and restarts a quiescence timer; when
// the timer fires, all pending answers go to the server as one batch. Each
// question carries a save status (idle, saving, saved, error) for display.
// Closing the aggregator flushes whatever is still pending exactly once.
package autosave
