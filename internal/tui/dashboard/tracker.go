package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/marcus/tally/internal/streak"
)

// ErrClosed is returned by a Tracker's RecordCompletion after Close.
var ErrClosed = errors.New("dashboard closed")

// Tracker wraps a Backend and counts completions still running, so the
// store is not closed underneath one the user started just before quitting.
type Tracker struct {
	Backend

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// Track wraps b.
func Track(b Backend) *Tracker {
	return &Tracker{Backend: b}
}

// RecordCompletion forwards to the wrapped backend unless Close was called.
func (t *Tracker) RecordCompletion(ctx context.Context, key string) (*streak.Result, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrClosed
	}
	t.wg.Add(1)
	t.mu.Unlock()
	defer t.wg.Done()

	return t.Backend.RecordCompletion(ctx, key)
}

// Close rejects new completions and waits for in-flight ones to finish.
func (t *Tracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.wg.Wait()
}
