package history

import (
	"context"
	"fmt"
)

// DefaultBatchSize is how many paths a Recorder buffers before inserting.
const DefaultBatchSize = 256

// Recorder stores the paths published by one run. It satisfies
// sink.Destination, so the sink's consumer goroutine is its only caller.
type Recorder struct {
	ctx   context.Context
	store *Store
	runID string
	size  int
	buf   []string
	next  int
}

// NewRecorder returns a Recorder appending to runID in batches of batchSize
// (DefaultBatchSize when <= 0).
func (s *Store) NewRecorder(ctx context.Context, runID string, batchSize int) *Recorder {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Recorder{ctx: ctx, store: s, runID: runID, size: batchSize}
}

func (r *Recorder) Name() string {
	return fmt.Sprintf("history(%s)", shortID(r.runID))
}

func (r *Recorder) Write(path string) error {
	r.buf = append(r.buf, path)
	if len(r.buf) >= r.size {
		return r.flush()
	}
	return nil
}

// Close writes any buffered paths.
func (r *Recorder) Close() error {
	return r.flush()
}

// Recorded returns how many paths have been committed to the store.
func (r *Recorder) Recorded() int {
	return r.next
}

func (r *Recorder) flush() error {
	if len(r.buf) == 0 {
		return nil
	}
	// Paths published before a cancellation are still recorded.
	ctx := context.WithoutCancel(r.ctx)
	if err := r.store.AppendPaths(ctx, r.runID, r.next, r.buf); err != nil {
		r.buf = r.buf[:0]
		return err
	}
	r.next += len(r.buf)
	r.buf = r.buf[:0]
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
