// Package crawler walks a remote repository tree with a fixed pool of workers.
//
// The tree's shape is unknown up front. Each listed directory may enqueue more
// directories, and the crawl ends when the work queue reports quiescence: no
// directory is queued and none is being listed. Directories that fail to list
// are recorded and skipped; they never abort the crawl.
package crawler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harrison/svncrawl/internal/queue"
	"github.com/harrison/svncrawl/internal/sink"
	"github.com/harrison/svncrawl/internal/svn"
	"golang.org/x/sync/errgroup"
)

// Option customizes a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger that receives crawl events.
func WithLogger(logger Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Crawler runs a single crawl. Create a new one for every run.
type Crawler struct {
	enumerator svn.Enumerator
	logger     Logger

	state atomic.Int32

	mu       sync.Mutex
	failures []*svn.EnumerationError

	tasks   atomic.Int64
	entries atomic.Int64
	pruned  atomic.Int64
	writes  atomic.Int64
}

// New returns an idle crawler listing directories with enumerator.
func New(enumerator svn.Enumerator, opts ...Option) *Crawler {
	if enumerator == nil {
		panic("enumerator cannot be nil")
	}
	c := &Crawler{enumerator: enumerator, logger: nopLogger{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Crawler) State() State {
	return State(c.state.Load())
}

func (c *Crawler) advance(from, to State) bool {
	return c.state.CompareAndSwap(int32(from), int32(to))
}

// Run crawls opts.Root to quiescence and returns the aggregated result.
//
// Invalid options fail before anything is listed and leave the crawler idle.
// Directories that cannot be listed do not fail Run; they are reported in
// Result.Errors. If ctx ends first, the crawl still terminates cleanly and Run
// returns the partial result together with ctx.Err(). Errors from closing
// destinations are returned as well.
func (c *Crawler) Run(ctx context.Context, opts Options) (*Result, error) {
	if c.State() != StateIdle {
		return nil, ErrAlreadyRun
	}

	filters, stops, err := opts.compile()
	if err != nil {
		closeAll(opts.Destinations)
		return nil, err
	}

	// Idle -> Seeded
	if !c.advance(StateIdle, StateSeeded) {
		closeAll(opts.Destinations)
		return nil, ErrAlreadyRun
	}
	start := time.Now()
	workers := opts.workers()
	c.logger.LogCrawlStart(opts.Root, workers)

	out := sink.New(opts.Destinations, func(err *sink.WriteError) {
		c.writes.Add(1)
		c.logger.LogWarn("%v", err)
	})
	q := queue.New()
	q.Enqueue("")

	// Seeded -> Running
	c.advance(StateSeeded, StateRunning)
	p := &pool{
		crawler: c,
		root:    opts.Root,
		queue:   q,
		sink:    out,
		filters: filters,
		stops:   stops,
	}
	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			p.work(ctx)
			return nil
		})
	}

	waitErr := q.AwaitQuiescence(ctx)

	// Running -> Draining
	c.advance(StateRunning, StateDraining)
	dropped := q.Shutdown()
	if dropped > 0 {
		c.logger.LogDebug("discarded %d queued directories", dropped)
	}
	_ = g.Wait()

	// Draining -> Terminated
	closeErr := out.Close()
	c.advance(StateDraining, StateTerminated)

	c.mu.Lock()
	failures := append([]*svn.EnumerationError(nil), c.failures...)
	c.mu.Unlock()

	result := &Result{
		Stats: Stats{
			Tasks:         int(c.tasks.Load()),
			Entries:       int(c.entries.Load()),
			Published:     out.Published(),
			Pruned:        int(c.pruned.Load()),
			Failures:      len(failures),
			WriteFailures: int(c.writes.Load()),
			Dropped:       dropped,
			Duration:      time.Since(start),
		},
		Errors: failures,
	}
	c.logger.LogSummary(*result)

	return result, errors.Join(waitErr, closeErr)
}

func (c *Crawler) recordFailure(err *svn.EnumerationError) {
	c.mu.Lock()
	c.failures = append(c.failures, err)
	c.mu.Unlock()
	c.logger.LogTaskFailed(err)
}

func closeAll(dests []sink.Destination) {
	for _, d := range dests {
		_ = d.Close()
	}
}
