package crawler

import (
	"context"
	"errors"
	"strings"

	"github.com/harrison/svncrawl/internal/pattern"
	"github.com/harrison/svncrawl/internal/queue"
	"github.com/harrison/svncrawl/internal/sink"
	"github.com/harrison/svncrawl/internal/svn"
)

// pool holds what every worker of one crawl shares.
type pool struct {
	crawler *Crawler
	root    string
	queue   *queue.Queue
	sink    *sink.Sink
	filters pattern.Set
	stops   pattern.Set
}

// work processes directories until the queue shuts down or ctx ends.
func (p *pool) work(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		task, ok := p.queue.Dequeue(ctx)
		if !ok {
			return
		}
		p.process(ctx, task)
		p.queue.MarkDone(task)
	}
}

// process lists one directory, publishes its matching children and enqueues
// its unpruned subdirectories. It returns only after every enqueue.
func (p *pool) process(ctx context.Context, task string) {
	c := p.crawler
	target := svn.JoinURL(p.root, task)

	entries, err := c.enumerator.List(ctx, target)
	c.tasks.Add(1)
	if err != nil {
		if ctx.Err() != nil {
			// Cancelled mid-listing; not a repository failure.
			return
		}
		c.recordFailure(enumerationError(task, target, err))
		return
	}

	for _, e := range entries {
		c.entries.Add(1)
		full := task + e.Name
		if e.IsDir && !strings.HasSuffix(full, "/") {
			full += "/"
		}

		if pattern.PassesFilter(p.filters, full) {
			p.sink.Publish(full)
		}
		if !e.IsDir {
			continue
		}
		if pattern.IsPruned(p.stops, full) {
			c.pruned.Add(1)
			c.logger.LogPruned(full)
			continue
		}
		p.queue.Enqueue(full)
	}
}

// enumerationError returns err as an *svn.EnumerationError for task, copying
// rather than modifying one returned by the enumerator.
func enumerationError(task, target string, err error) *svn.EnumerationError {
	var enumErr *svn.EnumerationError
	if errors.As(err, &enumErr) {
		cp := *enumErr
		cp.Path = task
		if cp.Target == "" {
			cp.Target = target
		}
		return &cp
	}
	return &svn.EnumerationError{Path: task, Target: target, Err: err}
}
