package crawler

import (
	"errors"
	"fmt"
	"time"

	"github.com/harrison/svncrawl/internal/pattern"
	"github.com/harrison/svncrawl/internal/sink"
	"github.com/harrison/svncrawl/internal/svn"
)

// DefaultWorkers is the pool size used when Options.Workers is zero.
const DefaultWorkers = 3

// State is a step of the crawl lifecycle. A crawler moves through every state
// in order and never returns to an earlier one.
type State int32

const (
	StateIdle State = iota
	StateSeeded
	StateRunning
	StateDraining
	StateTerminated
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSeeded:
		return "seeded"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures one crawl.
type Options struct {
	// Root is the repository URL that task paths are relative to.
	Root string
	// Workers is the fixed pool size; zero means DefaultWorkers.
	Workers int
	// Filters select which paths are published. Empty publishes everything.
	Filters []string
	// Stops name directories that are not descended into. Empty prunes nothing.
	Stops []string
	// Destinations receive every published path. Run takes ownership and
	// closes them, including when it fails before the crawl starts.
	Destinations []sink.Destination
}

// Validate checks the options without starting a crawl.
func (o Options) Validate() error {
	_, _, err := o.compile()
	return err
}

func (o Options) workers() int {
	if o.Workers == 0 {
		return DefaultWorkers
	}
	return o.Workers
}

func (o Options) compile() (filters, stops pattern.Set, err error) {
	if o.Root == "" {
		return filters, stops, errors.New("root URL is required")
	}
	if o.Workers < 0 {
		return filters, stops, fmt.Errorf("workers must be positive, got %d", o.Workers)
	}
	if filters, err = pattern.Compile(pattern.KindFilter, o.Filters); err != nil {
		return filters, stops, err
	}
	if stops, err = pattern.Compile(pattern.KindStop, o.Stops); err != nil {
		return filters, stops, err
	}
	return filters, stops, nil
}

// Stats are the counters of one crawl.
type Stats struct {
	Tasks         int // directories listed, successfully or not
	Entries       int // children returned by the enumerator
	Published     int
	Pruned        int // directories matched by a stop pattern
	Failures      int // directories that could not be listed
	WriteFailures int // destination writes that failed
	Dropped       int // queued directories discarded by cancellation
	Duration      time.Duration
}

// Result is what a terminated crawl reports to its caller.
type Result struct {
	Stats  Stats
	Errors []*svn.EnumerationError
}

// Err returns nil when every directory was listed, otherwise a *CrawlError.
func (r *Result) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	return &CrawlError{Failed: len(r.Errors), Errors: r.Errors}
}
