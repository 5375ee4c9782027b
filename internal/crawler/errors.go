package crawler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harrison/svncrawl/internal/svn"
)

// ErrAlreadyRun is returned by Run on a crawler that has already been used.
var ErrAlreadyRun = errors.New("crawler has already run")

// CrawlError aggregates the directories a finished crawl could not list.
type CrawlError struct {
	Failed int
	Errors []*svn.EnumerationError
}

// Error summarizes the failures, listing at most three of them.
func (e *CrawlError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d director", e.Failed)
	if e.Failed == 1 {
		sb.WriteString("y")
	} else {
		sb.WriteString("ies")
	}
	sb.WriteString(" could not be listed")

	const shown = 3
	for i, err := range e.Errors {
		if i == shown {
			fmt.Fprintf(&sb, "; and %d more", len(e.Errors)-shown)
			break
		}
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Unwrap exposes each enumeration failure to errors.Is and errors.As.
func (e *CrawlError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		errs[i] = err
	}
	return errs
}
