package logger

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/svncrawl/internal/crawler"
)

// colorScheme defines consistent colors for crawl counters.
// Green: paths published
// Red: failures
// Yellow: pruned directories and write failures
// Cyan: labels
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	value   *color.Color
}

func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		value:   color.New(color.FgWhite),
	}
}

// formatColorizedMetric formats "label: value" with a cyan label.
func formatColorizedMetric(label string, value interface{}, scheme *colorScheme) string {
	return fmt.Sprintf("%s: %s", scheme.label.Sprint(label), scheme.value.Sprintf("%v", value))
}

// formatStats renders crawl counters on one line.
// Format: "listed: N, entries: N, published: N, pruned: N, failures: N"
// Zero pruned, write-failure and dropped counters are omitted.
func formatStats(stats crawler.Stats, useColor bool) string {
	if !useColor {
		parts := []string{
			fmt.Sprintf("listed: %d", stats.Tasks),
			fmt.Sprintf("entries: %d", stats.Entries),
			fmt.Sprintf("published: %d", stats.Published),
		}
		if stats.Pruned > 0 {
			parts = append(parts, fmt.Sprintf("pruned: %d", stats.Pruned))
		}
		parts = append(parts, fmt.Sprintf("failures: %d", stats.Failures))
		if stats.WriteFailures > 0 {
			parts = append(parts, fmt.Sprintf("write failures: %d", stats.WriteFailures))
		}
		if stats.Dropped > 0 {
			parts = append(parts, fmt.Sprintf("not listed: %d", stats.Dropped))
		}
		return strings.Join(parts, ", ")
	}

	scheme := newColorScheme()
	parts := []string{
		formatColorizedMetric("listed", stats.Tasks, scheme),
		formatColorizedMetric("entries", stats.Entries, scheme),
		fmt.Sprintf("%s: %s", scheme.success.Sprint("published"), scheme.value.Sprint(stats.Published)),
	}
	if stats.Pruned > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", scheme.warn.Sprint("pruned"), scheme.value.Sprint(stats.Pruned)))
	}
	if stats.Failures > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", scheme.fail.Sprint("failures"), scheme.fail.Sprint(stats.Failures)))
	} else {
		parts = append(parts, formatColorizedMetric("failures", 0, scheme))
	}
	if stats.WriteFailures > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", scheme.warn.Sprint("write failures"), scheme.warn.Sprint(stats.WriteFailures)))
	}
	if stats.Dropped > 0 {
		parts = append(parts, fmt.Sprintf("%s: %s", scheme.warn.Sprint("not listed"), scheme.warn.Sprint(stats.Dropped)))
	}
	return strings.Join(parts, ", ")
}
