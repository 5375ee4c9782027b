package logger

import (
	"github.com/harrison/svncrawl/internal/crawler"
	"github.com/harrison/svncrawl/internal/svn"
)

// Multi forwards every event to each of its loggers in order. Nil entries are
// skipped.
type Multi []crawler.Logger

func (m Multi) LogCrawlStart(root string, workers int) {
	for _, l := range m {
		if l != nil {
			l.LogCrawlStart(root, workers)
		}
	}
}

func (m Multi) LogTaskFailed(err *svn.EnumerationError) {
	for _, l := range m {
		if l != nil {
			l.LogTaskFailed(err)
		}
	}
}

func (m Multi) LogPruned(path string) {
	for _, l := range m {
		if l != nil {
			l.LogPruned(path)
		}
	}
}

func (m Multi) LogSummary(result crawler.Result) {
	for _, l := range m {
		if l != nil {
			l.LogSummary(result)
		}
	}
}

func (m Multi) LogDebug(format string, args ...interface{}) {
	for _, l := range m {
		if l != nil {
			l.LogDebug(format, args...)
		}
	}
}

func (m Multi) LogInfo(format string, args ...interface{}) {
	for _, l := range m {
		if l != nil {
			l.LogInfo(format, args...)
		}
	}
}

func (m Multi) LogWarn(format string, args ...interface{}) {
	for _, l := range m {
		if l != nil {
			l.LogWarn(format, args...)
		}
	}
}

var (
	_ crawler.Logger = (*ConsoleLogger)(nil)
	_ crawler.Logger = (*FileLogger)(nil)
	_ crawler.Logger = (*NoOpLogger)(nil)
	_ crawler.Logger = Multi(nil)
)
