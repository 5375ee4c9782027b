package crawler

import (
	"github.com/harrison/svncrawl/internal/svn"
)

// Logger receives crawl progress events. Implementations must be safe for
// concurrent use; workers call LogTaskFailed and LogPruned directly.
type Logger interface {
	LogCrawlStart(root string, workers int)
	LogTaskFailed(err *svn.EnumerationError)
	LogPruned(path string)
	LogSummary(result Result)
	LogDebug(format string, args ...interface{})
	LogInfo(format string, args ...interface{})
	LogWarn(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) LogCrawlStart(string, int) {}
func (nopLogger) LogTaskFailed(*svn.EnumerationError) {}
func (nopLogger) LogPruned(string) {}
func (nopLogger) LogSummary(Result) {}
func (nopLogger) LogDebug(string, ...interface{}) {}
func (nopLogger) LogInfo(string, ...interface{}) {}
func (nopLogger) LogWarn(string, ...interface{}) {}
