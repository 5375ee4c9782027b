package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/harrison/svncrawl/internal/config"
	"github.com/harrison/svncrawl/internal/crawler"
	"github.com/harrison/svncrawl/internal/history"
	"github.com/harrison/svncrawl/internal/logger"
	"github.com/harrison/svncrawl/internal/sink"
	"github.com/harrison/svncrawl/internal/svn"
	"github.com/spf13/cobra"
)

// newEnumerator selects the listing backend. Tests replace it with an
// in-memory tree.
var newEnumerator = func(cfg *config.Config, creds svn.Credentials) svn.Enumerator {
	if cfg.Backend == config.BackendHTTP {
		return svn.NewIndexEnumerator(nil, creds)
	}
	return svn.NewClient(cfg.SVNBinary, creds, nil)
}

// addConfigFlags registers the flags every crawling command shares.
func addConfigFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (default: .svncrawl/config.yaml)")
	cmd.Flags().Int("workers", crawler.DefaultWorkers, "Number of concurrent listing workers")
	cmd.Flags().Duration("timeout", 0, "Abort the crawl after this long (e.g. 30m, 2h; 0 = no limit)")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().String("log-dir", "", "Directory for per-run log files")
	cmd.Flags().String("backend", "", "Listing backend: svn or http")
	cmd.Flags().String("svn-binary", "", "svn executable used by the svn backend")
	cmd.Flags().String("username", "", "Repository username")
	cmd.Flags().Bool("ask-password", false, "Prompt once for the repository password")
	cmd.Flags().Bool("no-history", false, "Do not record this crawl in the history database")
}

// addPatternFlags registers filter and stop pattern flags.
func addPatternFlags(cmd *cobra.Command) {
	cmd.Flags().StringArray("filter", nil, "Report only paths matching this regular expression (repeatable)")
	cmd.Flags().StringArray("stop", nil, "Do not descend into directories matching this regular expression (repeatable)")
	cmd.Flags().Bool("only-trunk-dirs", false, "Report trunk directories and stop at trunk/, branches/ and tags/")
}

// changed reports whether flag name exists on cmd and was set explicitly.
func changed(cmd *cobra.Command, name string) bool {
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}

// flagsFromCommand collects the explicitly set flags of cmd.
func flagsFromCommand(cmd *cobra.Command) config.Flags {
	var f config.Flags
	fs := cmd.Flags()

	if changed(cmd, "workers") {
		v, _ := fs.GetInt("workers")
		f.Workers = &v
	}
	if changed(cmd, "filter") {
		v, _ := fs.GetStringArray("filter")
		f.Filters = &v
	}
	if changed(cmd, "stop") {
		v, _ := fs.GetStringArray("stop")
		f.Stops = &v
	}
	if changed(cmd, "only-trunk-dirs") {
		v, _ := fs.GetBool("only-trunk-dirs")
		f.OnlyTrunkDirs = &v
	}
	if changed(cmd, "output-path") {
		v, _ := fs.GetString("output-path")
		f.OutputPath = &v
	}
	if changed(cmd, "output-mode") {
		v, _ := fs.GetString("output-mode")
		f.OutputMode = &v
	}
	if changed(cmd, "quiet") {
		v, _ := fs.GetBool("quiet")
		f.Quiet = &v
	}
	if changed(cmd, "timeout") {
		v, _ := fs.GetDuration("timeout")
		f.Timeout = &v
	}
	if changed(cmd, "log-level") {
		v, _ := fs.GetString("log-level")
		f.LogLevel = &v
	}
	if changed(cmd, "log-dir") {
		v, _ := fs.GetString("log-dir")
		f.LogDir = &v
	}
	if changed(cmd, "backend") {
		v, _ := fs.GetString("backend")
		f.Backend = &v
	}
	if changed(cmd, "svn-binary") {
		v, _ := fs.GetString("svn-binary")
		f.SVNBinary = &v
	}
	if changed(cmd, "username") {
		v, _ := fs.GetString("username")
		f.Username = &v
	}
	if changed(cmd, "strict") {
		v, _ := fs.GetBool("strict")
		f.Strict = &v
	}
	if changed(cmd, "no-history") {
		v, _ := fs.GetBool("no-history")
		f.NoHistory = &v
	}
	return f
}

// loadConfig reads the config file named by --config (or
// .svncrawl/config.yaml), applies command line flags and validates the
// result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
	} else {
		cfg, err = config.LoadConfigFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.MergeWithFlags(flagsFromCommand(cmd))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// buildLogger returns a console logger on w, combined with a file logger when
// a log directory is configured. The returned function closes the file log.
func buildLogger(cfg *config.Config, w io.Writer) (crawler.Logger, func(), error) {
	console := logger.NewConsoleLogger(w, cfg.LogLevel)
	if cfg.LogDir == "" {
		return console, func() {}, nil
	}

	fileLog, err := logger.NewFileLogger(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	console.LogDebug("writing run log to %s", fileLog.Path())
	return logger.Multi{console, fileLog}, func() { _ = fileLog.Close() }, nil
}

// crawlJob is one crawl started from the command line or the MCP server.
type crawlJob struct {
	cfg          *config.Config
	root         string
	enumerator   svn.Enumerator
	logger       crawler.Logger
	destinations []sink.Destination
}

// execute runs the crawl under cfg.Timeout and records it in the history
// database when enabled. History problems are logged and never fail the
// crawl.
func (j *crawlJob) execute(ctx context.Context) (*crawler.Result, error) {
	if j.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.cfg.Timeout)
		defer cancel()
	}

	dests := j.destinations
	store, run := j.openHistory(ctx)
	if store != nil {
		defer store.Close()
		// Paths published before a cancellation are still recorded.
		dests = append(dests, store.NewRecorder(context.WithoutCancel(ctx), run.ID, history.DefaultBatchSize))
	}

	result, err := crawler.New(j.enumerator, crawler.WithLogger(j.logger)).Run(ctx, crawler.Options{
		Root:         j.root,
		Workers:      j.cfg.Workers,
		Filters:      j.cfg.EffectiveFilters(),
		Stops:        j.cfg.EffectiveStops(),
		Destinations: dests,
	})

	if store != nil {
		outcome := outcomeOf(result, err)
		if ferr := store.FinishRun(context.WithoutCancel(ctx), run.ID, outcome); ferr != nil {
			j.logger.LogWarn("failed to record crawl history: %v", ferr)
		} else {
			j.logger.LogDebug("recorded run %s (%s)", run.ID, outcome.State)
		}
	}

	if err != nil && errors.Is(err, context.DeadlineExceeded) && j.cfg.Timeout > 0 {
		err = fmt.Errorf("crawl timed out after %s: %w", j.cfg.Timeout, err)
	}
	return result, err
}

// openHistory opens the history store and creates the run record. It returns
// nil when history is disabled or unavailable.
func (j *crawlJob) openHistory(ctx context.Context) (*history.Store, *history.Run) {
	if !j.cfg.History.Enabled {
		return nil, nil
	}

	dbPath, err := j.cfg.HistoryDBPath()
	if err != nil {
		j.logger.LogWarn("crawl history disabled: %v", err)
		return nil, nil
	}
	store, err := history.NewStore(dbPath)
	if err != nil {
		j.logger.LogWarn("crawl history disabled: %v", err)
		return nil, nil
	}

	run := &history.Run{
		Root:      j.root,
		Filters:   j.cfg.EffectiveFilters(),
		Stops:     j.cfg.EffectiveStops(),
		Workers:   j.cfg.Workers,
		StartedAt: time.Now(),
	}
	if err := store.CreateRun(ctx, run); err != nil {
		j.logger.LogWarn("crawl history disabled: %v", err)
		store.Close()
		return nil, nil
	}
	return store, run
}

// outcomeOf maps a crawl result to the state recorded in history.
func outcomeOf(result *crawler.Result, err error) history.Outcome {
	out := history.Outcome{State: history.StateCompleted}
	switch {
	case result == nil:
		out.State = history.StateFailed
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		out.State = history.StateCancelled
	case err != nil:
		out.State = history.StateFailed
	}
	if result == nil {
		return out
	}

	out.Tasks = result.Stats.Tasks
	out.Published = result.Stats.Published
	out.Pruned = result.Stats.Pruned
	for _, e := range result.Errors {
		out.Failures = append(out.Failures, history.RunError{Path: e.Path, Message: e.Error()})
	}
	return out
}
