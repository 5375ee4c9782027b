package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/svncrawl/internal/history"
	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the 'svncrawl history' command group
func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded crawls",
		Long: `Inspect the crawls recorded in the history database.

Every 'list' run stores its configuration, the paths it published and the
directories it failed to list. Runs are addressed by id or any unique id
prefix.`,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .svncrawl/config.yaml)")
	cmd.PersistentFlags().String("db-path", "", "Path to history database (default: $SVNCRAWL_HOME/history.db)")

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryReportCommand())
	cmd.AddCommand(newHistoryPruneCommand())

	return cmd
}

// openHistoryStore opens the configured history database. It returns a nil
// store when no database exists yet.
func openHistoryStore(cmd *cobra.Command) (*history.Store, int, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, 0, err
	}

	dbPath, _ := cmd.Flags().GetString("db-path")
	if dbPath == "" {
		dbPath, err = cfg.HistoryDBPath()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to get history database path: %w", err)
		}
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, cfg.History.KeepDays, nil
	}

	store, err := history.NewStore(dbPath)
	if err != nil {
		return nil, 0, fmt.Errorf("open history store: %w", err)
	}
	return store, cfg.History.KeepDays, nil
}

func newHistoryListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent crawls",
		Args:  cobra.NoArgs,
		RunE:  runHistoryList,
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of runs to show (0 = all)")
	return cmd
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	store, _, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintln(output, "No crawl history recorded yet.")
		return nil
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(output, "No crawl history recorded yet.")
		return nil
	}

	printRunTable(output, runs)
	return nil
}

// printRunTable writes one line per run, newest first.
func printRunTable(w io.Writer, runs []*history.Run) {
	bold := color.New(color.Bold)
	bold.Fprintf(w, "%-8s  %-19s  %-9s  %7s  %9s  %8s  %s\n",
		"ID", "STARTED", "STATE", "LISTED", "PUBLISHED", "FAILURES", "ROOT")
	for _, run := range runs {
		fmt.Fprintf(w, "%-8s  %-19s  ", shortRunID(run.ID), run.StartedAt.Local().Format("2006-01-02 15:04:05"))
		stateColor(run.State).Fprintf(w, "%-9s", run.State)
		fmt.Fprintf(w, "  %7d  %9d  %8d  %s\n", run.Tasks, run.Published, run.Failures, run.Root)
	}
}

func stateColor(state history.RunState) *color.Color {
	switch state {
	case history.StateCompleted:
		return color.New(color.FgGreen)
	case history.StateCancelled:
		return color.New(color.FgYellow)
	case history.StateFailed:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgCyan)
	}
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func newHistoryShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one crawl with its failures and published paths",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistoryShow,
	}
	cmd.Flags().Int("paths", 50, "Maximum number of published paths to print (0 = all)")
	return cmd
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	store, _, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("%s: %w", args[0], history.ErrRunNotFound)
	}
	defer store.Close()

	ctx := cmd.Context()
	run, paths, failures, err := loadRun(ctx, store, args[0])
	if err != nil {
		return err
	}

	cyan := color.New(color.FgCyan, color.Bold)
	red := color.New(color.FgRed)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintf(output, "\n=== Crawl %s ===\n\n", run.ID)
	fmt.Fprintf(output, "  Root:      %s\n", run.Root)
	fmt.Fprintf(output, "  State:     ")
	stateColor(run.State).Fprintf(output, "%s\n", run.State)
	fmt.Fprintf(output, "  Started:   %s\n", run.StartedAt.Local().Format(time.RFC3339))
	if !run.FinishedAt.IsZero() {
		fmt.Fprintf(output, "  Duration:  %s\n", run.Duration().Round(time.Millisecond))
	}
	fmt.Fprintf(output, "  Workers:   %d\n", run.Workers)
	fmt.Fprintf(output, "  Filters:   %s\n", patternList(run.Filters))
	fmt.Fprintf(output, "  Stops:     %s\n", patternList(run.Stops))
	fmt.Fprintf(output, "  Listed:    %d\n", run.Tasks)
	fmt.Fprintf(output, "  Published: %d\n", run.Published)
	fmt.Fprintf(output, "  Pruned:    %d\n", run.Pruned)
	fmt.Fprintf(output, "  Failures:  %d\n", run.Failures)

	if len(failures) > 0 {
		cyan.Fprintf(output, "\nFailed directories\n")
		for _, f := range failures {
			fmt.Fprintf(output, "  %s: ", displayRunPath(f.Path))
			red.Fprintf(output, "%s\n", f.Message)
		}
	}

	if len(paths) > 0 {
		cyan.Fprintf(output, "\nPublished paths\n")
		limit, _ := cmd.Flags().GetInt("paths")
		for i, p := range paths {
			if limit > 0 && i == limit {
				gray.Fprintf(output, "  ... and %d more\n", len(paths)-limit)
				break
			}
			fmt.Fprintf(output, "  %s\n", p)
		}
	}

	return nil
}

func loadRun(ctx context.Context, store *history.Store, id string) (*history.Run, []string, []history.RunError, error) {
	run, err := store.GetRun(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	paths, err := store.Paths(ctx, run.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	failures, err := store.Errors(ctx, run.ID)
	if err != nil {
		return nil, nil, nil, err
	}
	return run, paths, failures, nil
}

func patternList(patterns []string) string {
	if len(patterns) == 0 {
		return "(none)"
	}
	return strings.Join(patterns, ", ")
}

func displayRunPath(p string) string {
	if p == "" {
		return "(root)"
	}
	return p
}

func newHistoryReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <run-id>",
		Short: "Write a Markdown or HTML report for one crawl",
		Long: `Write a report of one crawl. The output format follows the file
extension: .html or .htm produce HTML, anything else Markdown.`,
		Args: cobra.ExactArgs(1),
		RunE: runHistoryReport,
	}
	cmd.Flags().StringP("output", "o", "", "Report file (default: svncrawl-<run-id>.html)")
	return cmd
}

func runHistoryReport(cmd *cobra.Command, args []string) error {
	store, _, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	if store == nil {
		return fmt.Errorf("%s: %w", args[0], history.ErrRunNotFound)
	}
	defer store.Close()

	run, paths, failures, err := loadRun(cmd.Context(), store, args[0])
	if err != nil {
		return err
	}

	dst, _ := cmd.Flags().GetString("output")
	if dst == "" {
		dst = fmt.Sprintf("svncrawl-%s.html", shortRunID(run.ID))
	}
	if err := history.WriteReport(dst, run, paths, failures); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", dst)
	return nil
}

func newHistoryPruneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old crawls from the history database",
		Long: `Delete crawls started more than --keep-days days ago (default: the
history.keep_days setting).`,
		Args: cobra.NoArgs,
		RunE: runHistoryPrune,
	}
	cmd.Flags().Int("keep-days", 0, "Keep crawls from the last N days")
	cmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func runHistoryPrune(cmd *cobra.Command, args []string) error {
	output := cmd.OutOrStdout()

	store, keepDays, err := openHistoryStore(cmd)
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintln(output, "No crawl history recorded yet.")
		return nil
	}
	defer store.Close()

	if cmd.Flags().Changed("keep-days") {
		keepDays, _ = cmd.Flags().GetInt("keep-days")
	}
	if keepDays <= 0 {
		fmt.Fprintln(output, "Nothing to prune: keep_days is 0.")
		return nil
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes {
		fmt.Fprintf(output, "Delete crawls older than %d %s?\n", keepDays, plural(keepDays, "day", "days"))
		if !confirmAction(cmd.InOrStdin(), output) {
			fmt.Fprintln(output, "Cancelled.")
			return nil
		}
	}

	cutoff := time.Now().Add(-time.Duration(keepDays) * 24 * time.Hour)
	n, err := store.DeleteRunsBefore(cmd.Context(), cutoff)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	fmt.Fprintf(output, "Deleted %d %s.\n", n, plural(int(n), "run", "runs"))
	return nil
}

// confirmAction asks for a yes/no answer on in.
func confirmAction(in io.Reader, out io.Writer) bool {
	fmt.Fprintf(out, "Continue? [y/N]: ")
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
