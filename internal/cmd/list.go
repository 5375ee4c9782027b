package cmd

import (
	"fmt"

	"github.com/harrison/svncrawl/internal/config"
	"github.com/harrison/svncrawl/internal/sink"
	"github.com/spf13/cobra"
)

// NewListCommand creates the 'svncrawl list' command
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <root-url>",
		Short: "List a repository recursively",
		Long: `List every path below a repository URL with a pool of concurrent workers.

Each directory is listed exactly once. Paths matching any --filter pattern
(all paths when none is given) are written to stdout, one per line, and to
--output-path when set. Directories matching a --stop pattern are still
reported but never descended into.

Directories that cannot be listed are logged and skipped; their siblings are
still crawled. Use --strict to exit non-zero when that happens.`,
		Example: `  svncrawl list https://svn.example.org/repos/
  svncrawl list --only-trunk-dirs -o trunks.txt https://svn.example.org/repos/
  svncrawl list --stop 'tags/$' --filter '\.pom$' --workers 8 https://svn.example.org/repos/`,
		Args: cobra.ExactArgs(1),
		RunE: runList,
	}

	addConfigFlags(cmd)
	addPatternFlags(cmd)
	cmd.Flags().StringP("output-path", "o", "", "Also write matched paths to this file")
	cmd.Flags().String("output-mode", config.OutputAppend, "Output file mode: append or truncate")
	cmd.Flags().BoolP("quiet", "q", false, "Do not print matched paths on stdout")
	cmd.Flags().Bool("strict", false, "Exit non-zero if any directory could not be listed")

	return cmd
}

// runList executes the list command
func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	creds, err := credentials(cmd, cfg)
	if err != nil {
		return err
	}

	log, closeLog, err := buildLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closeLog()

	var dests []sink.Destination
	if !cfg.Quiet {
		dests = append(dests, sink.NewConsole(cmd.OutOrStdout()))
	}
	if cfg.OutputPath != "" {
		file, err := sink.OpenFile(cfg.OutputPath, sink.FileMode(cfg.OutputMode))
		if err != nil {
			return fmt.Errorf("failed to open output file: %w", err)
		}
		dests = append(dests, file)
	}

	job := &crawlJob{
		cfg:          cfg,
		root:         args[0],
		enumerator:   newEnumerator(cfg, creds),
		logger:       log,
		destinations: dests,
	}
	result, err := job.execute(cmd.Context())

	if result != nil && result.Stats.Failures > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d %s could not be listed\n",
			result.Stats.Failures, plural(result.Stats.Failures, "directory", "directories"))
	}
	if err != nil {
		return err
	}
	if cfg.Strict {
		return result.Err()
	}
	return nil
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}
