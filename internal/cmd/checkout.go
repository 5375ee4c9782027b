package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/svncrawl/internal/config"
	"github.com/harrison/svncrawl/internal/logger"
	"github.com/harrison/svncrawl/internal/svn"
	"github.com/spf13/cobra"
)

// workingCopy is the part of svn.Client used by checkout.
type workingCopy interface {
	Info(ctx context.Context, target string) (map[string]string, error)
	Checkout(ctx context.Context, url, dst string, depth svn.Depth) error
	Update(ctx context.Context, path string, depth svn.Depth, parents bool) error
}

// newWorkingCopy returns the svn client used by checkout. Tests replace it.
var newWorkingCopy = func(cfg *config.Config, creds svn.Credentials) workingCopy {
	return svn.NewClient(cfg.SVNBinary, creds, nil)
}

// NewCheckoutCommand creates the 'svncrawl checkout' command
func NewCheckoutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkout <root-url> <destination> <list-file>",
		Short: "Check out only the paths produced by a crawl",
		Long: `Create a sparse working copy of <root-url> in <destination> that contains
only the paths listed in <list-file>, one crawl-relative path per line (the
output of 'svncrawl list').

The root URL is checked with 'svn info' and then checked out with --depth
empty. Each listed path is updated with --parents --set-depth infinity. Updates run one at a time because svn
locks the working copy.`,
		Example: `  svncrawl list -q -o trunks.txt --only-trunk-dirs https://svn.example.org/repos/
  svncrawl checkout https://svn.example.org/repos/ ./repos trunks.txt`,
		Args: cobra.ExactArgs(3),
		RunE: runCheckout,
	}

	cmd.Flags().String("config", "", "Path to config file (default: .svncrawl/config.yaml)")
	cmd.Flags().String("svn-binary", "", "svn executable")
	cmd.Flags().String("username", "", "Repository username")
	cmd.Flags().Bool("ask-password", false, "Prompt once for the repository password")
	cmd.Flags().String("log-level", "", "Log level: trace, debug, info, warn, error")

	return cmd
}

// runCheckout executes the checkout command
func runCheckout(cmd *cobra.Command, args []string) error {
	rootURL, destination, listFile := args[0], args[1], args[2]

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	paths, err := readPathList(listFile)
	if err != nil {
		return err
	}

	creds, err := credentials(cmd, cfg)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	console := logger.NewConsoleLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	wc := newWorkingCopy(cfg, creds)

	info, err := wc.Info(ctx, rootURL)
	if err != nil {
		if svn.IsNotFound(err) {
			return fmt.Errorf("%s does not exist in the repository: %w", rootURL, err)
		}
		return fmt.Errorf("cannot reach %s: %w", rootURL, err)
	}
	if kind := info["Node Kind"]; kind != "" && kind != "directory" {
		return fmt.Errorf("%s is a %s, not a directory", rootURL, kind)
	}

	console.LogInfo("Checking out %s into %s (repository at revision %s)", rootURL, destination, revisionOf(info))
	if err := wc.Checkout(ctx, rootURL, destination, svn.DepthEmpty); err != nil {
		return fmt.Errorf("checkout failed: %w", err)
	}

	bar := logger.NewProgressBar(len(paths), 30, console.ColorEnabled())
	var failed []error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("checkout interrupted after %d of %d paths: %w", bar.Current(), len(paths), err)
		}

		target := filepath.Join(destination, filepath.FromSlash(strings.TrimSuffix(p, "/")))
		if err := wc.Update(ctx, target, svn.DepthInfinity, true); err != nil {
			console.LogWarn("%v", err)
			failed = append(failed, err)
		}
		bar.Increment()
		console.LogProgress(bar, p)
	}

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d paths failed to update: %w", len(failed), len(paths), errors.Join(failed...))
	}
	console.LogInfo("Checked out %d %s", len(paths), plural(len(paths), "path", "paths"))
	return nil
}

func revisionOf(info map[string]string) string {
	if rev := info["Revision"]; rev != "" {
		return rev
	}
	return "HEAD"
}

// readPathList returns the non-empty lines of a crawl output file. Only line
// terminators are stripped; spaces belong to the path.
func readPathList(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open path list: %w", err)
	}
	defer f.Close()

	var paths []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read path list: %w", err)
	}
	return paths, nil
}
