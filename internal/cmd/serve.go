package cmd

import (
	"context"
	"fmt"

	"github.com/harrison/svncrawl/internal/config"
	"github.com/harrison/svncrawl/internal/crawler"
	"github.com/harrison/svncrawl/internal/sink"
	"github.com/harrison/svncrawl/internal/svn"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

type (
	// ListTreeInput contains parameters for crawling a repository.
	ListTreeInput struct {
		Root          string   `json:"root" jsonschema:"Repository URL to crawl"`
		Filters       []string `json:"filters,omitempty" jsonschema:"Regular expressions selecting the paths to return (default: all)"`
		Stops         []string `json:"stops,omitempty" jsonschema:"Regular expressions naming directories not to descend into"`
		OnlyTrunkDirs bool     `json:"onlyTrunkDirs,omitempty" jsonschema:"Return trunk directories and stop at trunk/, branches/ and tags/"`
		Workers       int      `json:"workers,omitempty" jsonschema:"Number of concurrent listing workers (default: server setting)"`
	}

	// ListTreeOutput contains the result of a crawl.
	ListTreeOutput struct {
		Paths     []string `json:"paths"`
		Listed    int      `json:"listed"`
		Pruned    int      `json:"pruned"`
		Failures  int      `json:"failures"`
		Errors    []string `json:"errors,omitempty"`
		Cancelled bool     `json:"cancelled,omitempty"`
	}
)

// NewServeCommand creates the 'svncrawl serve' command
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve crawls to MCP clients over stdio",
		Long: `Run a Model Context Protocol server on stdin/stdout exposing a
list_tree tool. Each call runs one crawl with the server's configuration
and returns the matched paths. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	addConfigFlags(cmd)

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
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

	server := newMCPServer(cfg, creds, log)
	if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("error running server: %w", err)
	}
	return nil
}

// newMCPServer returns a server whose list_tree tool crawls with cfg.
func newMCPServer(cfg *config.Config, creds svn.Credentials, log crawler.Logger) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "svncrawl",
		Version: Version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tree",
		Description: "Crawl a Subversion repository recursively and return every path matching the filters. Directories matching a stop pattern are returned but not descended into.",
	}, listTreeHandler(cfg, creds, log))

	return server
}

func listTreeHandler(base *config.Config, creds svn.Credentials, log crawler.Logger) mcp.ToolHandlerFor[ListTreeInput, ListTreeOutput] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListTreeInput) (*mcp.CallToolResult, ListTreeOutput, error) {
		if input.Root == "" {
			return &mcp.CallToolResult{IsError: true}, ListTreeOutput{}, fmt.Errorf("root cannot be empty")
		}

		cfg := *base
		cfg.Filters = input.Filters
		cfg.Stops = input.Stops
		cfg.OnlyTrunkDirs = input.OnlyTrunkDirs
		if input.Workers > 0 {
			cfg.Workers = input.Workers
		}
		if err := cfg.Validate(); err != nil {
			return &mcp.CallToolResult{IsError: true}, ListTreeOutput{}, err
		}

		collector := &sink.Collector{}
		job := &crawlJob{
			cfg:          &cfg,
			root:         input.Root,
			enumerator:   newEnumerator(&cfg, creds),
			logger:       log,
			destinations: []sink.Destination{collector},
		}
		result, err := job.execute(ctx)
		if result == nil {
			return &mcp.CallToolResult{IsError: true}, ListTreeOutput{}, err
		}

		out := ListTreeOutput{
			Paths:     collector.Paths,
			Listed:    result.Stats.Tasks,
			Pruned:    result.Stats.Pruned,
			Failures:  result.Stats.Failures,
			Cancelled: err != nil,
		}
		if out.Paths == nil {
			out.Paths = []string{}
		}
		for _, e := range result.Errors {
			out.Errors = append(out.Errors, e.Error())
		}
		return nil, out, nil
	}
}
