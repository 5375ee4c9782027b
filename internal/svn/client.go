package svn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
)

// DefaultBinary is the svn executable looked up on PATH.
const DefaultBinary = "svn"

// Depth mirrors svn's --depth/--set-depth values.
type Depth string

const (
	DepthEmpty      Depth = "empty"
	DepthFiles      Depth = "files"
	DepthImmediates Depth = "immediates"
	DepthInfinity   Depth = "infinity"
)

var infoLine = regexp.MustCompile(`^([^:]+): (.*)$`)

// Runner executes a command and returns its standard output. A non-nil error
// must be accompanied by whatever the command wrote to standard error.
type Runner func(ctx context.Context, name string, args ...string) (stdout []byte, stderr string, err error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.String(), err
}

// CommandError is a failed svn invocation other than a listing.
type CommandError struct {
	Subcommand string
	Target     string
	Stderr     string
	Err        error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("svn %s %s: %v", e.Subcommand, e.Target, e.Err)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += " (" + stderr + ")"
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Client drives the svn command line client. The zero value is not usable;
// construct with NewClient.
type Client struct {
	binary      string
	credentials Credentials
	run         Runner
}

// NewClient returns a Client using binary (DefaultBinary when empty) and the
// given credentials. A nil runner selects ExecRunner.
func NewClient(binary string, credentials Credentials, run Runner) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	if run == nil {
		run = ExecRunner
	}
	return &Client{binary: binary, credentials: credentials, run: run}
}

// globalArgs are appended to every invocation. The password is never cached
// by svn and prompting is disabled so a worker cannot hang on input.
func (c *Client) globalArgs() []string {
	var args []string
	if c.credentials.Username != "" {
		args = append(args, "--username", c.credentials.Username)
	}
	if c.credentials.Password != "" {
		args = append(args, "--password", c.credentials.Password, "--no-auth-cache")
	}
	return append(args, "--non-interactive")
}

// pegTarget terminates target with an empty peg revision so an '@' inside a
// path name is not read as one.
func pegTarget(target string) string {
	return target + "@"
}

// List runs `svn ls --depth immediates` on target.
func (c *Client) List(ctx context.Context, target string) ([]Entry, error) {
	args := append([]string{"ls", pegTarget(target), "--depth", string(DepthImmediates)}, c.globalArgs()...)
	out, stderr, err := c.run(ctx, c.binary, args...)
	if err != nil {
		return nil, &EnumerationError{Target: target, Stderr: stderr, Err: err}
	}

	var entries []Entry
	for _, line := range strings.Split(string(out), "\n") {
		if entry, ok := ParseEntry(line); ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Checkout creates a working copy of url at dst limited to depth.
func (c *Client) Checkout(ctx context.Context, url, dst string, depth Depth) error {
	args := []string{"checkout"}
	args = append(args, c.globalArgs()...)
	if depth != "" {
		args = append(args, "--depth", string(depth))
	}
	args = append(args, "--quiet", url, dst)
	if _, stderr, err := c.run(ctx, c.binary, args...); err != nil {
		return &CommandError{Subcommand: "checkout", Target: url, Stderr: stderr, Err: err}
	}
	return nil
}

// Update brings path up to date, optionally widening it to depth and creating
// missing parent directories in a sparse working copy.
func (c *Client) Update(ctx context.Context, path string, depth Depth, parents bool) error {
	args := []string{"update"}
	args = append(args, c.globalArgs()...)
	if parents {
		args = append(args, "--parents")
	}
	if depth != "" {
		args = append(args, "--set-depth", string(depth))
	}
	args = append(args, "--quiet", pegTarget(path))
	if _, stderr, err := c.run(ctx, c.binary, args...); err != nil {
		return &CommandError{Subcommand: "update", Target: path, Stderr: stderr, Err: err}
	}
	return nil
}

// Info returns the "Key: Value" fields printed by `svn info`.
func (c *Client) Info(ctx context.Context, target string) (map[string]string, error) {
	args := []string{"info"}
	args = append(args, c.globalArgs()...)
	args = append(args, pegTarget(target))
	out, stderr, err := c.run(ctx, c.binary, args...)
	if err != nil {
		return nil, &CommandError{Subcommand: "info", Target: target, Stderr: stderr, Err: err}
	}
	return ParseInfo(string(out)), nil
}

// ParseInfo extracts "Key: Value" pairs, ignoring lines of any other shape.
func ParseInfo(output string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(output, "\n") {
		if m := infoLine.FindStringSubmatch(strings.TrimRight(line, "\r")); m != nil {
			fields[m[1]] = m[2]
		}
	}
	return fields
}

// notFoundCodes are the svn error codes for a path missing from the repository.
var notFoundCodes = []string{"E200009", "E170000", "E160013", "non-existent"}

// IsNotFound reports whether err looks like svn's "path not found" failure.
func IsNotFound(err error) bool {
	var stderr string
	var enumErr *EnumerationError
	var cmdErr *CommandError
	switch {
	case errors.As(err, &enumErr):
		stderr = enumErr.Stderr
	case errors.As(err, &cmdErr):
		stderr = cmdErr.Stderr
	default:
		return false
	}
	for _, code := range notFoundCodes {
		if strings.Contains(stderr, code) {
			return true
		}
	}
	return false
}
