package svn

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	name string
	args []string
}

type fakeRunner struct {
	calls  []recordedCall
	stdout string
	stderr string
	err    error
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, string, error) {
	f.calls = append(f.calls, recordedCall{name: name, args: args})
	return []byte(f.stdout), f.stderr, f.err
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		line   string
		want   Entry
		wantOK bool
	}{
		{"trunk/", Entry{Name: "trunk/", IsDir: true}, true},
		{"README.txt", Entry{Name: "README.txt"}, true},
		{"windows/\r", Entry{Name: "windows/", IsDir: true}, true},
		{"", Entry{}, false},
		{"   ", Entry{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, ok := ParseEntry(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_ListBuildsArgumentsAndParsesOutput(t *testing.T) {
	runner := &fakeRunner{stdout: "branches/\ntags/\ntrunk/\nREADME\n\n"}
	client := NewClient("", Credentials{Username: "alice", Password: "s3cret"}, runner.run)

	entries, err := client.List(context.Background(), "https://svn.example.org/repo/")
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Name: "branches/", IsDir: true},
		{Name: "tags/", IsDir: true},
		{Name: "trunk/", IsDir: true},
		{Name: "README"},
	}, entries)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, DefaultBinary, runner.calls[0].name)
	assert.Equal(t, []string{
		"ls", "https://svn.example.org/repo/@", "--depth", "immediates",
		"--username", "alice", "--password", "s3cret", "--no-auth-cache",
		"--non-interactive",
	}, runner.calls[0].args)
}

func TestClient_ListWithoutCredentials(t *testing.T) {
	runner := &fakeRunner{}
	client := NewClient("/opt/svn/bin/svn", Credentials{}, runner.run)

	entries, err := client.List(context.Background(), "file:///repo/")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, "/opt/svn/bin/svn", runner.calls[0].name)
	assert.NotContains(t, runner.calls[0].args, "--username")
	assert.NotContains(t, runner.calls[0].args, "--password")
}

func TestClient_ListFailureIsEnumerationError(t *testing.T) {
	cause := errors.New("exit status 1")
	runner := &fakeRunner{stderr: "svn: E200009: Could not list all targets because some targets don't exist", err: cause}
	client := NewClient("", Credentials{}, runner.run)

	_, err := client.List(context.Background(), "https://svn.example.org/repo/missing/")
	require.Error(t, err)

	var enumErr *EnumerationError
	require.True(t, errors.As(err, &enumErr))
	assert.Equal(t, "https://svn.example.org/repo/missing/", enumErr.Target)
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "E200009")
}

func TestClient_CheckoutAndUpdate(t *testing.T) {
	runner := &fakeRunner{}
	client := NewClient("", Credentials{}, runner.run)
	ctx := context.Background()

	require.NoError(t, client.Checkout(ctx, "https://svn.example.org/repo/", "wc", DepthEmpty))
	require.NoError(t, client.Update(ctx, "wc/proj/trunk/", DepthInfinity, true))

	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{"checkout", "--non-interactive", "--depth", "empty", "--quiet", "https://svn.example.org/repo/", "wc"}, runner.calls[0].args)
	assert.Equal(t, []string{"update", "--non-interactive", "--parents", "--set-depth", "infinity", "--quiet", "wc/proj/trunk/@"}, runner.calls[1].args)
}

func TestClient_UpdateFailure(t *testing.T) {
	runner := &fakeRunner{stderr: "svn: E155007: not a working copy", err: errors.New("exit status 1")}
	client := NewClient("", Credentials{}, runner.run)

	err := client.Update(context.Background(), "nowhere", DepthInfinity, true)
	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "update", cmdErr.Subcommand)
	assert.Contains(t, err.Error(), "E155007")
}

func TestClient_Info(t *testing.T) {
	runner := &fakeRunner{stdout: strings.Join([]string{
		"Path: repo",
		"URL: https://svn.example.org/repo",
		"Revision: 1234",
		"Node Kind: directory",
		"garbage line",
	}, "\n")}
	client := NewClient("", Credentials{}, runner.run)

	info, err := client.Info(context.Background(), "https://svn.example.org/repo")
	require.NoError(t, err)
	assert.Equal(t, "1234", info["Revision"])
	assert.Equal(t, "directory", info["Node Kind"])
	assert.Equal(t, "https://svn.example.org/repo", info["URL"])
	assert.Len(t, info, 4)
	assert.Equal(t, []string{"info", "--non-interactive", "https://svn.example.org/repo@"}, runner.calls[0].args)
}

func TestClient_PegRevisionSafeTargets(t *testing.T) {
	runner := &fakeRunner{}
	client := NewClient("", Credentials{}, runner.run)
	ctx := context.Background()

	_, err := client.List(ctx, "https://svn.example.org/repo/user@example.org/")
	require.NoError(t, err)
	require.NoError(t, client.Update(ctx, "wc/user@example.org", DepthInfinity, true))

	require.Len(t, runner.calls, 2)
	assert.Equal(t, "https://svn.example.org/repo/user@example.org/@", runner.calls[0].args[1])
	args := runner.calls[1].args
	assert.Equal(t, "wc/user@example.org@", args[len(args)-1])
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"listing missing", &EnumerationError{Stderr: "svn: E200009: Could not list all targets"}, true},
		{"info missing", &CommandError{Subcommand: "info", Stderr: "svn: E170000: URL non-existent in revision 3"}, true},
		{"dav path not found", &EnumerationError{Stderr: "svn: E160013: path not found"}, true},
		{"connection refused", &EnumerationError{Stderr: "svn: E170013: Unable to connect"}, false},
		{"plain error", errors.New("E200009"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}

func TestCredentialsStringMasksPassword(t *testing.T) {
	creds := Credentials{Username: "bob", Password: "hunter2"}
	assert.NotContains(t, creds.String(), "hunter2")
	assert.Contains(t, creds.String(), "bob")
	assert.True(t, Credentials{}.IsZero())
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://h/repo/a/b/", JoinURL("https://h/repo", "a/b/"))
	assert.Equal(t, "https://h/repo/", JoinURL("https://h/repo/", ""))
	assert.Equal(t, "a/", JoinURL("", "a/"))
	assert.Equal(t, "https://h/repo/a%23b/q%3Fx/pct%25/", JoinURL("https://h/repo", "a#b/q?x/pct%/"))
	assert.Equal(t, "https://h/repo/My%20Docs/notes.txt", JoinURL("https://h/repo/", "My Docs/notes.txt"))
	assert.Equal(t, "https://h/re%20po/a/", JoinURL("https://h/re%20po/", "a/"))
}
