package cmd

import (
	"bytes"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/harrison/svncrawl/internal/config"
	"github.com/harrison/svncrawl/internal/svn"
	"github.com/harrison/svncrawl/internal/testutil"
)

const testRoot = "mem://repo/"

// testEnv isolates a command run: a private SVNCRAWL_HOME and a config path
// that does not exist, so defaults apply.
type testEnv struct {
	home       string
	configPath string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)
	return &testEnv{home: home, configPath: filepath.Join(home, "config.yaml")}
}

func (e *testEnv) dbPath() string {
	return filepath.Join(e.home, "history.db")
}

func (e *testEnv) run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	return e.runWithInput(t, nil, args...)
}

func (e *testEnv) runWithInput(t *testing.T, in io.Reader, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	if in != nil {
		root.SetIn(in)
	}
	root.SetArgs(append(args, "--config", e.configPath))
	err = root.Execute()
	return out.String(), errOut.String(), err
}

// enumeratorCall captures what newEnumerator was asked for.
type enumeratorCall struct {
	mu      sync.Mutex
	creds   svn.Credentials
	backend string
}

func useTree(t *testing.T, tree *testutil.Tree) *enumeratorCall {
	t.Helper()
	call := &enumeratorCall{}
	old := newEnumerator
	newEnumerator = func(cfg *config.Config, creds svn.Credentials) svn.Enumerator {
		call.mu.Lock()
		call.creds = creds
		call.backend = cfg.Backend
		call.mu.Unlock()
		return tree
	}
	t.Cleanup(func() { newEnumerator = old })
	return call
}

func sampleTree() *testutil.Tree {
	return testutil.NewTree(testRoot,
		"README",
		"lib/trunk/README",
		"proj/trunk/src/main.go",
		"proj/branches/b1/main.go",
		"proj/tags/v1/main.go",
	)
}

func sortedLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	sort.Strings(lines)
	return lines
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
