// Package testutil provides an in-memory repository tree for crawler tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/harrison/svncrawl/internal/svn"
)

// ErrNotFound is returned when a listed directory does not exist in the tree.
var ErrNotFound = errors.New("path not found")

// Tree is a synthetic repository that satisfies svn.Enumerator. Paths are
// crawl-relative; directories end in "/". Missing parent directories are
// created implicitly, so NewTree(root, "a/b/c") yields "a/", "a/b/" and
// "a/b/c".
type Tree struct {
	root string

	mu       sync.Mutex
	children map[string][]svn.Entry
	failures map[string]error
	calls    map[string]int
	hook     func(ctx context.Context, dir string) error
}

// NewTree builds a tree served under root (for example "mem://repo/").
func NewTree(root string, paths ...string) *Tree {
	if root != "" && !strings.HasSuffix(root, "/") {
		root += "/"
	}
	t := &Tree{
		root:     root,
		children: map[string][]svn.Entry{"": nil},
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
	for _, p := range paths {
		t.add(p)
	}
	for dir := range t.children {
		entries := t.children[dir]
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	}
	return t
}

func (t *Tree) add(p string) {
	parent := ""
	rest := strings.TrimPrefix(p, "/")
	for rest != "" {
		i := strings.Index(rest, "/")
		var name string
		if i < 0 {
			name, rest = rest, ""
		} else {
			name, rest = rest[:i+1], rest[i+1:]
		}
		full := parent + name
		if !t.hasChild(parent, name) {
			t.children[parent] = append(t.children[parent], svn.Entry{Name: name, IsDir: strings.HasSuffix(name, "/")})
		}
		if strings.HasSuffix(name, "/") {
			if _, ok := t.children[full]; !ok {
				t.children[full] = nil
			}
		}
		parent = full
	}
}

func (t *Tree) hasChild(dir, name string) bool {
	for _, e := range t.children[dir] {
		if e.Name == name {
			return true
		}
	}
	return false
}

// Root returns the URL prefix the tree is served under.
func (t *Tree) Root() string {
	return t.root
}

// Fail makes every listing of dir return err.
func (t *Tree) Fail(dir string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[dir] = err
}

// OnList installs a hook that runs before each listing. A non-nil return
// fails that listing.
func (t *Tree) OnList(hook func(ctx context.Context, dir string) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hook = hook
}

// Calls returns how many times dir was listed.
func (t *Tree) Calls(dir string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[dir]
}

// Listed returns every directory listed at least once, sorted.
func (t *Tree) Listed() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	dirs := make([]string, 0, len(t.calls))
	for d := range t.calls {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Dirs returns every directory in the tree, including the root "", sorted.
func (t *Tree) Dirs() []string {
	dirs := make([]string, 0, len(t.children))
	for d := range t.children {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	return dirs
}

// Paths returns every file and directory below the root, sorted.
func (t *Tree) Paths() []string {
	var paths []string
	for dir, entries := range t.children {
		for _, e := range entries {
			paths = append(paths, dir+e.Name)
		}
	}
	sort.Strings(paths)
	return paths
}

// List implements svn.Enumerator. The part of target below the root is
// URL-decoded, as a server would.
func (t *Tree) List(ctx context.Context, target string) ([]svn.Entry, error) {
	escaped, ok := strings.CutPrefix(target, t.root)
	if !ok {
		return nil, &svn.EnumerationError{Target: target, Err: fmt.Errorf("outside %s", t.root)}
	}
	dir, err := url.PathUnescape(escaped)
	if err != nil {
		return nil, &svn.EnumerationError{Target: target, Err: err}
	}

	t.mu.Lock()
	t.calls[dir]++
	hook := t.hook
	failure := t.failures[dir]
	t.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, dir); err != nil {
			return nil, &svn.EnumerationError{Target: target, Err: err}
		}
	}
	if failure != nil {
		return nil, &svn.EnumerationError{Target: target, Err: failure}
	}
	if err := ctx.Err(); err != nil {
		return nil, &svn.EnumerationError{Target: target, Err: err}
	}

	entries, ok := t.children[dir]
	if !ok {
		return nil, &svn.EnumerationError{Target: target, Err: ErrNotFound}
	}
	out := make([]svn.Entry, len(entries))
	copy(out, entries)
	return out, nil
}
