// Package svn talks to Subversion repositories on behalf of the crawler.
//
// The crawler only depends on the Enumerator contract: list the immediate
// children of one directory. Client satisfies it by running the svn binary,
// IndexEnumerator by reading the HTML directory index served by mod_dav_svn.
// Client additionally materializes paths with checkout and update.
package svn

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Entry is one immediate child of a listed directory. Directory names keep their
// trailing slash so a parent path plus Name is always a valid child path.
type Entry struct {
	Name  string
	IsDir bool
}

// ParseEntry converts one line of listing output into an Entry. Blank lines
// yield false.
func ParseEntry(line string) (Entry, bool) {
	name := strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(name) == "" {
		return Entry{}, false
	}
	return Entry{Name: name, IsDir: strings.HasSuffix(name, "/")}, true
}

// Enumerator lists the immediate children of the directory at target.
// Implementations report failures as *EnumerationError.
type Enumerator interface {
	List(ctx context.Context, target string) ([]Entry, error)
}

// EnumeratorFunc adapts a function to the Enumerator interface.
type EnumeratorFunc func(ctx context.Context, target string) ([]Entry, error)

// List calls f.
func (f EnumeratorFunc) List(ctx context.Context, target string) ([]Entry, error) {
	return f(ctx, target)
}

// Credentials are forwarded to the repository as-is.
type Credentials struct {
	Username string
	Password string
}

// String never reveals the password.
func (c Credentials) String() string {
	if c.Password == "" {
		return fmt.Sprintf("Credentials(username=%s)", c.Username)
	}
	return fmt.Sprintf("Credentials(username=%s, password=****)", c.Username)
}

// IsZero reports whether no credentials were supplied.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == ""
}

// EnumerationError is a failed listing of a single directory.
type EnumerationError struct {
	Path   string // crawl-relative path of the task, set by the crawler
	Target string // URL that was listed
	Stderr string
	Err    error
}

func (e *EnumerationError) Error() string {
	var sb strings.Builder
	sb.WriteString("list ")
	if e.Path != "" || e.Target == "" {
		fmt.Fprintf(&sb, "%q", e.Path)
	} else {
		sb.WriteString(e.Target)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		fmt.Fprintf(&sb, " (%s)", stderr)
	}
	return sb.String()
}

func (e *EnumerationError) Unwrap() error {
	return e.Err
}

// JoinURL appends a crawl-relative path to a repository root URL. Each path
// segment is escaped, so names containing '#', '?' or '%' address the entry
// itself. The root is used as given.
func JoinURL(root, path string) string {
	if root == "" {
		return path
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	segments := strings.Split(strings.TrimPrefix(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return root + strings.Join(segments, "/")
}
