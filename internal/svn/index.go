package svn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// DefaultIndexTimeout bounds a single directory index request.
const DefaultIndexTimeout = 30 * time.Second

// IndexEnumerator lists directories through the HTML index mod_dav_svn serves
// for GET requests on a repository path. It needs no local svn installation.
type IndexEnumerator struct {
	client      *http.Client
	credentials Credentials
}

// NewIndexEnumerator returns an IndexEnumerator. A nil client gets a default
// one with DefaultIndexTimeout.
func NewIndexEnumerator(client *http.Client, credentials Credentials) *IndexEnumerator {
	if client == nil {
		client = &http.Client{Timeout: DefaultIndexTimeout}
	}
	return &IndexEnumerator{client: client, credentials: credentials}
}

// List fetches target and returns the entries linked from its index page.
func (e *IndexEnumerator) List(ctx context.Context, target string) ([]Entry, error) {
	if !strings.HasSuffix(target, "/") {
		target += "/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &EnumerationError{Target: target, Err: err}
	}
	if !e.credentials.IsZero() {
		req.SetBasicAuth(e.credentials.Username, e.credentials.Password)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &EnumerationError{Target: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &EnumerationError{
			Target: target,
			Stderr: strings.TrimSpace(string(body)),
			Err:    fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, &EnumerationError{Target: target, Err: fmt.Errorf("parse index: %w", err)}
	}
	return indexEntries(doc), nil
}

// indexEntries collects the relative child links of an index page in document
// order, skipping the parent link and anything pointing elsewhere.
func indexEntries(doc *html.Node) []Entry {
	var entries []Entry
	seen := make(map[string]bool)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key != "href" {
					continue
				}
				name, ok := childName(attr.Val)
				if ok && !seen[name] {
					seen[name] = true
					entries = append(entries, Entry{Name: name, IsDir: strings.HasSuffix(name, "/")})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return entries
}

func childName(href string) (string, bool) {
	if href == "" || strings.HasPrefix(href, "/") || strings.HasPrefix(href, "?") ||
		strings.HasPrefix(href, "#") || strings.Contains(href, "://") {
		return "", false
	}
	if href == "." || href == ".." || strings.HasPrefix(href, "./") || strings.HasPrefix(href, "../") {
		return "", false
	}
	name, err := url.PathUnescape(href)
	if err != nil {
		return "", false
	}
	if strings.Contains(strings.TrimSuffix(name, "/"), "/") {
		return "", false
	}
	return name, true
}
