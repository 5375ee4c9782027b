package history

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/svncrawl/internal/filelock"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown renders a run, its published paths and its failures as a Markdown
// document.
func Markdown(run *Run, paths []string, failures []RunError) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Crawl %s\n\n", run.ID)
	sb.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Root | `%s` |\n", run.Root)
	fmt.Fprintf(&sb, "| State | %s |\n", run.State)
	fmt.Fprintf(&sb, "| Started | %s |\n", run.StartedAt.Local().Format(time.RFC3339))
	if d := run.Duration(); d > 0 {
		fmt.Fprintf(&sb, "| Duration | %s |\n", d.Round(time.Millisecond))
	}
	fmt.Fprintf(&sb, "| Workers | %d |\n", run.Workers)
	fmt.Fprintf(&sb, "| Filters | %s |\n", codeList(run.Filters))
	fmt.Fprintf(&sb, "| Stops | %s |\n", codeList(run.Stops))
	fmt.Fprintf(&sb, "| Directories listed | %d |\n", run.Tasks)
	fmt.Fprintf(&sb, "| Directories pruned | %d |\n", run.Pruned)
	fmt.Fprintf(&sb, "| Paths published | %d |\n", run.Published)
	fmt.Fprintf(&sb, "| Listing failures | %d |\n", run.Failures)

	fmt.Fprintf(&sb, "\n## Paths (%d)\n\n", len(paths))
	if len(paths) == 0 {
		sb.WriteString("_No paths matched._\n")
	}
	for _, p := range paths {
		fmt.Fprintf(&sb, "- `%s`\n", p)
	}

	if len(failures) > 0 {
		fmt.Fprintf(&sb, "\n## Failures (%d)\n\n", len(failures))
		for _, f := range failures {
			fmt.Fprintf(&sb, "- `%s`: %s\n", displayPath(f.Path), f.Message)
		}
	}
	return sb.String()
}

// RenderHTML converts Markdown produced by Markdown into a standalone HTML page.
func RenderHTML(title, markdown string) ([]byte, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.Table))

	var body bytes.Buffer
	if err := md.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString(title))
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// WriteReport writes the run report to dst atomically. A .html or .htm
// extension selects HTML output, anything else Markdown.
func WriteReport(dst string, run *Run, paths []string, failures []RunError) error {
	doc := Markdown(run, paths, failures)
	data := []byte(doc)

	switch strings.ToLower(filepath.Ext(dst)) {
	case ".html", ".htm":
		rendered, err := RenderHTML("Crawl "+run.ID, doc)
		if err != nil {
			return err
		}
		data = rendered
	}
	return filelock.LockAndWrite(dst, data)
}

func codeList(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = "`" + strings.ReplaceAll(it, "|", `\|`) + "`"
	}
	return strings.Join(quoted, ", ")
}

func displayPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
