package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/svncrawl/internal/filelock"
	"github.com/mattn/go-isatty"
)

// Console writes one path per line to a stream, typically standard output.
// Directories are highlighted when the stream is a terminal.
type Console struct {
	w     io.Writer
	color bool
	dir   *color.Color
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) && !color.NoColor
	}
	dir := color.New(color.FgBlue, color.Bold)
	if useColor {
		dir.EnableColor()
	}
	return &Console{w: w, color: useColor, dir: dir}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Write(path string) error {
	if c.color && strings.HasSuffix(path, "/") {
		_, err := fmt.Fprintln(c.w, c.dir.Sprint(path))
		return err
	}
	_, err := fmt.Fprintln(c.w, path)
	return err
}

// Close leaves the stream open; it belongs to the caller.
func (c *Console) Close() error { return nil }

// FileMode selects what happens to an existing output file.
type FileMode string

const (
	FileAppend   FileMode = "append"
	FileTruncate FileMode = "truncate"
)

// File writes one path per line to a file held under an advisory lock for the
// lifetime of the crawl.
type File struct {
	path string
	f    *os.File
	buf  *bufio.Writer
	lock *filelock.FileLock
}

// OpenFile locks and opens path. Failures are *WriteError and must stop the
// crawl before it starts.
func OpenFile(path string, mode FileMode) (*File, error) {
	lock := filelock.ForTarget(path)
	if err := lock.Acquire(); err != nil {
		return nil, &WriteError{Destination: path, Err: err}
	}

	flags := os.O_CREATE | os.O_WRONLY
	if mode == FileTruncate {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		lock.Release()
		return nil, &WriteError{Destination: path, Err: err}
	}
	return &File{path: path, f: f, buf: bufio.NewWriter(f), lock: lock}, nil
}

func (f *File) Name() string { return f.path }

func (f *File) Write(path string) error {
	if _, err := f.buf.WriteString(path); err != nil {
		return err
	}
	return f.buf.WriteByte('\n')
}

// Close flushes buffered lines, closes the file and releases its lock.
func (f *File) Close() error {
	flushErr := f.buf.Flush()
	closeErr := f.f.Close()
	lockErr := f.lock.Release()
	if flushErr != nil {
		return flushErr
	}
	if closeErr != nil {
		return closeErr
	}
	return lockErr
}

// Callback invokes a function once per path.
type Callback func(path string)

func (cb Callback) Name() string { return "callback" }

func (cb Callback) Write(path string) error {
	cb(path)
	return nil
}

func (cb Callback) Close() error { return nil }

// Collector gathers paths in memory. It is read after the sink is closed.
type Collector struct {
	Paths []string
}

func (c *Collector) Name() string { return "collector" }

func (c *Collector) Write(path string) error {
	c.Paths = append(c.Paths, path)
	return nil
}

func (c *Collector) Close() error { return nil }
