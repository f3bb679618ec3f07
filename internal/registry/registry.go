// Package registry tracks every source file the traced program touches: full
// text, project-relative path, and the set of executed lines. Files are
// registered on first sight and kept for the whole session.
package registry

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"fortio.org/safecast"
	"github.com/viant/afs"

	"sightline/internal/event"
)

// Filter reports whether a file path should be tracked. A nil filter tracks
// everything.
type Filter func(path string) bool

// ProjectFile is the cached record of one registered source file.
type ProjectFile struct {
	Path         string
	RelativePath string
	Code         string
	Lines        []string
	TotalLines   int
	FirstSeen    time.Time

	executed map[int]struct{}
}

// Line returns the trimmed content of a 1-based line number, or "" when the
// line does not exist. Never fails on out-of-range input.
func (f *ProjectFile) Line(n int) string {
	idx, err := safecast.Conv[uint32](n - 1)
	if err != nil || int(idx) >= len(f.Lines) {
		return ""
	}
	return strings.TrimSpace(f.Lines[idx])
}

// MarkExecuted records a line as executed. The set only grows.
func (f *ProjectFile) MarkExecuted(n int) {
	f.executed[n] = struct{}{}
}

// Executed reports whether a line has been marked executed.
func (f *ProjectFile) Executed(n int) bool {
	_, ok := f.executed[n]
	return ok
}

// ExecutedCount returns the number of distinct executed lines.
func (f *ProjectFile) ExecutedCount() int {
	return len(f.executed)
}

// Metadata renders the file as the registration message streamed to the
// observer.
func (f *ProjectFile) Metadata() event.FileMetadata {
	return event.FileMetadata{
		Type:         event.TypeFileMetadata,
		FilePath:     f.Path,
		RelativePath: f.RelativePath,
		Code:         f.Code,
		Lines:        f.Lines,
		TotalLines:   f.TotalLines,
		Timestamp:    event.UnixSeconds(f.FirstSeen),
	}
}

// Registry owns the per-session collection of ProjectFiles.
type Registry struct {
	fs     afs.Service
	root   string
	filter Filter
	logger *slog.Logger

	files  map[string]*ProjectFile
	order  []string
	failed map[string]struct{} // unreadable, filtered out for the session
}

// New creates a Registry resolving relative paths against root.
func New(root string, filter Filter, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		fs:     afs.New(),
		root:   root,
		filter: filter,
		logger: logger,
		files:  make(map[string]*ProjectFile),
		failed: make(map[string]struct{}),
	}
}

// Register records a file on first sight, reading its full text once.
// Idempotent: an already known, filtered, or previously unreadable path
// returns immediately. The second result is true only when the file was
// newly registered.
func (r *Registry) Register(ctx context.Context, path string) (*ProjectFile, bool) {
	if f, ok := r.files[path]; ok {
		return f, false
	}
	if _, bad := r.failed[path]; bad {
		return nil, false
	}
	if r.filter != nil && !r.filter(path) {
		return nil, false
	}

	data, err := r.fs.DownloadWithURL(ctx, path)
	if err != nil {
		r.failed[path] = struct{}{}
		r.logger.Warn("cannot read source file, excluding for session", "path", path, "err", err)
		return nil, false
	}

	code := string(data)
	lines := strings.Split(code, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" && strings.HasSuffix(code, "\n") {
		lines = lines[:n-1]
	}

	rel, err := filepath.Rel(r.root, path)
	if err != nil {
		rel = path
	}

	f := &ProjectFile{
		Path:         path,
		RelativePath: rel,
		Code:         code,
		Lines:        lines,
		TotalLines:   len(lines),
		FirstSeen:    time.Now(),
		executed:     make(map[int]struct{}),
	}
	r.files[path] = f
	r.order = append(r.order, path)
	return f, true
}

// Lookup returns the registered record for path, if any.
func (r *Registry) Lookup(path string) (*ProjectFile, bool) {
	f, ok := r.files[path]
	return f, ok
}

// MarkExecuted adds a line to a file's executed set. Unknown files are a
// no-op: the call ordering normally guarantees registration first, but a
// miss must not fail.
func (r *Registry) MarkExecuted(path string, line int) {
	if f, ok := r.files[path]; ok {
		f.MarkExecuted(line)
	}
}

// LineContent returns the cached trimmed text of a line, or "" for unknown
// files and out-of-range lines.
func (r *Registry) LineContent(path string, line int) string {
	f, ok := r.files[path]
	if !ok {
		return ""
	}
	return f.Line(line)
}

// Order returns file paths in first-seen order.
func (r *Registry) Order() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered files.
func (r *Registry) Len() int {
	return len(r.files)
}
