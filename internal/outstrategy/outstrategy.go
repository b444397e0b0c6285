// Package outstrategy implements the two concrete C9 Output Strategy
// variants named in §4.9: an in-memory strategy for tests and embedded
// use, and a file-system strategy that commits writers to disk.
package outstrategy

import (
	"log/slog"
	"sync"

	"github.com/vk/m2t/internal/ast"
	"github.com/vk/m2t/internal/errs"
	"github.com/vk/m2t/internal/indent"
	"github.com/vk/m2t/internal/writer"
)

// Memory is the in-memory Output Strategy: create_writer/finalize_writer
// operate against a url → content map guarded by a mutex, per §5's "the
// in-memory strategy guards its file map".
type Memory struct {
	mu    sync.Mutex
	files map[string]string
}

// NewMemory returns an empty in-memory strategy.
func NewMemory() *Memory {
	return &Memory{files: map[string]string{}}
}

// CreateWriter creates and registers a writer bound to url. In append mode
// it pre-loads any existing content without indentation; in create mode it
// fails if url is already populated.
func (m *Memory) CreateWriter(url string, mode ast.FileMode, charset string, initialIndent indent.Indentation) (*writer.Writer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, has := m.files[url]
	if mode == ast.FileCreate && has {
		return nil, errs.NewExecError(errs.FileError, url, "target already exists")
	}

	w := writer.New(initialIndent)
	if mode == ast.FileAppend && has {
		w.Write(existing, false)
	}
	slog.Debug("outstrategy: writer created", "url", url, "mode", mode, "charset", charset)
	return w, nil
}

// FinalizeWriter records url's accumulated content.
func (m *Memory) FinalizeWriter(url string, w *writer.Writer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[url] = w.Content()
	slog.Debug("outstrategy: writer finalized", "url", url, "bytes", len(w.Content()))
	return nil
}

// Content returns the committed content for url, if any.
func (m *Memory) Content(url string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.files[url]
	return c, ok
}

// Files returns a snapshot copy of the url → content map.
func (m *Memory) Files() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.files))
	for k, v := range m.files {
		out[k] = v
	}
	return out
}
