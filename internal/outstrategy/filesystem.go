package outstrategy

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/vk/m2t/internal/ast"
	"github.com/vk/m2t/internal/errs"
	"github.com/vk/m2t/internal/indent"
	"github.com/vk/m2t/internal/writer"
)

// FileSystem is the file-system Output Strategy: writers are bound to
// paths relative to Root, and finalisation commits atomically via a
// temp-file-plus-rename so a crash mid-write never leaves a partial
// target (§4.9's "write... atomically"). It guards its writer-to-path
// mapping per §5.
type FileSystem struct {
	mu   sync.Mutex
	Root string
	// open tracks urls with a writer currently pushed, so a second
	// create_writer for the same url before finalisation is rejected
	// rather than silently racing the first.
	open map[string]bool
}

// NewFileSystem returns a strategy rooted at root. Relative File urls in
// generated templates are resolved against root.
func NewFileSystem(root string) *FileSystem {
	return &FileSystem{Root: root, open: map[string]bool{}}
}

func (f *FileSystem) resolve(url string) string {
	if filepath.IsAbs(url) {
		return url
	}
	return filepath.Join(f.Root, url)
}

// CreateWriter creates and registers a writer bound to url. For append, it
// pre-loads the target's existing content (if any) without indentation.
// For create, it fails if the target already exists on disk.
func (f *FileSystem) CreateWriter(url string, mode ast.FileMode, charset string, initialIndent indent.Indentation) (*writer.Writer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.resolve(url)
	if f.open[path] {
		return nil, errs.NewExecError(errs.FileError, url, "writer already open for this target")
	}

	w := writer.New(initialIndent)

	switch mode {
	case ast.FileCreate:
		if _, err := os.Stat(path); err == nil {
			return nil, errs.NewExecError(errs.FileError, url, "target already exists")
		} else if !os.IsNotExist(err) {
			return nil, errs.NewExecError(errs.FileError, url, "stat failed: %v", err)
		}
	case ast.FileAppend:
		existing, err := os.ReadFile(path)
		if err == nil {
			w.Write(string(existing), false)
		} else if !os.IsNotExist(err) {
			return nil, errs.NewExecError(errs.FileError, url, "read failed: %v", err)
		}
	}

	f.open[path] = true
	slog.Debug("outstrategy: writer created", "url", url, "path", path, "mode", mode, "charset", charset)
	return w, nil
}

// FinalizeWriter atomically commits w's accumulated content to url's
// resolved path, creating parent directories as needed.
func (f *FileSystem) FinalizeWriter(url string, w *writer.Writer) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.resolve(url)
	delete(f.open, path)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.NewExecError(errs.FileError, url, "mkdir failed: %v", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".m2t-tmp-*")
	if err != nil {
		return errs.NewExecError(errs.FileError, url, "temp file failed: %v", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(w.Content()); err != nil {
		tmp.Close()
		return errs.NewExecError(errs.FileError, url, "write failed: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return errs.NewExecError(errs.FileError, url, "close failed: %v", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errs.NewExecError(errs.FileError, url, "rename failed: %v", err)
	}

	slog.Debug("outstrategy: writer finalized", "url", url, "path", path, "bytes", len(w.Content()))
	return nil
}
