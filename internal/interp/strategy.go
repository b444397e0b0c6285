package interp

import (
	"github.com/vk/m2t/internal/ast"
	"github.com/vk/m2t/internal/indent"
	"github.com/vk/m2t/internal/writer"
)

//go:generate go run go.uber.org/mock/mockgen -source=strategy.go -destination=mocks/mock_strategy.go -package=mocks

// OutputStrategy is the collaborator contract of C9: it owns the mapping
// from a statement-level destination URL to a concrete Writer, and decides
// how a finished Writer's content is committed.
type OutputStrategy interface {
	// CreateWriter creates and registers a writer bound to url. For
	// FileAppend, it pre-loads any existing content into the writer without
	// indentation. For FileCreate, it fails if the target already exists.
	CreateWriter(url string, mode ast.FileMode, charset string, initialIndent indent.Indentation) (*writer.Writer, error)

	// FinalizeWriter atomically commits w's accumulated content to url.
	FinalizeWriter(url string, w *writer.Writer) error
}
