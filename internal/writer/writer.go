// Package writer implements the buffered output sink (C2) used by the
// interpreter's writer stack. Each Writer is single-owner: callers must not
// share one across concurrent generations.
package writer

import (
	"strings"

	"github.com/vk/m2t/internal/indent"
)

// Writer is a buffered, indentation-aware text sink.
type Writer struct {
	buf         strings.Builder
	atLineStart bool
	ind         indent.Indentation
}

// New returns a Writer with the given initial indentation, ready to accept
// writes at the start of a line.
func New(ind indent.Indentation) *Writer {
	return &Writer{atLineStart: true, ind: ind}
}

// SetIndentation updates the indentation applied to subsequent line starts.
func (w *Writer) SetIndentation(ind indent.Indentation) {
	w.ind = ind
}

// Write appends text, emitting the current indentation prefix first if the
// cursor sits at the start of a line and applyIndent is true. An empty text
// is always a no-op.
func (w *Writer) Write(text string, applyIndent bool) {
	if text == "" {
		return
	}
	if w.atLineStart && applyIndent {
		w.buf.WriteString(w.ind.String())
	}
	w.buf.WriteString(text)
	w.atLineStart = false
}

// WriteLine writes text (as Write) followed by a newline, then resets the
// line-start flag. An empty text at line start still emits the indentation
// prefix before the newline, preserving blank indented lines.
func (w *Writer) WriteLine(text string, applyIndent bool) {
	if text == "" {
		if w.atLineStart && applyIndent {
			w.buf.WriteString(w.ind.String())
		}
		w.buf.WriteByte('\n')
		w.atLineStart = true
		return
	}
	w.Write(text, applyIndent)
	w.buf.WriteByte('\n')
	w.atLineStart = true
}

// NewLine appends a bare newline. applyIndentNext controls whether the next
// indent-eligible write re-emits the indentation prefix.
func (w *Writer) NewLine(applyIndentNext bool) {
	w.buf.WriteByte('\n')
	w.atLineStart = applyIndentNext
}

// Content returns the accumulated buffer without consuming it.
func (w *Writer) Content() string {
	return w.buf.String()
}

// Clear empties the buffer and resets the line-start flag.
func (w *Writer) Clear() {
	w.buf.Reset()
	w.atLineStart = true
}
