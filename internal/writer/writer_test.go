package writer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vk/m2t/internal/indent"
	"github.com/vk/m2t/internal/writer"
)

func TestWriteIndentsOncePerLine(t *testing.T) {
	w := writer.New(indent.New("  ").Increment())
	w.Write("a", true)
	w.Write("b", true)
	assert.Equal(t, "  ab", w.Content())
}

func TestWriteLineReemitsIndent(t *testing.T) {
	w := writer.New(indent.New("  ").Increment())
	w.WriteLine("a", true)
	w.Write("b", true)
	assert.Equal(t, "  a\n  b", w.Content())
}

func TestWriteLineEmptyAtLineStartEmitsIndent(t *testing.T) {
	w := writer.New(indent.New("  ").Increment())
	w.WriteLine("", true)
	assert.Equal(t, "  \n", w.Content())
}

func TestEmptyWriteIsNoop(t *testing.T) {
	w := writer.New(indent.New("  ").Increment())
	w.Write("", true)
	assert.Equal(t, "", w.Content())
}

func TestNewLineControlsNextIndent(t *testing.T) {
	w := writer.New(indent.New("  ").Increment())
	w.NewLine(false)
	w.Write("x", true)
	assert.Equal(t, "\nx", w.Content())
}

func TestClear(t *testing.T) {
	w := writer.New(indent.New("  "))
	w.Write("x", true)
	w.Clear()
	assert.Equal(t, "", w.Content())
}
