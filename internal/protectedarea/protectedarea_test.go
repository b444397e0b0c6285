package protectedarea_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vk/m2t/internal/protectedarea"
)

func TestScanContentRoundTrip(t *testing.T) {
	m := protectedarea.New()
	m.ScanContent("// START PROTECTED REGION k\nuser-kept\n// END PROTECTED REGION k\n")

	content, ok := m.Content("k")
	assert.True(t, ok)
	assert.Equal(t, "user-kept", content)
}

func TestScanContentMultiplePairsDistinctIDs(t *testing.T) {
	m := protectedarea.New()
	m.ScanContent(
		"// START PROTECTED REGION a\nA\n// END PROTECTED REGION a\n" +
			"// START PROTECTED REGION b\nB1\nB2\n// END PROTECTED REGION b\n",
	)
	ca, _ := m.Content("a")
	cb, _ := m.Content("b")
	assert.Equal(t, "A", ca)
	assert.Equal(t, "B1\nB2", cb)
}

func TestScanContentOrphanEndIgnored(t *testing.T) {
	m := protectedarea.New()
	m.ScanContent("// END PROTECTED REGION ghost\nnothing open\n")
	_, ok := m.Content("ghost")
	assert.False(t, ok)
}

func TestScanContentMismatchedEndStaysOpen(t *testing.T) {
	m := protectedarea.New()
	m.ScanContent(
		"// START PROTECTED REGION a\nkeep\n// END PROTECTED REGION wrong-id\nstill-inside\n// END PROTECTED REGION a\n",
	)
	content, ok := m.Content("a")
	assert.True(t, ok)
	assert.Equal(t, "keep\n// END PROTECTED REGION wrong-id\nstill-inside", content)
}

func TestScanContentReopenAbandonsPrevious(t *testing.T) {
	m := protectedarea.New()
	m.ScanContent(
		"// START PROTECTED REGION a\norphaned\n// START PROTECTED REGION a\nreal\n// END PROTECTED REGION a\n",
	)
	content, _ := m.Content("a")
	assert.Equal(t, "real", content)
}

func TestScanFileMissingIsNotError(t *testing.T) {
	m := protectedarea.New()
	err := m.ScanFile("/nonexistent/path/does-not-exist.txt")
	assert.NoError(t, err)
}

func TestGenerateMarkers(t *testing.T) {
	start, end := protectedarea.GenerateMarkers("k", "//")
	assert.Equal(t, "// START PROTECTED REGION k", start)
	assert.Equal(t, "// END PROTECTED REGION k", end)

	start, end = protectedarea.GenerateMarkers("k", "")
	assert.Equal(t, "START PROTECTED REGION k", start)
	assert.Equal(t, "END PROTECTED REGION k", end)
}

func TestSetAndAll(t *testing.T) {
	m := protectedarea.New()
	m.Set("k", "hello", "", "")
	all := m.All()
	assert.Len(t, all, 1)
	assert.Equal(t, "hello", all["k"].Content)

	m.Remove("k")
	_, ok := m.Get("k")
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	m := protectedarea.New()
	m.Set("a", "1", "", "")
	m.Set("b", "2", "", "")
	m.Clear()
	assert.Empty(t, m.All())
}
