// Package protectedarea implements the protected-area manager (C3): it scans
// previously generated output for marker-delimited regions and re-splices
// their preserved content during regeneration.
package protectedarea

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const (
	startMarker = "START PROTECTED REGION "
	endMarker   = "END PROTECTED REGION "
)

// Record is a single preserved protected-area entry.
type Record struct {
	ID        string
	Content   string // preserved content, markers excluded
	StartLine string // the full original start-marker line
	EndLine   string // the full original end-marker line
}

// Manager stores protected-area records keyed by id. All operations are
// safe for concurrent use; writes are serialised.
type Manager struct {
	mu      sync.RWMutex
	records map[string]Record
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{records: make(map[string]Record)}
}

// ScanFile reads path (UTF-8) and scans its content. A missing file is not
// an error: the manager is simply left unchanged.
func (m *Manager) ScanFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("protectedarea: scan %s: %w", path, err)
	}
	slog.Debug("protectedarea: scanning existing output", "path", path)
	m.ScanContent(string(data))
	return nil
}

// ScanContent runs the line-based state machine described in §4.3 over text,
// populating the manager with any protected regions found.
func (m *Manager) ScanContent(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.records)

	var (
		openID    string
		openStart string
		lines     []string
		open      bool
	)

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)

		if idx := strings.Index(line, startMarker); idx >= 0 {
			id := strings.TrimSpace(line[idx+len(startMarker):])
			if id != "" {
				if open {
					slog.Warn("protectedarea: region abandoned by a nested start marker", "abandoned_id", openID, "new_id", id)
				}
				openID = id
				openStart = rawLine
				lines = nil
				open = true
				continue
			}
		}

		if open {
			if idx := strings.Index(line, endMarker); idx >= 0 {
				id := strings.TrimSpace(line[idx+len(endMarker):])
				if id == openID {
					m.records[openID] = Record{
						ID:        openID,
						Content:   strings.Join(lines, "\n"),
						StartLine: openStart,
						EndLine:   rawLine,
					}
					open = false
					openID = ""
					lines = nil
					continue
				}
				slog.Warn("protectedarea: mismatched end marker ignored", "open_id", openID, "found_id", id)
			}
			lines = append(lines, rawLine)
		}
	}
	if open {
		// A region left open at EOF (no matching end marker) is simply
		// dropped; it was never closed so it cannot be considered preserved
		// content.
		slog.Warn("protectedarea: region abandoned at end of file, no closing marker", "abandoned_id", openID)
	}
	slog.Debug("protectedarea: scan complete", "regions_found", len(m.records)-before)
}

// Get returns the record for id, if any.
func (m *Manager) Get(id string) (Record, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[id]
	return r, ok
}

// Content returns the preserved content for id, if any.
func (m *Manager) Content(id string) (string, bool) {
	r, ok := m.Get(id)
	if !ok {
		return "", false
	}
	return r.Content, true
}

// Set stores content for id. When startLine/endLine are both empty, the
// canonical markers (empty prefix) are generated.
func (m *Manager) Set(id, content, startLine, endLine string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if startLine == "" && endLine == "" {
		startLine, endLine = GenerateMarkers(id, "")
	}
	m.records[id] = Record{ID: id, Content: content, StartLine: startLine, EndLine: endLine}
}

// Remove deletes the record for id, if present.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
}

// Clear removes all records.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]Record)
}

// All returns a snapshot copy of every stored record, keyed by id.
func (m *Manager) All() map[string]Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out
}

// GenerateMarkers produces the canonical start/end marker lines for id. When
// prefix is non-empty, a single space separates it from the marker text.
func GenerateMarkers(id, prefix string) (start, end string) {
	sep := ""
	if prefix != "" {
		sep = " "
	}
	return prefix + sep + startMarker + id, prefix + sep + endMarker + id
}
