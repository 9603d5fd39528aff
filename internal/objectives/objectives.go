// File path: internal/objectives/objectives.go
package objectives

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nicodishanthj/ata_conselho/internal/common"
	"github.com/nicodishanthj/ata_conselho/internal/filecache"
	"github.com/nicodishanthj/ata_conselho/internal/lexical"
)

// Entry is one subject's planned objectives for a year and trimester.
type Entry struct {
	Subject string `json:"disciplina" yaml:"disciplina"`
	Text    string `json:"texto" yaml:"texto"`
}

// Map is keyed by year number then trimester number, both as decimal strings.
// Entries keep the order in which they appear in the source file.
type Map map[string]map[string][]Entry

func (m Map) set(year, trimester string, entries []Entry) {
	if m[year] == nil {
		m[year] = make(map[string][]Entry)
	}
	m[year][trimester] = entries
}

// Lookup returns the entries for year and trimester, or nil.
func (m Map) Lookup(year int, trimester int) []Entry {
	if m == nil {
		return nil
	}
	return m[strconv.Itoa(year)][strconv.Itoa(trimester)]
}

// Render joins "{subject}: {text}." fragments for year and trimester. The
// trimester may be any label containing its number ("2", "2º trimestre").
func (m Map) Render(year int, trimester string) string {
	tri, ok := lexical.TrimesterNumber(trimester)
	if !ok {
		return ""
	}
	entries := m.Lookup(year, tri)
	parts := make([]string, 0, len(entries))
	for _, entry := range entries {
		fragment := lexical.EnsureTerminalPunctuation(entry.Subject + ": " + strings.TrimSpace(entry.Text))
		if fragment != "" {
			parts = append(parts, fragment)
		}
	}
	return strings.Join(parts, " ")
}

// Load parses an objectives file, choosing the format from its extension.
func Load(path string) (Map, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return loadJSON(path)
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".txt":
		return loadText(path)
	default:
		return nil, fmt.Errorf("objectives: unsupported file type %q", filepath.Ext(path))
	}
}

// Store serves objectives text from a side file kept fresh by a file cache.
type Store struct {
	cache *filecache.Cache[Map]
}

func NewStore(path string) *Store {
	return &Store{cache: filecache.New("objectives", path, Load)}
}

// Cache exposes the underlying cache for watcher registration.
func (s *Store) Cache() *filecache.Cache[Map] {
	if s == nil {
		return nil
	}
	return s.cache
}

// Text returns the objectives paragraph for year and trimester. Missing or
// unreadable files yield "".
func (s *Store) Text(year int, trimester string) string {
	if s == nil || s.cache == nil {
		return ""
	}
	m, err := s.cache.Get()
	if err != nil {
		common.Logger().Warnw("objectives: load failed", "path", s.cache.Path(), "error", err)
		return ""
	}
	return m.Render(year, trimester)
}

// Reload forces the side file to be read again.
func (s *Store) Reload() (Map, error) {
	if s == nil || s.cache == nil {
		return nil, nil
	}
	m, err := s.cache.Reload()
	if err != nil {
		return nil, err
	}
	common.Logger().Infow("objectives: reloaded", "path", s.cache.Path(), "years", len(m))
	return m, nil
}
