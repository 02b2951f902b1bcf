// Package section is the collaborator that feeds the diff pipeline: a
// Source yields per-section markup for one revision of the document. The
// pipeline only ever reads from it; which sections to compare, and how the
// data got here, are somebody else's concern.
package section

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// ErrNotFound is returned for a section identifier the source has no data
// for. The pipeline retries a section once after asking the source to
// refresh before giving up on it.
var ErrNotFound = errors.New("section not found")

// Section is one displayed section of the document on one side of the
// comparison.
type Section struct {
	HTML  string `json:"html"`
	Num   string `json:"num"`
	Title string `json:"title"`
}

// A Source yields section data keyed by section identifier.
type Source interface {
	Section(id string) (Section, error)
	// Refresh invalidates whatever the source may have cached, so that the
	// next Section call sees fresh data.
	Refresh() error
}

// DirSource reads sections from a directory of <id>.json files, one file
// per section.
type DirSource struct {
	dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

func (s *DirSource) Section(id string) (Section, error) {
	var sec Section
	b, err := os.ReadFile(filepath.Join(s.dir, id+".json"))
	if os.IsNotExist(err) {
		return sec, errors.Wrapf(ErrNotFound, "%q", id)
	}
	if err != nil {
		return sec, errors.Wrapf(err, "reading section %q", id)
	}
	if err := json.Unmarshal(b, &sec); err != nil {
		return sec, errors.Wrapf(err, "decoding section %q", id)
	}
	if sec.HTML == "" {
		// A present but empty section is indistinguishable from a
		// half-written fetch; report it missing so the caller retries.
		return sec, errors.Wrapf(ErrNotFound, "%q has no markup", id)
	}
	return sec, nil
}

func (s *DirSource) Refresh() error { return nil }

// IDs returns the section identifiers present in the directory, sorted by
// the directory listing order.
func (s *DirSource) IDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing sections in %q", s.dir)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
	}
	return ids, nil
}

// MapSource serves sections from memory. Used in tests and wherever section
// data was already fetched wholesale.
type MapSource struct {
	mu       sync.Mutex
	sections map[string]Section
}

func NewMapSource(sections map[string]Section) *MapSource {
	s := &MapSource{sections: make(map[string]Section, len(sections))}
	for k, v := range sections {
		s.sections[k] = v
	}
	return s
}

func (s *MapSource) Section(id string) (Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, ok := s.sections[id]
	if !ok {
		return sec, errors.Wrapf(ErrNotFound, "%q", id)
	}
	return sec, nil
}

func (s *MapSource) Refresh() error { return nil }

// Put adds or replaces a section.
func (s *MapSource) Put(id string, sec Section) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections[id] = sec
}

// Cached wraps a source with an in-memory cache; Refresh drops the cache, so
// the pipeline's retry-once protocol actually re-reads the delegate.
type Cached struct {
	delegate Source

	mu    sync.Mutex
	cache map[string]Section
}

func NewCached(delegate Source) *Cached {
	return &Cached{delegate: delegate, cache: make(map[string]Section)}
}

func (s *Cached) Section(id string) (Section, error) {
	s.mu.Lock()
	sec, ok := s.cache[id]
	s.mu.Unlock()
	if ok {
		return sec, nil
	}
	sec, err := s.delegate.Section(id)
	if err != nil {
		return sec, err
	}
	s.mu.Lock()
	s.cache[id] = sec
	s.mu.Unlock()
	return sec, nil
}

func (s *Cached) Refresh() error {
	s.mu.Lock()
	s.cache = make(map[string]Section)
	s.mu.Unlock()
	return s.delegate.Refresh()
}
