// Package catalog holds a visitor's snapshot of the evidence catalog and the
// two read-only projections over it: filter by file type and substring search.
package catalog

import (
	"errors"
	"strings"

	"github.com/iliyamo/casefiles/internal/model"
)

// ErrUnknownFilter is returned by ParseFilter for values that are neither
// "all" nor a named file type.
var ErrUnknownFilter = errors.New("unknown filter")

// Filter is the active filter-bar selection: All or a named file type.
type Filter string

// All is the identity filter.
const All Filter = "all"

// ParseFilter accepts "" and "all" as All and the named file types.
func ParseFilter(s string) (Filter, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == string(All) {
		return All, nil
	}
	if ft := model.ParseFileType(s); ft.Known() {
		return Filter(ft.String()), nil
	}
	return "", ErrUnknownFilter
}

// Store is an immutable snapshot of the catalog, kept in display order.
type Store struct {
	files []model.CaseFile
}

// NewStore copies files into a new snapshot.
func NewStore(files []model.CaseFile) *Store {
	cp := make([]model.CaseFile, len(files))
	copy(cp, files)
	return &Store{files: cp}
}

// Len is the unfiltered catalog size.
func (s *Store) Len() int { return len(s.files) }

// All returns a copy of the full catalog.
func (s *Store) All() []model.CaseFile {
	out := make([]model.CaseFile, len(s.files))
	copy(out, s.files)
	return out
}

// Get finds a record by id.
func (s *Store) Get(id string) (model.CaseFile, bool) {
	for _, f := range s.files {
		if f.ID == id {
			return f, true
		}
	}
	return model.CaseFile{}, false
}

// Filter projects the catalog onto one file type.
func (s *Store) Filter(f Filter) []model.CaseFile { return FilterFiles(s.files, f) }

// Search projects the full catalog onto records matching q.
func (s *Store) Search(q string) []model.CaseFile { return SearchFiles(s.files, q) }

// View is the gallery list: the filter applied first, then the search
// narrowing within the filtered set.
func (s *Store) View(f Filter, q string) []model.CaseFile {
	return SearchFiles(FilterFiles(s.files, f), q)
}

// FilterFiles keeps the records whose file type equals f.  All returns every
// record.  Records with an unrecognised type only ever survive All.
func FilterFiles(files []model.CaseFile, f Filter) []model.CaseFile {
	out := make([]model.CaseFile, 0, len(files))
	for _, cf := range files {
		if f == All || (cf.FileType.Known() && cf.FileType.String() == string(f)) {
			out = append(out, cf)
		}
	}
	return out
}

// SearchFiles keeps the records whose title, description or text content
// contains the trimmed query, ignoring case.  A blank query matches all.
func SearchFiles(files []model.CaseFile, q string) []model.CaseFile {
	q = strings.ToLower(strings.TrimSpace(q))
	out := make([]model.CaseFile, 0, len(files))
	for _, cf := range files {
		if q == "" || matches(cf, q) {
			out = append(out, cf)
		}
	}
	return out
}

func matches(cf model.CaseFile, q string) bool {
	if strings.Contains(strings.ToLower(cf.Title), q) {
		return true
	}
	if cf.Description != nil && strings.Contains(strings.ToLower(*cf.Description), q) {
		return true
	}
	return cf.TextContent != nil && strings.Contains(strings.ToLower(*cf.TextContent), q)
}
