package catalog

import "github.com/iliyamo/casefiles/internal/model"

// Counts are the filter-bar numbers.  They are always taken from the
// unfiltered catalog.
type Counts struct {
	All    int            `json:"all"`
	ByType map[string]int `json:"by_type"`
}

// Counts tallies the snapshot per named file type.
func (s *Store) Counts() Counts {
	c := Counts{All: len(s.files), ByType: make(map[string]int, len(model.KnownFileTypes))}
	for _, ft := range model.KnownFileTypes {
		c.ByType[ft.String()] = 0
	}
	for _, cf := range s.files {
		if cf.FileType.Known() {
			c.ByType[cf.FileType.String()]++
		}
	}
	return c
}

// Button is one entry of the filter bar.
type Button struct {
	Filter Filter `json:"filter"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
	Active bool   `json:"active"`
}

var buttonLabels = map[string]string{
	"image":    "Photos",
	"video":    "Video",
	"audio":    "Audio",
	"text":     "Text",
	"document": "Docs",
}

// Buttons renders the filter bar for the given active filter.  "All Files"
// is always present; a named button with nothing to show is omitted.
func (s *Store) Buttons(active Filter) []Button {
	c := s.Counts()
	out := []Button{{Filter: All, Label: "All Files", Count: c.All, Active: active == All}}
	for _, ft := range model.KnownFileTypes {
		n := c.ByType[ft.String()]
		if n == 0 {
			continue
		}
		f := Filter(ft.String())
		out = append(out, Button{Filter: f, Label: buttonLabels[ft.String()], Count: n, Active: active == f})
	}
	return out
}
