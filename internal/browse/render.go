package browse

import (
	"github.com/iliyamo/casefiles/internal/catalog"
	"github.com/iliyamo/casefiles/internal/model"
)

// Card is one grid cell.
type Card struct {
	Index   int            `json:"index"`
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Type    model.FileType `json:"file_type"`
	Label   string         `json:"label"`
	Focused bool           `json:"focused"`
}

// PhotoView is the rendered photo set of the open case file.
type PhotoView struct {
	Layout   Layout               `json:"layout"`
	Hint     string               `json:"hint,omitempty"`
	Thumbs   []Thumb              `json:"thumbs"`
	Open     bool                 `json:"open"`
	Index    int                  `json:"index"`
	Current  *model.CaseFilePhoto `json:"current,omitempty"`
	ShowPrev bool                 `json:"show_prev"`
	ShowNext bool                 `json:"show_next"`
}

// Thumb is one photo in the set.  Openable is false while the set is stacked.
type Thumb struct {
	URL      string `json:"url"`
	Caption  string `json:"caption"`
	Openable bool   `json:"openable"`
}

// Page is everything a client needs to draw the gallery.
type Page struct {
	Filter  catalog.Filter   `json:"filter"`
	Query   string           `json:"query"`
	Buttons []catalog.Button `json:"buttons"`
	Cards   []Card           `json:"cards"`
	Empty   string           `json:"empty,omitempty"`
	Cursor  int              `json:"cursor"`
	Detail  *Detail          `json:"detail,omitempty"`
	Photos  *PhotoView       `json:"photos,omitempty"`
}

// Render projects s over the catalog snapshot.
func Render(s State, store *catalog.Store) Page {
	view := store.View(s.Filter, s.Query)
	p := Page{
		Filter:  s.Filter,
		Query:   s.Query,
		Buttons: store.Buttons(s.Filter),
		Cards:   make([]Card, 0, len(view)),
		Cursor:  s.Cursor.Index,
	}
	for i, f := range view {
		p.Cards = append(p.Cards, Card{
			Index: i, ID: f.ID, Title: f.Title, Type: f.FileType,
			Label: f.FileType.Label(), Focused: i == s.Cursor.Index,
		})
	}
	if len(view) == 0 && store.Len() > 0 {
		p.Empty = "No files match this filter"
	}

	if s.Selected == "" {
		return p
	}
	f, ok := store.Get(s.Selected)
	if !ok {
		return p
	}
	var photos []model.CaseFilePhoto
	if s.Viewer != nil {
		photos = s.Viewer.Photos
	}
	d := BuildDetail(f, photos)
	p.Detail = &d
	if len(photos) > 0 {
		p.Photos = renderPhotos(*s.Viewer)
	}
	return p
}

func renderPhotos(v Viewer) *PhotoView {
	pv := &PhotoView{
		Layout:   v.Layout,
		Hint:     v.Hint(),
		Thumbs:   make([]Thumb, 0, len(v.Photos)),
		Open:     v.IsOpen(),
		Index:    -1,
		ShowPrev: v.ShowPrev(),
		ShowNext: v.ShowNext(),
	}
	for i, ph := range v.Photos {
		pv.Thumbs = append(pv.Thumbs, Thumb{URL: ph.PhotoURL, Caption: v.Caption(i), Openable: v.Layout == Dispersed})
	}
	if cur, ok := v.Current(); ok {
		pv.Index = *v.Index
		pv.Current = &cur
	}
	return pv
}
