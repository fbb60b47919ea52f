package browse

import (
	"fmt"
	"slices"

	"github.com/iliyamo/casefiles/internal/model"
)

// Layout is how a photo set is laid out in the detail view.
type Layout string

const (
	// Stacked shows the set as one pile of polaroids.
	Stacked Layout = "stacked"
	// Dispersed spreads the pile into individually openable thumbnails.
	Dispersed Layout = "dispersed"
)

// SortPhotos returns the photos ordered by display_order.  Equal orders keep
// their original relative position.
func SortPhotos(photos []model.CaseFilePhoto) []model.CaseFilePhoto {
	out := slices.Clone(photos)
	slices.SortStableFunc(out, func(a, b model.CaseFilePhoto) int {
		return a.DisplayOrder - b.DisplayOrder
	})
	return out
}

// Viewer is the photo set of one case file plus the full-screen viewer
// position.  Index is nil while the viewer is closed.
type Viewer struct {
	Photos []model.CaseFilePhoto `json:"photos"`
	Layout Layout                `json:"layout"`
	Index  *int                  `json:"index,omitempty"`
}

// NewViewer sorts photos and starts stacked and closed.
func NewViewer(photos []model.CaseFilePhoto) Viewer {
	return Viewer{Photos: SortPhotos(photos), Layout: Stacked}
}

// IsOpen reports whether the full-screen viewer is showing.
func (v Viewer) IsOpen() bool { return v.Index != nil }

// Current is the photo on screen.
func (v Viewer) Current() (model.CaseFilePhoto, bool) {
	if v.Index == nil {
		return model.CaseFilePhoto{}, false
	}
	return v.Photos[*v.Index], true
}

// Spread switches the set to the dispersed layout.
func (v Viewer) Spread() Viewer {
	v.Layout = Dispersed
	return v
}

// Stack piles the set back up.  The viewer cannot stay open over a stack.
func (v Viewer) Stack() Viewer {
	v.Layout = Stacked
	v.Index = nil
	return v
}

// Open shows photo i full screen.  Thumbnails only exist while dispersed;
// out-of-range positions are ignored.
func (v Viewer) Open(i int) Viewer {
	if v.Layout != Dispersed || i < 0 || i >= len(v.Photos) {
		return v
	}
	v.Index = &i
	return v
}

// Close hides the viewer.  Used for both the close control and the backdrop.
func (v Viewer) Close() Viewer {
	v.Index = nil
	return v
}

// Next advances one photo; it stops at the last one.
func (v Viewer) Next() Viewer {
	if v.Index == nil || *v.Index >= len(v.Photos)-1 {
		return v
	}
	i := *v.Index + 1
	v.Index = &i
	return v
}

// Prev goes back one photo; it stops at the first one.
func (v Viewer) Prev() Viewer {
	if v.Index == nil || *v.Index <= 0 {
		return v
	}
	i := *v.Index - 1
	v.Index = &i
	return v
}

// ShowPrev reports whether the "previous" control is rendered.
func (v Viewer) ShowPrev() bool { return v.Index != nil && *v.Index > 0 }

// ShowNext reports whether the "next" control is rendered.
func (v Viewer) ShowNext() bool { return v.Index != nil && *v.Index < len(v.Photos)-1 }

// Caption is the polaroid caption of photo i.
func (v Viewer) Caption(i int) string {
	return fmt.Sprintf("PHOTO %d of %d", i+1, len(v.Photos))
}

// Hint is the call to action under a stacked set of more than one photo.
func (v Viewer) Hint() string {
	if v.Layout != Stacked || len(v.Photos) < 2 {
		return ""
	}
	return fmt.Sprintf("Click to spread • %d photos", len(v.Photos))
}
