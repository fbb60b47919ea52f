package browse

import (
	"errors"
	"fmt"

	"github.com/iliyamo/casefiles/internal/catalog"
	"github.com/iliyamo/casefiles/internal/model"
)

// ErrUnknownAction is returned by Reduce for an unrecognised action type.
var ErrUnknownAction = errors.New("unknown action")

// ActionType enumerates what a client can do on the gallery.
type ActionType string

const (
	ActFilter     ActionType = "filter"
	ActSearch     ActionType = "search"
	ActKey        ActionType = "key"
	ActFocus      ActionType = "focus"
	ActOpen       ActionType = "open"
	ActClose      ActionType = "close"
	ActSpread     ActionType = "spread"
	ActStack      ActionType = "stack"
	ActPhotoOpen  ActionType = "photo_open"
	ActPhotoClose ActionType = "photo_close"
	ActPhotoNext  ActionType = "photo_next"
	ActPhotoPrev  ActionType = "photo_prev"
	ActPhotoClick ActionType = "photo_click"
	ActBackdrop   ActionType = "backdrop"
)

// Action is one client event.  Only the fields relevant to Type are read.
type Action struct {
	Type   ActionType `json:"type"`
	Filter string     `json:"filter,omitempty"`
	Query  string     `json:"query,omitempty"`
	Key    Key        `json:"key,omitempty"`
	Width  int        `json:"width,omitempty"`
	Index  int        `json:"index,omitempty"`
}

// State is a visitor's gallery state.
type State struct {
	Filter   catalog.Filter `json:"filter"`
	Query    string         `json:"query"`
	Cursor   Cursor         `json:"cursor"`
	Selected string         `json:"selected,omitempty"`
	Viewer   *Viewer        `json:"viewer,omitempty"`
}

// NewState is the gallery as first shown: everything listed, nothing focused.
func NewState() State {
	return State{Filter: catalog.All, Cursor: NewCursor()}
}

// NeedsPhotos reports whether a case file was opened and its photo set has
// not been attached yet.
func (s State) NeedsPhotos() bool { return s.Selected != "" && s.Viewer == nil }

// WithPhotos attaches the photo set of the open case file.
func (s State) WithPhotos(photos []model.CaseFilePhoto) State {
	v := NewViewer(photos)
	s.Viewer = &v
	return s
}

// Reduce applies a to s against the visitor's catalog snapshot.  Actions that
// do not apply in the current state are no-ops; only malformed actions
// return an error, and then s is returned unchanged.
func Reduce(s State, a Action, store *catalog.Store) (State, error) {
	view := store.View(s.Filter, s.Query)

	switch a.Type {
	case ActFilter:
		f, err := catalog.ParseFilter(a.Filter)
		if err != nil {
			return s, fmt.Errorf("%w: %q", err, a.Filter)
		}
		s.Filter = f
		s.Cursor = s.Cursor.Clamp(len(store.View(s.Filter, s.Query)))
	case ActSearch:
		s.Query = a.Query
		s.Cursor = s.Cursor.Clamp(len(store.View(s.Filter, s.Query)))
	case ActKey:
		if s.Selected != "" {
			break
		}
		if a.Key == KeyEnter {
			if s.Cursor.Focused() && s.Cursor.Index < len(view) {
				s = s.open(view[s.Cursor.Index].ID)
			}
			break
		}
		s.Cursor = s.Cursor.Move(a.Key, len(view), a.Width)
	case ActFocus:
		s.Cursor = s.Cursor.Focus(a.Index, len(view))
	case ActOpen:
		if a.Index < 0 || a.Index >= len(view) {
			break
		}
		s.Cursor = s.Cursor.Focus(a.Index, len(view))
		s = s.open(view[a.Index].ID)
	case ActClose:
		s.Selected = ""
		s.Viewer = nil
	case ActSpread, ActStack, ActPhotoOpen, ActPhotoClose, ActPhotoNext, ActPhotoPrev, ActPhotoClick, ActBackdrop:
		if s.Viewer != nil {
			v := reduceViewer(*s.Viewer, a)
			s.Viewer = &v
		}
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
	return s, nil
}

func (s State) open(id string) State {
	s.Selected = id
	s.Viewer = nil
	return s
}

func reduceViewer(v Viewer, a Action) Viewer {
	switch a.Type {
	case ActSpread:
		return v.Spread()
	case ActStack:
		return v.Stack()
	case ActPhotoOpen:
		return v.Open(a.Index)
	case ActPhotoClose, ActBackdrop:
		return v.Close()
	case ActPhotoNext:
		return v.Next()
	case ActPhotoPrev:
		return v.Prev()
	}
	// ActPhotoClick lands on the image itself and must not reach the backdrop.
	return v
}
