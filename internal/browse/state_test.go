package browse

import (
	"errors"
	"testing"

	"github.com/iliyamo/casefiles/internal/catalog"
	"github.com/iliyamo/casefiles/internal/model"
)

func gallery(n int) *catalog.Store {
	files := make([]model.CaseFile, n)
	for i := range files {
		ft := model.FileText
		if i%2 == 0 {
			ft = model.FileImage
		}
		files[i] = model.CaseFile{ID: string(rune('a' + i)), Title: "file", FileType: ft}
	}
	return catalog.NewStore(files)
}

func mustReduce(t *testing.T, s State, a Action, store *catalog.Store) State {
	t.Helper()
	s, err := Reduce(s, a, store)
	if err != nil {
		t.Fatalf("reduce %+v: %v", a, err)
	}
	return s
}

func TestReduceKeyboardThenEnter(t *testing.T) {
	store := gallery(9)
	s := NewState()
	s = mustReduce(t, s, Action{Type: ActKey, Key: KeyRight, Width: 1024}, store)
	s = mustReduce(t, s, Action{Type: ActKey, Key: KeyDown, Width: 1024}, store)
	if s.Cursor.Index != 4 {
		t.Fatalf("cursor=%d", s.Cursor.Index)
	}
	s = mustReduce(t, s, Action{Type: ActKey, Key: KeyEnter}, store)
	if s.Selected != "e" || s.Cursor.Index != 4 {
		t.Fatalf("selected=%q cursor=%d", s.Selected, s.Cursor.Index)
	}
	if !s.NeedsPhotos() {
		t.Fatal("expected photos to be requested")
	}
	s = s.WithPhotos(photos(1, 0))
	if s.NeedsPhotos() || s.Viewer.Photos[0].ID != "B" {
		t.Fatalf("viewer=%+v", s.Viewer)
	}

	// Keys are ignored while a case file is open.
	s = mustReduce(t, s, Action{Type: ActKey, Key: KeyLeft, Width: 1024}, store)
	if s.Cursor.Index != 4 {
		t.Fatalf("cursor moved under detail: %d", s.Cursor.Index)
	}
	s = mustReduce(t, s, Action{Type: ActClose}, store)
	if s.Selected != "" || s.Viewer != nil {
		t.Fatalf("close left %+v", s)
	}
}

func TestReduceEnterWithoutFocus(t *testing.T) {
	s := mustReduce(t, NewState(), Action{Type: ActKey, Key: KeyEnter}, gallery(3))
	if s.Selected != "" {
		t.Fatalf("opened %q without focus", s.Selected)
	}
}

func TestReduceFilterClampsCursor(t *testing.T) {
	store := gallery(9)
	s := NewState()
	s = mustReduce(t, s, Action{Type: ActFocus, Index: 8}, store)
	s = mustReduce(t, s, Action{Type: ActFilter, Filter: "text"}, store)
	if s.Cursor.Index != NoFocus {
		t.Fatalf("stale cursor %d over %d items", s.Cursor.Index, len(store.View(s.Filter, s.Query)))
	}
	s = mustReduce(t, s, Action{Type: ActFocus, Index: 1}, store)
	s = mustReduce(t, s, Action{Type: ActSearch, Query: "nothing matches"}, store)
	if s.Cursor.Index != NoFocus {
		t.Fatalf("cursor %d over empty list", s.Cursor.Index)
	}
	if _, err := Reduce(s, Action{Type: ActFilter, Filter: "bogus"}, store); !errors.Is(err, catalog.ErrUnknownFilter) {
		t.Fatalf("got err=%v", err)
	}
	if _, err := Reduce(s, Action{Type: "dance"}, store); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("got err=%v", err)
	}
}

func TestReducePhotoViewer(t *testing.T) {
	store := gallery(3)
	s := mustReduce(t, NewState(), Action{Type: ActOpen, Index: 0}, store)
	s = s.WithPhotos(photos(0, 1, 2))

	s = mustReduce(t, s, Action{Type: ActPhotoOpen, Index: 1}, store)
	if s.Viewer.IsOpen() {
		t.Fatal("stacked thumbnail opened")
	}
	s = mustReduce(t, s, Action{Type: ActSpread}, store)
	s = mustReduce(t, s, Action{Type: ActPhotoOpen, Index: 1}, store)
	s = mustReduce(t, s, Action{Type: ActPhotoClick}, store)
	if !s.Viewer.IsOpen() {
		t.Fatal("clicking the image closed the viewer")
	}
	s = mustReduce(t, s, Action{Type: ActPhotoNext}, store)
	s = mustReduce(t, s, Action{Type: ActPhotoNext}, store)
	if *s.Viewer.Index != 2 {
		t.Fatalf("index=%d", *s.Viewer.Index)
	}
	page := Render(s, store)
	if page.Photos == nil || page.Photos.ShowNext || !page.Photos.ShowPrev || page.Photos.Current.ID != "C" {
		t.Fatalf("photos=%+v", page.Photos)
	}
	s = mustReduce(t, s, Action{Type: ActBackdrop}, store)
	if s.Viewer.IsOpen() {
		t.Fatal("backdrop did not close")
	}
}

func TestRenderEmptyMessage(t *testing.T) {
	store := gallery(2)
	s := mustReduce(t, NewState(), Action{Type: ActFilter, Filter: "video"}, store)
	p := Render(s, store)
	if len(p.Cards) != 0 || p.Empty != "No files match this filter" {
		t.Fatalf("page=%+v", p)
	}
	if len(p.Buttons) != 3 {
		t.Fatalf("buttons=%+v", p.Buttons)
	}
}
