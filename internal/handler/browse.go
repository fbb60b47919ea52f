package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/casefiles/internal/browse"
	"github.com/iliyamo/casefiles/internal/catalog"
	"github.com/iliyamo/casefiles/internal/middleware"
	"github.com/iliyamo/casefiles/internal/repository"
	"github.com/iliyamo/casefiles/internal/session"
)

// BrowseHandler drives the visitor's gallery state held in the session.
// The catalog shown is the snapshot taken when the gate unlocked; admin
// changes made afterwards are not pushed into it.
type BrowseHandler struct {
	Records catalog.RecordSource
	Config  catalog.ConfigSource
	Photos  *repository.PhotoRepo
}

func NewBrowseHandler(records catalog.RecordSource, cfg catalog.ConfigSource, photos *repository.PhotoRepo) *BrowseHandler {
	return &BrowseHandler{Records: records, Config: cfg, Photos: photos}
}

type browseResp struct {
	browse.Page
	MusicURL *string `json:"music_url,omitempty"`
}

// Show: GET /v1/browse.
func (h *BrowseHandler) Show(c echo.Context) error {
	v, ok := middleware.CurrentVisitor(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "no session"})
	}
	h.ensureSnapshot(c, v)
	return c.JSON(http.StatusOK, browseResp{Page: browse.Render(v.Browse, v.Store()), MusicURL: v.MusicURL})
}

// Act: POST /v1/browse/actions.  Applies one action and returns the page.
func (h *BrowseHandler) Act(c echo.Context) error {
	v, ok := middleware.CurrentVisitor(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "no session"})
	}
	var a browse.Action
	if err := c.Bind(&a); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	h.ensureSnapshot(c, v)
	store := v.Store()

	next, err := browse.Reduce(v.Browse, a, store)
	if errors.Is(err, browse.ErrUnknownAction) || errors.Is(err, catalog.ErrUnknownFilter) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "action failed"})
	}

	if next.NeedsPhotos() {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		photos, err := h.Photos.ListByCaseFile(ctx, next.Selected)
		cancel()
		if err != nil {
			// The detail view still opens without its photo set.
			c.Logger().Warnf("photos of %s: %v", next.Selected, err)
		}
		next = next.WithPhotos(photos)
	}
	v.Browse = next
	return c.JSON(http.StatusOK, browseResp{Page: browse.Render(v.Browse, store), MusicURL: v.MusicURL})
}

// ensureSnapshot loads the catalog for a token holder whose session was
// lost (expired, or served by another instance without Redis).
func (h *BrowseHandler) ensureSnapshot(c echo.Context, v *session.Visitor) {
	if !v.Loaded {
		takeSnapshot(c, v, h.Records, h.Config)
	}
}

// takeSnapshot stores the visitor's catalog snapshot.  The gallery opens even
// when a read fails: it then shows an empty catalog or plays no music.
func takeSnapshot(c echo.Context, v *session.Visitor, records catalog.RecordSource, cfg catalog.ConfigSource) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	snap, err := catalog.Load(ctx, records, cfg)
	if err != nil {
		c.Logger().Warnf("catalog snapshot for %s: %v", v.ID, err)
	}
	v.SetSnapshot(snap)
}
