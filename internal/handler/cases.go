package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/casefiles/internal/browse"
	"github.com/iliyamo/casefiles/internal/catalog"
	"github.com/iliyamo/casefiles/internal/model"
	"github.com/iliyamo/casefiles/internal/repository"
)

// CasesHandler serves the live catalog to visitors holding a VISITOR token.
// Listings are cached by the Redis response cache.
type CasesHandler struct {
	Cases  *repository.CaseFileRepo
	Photos *repository.PhotoRepo
	Config *repository.SiteConfigRepo
}

func NewCasesHandler(cases *repository.CaseFileRepo, photos *repository.PhotoRepo, cfg *repository.SiteConfigRepo) *CasesHandler {
	return &CasesHandler{Cases: cases, Photos: photos, Config: cfg}
}

type casesResp struct {
	Filter  catalog.Filter   `json:"filter"`
	Query   string           `json:"query"`
	Items   []model.CaseFile `json:"items"`
	Counts  catalog.Counts   `json:"counts"`
	Buttons []catalog.Button `json:"buttons"`
}

// List: GET /v1/cases?type=&q=.  Items are search(filter(catalog)); the
// counts always describe the whole catalog.
func (h *CasesHandler) List(c echo.Context) error {
	f, err := catalog.ParseFilter(c.QueryParam("type"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown type filter"})
	}
	q := c.QueryParam("q")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	files, err := h.Cases.ListOrdered(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	store := catalog.NewStore(files)
	return c.JSON(http.StatusOK, casesResp{
		Filter:  f,
		Query:   q,
		Items:   store.View(f, q),
		Counts:  store.Counts(),
		Buttons: store.Buttons(f),
	})
}

type caseDetailResp struct {
	File   model.CaseFile        `json:"file"`
	Detail browse.Detail         `json:"detail"`
	Photos []model.CaseFilePhoto `json:"photos"`
}

// Get: GET /v1/cases/:id.  The record rendered into detail blocks.
func (h *CasesHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cf, err := h.Cases.GetByID(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrCaseFileNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "case file not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	photos, err := h.Photos.ListByCaseFile(ctx, cf.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	photos = browse.SortPhotos(photos)
	return c.JSON(http.StatusOK, caseDetailResp{File: cf, Detail: browse.BuildDetail(cf, photos), Photos: photos})
}

// ListPhotos: GET /v1/cases/:id/photos.
func (h *CasesHandler) ListPhotos(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	id := c.Param("id")
	if _, err := h.Cases.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCaseFileNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "case file not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	photos, err := h.Photos.ListByCaseFile(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": browse.SortPhotos(photos)})
}

// Music: GET /v1/music.  A missing or unreadable config plays nothing.
func (h *CasesHandler) Music(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cfg, err := h.Config.Get(ctx)
	if err != nil && !errors.Is(err, repository.ErrSiteConfigMissing) {
		c.Logger().Warnf("music url: %v", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"music_url": cfg.MusicURL})
}
