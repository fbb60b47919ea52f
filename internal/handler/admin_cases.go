package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/casefiles/internal/model"
	"github.com/iliyamo/casefiles/internal/repository"
	"github.com/iliyamo/casefiles/internal/storage"
)

// ListCases: GET /v1/admin/cases.  All records by display_order.
func (h *AdminHandler) ListCases(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	files, err := h.Cases.ListOrdered(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": files})
}

// CreateCase: POST /v1/admin/cases (multipart).  Text records keep
// text_content and ignore any file; every other type may carry one file
// which is uploaded to the case-files bucket first.
func (h *AdminHandler) CreateCase(c echo.Context) error {
	title := strings.TrimSpace(c.FormValue("title"))
	if title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}
	ft := model.ParseFileType(strings.TrimSpace(c.FormValue("file_type")))
	if !ft.Known() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid file_type"})
	}
	in := repository.NewCaseFile{Title: title, FileType: ft}
	if d := strings.TrimSpace(c.FormValue("description")); d != "" {
		in.Description = &d
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	if ft.IsText() {
		if t := c.FormValue("text_content"); t != "" {
			in.TextContent = &t
		}
	} else if fh, err := c.FormFile("file"); err == nil {
		url, err := h.upload(ctx, h.Files, fh, storage.AttachmentKey)
		if err != nil {
			c.Logger().Errorf("case upload: %v", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
		}
		in.FileURL = &url
	} else if !errors.Is(err, http.ErrMissingFile) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid file"})
	}

	cf, err := h.Cases.Create(ctx, in)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, cf)
}

// DeleteCase: DELETE /v1/admin/cases/:id.  Stored objects are left in place.
func (h *AdminHandler) DeleteCase(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Cases.Delete(ctx, c.Param("id"))
	if errors.Is(err, repository.ErrCaseFileNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "case file not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// AddPhoto: POST /v1/admin/cases/:id/photos (multipart "file").  The photo
// goes to the end of the case's photo set.
func (h *AdminHandler) AddPhoto(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	id := c.Param("id")
	if _, err := h.Cases.GetByID(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCaseFileNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "case file not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	url, err := h.upload(ctx, h.Files, fh, storage.AttachmentKey)
	if err != nil {
		c.Logger().Errorf("photo upload: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
	}
	p, err := h.Photos.Add(ctx, id, url)
	if errors.Is(err, repository.ErrCaseFileNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "case file not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "add photo failed"})
	}
	return c.JSON(http.StatusCreated, p)
}
