package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/casefiles/internal/model"
	"github.com/iliyamo/casefiles/internal/repository"
)

const (
	defaultAttemptPageSize = 50
	maxAttemptPageSize     = repository.MaxAttemptRows
)

type attemptsResp struct {
	Items    []model.AccessAttempt `json:"items"`
	Page     int                   `json:"page"`
	PageSize int                   `json:"page_size"`
	Total    int                   `json:"total"`
	Pages    int                   `json:"pages"`
}

// ListAttempts: GET /v1/admin/attempts?page=&page_size=.  Newest first; only
// the most recent MaxAttemptRows attempts are ever listed.
func (h *AdminHandler) ListAttempts(c echo.Context) error {
	page := queryInt(c, "page", 1)
	size := min(queryInt(c, "page_size", defaultAttemptPageSize), maxAttemptPageSize)
	// Past the last retained page every offset lists nothing.
	page = min(page, (repository.MaxAttemptRows+size-1)/size)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	total, err := h.Attempts.CountRecent(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "count failed"})
	}
	items, err := h.Attempts.ListRecent(ctx, size, (page-1)*size)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, attemptsResp{
		Items:    items,
		Page:     page,
		PageSize: size,
		Total:    total,
		Pages:    (total + size - 1) / size,
	})
}
