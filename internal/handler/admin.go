package handler

import (
	"context"
	"fmt"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/casefiles/internal/repository"
	"github.com/iliyamo/casefiles/internal/storage"
)

// AdminHandler bundles the repositories and buckets behind the admin panel
// tabs (cases, access log, settings).
type AdminHandler struct {
	Cases    *repository.CaseFileRepo
	Photos   *repository.PhotoRepo
	Attempts *repository.AttemptRepo
	Config   *repository.SiteConfigRepo
	Files    storage.Bucket // case-files bucket
	Music    storage.Bucket // music bucket

	now func() time.Time
}

// NewAdminHandler constructs an AdminHandler and panics if any dependency is nil.
func NewAdminHandler(cases *repository.CaseFileRepo, photos *repository.PhotoRepo, attempts *repository.AttemptRepo,
	cfg *repository.SiteConfigRepo, files, music storage.Bucket) *AdminHandler {
	if cases == nil || photos == nil || attempts == nil || cfg == nil || files == nil || music == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{
		Cases:    cases,
		Photos:   photos,
		Attempts: attempts,
		Config:   cfg,
		Files:    files,
		Music:    music,
		now:      time.Now,
	}
}

// upload stores a multipart file in b under the key produced by name and
// returns its public URL.
func (h *AdminHandler) upload(ctx context.Context, b storage.Bucket, fh *multipart.FileHeader,
	name func(time.Time, string) string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	key := name(h.now(), fh.Filename)
	if err := b.Put(ctx, key, src); err != nil {
		return "", fmt.Errorf("store %s: %w", key, err)
	}
	return b.PublicURL(key), nil
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(c echo.Context, name string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
