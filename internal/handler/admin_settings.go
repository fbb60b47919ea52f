package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/casefiles/internal/storage"
)

type settingsResp struct {
	SitePassword string    `json:"site_password"`
	MusicURL     *string   `json:"music_url"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type passwordReq struct {
	Password string `json:"password"`
}

// GetSettings: GET /v1/admin/settings.
func (h *AdminHandler) GetSettings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cfg, err := h.Config.Get(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load config failed"})
	}
	return c.JSON(http.StatusOK, settingsResp{SitePassword: cfg.SitePassword, MusicURL: cfg.MusicURL, UpdatedAt: cfg.UpdatedAt})
}

// UpdatePassword: PUT /v1/admin/settings/password.  The new secret is
// trimmed, matching how the gate trims what visitors type.
func (h *AdminHandler) UpdatePassword(c echo.Context) error {
	var req passwordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	pw := strings.TrimSpace(req.Password)
	if pw == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Config.UpdatePassword(ctx, pw); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// UploadMusic: POST /v1/admin/settings/music (multipart "file").  Stores the
// track in the music bucket and points the config at its public URL.
func (h *AdminHandler) UploadMusic(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	url, err := h.upload(ctx, h.Music, fh, storage.MusicKey)
	if err != nil {
		c.Logger().Errorf("music upload: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "upload failed"})
	}
	if err := h.Config.UpdateMusicURL(ctx, url); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"music_url": url})
}
