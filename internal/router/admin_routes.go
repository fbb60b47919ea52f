package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/casefiles/internal/handler"
	"github.com/iliyamo/casefiles/internal/middleware"
	"github.com/iliyamo/casefiles/internal/model"
)

// RegisterAdmin registers the admin panel under /v1/admin.  Sign-in routes
// are rate limited; everything else requires an ADMIN token whose identity
// is still on the admin allow-list.  Successful writes purge the catalog
// cache.
func RegisterAdmin(e *echo.Echo, a *handler.AuthHandler, h *handler.AdminHandler, d Deps) {
	limited := middleware.NewTokenBucket(d.RateLimit, d.Redis)
	e.POST("/v1/admin/login", a.Login, limited)
	e.POST("/v1/admin/refresh", a.Refresh, limited)

	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleAdmin),
		middleware.RequireAdmin(d.Admins),
		limited,
		middleware.InvalidateOnWrite(d.Cache, d.Redis),
		echomw.BodyLimit("64M"),
	)
	g.GET("/me", a.Me)
	g.POST("/logout", a.Logout)

	// ---- Cases ----
	g.GET("/cases", h.ListCases)
	g.POST("/cases", h.CreateCase)
	g.DELETE("/cases/:id", h.DeleteCase)
	g.POST("/cases/:id/photos", h.AddPhoto)

	// ---- Access log ----
	g.GET("/attempts", h.ListAttempts)

	// ---- Settings ----
	g.GET("/settings", h.GetSettings)
	g.PUT("/settings/password", h.UpdatePassword)
	g.POST("/settings/music", h.UploadMusic)
}
