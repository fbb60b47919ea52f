package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/casefiles/internal/handler"
	"github.com/iliyamo/casefiles/internal/middleware"
	"github.com/iliyamo/casefiles/internal/model"
)

// RegisterGate registers the password gate.  The routes carry a visitor
// session but no token: the token is what the gate hands out.  There is no
// rate limit here on purpose; every attempt is audited instead.
func RegisterGate(e *echo.Echo, g *handler.GateHandler, d Deps) {
	grp := e.Group("/v1/gate", middleware.Visitor(d.Sessions))
	grp.GET("", g.State)
	grp.POST("", g.Submit)
	grp.POST("/input", g.Input)
}

// RegisterVisitor registers the catalog endpoints.  All routes require a
// VISITOR token issued by the gate.
func RegisterVisitor(e *echo.Echo, cs *handler.CasesHandler, b *handler.BrowseHandler, d Deps) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleVisitor),
	)
	cached := middleware.NewRedisCache(d.Cache, d.Redis)
	g.GET("/cases", cs.List, cached)
	g.GET("/cases/:id", cs.Get, cached)
	g.GET("/cases/:id/photos", cs.ListPhotos, cached)
	g.GET("/music", cs.Music)

	// The browse state machine lives in the visitor session.
	bg := g.Group("/browse", middleware.Visitor(d.Sessions))
	bg.GET("", b.Show)
	bg.POST("/actions", b.Act)
}
