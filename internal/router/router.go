package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/casefiles/internal/config"
	"github.com/iliyamo/casefiles/internal/handler"
	"github.com/iliyamo/casefiles/internal/middleware"
	"github.com/iliyamo/casefiles/internal/session"
)

// Deps collects everything the route groups need.  Redis may be nil, in
// which case caching and rate limiting pass through.
type Deps struct {
	DB          *sql.DB
	Redis       *redis.Client
	Sessions    *session.Manager
	JWTSecret   string
	StorageRoot string
	Cache       config.CacheConfig
	RateLimit   config.RateLimitConfig
	Admins      middleware.MembershipChecker
}

// RegisterRoutes registers routes that need neither a session nor a token:
// the health check and the public storage buckets.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))
	// Uploaded attachments and music are public once stored.
	e.Static("/storage", d.StorageRoot)
}

// RegisterSetup exposes the admin bootstrap endpoint.  It is rate limited
// because its only protection is the static setup key.
func RegisterSetup(e *echo.Echo, s *handler.SetupHandler, d Deps) {
	e.POST("/v1/setup/admin", s.CreateAdmin, middleware.NewTokenBucket(d.RateLimit, d.Redis))
}
