package middleware

// identity.go holds the helper that reads the caller's subject out of the
// Echo context.  JWTAuth stores it under "user_id"; visitor routes that run
// before a token exists fall back to the session cookie.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/casefiles/internal/session"
)

// Subject returns the authenticated subject, the visitor id of the session,
// or "anon" when neither is known.
func Subject(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	if v, ok := c.Get(VisitorKey).(*session.Visitor); ok && v != nil {
		return v.ID
	}
	return "anon"
}
