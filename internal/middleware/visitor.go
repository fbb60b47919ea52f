package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/casefiles/internal/session"
)

// VisitorKey is the Echo context key holding the *session.Visitor.
const VisitorKey = "visitor"

// Visitor loads (or starts) the visitor session of every request, exposes it
// under VisitorKey and persists it once the handler returns without error.
// Requests of the same visitor run one at a time, from load to save.
func Visitor(m *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			if ck, err := r.Cookie(session.CookieName); err == nil && ck.Value != "" {
				defer m.Lock(ck.Value)()
			}
			v, created, err := m.Load(r.Context(), r)
			if err != nil {
				c.Logger().Errorf("visitor session: %v", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session unavailable"})
			}
			if created {
				m.SetCookie(c.Response(), v)
			}
			c.Set(VisitorKey, v)
			c.SetRequest(r.WithContext(session.WithVisitor(r.Context(), v)))

			if err := next(c); err != nil {
				return err
			}
			if err := m.Save(context.WithoutCancel(r.Context()), v); err != nil {
				c.Logger().Errorf("save visitor %s: %v", v.ID, err)
			}
			return nil
		}
	}
}

// CurrentVisitor returns the session attached by Visitor.
func CurrentVisitor(c echo.Context) (*session.Visitor, bool) {
	v, ok := c.Get(VisitorKey).(*session.Visitor)
	return v, ok && v != nil
}
