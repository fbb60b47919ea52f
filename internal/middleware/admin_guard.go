package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// MembershipChecker answers whether an identity is on the admin allow-list.
// *repository.AdminRepo satisfies it.
type MembershipChecker interface {
	IsAdmin(ctx context.Context, identityID string) (bool, error)
}

// RequireAdmin rejects ADMIN tokens whose identity has since lost its admin
// row.  It must run after JWTAuth and RequireRole(model.RoleAdmin).
func RequireAdmin(admins MembershipChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, _ := c.Get("user_id").(string)
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			ok, err := admins.IsAdmin(ctx, id)
			if err != nil {
				c.Logger().Errorf("admin guard: %v", err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
			}
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Unauthorized"})
			}
			return next(c)
		}
	}
}
