package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// adminMiddleware restricts the route to admin users. When roles are given,
// the admin must additionally hold at least one of them.
func adminMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !claims.IsAdmin {
				return errHttpForbidden
			}
			if !contextHasAnyRole(ctx, roles) {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
