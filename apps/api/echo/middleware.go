package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// professorMiddleware lets through identities holding `role`.
func professorMiddleware(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			identity, err := getContextIdentity(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context identity")
			}
			if identity.HasRole(role) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
