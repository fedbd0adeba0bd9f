package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// instructorMiddleware lets instructors and admins through.
func instructorMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsInstructor() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
