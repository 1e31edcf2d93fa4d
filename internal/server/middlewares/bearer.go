package middlewares

import (
	"net/http"

	"github.com/doggopher/dogvault/internal/gwerror"
	"github.com/doggopher/dogvault/internal/identity"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// CurrentIdentityContextKey is the key to retrieve the current_identity from echo.Context.
const CurrentIdentityContextKey = "current_identity"

// Bearer returns a bearer-token auth middleware.
// Every verification failure short-circuits with a 401 carrying the error
// kind as its tag, so unauthenticated requests never reach the data layer.
// It stores current_identity into echo.Context.
func Bearer(v identity.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authorization := c.Request().Header.Get(echo.HeaderAuthorization)

			ident, err := v.Verify(c.Request().Context(), authorization)
			if err != nil {
				if gwerr, ok := err.(*gwerror.GWError); ok {
					return c.JSON(gwerror.StatusCode(gwerr), gwerr)
				}

				logrus.WithError(err).Error("could not verify token")
				return c.JSON(http.StatusUnauthorized, gwerror.Unauthorized(
					gwerror.TagSignatureInvalid,
					"Could not verify token.",
				))
			}

			// Store current_identity for handlers.
			c.Set(CurrentIdentityContextKey, ident)
			return next(c)
		}
	}
}
