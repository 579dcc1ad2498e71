package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/asistetec/internal/auth"
)

const (
	msgUnauthenticated = "No autenticado"
	msgForbiddenRole   = "Acceso denegado: rol no autorizado"
)

// RequireRole returns a middleware that lets the request through only when
// the identity attached by Authenticate has one of roles.  Without an
// identity it answers 401; with a role outside the set, 403.  It must be
// chained after Authenticate.
func RequireRole(roles ...auth.Role) echo.MiddlewareFunc {
	// Build the lookup set once at registration time.
	allowed := auth.NewRoleSet(roles...)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// No identity means Authenticate did not run on this route.
			id, ok := IdentityFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgUnauthenticated})
			}
			// Authenticated but outside the allowed roles.
			if !allowed.Has(id.Role) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": msgForbiddenRole})
			}
			return next(c)
		}
	}
}
