package middleware // middleware holds the Echo middleware shared by all routes

import (
	"net/http" // status codes for the 401 responses
	"strings"  // Bearer prefix handling

	"github.com/labstack/echo/v4" // middleware signature and context

	"github.com/iliyamo/asistetec/internal/auth"
	"github.com/iliyamo/asistetec/internal/logging"
)

// Client-facing messages.  The verification reason is logged, never sent.
const (
	msgMissingToken = "Token no proporcionado o formato incorrecto"
	msgInvalidToken = "Token inválido o expirado"
)

// TokenVerifier turns a raw bearer token into an identity.
type TokenVerifier interface {
	Verify(raw string) (auth.Identity, error)
}

// Authenticate returns an Echo middleware that validates the Bearer token
// in the Authorization header and attaches the identity it asserts to the
// context.  A missing or malformed header and a token that fails
// verification both stop the chain with 401.
func Authenticate(v TokenVerifier, log logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Pull the token out of "Authorization: Bearer <token>".  Any
			// other shape is treated the same as no header at all.
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgMissingToken})
			}
			// Signature, expiry and claim shape are all checked by the
			// codec.  The reason goes to the log only.
			id, err := v.Verify(raw)
			if err != nil {
				log.Warn(c.Request().Context(), "token rejected",
					"path", c.Path(), "ip", c.RealIP(), "reason", err.Error())
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": msgInvalidToken})
			}
			// Handlers and RequireRole read the identity from here.
			SetIdentity(c, id)
			return next(c)
		}
	}
}

// bearerToken extracts the token from "Bearer <token>".  The scheme is
// matched exactly.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(prefix):])
	return raw, raw != ""
}
