package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/asistetec/internal/auth"
)

// identityKey is the echo.Context key under which Authenticate stores the
// verified identity.
const identityKey = "identity"

// SetIdentity attaches id to the request context.
func SetIdentity(c echo.Context, id auth.Identity) { c.Set(identityKey, id) }

// IdentityFrom returns the identity attached by Authenticate.
func IdentityFrom(c echo.Context) (auth.Identity, bool) {
	id, ok := c.Get(identityKey).(auth.Identity)
	return id, ok
}

// userID returns the caller's id for rate limit keys, or "anon".
func userID(c echo.Context) string {
	if id, ok := IdentityFrom(c); ok {
		return strconv.FormatInt(id.ID, 10)
	}
	return "anon"
}
