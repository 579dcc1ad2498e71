// Package handler implements the HTTP endpoints.  Handlers depend on small
// interfaces so they can be exercised with fakes; main wires them to the
// MySQL repositories, the audit recorder and the evidence store.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/asistetec/internal/audit"
	"github.com/iliyamo/asistetec/internal/auth"
	"github.com/iliyamo/asistetec/internal/middleware"
)

// requestTimeout bounds the database work of a single request.
const requestTimeout = 5 * time.Second

// Auditor records an audit entry.  Implementations must not fail the
// request.
type Auditor interface {
	Record(ctx context.Context, actor *int64, action, details string)
}

// PasswordHasher hashes a plain password for storage.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// StudentLookup resolves the alumnos row of an account.
type StudentLookup interface {
	IDForUser(ctx context.Context, userID int64) (int64, error)
}

// requestContext derives the context used for repository calls.  It carries
// the request id so audit events can be correlated with access logs.
func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request().Context()
	if rid := c.Response().Header().Get(echo.HeaderXRequestID); rid != "" {
		ctx = audit.WithRequestID(ctx, rid)
	}
	return context.WithTimeout(ctx, requestTimeout)
}

// errJSON writes the single error body shape used by every endpoint.
func errJSON(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"error": msg})
}

// caller returns the identity stored by the authentication middleware.
func caller(c echo.Context) (auth.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return auth.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "No autenticado")
	}
	return id, nil
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
