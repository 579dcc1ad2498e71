package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger checks that a dependency is reachable.  *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health reports liveness.  When db is non-nil it is pinged and an
// unreachable database answers 503.
func Health(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		now := time.Now().UTC()
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				return c.JSON(http.StatusServiceUnavailable, echo.Map{
					"status": "degraded", "database": "unreachable", "timestamp": now,
				})
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ok", "timestamp": now})
	}
}
