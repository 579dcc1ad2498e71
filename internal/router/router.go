// Package router maps URL paths onto handlers and attaches the
// authentication and role middleware each route needs.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/asistetec/internal/auth"
	"github.com/iliyamo/asistetec/internal/handler"
	"github.com/iliyamo/asistetec/internal/middleware"
)

// Handlers bundles every handler the API exposes.
type Handlers struct {
	Health         echo.HandlerFunc
	Auth           *handler.AuthHandler
	Attendance     *handler.AttendanceHandler
	Justifications *handler.JustificationHandler
	Admin          *handler.AdminHandler
}

// Guards are the shared middleware.  Authn verifies the bearer token and
// LoginLimiter throttles the login endpoint; a nil LoginLimiter disables
// throttling.
type Guards struct {
	Authn        echo.MiddlewareFunc
	LoginLimiter echo.MiddlewareFunc
}

// RegisterRoutes registers every route under /api.
func RegisterRoutes(e *echo.Echo, h Handlers, g Guards) {
	api := e.Group("/api")
	api.GET("/health", h.Health)

	RegisterAuth(api, h.Auth, g)
	RegisterAttendance(api, h.Attendance, g.Authn)
	RegisterJustifications(api, h.Justifications, g.Authn)
	RegisterAdmin(api, h.Admin, g.Authn)
}

// RegisterAuth registers login, self registration and the profile route.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, g Guards) {
	grp := api.Group("/auth")
	if g.LoginLimiter != nil {
		grp.POST("/login", a.Login, g.LoginLimiter)
	} else {
		grp.POST("/login", a.Login)
	}
	grp.POST("/register", a.Register)
	grp.GET("/me", a.Me, g.Authn)
}

// RegisterAttendance registers the attendance routes.  Students may reach
// the history route; the handler limits them to their own record.
func RegisterAttendance(api *echo.Group, a *handler.AttendanceHandler, authn echo.MiddlewareFunc) {
	grp := api.Group("/assistance", authn)
	grp.POST("/record", a.Record, middleware.RequireRole(auth.RoleProfessor))
	grp.GET("/history/:alumnoId", a.History,
		middleware.RequireRole(auth.RoleAdmin, auth.RoleProfessor, auth.RoleStudent))
	grp.GET("/threshold/:alumnoId/:materiaId", a.Threshold,
		middleware.RequireRole(auth.RoleProfessor, auth.RoleAdmin))
}

// RegisterJustifications registers submission and review of
// justifications.
func RegisterJustifications(api *echo.Group, j *handler.JustificationHandler, authn echo.MiddlewareFunc) {
	grp := api.Group("/justifications", authn)
	professor := middleware.RequireRole(auth.RoleProfessor)

	grp.POST("", j.Submit, middleware.RequireRole(auth.RoleStudent))
	grp.GET("/pending", j.Pending, professor)
	grp.PUT("/:id/approve", j.Approve, professor)
	grp.PUT("/:id/reject", j.Reject, professor)
	grp.GET("/:id/evidence", j.EvidenceURL, middleware.RequireRole(auth.RoleProfessor, auth.RoleStudent))
}

// RegisterAdmin registers the Administrador routes.
func RegisterAdmin(api *echo.Group, a *handler.AdminHandler, authn echo.MiddlewareFunc) {
	admin := middleware.RequireRole(auth.RoleAdmin)

	api.GET("/admin/dashboard", a.GetDashboard, authn, admin)
	api.PUT("/admin/users/:id/unlock", a.Unlock, authn, admin)
	api.POST("/users/students", a.CreateStudent, authn, admin)
}
