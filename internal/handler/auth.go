package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/asistetec/internal/audit"
	"github.com/iliyamo/asistetec/internal/auth"
	"github.com/iliyamo/asistetec/internal/logging"
	"github.com/iliyamo/asistetec/internal/model"
	"github.com/iliyamo/asistetec/internal/repository"
)

// LoginService checks credentials under the lockout policy.
type LoginService interface {
	Authenticate(ctx context.Context, email, password string) (auth.Session, error)
}

// UserStore is the account persistence used by the auth endpoints.
type UserStore interface {
	Create(ctx context.Context, u model.NewUser) (int64, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
}

// AuthHandler serves login, self registration and the current profile.
type AuthHandler struct {
	Sessions LoginService
	Users    UserStore
	Hasher   PasswordHasher
	Audit    Auditor
	Log      logging.Logger
}

// NewAuthHandler panics if any dependency is nil.
func NewAuthHandler(s LoginService, u UserStore, h PasswordHasher, a Auditor, log logging.Logger) *AuthHandler {
	if s == nil || u == nil || h == nil || a == nil || log == nil {
		panic("nil dependency passed to NewAuthHandler")
	}
	return &AuthHandler{Sessions: s, Users: u, Hasher: h, Audit: a, Log: log}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"correo"`
	Password string `json:"contraseña"`
}

type registerReq struct {
	Email    string `json:"correo"`
	Password string `json:"contraseña"`
	Name     string `json:"nombre"`
	Role     string `json:"rol"`
}

type userPart struct {
	ID    int64  `json:"id"`
	Email string `json:"correo"`
	Name  string `json:"nombre,omitempty"`
	Role  string `json:"rol"`
}

type loginResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expira"`
	User    userPart  `json:"usuario"`
}

// Login exchanges email and password for a session token.  Wrong
// credentials answer 401 and a locked account answers 429; the body never
// says whether the email exists.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "Correo y contraseña son requeridos")
	}
	// Blank input is missing; anything else is matched byte for byte.
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return errJSON(c, http.StatusBadRequest, "Correo y contraseña son requeridos")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	// Lockout, password check and token issue all happen in the authenticator.
	sess, err := h.Sessions.Authenticate(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return errJSON(c, http.StatusUnauthorized, "Credenciales inválidas")
	case errors.Is(err, auth.ErrAccountLocked):
		h.Log.Warn(ctx, "login attempt on locked account", "correo", req.Email)
		return errJSON(c, http.StatusTooManyRequests, "Cuenta bloqueada por demasiados intentos fallidos")
	case err != nil:
		return fmt.Errorf("login: %w", err)
	}

	// Only successful logins are audited.
	id := sess.Identity
	h.Audit.Record(ctx, audit.Actor(id.ID), model.ActionLogin,
		fmt.Sprintf("Usuario %s inició sesión exitosamente", id.Email))

	return c.JSON(http.StatusOK, loginResp{
		Token:   sess.Token.Token,
		Expires: sess.Token.Exp,
		User:    userPart{ID: id.ID, Email: id.Email, Name: id.Name, Role: id.Role.String()},
	})
}

// Register creates a Profesor or Alumno account.  Administrators are only
// created out of band.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "Todos los campos son requeridos")
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" || req.Role == "" {
		return errJSON(c, http.StatusBadRequest, "Todos los campos son requeridos")
	}
	// Roles are case-sensitive; Administrador is never self-assigned.
	role, ok := auth.ParseRole(strings.TrimSpace(req.Role))
	if !ok || role == auth.RoleAdmin {
		return errJSON(c, http.StatusBadRequest, "Rol inválido")
	}

	// Hash before taking the request deadline; bcrypt is the slow part.
	hash, err := h.Hasher.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, model.NewUser{
		Email: req.Email, PasswordHash: hash, Name: req.Name, Role: role.String(),
	})
	// Unique index on correo.
	if errors.Is(err, repository.ErrEmailExists) {
		return errJSON(c, http.StatusConflict, "El correo ya está registrado")
	}
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	h.Audit.Record(ctx, audit.Actor(uid), model.ActionRegister,
		fmt.Sprintf("Nuevo usuario %s registrado con rol %s", req.Email, role))

	return c.JSON(http.StatusCreated, echo.Map{
		"mensaje": "Usuario registrado exitosamente",
		"usuario": userPart{ID: uid, Email: req.Email, Name: req.Name, Role: role.String()},
	})
}

// Me returns the profile of the authenticated caller.
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return errJSON(c, http.StatusNotFound, "Usuario no encontrado")
	}
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"id":     u.ID,
		"correo": u.Email,
		"nombre": u.Name,
		"rol":    u.Role,
		"activo": u.Active,
	})
}
