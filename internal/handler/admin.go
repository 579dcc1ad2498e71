package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/asistetec/internal/audit"
	"github.com/iliyamo/asistetec/internal/auth"
	"github.com/iliyamo/asistetec/internal/model"
	"github.com/iliyamo/asistetec/internal/repository"
)

// DashboardSource returns the administrative counters.
type DashboardSource interface {
	Get(ctx context.Context) (model.Dashboard, error)
}

// StudentCreator creates a student together with its account.
type StudentCreator interface {
	Create(ctx context.Context, in model.NewStudent) (model.Student, error)
}

// AccountUnlocker clears the lockout state of an account.
type AccountUnlocker interface {
	Unlock(ctx context.Context, id int64) error
}

// AdminHandler serves the Administrador endpoints.
type AdminHandler struct {
	Dashboard DashboardSource
	Students  StudentCreator
	Accounts  AccountUnlocker
	Hasher    PasswordHasher
	Audit     Auditor
}

// NewAdminHandler panics if any dependency is nil.
func NewAdminHandler(d DashboardSource, s StudentCreator, u AccountUnlocker, h PasswordHasher, a Auditor) *AdminHandler {
	if d == nil || s == nil || u == nil || h == nil || a == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{Dashboard: d, Students: s, Accounts: u, Hasher: h, Audit: a}
}

type createStudentReq struct {
	Email     string  `json:"correo"`
	Password  string  `json:"contraseña"`
	Name      string  `json:"nombre"`
	Matricula string  `json:"matricula"`
	Career    *string `json:"carrera"`
	Semester  *int    `json:"semestre"`
}

// GetDashboard returns the institution-wide counters.
func (h *AdminHandler) GetDashboard(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	d, err := h.Dashboard.Get(ctx)
	if err != nil {
		return fmt.Errorf("load dashboard: %w", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"dashboard": d})
}

// CreateStudent creates an Alumno account and its alumnos row in one
// transaction.
func (h *AdminHandler) CreateStudent(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req createStudentReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "Campos requeridos faltantes")
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.Matricula = strings.TrimSpace(req.Matricula)
	if req.Email == "" || req.Password == "" || req.Name == "" || req.Matricula == "" {
		return errJSON(c, http.StatusBadRequest, "Campos requeridos faltantes")
	}
	if req.Semester != nil && *req.Semester <= 0 {
		return errJSON(c, http.StatusBadRequest, "Semestre inválido")
	}

	hash, err := h.Hasher.Hash(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := h.Students.Create(ctx, model.NewStudent{
		User: model.NewUser{
			Email: req.Email, PasswordHash: hash, Name: req.Name, Role: auth.RoleStudent.String(),
		},
		Matricula: req.Matricula,
		Career:    req.Career,
		Semester:  req.Semester,
	})
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return errJSON(c, http.StatusConflict, "El correo ya está registrado")
	case errors.Is(err, repository.ErrEnrollmentExists):
		return errJSON(c, http.StatusConflict, "La matrícula ya está registrada")
	case err != nil:
		return fmt.Errorf("create student: %w", err)
	}

	h.Audit.Record(ctx, audit.Actor(id.ID), model.ActionCreateStudent,
		fmt.Sprintf("Nuevo alumno %s (%s) creado", st.Name, st.Matricula))
	return c.JSON(http.StatusCreated, echo.Map{"mensaje": "Alumno creado exitosamente", "alumno": st})
}

// Unlock resets the failure counter and lock of an account.
func (h *AdminHandler) Unlock(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	uid, ok := pathID(c, "id")
	if !ok {
		return errJSON(c, http.StatusBadRequest, "ID de usuario requerido")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	err = h.Accounts.Unlock(ctx, uid)
	if errors.Is(err, repository.ErrNotFound) {
		return errJSON(c, http.StatusNotFound, "Usuario no encontrado")
	}
	if err != nil {
		return fmt.Errorf("unlock account: %w", err)
	}

	h.Audit.Record(ctx, audit.Actor(id.ID), model.ActionUnlockAccount,
		fmt.Sprintf("Cuenta %d desbloqueada", uid))
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Cuenta desbloqueada", "usuarioId": uid})
}
