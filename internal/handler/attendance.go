package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/asistetec/internal/audit"
	"github.com/iliyamo/asistetec/internal/auth"
	"github.com/iliyamo/asistetec/internal/model"
	"github.com/iliyamo/asistetec/internal/repository"
)

// AttendanceStore is the persistence used by the attendance endpoints.
type AttendanceStore interface {
	Record(ctx context.Context, subjectID int64, date time.Time, marks []model.AttendanceMark) (int, error)
	ListByStudent(ctx context.Context, studentID int64) ([]model.Attendance, error)
	CountAbsences(ctx context.Context, studentID, subjectID int64) (int, error)
}

// AttendanceHandler serves the attendance endpoints.
type AttendanceHandler struct {
	Attendance AttendanceStore
	Students   StudentLookup
	Audit      Auditor
}

// NewAttendanceHandler panics if any dependency is nil.
func NewAttendanceHandler(a AttendanceStore, s StudentLookup, au Auditor) *AttendanceHandler {
	if a == nil || s == nil || au == nil {
		panic("nil dependency passed to NewAttendanceHandler")
	}
	return &AttendanceHandler{Attendance: a, Students: s, Audit: au}
}

type markReq struct {
	StudentID int64  `json:"alumnoId"`
	Status    string `json:"estado"`
}

type recordReq struct {
	SubjectID int64     `json:"materiaId"`
	Date      string    `json:"fecha"`
	Marks     []markReq `json:"asistencias"`
}

// Record stores a class session's attendance.  Entries without a student or
// with an unknown status are skipped; the response counts the rows written.
func (h *AttendanceHandler) Record(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req recordReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "Datos inválidos")
	}
	// fecha is a calendar date, YYYY-MM-DD.
	date, err := time.Parse(time.DateOnly, req.Date)
	if req.SubjectID <= 0 || err != nil || req.Marks == nil {
		return errJSON(c, http.StatusBadRequest, "Datos inválidos")
	}

	marks := make([]model.AttendanceMark, 0, len(req.Marks))
	// Malformed entries are dropped; the rest of the batch still counts.
	for _, m := range req.Marks {
		st := model.AttendanceStatus(m.Status)
		if m.StudentID <= 0 || !st.Valid() {
			continue
		}
		marks = append(marks, model.AttendanceMark{StudentID: m.StudentID, Status: st})
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.Attendance.Record(ctx, req.SubjectID, date, marks)
	if err != nil {
		return fmt.Errorf("record attendance: %w", err)
	}

	h.Audit.Record(ctx, audit.Actor(id.ID), model.ActionRecordAttendance,
		fmt.Sprintf("Profesor registró %d asistencias para la materia %d", n, req.SubjectID))

	return c.JSON(http.StatusCreated, echo.Map{
		"mensaje":             "Asistencias registradas exitosamente",
		"registrosInsertados": n,
	})
}

// History lists a student's attendance newest first together with summary
// statistics.  Students may only read their own history.
func (h *AttendanceHandler) History(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	studentID, ok := pathID(c, "alumnoId")
	if !ok {
		return errJSON(c, http.StatusBadRequest, "ID de alumno requerido")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	// Students may only read their own history.
	if id.Role == auth.RoleStudent {
		own, err := h.Students.IDForUser(ctx, id.ID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && own != studentID) {
			return errJSON(c, http.StatusForbidden, "Acceso denegado")
		}
		if err != nil {
			return fmt.Errorf("resolve student: %w", err)
		}
	}

	rows, err := h.Attendance.ListByStudent(ctx, studentID)
	if err != nil {
		return fmt.Errorf("list attendance: %w", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"alumnoId":     studentID,
		"asistencias":  rows,
		"estadisticas": model.Summarize(rows),
	})
}

// Threshold compares a student's absences in a subject against the number
// of sessions given in ?sesiones.
func (h *AttendanceHandler) Threshold(c echo.Context) error {
	studentID, ok1 := pathID(c, "alumnoId")
	subjectID, ok2 := pathID(c, "materiaId")
	if !ok1 || !ok2 {
		return errJSON(c, http.StatusBadRequest, "ID de alumno y materia requeridos")
	}
	sessions, err := strconv.Atoi(c.QueryParam("sesiones"))
	if err != nil || sessions <= 0 {
		return errJSON(c, http.StatusBadRequest, "El número de sesiones debe ser mayor que cero")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	absences, err := h.Attendance.CountAbsences(ctx, studentID, subjectID)
	if err != nil {
		return fmt.Errorf("count absences: %w", err)
	}
	return c.JSON(http.StatusOK, model.NewAbsenceReport(studentID, subjectID, absences, sessions))
}
