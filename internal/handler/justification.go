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

// JustificationStore is the persistence used by the justification
// endpoints.
type JustificationStore interface {
	Create(ctx context.Context, in repository.NewJustification) (int64, error)
	ListPending(ctx context.Context) ([]model.PendingJustification, error)
	Approve(ctx context.Context, id, reviewerID int64) error
	Reject(ctx context.Context, id, reviewerID int64) error
	Evidence(ctx context.Context, id int64) (key string, studentID int64, err error)
}

// EvidenceSigner issues presigned URLs for evidence objects.
type EvidenceSigner interface {
	NewKey(studentID int64) string
	UploadURL(ctx context.Context, key string) (string, error)
	DownloadURL(ctx context.Context, key string) (string, error)
	TTL() time.Duration
}

// JustificationHandler serves the justification endpoints.  Evidence is nil
// when object storage is not configured.
type JustificationHandler struct {
	Justifications JustificationStore
	Students       StudentLookup
	Evidence       EvidenceSigner
	Audit          Auditor
	Log            logging.Logger
}

// NewJustificationHandler panics if a required dependency is nil.  ev may
// be nil.
func NewJustificationHandler(j JustificationStore, s StudentLookup, ev EvidenceSigner, a Auditor, log logging.Logger) *JustificationHandler {
	if j == nil || s == nil || a == nil || log == nil {
		panic("nil dependency passed to NewJustificationHandler")
	}
	return &JustificationHandler{Justifications: j, Students: s, Evidence: ev, Audit: a, Log: log}
}

const (
	msgStorageDisabled       = "Almacenamiento de evidencias no disponible"
	msgJustificationNotFound = "Justificación no encontrada"
	msgJustificationIDNeeded = "ID de justificación requerido"
)

type submitReq struct {
	AttendanceID int64  `json:"asistenciaId"`
	Reason       string `json:"motivo"`
	WithEvidence bool   `json:"evidencia"`
}

type evidencePart struct {
	URL       string `json:"url"`
	Key       string `json:"clave"`
	ExpiresIn int64  `json:"expiraEn"`
}

// Submit files a justification for one of the caller's absences or late
// arrivals.  With "evidencia": true the response also carries a presigned
// upload URL for the supporting document.
func (h *JustificationHandler) Submit(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	var req submitReq
	if err := c.Bind(&req); err != nil {
		return errJSON(c, http.StatusBadRequest, "Datos inválidos")
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.AttendanceID <= 0 || req.Reason == "" {
		return errJSON(c, http.StatusBadRequest, "ID de asistencia y motivo son requeridos")
	}
	if req.WithEvidence && h.Evidence == nil {
		return errJSON(c, http.StatusServiceUnavailable, msgStorageDisabled)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	// The token carries the user id; ownership is checked by student id.
	studentID, err := h.Students.IDForUser(ctx, id.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return errJSON(c, http.StatusForbidden, "El usuario no está registrado como alumno")
	}
	if err != nil {
		return fmt.Errorf("resolve student: %w", err)
	}

	in := repository.NewJustification{AttendanceID: req.AttendanceID, StudentID: studentID, Reason: req.Reason}
	// Reserve the object key now; the client uploads after we answer.
	if req.WithEvidence {
		key := h.Evidence.NewKey(studentID)
		in.EvidenceKey = &key
	}

	jid, err := h.Justifications.Create(ctx, in)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errJSON(c, http.StatusNotFound, "Asistencia no encontrada")
	case errors.Is(err, repository.ErrForbidden):
		return errJSON(c, http.StatusForbidden, "Acceso denegado")
	case errors.Is(err, repository.ErrInvalidState):
		return errJSON(c, http.StatusBadRequest, "Solo se pueden justificar ausencias o retardos")
	case errors.Is(err, repository.ErrConflict):
		return errJSON(c, http.StatusConflict, "Ya existe una justificación pendiente o aprobada para esta asistencia")
	case err != nil:
		return fmt.Errorf("create justification: %w", err)
	}

	h.Audit.Record(ctx, audit.Actor(id.ID), model.ActionSubmitJustification,
		fmt.Sprintf("Alumno creó justificación %d para la asistencia %d", jid, req.AttendanceID))

	resp := echo.Map{
		"mensaje":          "Justificación enviada exitosamente",
		"justificacionId": jid,
	}
	if in.EvidenceKey != nil {
		url, err := h.Evidence.UploadURL(ctx, *in.EvidenceKey)
		if err != nil {
			// The justification is already stored; answer without the upload URL.
			h.Log.Error(ctx, "presign evidence upload", "justificacion_id", jid, "err", err)
		} else {
			resp["evidencia"] = evidencePart{URL: url, Key: *in.EvidenceKey, ExpiresIn: int64(h.Evidence.TTL().Seconds())}
		}
	}
	return c.JSON(http.StatusCreated, resp)
}

// Pending lists justifications awaiting review, oldest first.
func (h *JustificationHandler) Pending(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.Justifications.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("list pending justifications: %w", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"justificaciones": list, "total": len(list)})
}

// Approve accepts a justification and marks the attendance record as
// Justificada.
func (h *JustificationHandler) Approve(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	jid, ok := pathID(c, "id")
	if !ok {
		return errJSON(c, http.StatusBadRequest, msgJustificationIDNeeded)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	err = h.Justifications.Approve(ctx, jid, id.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errJSON(c, http.StatusNotFound, msgJustificationNotFound)
	case errors.Is(err, repository.ErrInvalidState):
		return errJSON(c, http.StatusBadRequest, "La justificación ya ha sido aprobada")
	case err != nil:
		return fmt.Errorf("approve justification: %w", err)
	}

	h.Audit.Record(ctx, audit.Actor(id.ID), model.ActionApproveJustification,
		fmt.Sprintf("Justificación %d aprobada", jid))
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Justificación aprobada exitosamente", "justificacionId": jid})
}

// Reject declines a pending justification.
func (h *JustificationHandler) Reject(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	jid, ok := pathID(c, "id")
	if !ok {
		return errJSON(c, http.StatusBadRequest, msgJustificationIDNeeded)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	err = h.Justifications.Reject(ctx, jid, id.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return errJSON(c, http.StatusNotFound, msgJustificationNotFound)
	case errors.Is(err, repository.ErrInvalidState):
		return errJSON(c, http.StatusBadRequest, "La justificación ya fue revisada")
	case err != nil:
		return fmt.Errorf("reject justification: %w", err)
	}

	h.Audit.Record(ctx, audit.Actor(id.ID), model.ActionRejectJustification,
		fmt.Sprintf("Justificación %d rechazada", jid))
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "Justificación rechazada", "justificacionId": jid})
}

// EvidenceURL returns a presigned download URL for a justification's
// evidence.  Students may only fetch their own.
func (h *JustificationHandler) EvidenceURL(c echo.Context) error {
	id, err := caller(c)
	if err != nil {
		return err
	}
	jid, ok := pathID(c, "id")
	if !ok {
		return errJSON(c, http.StatusBadRequest, msgJustificationIDNeeded)
	}
	if h.Evidence == nil {
		return errJSON(c, http.StatusServiceUnavailable, msgStorageDisabled)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	key, owner, err := h.Justifications.Evidence(ctx, jid)
	if errors.Is(err, repository.ErrNotFound) {
		return errJSON(c, http.StatusNotFound, msgJustificationNotFound)
	}
	if err != nil {
		return fmt.Errorf("load evidence: %w", err)
	}

	if id.Role == auth.RoleStudent {
		own, err := h.Students.IDForUser(ctx, id.ID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && own != owner) {
			return errJSON(c, http.StatusForbidden, "Acceso denegado")
		}
		if err != nil {
			return fmt.Errorf("resolve student: %w", err)
		}
	}
	// Ownership is checked first so the answer does not reveal whether
	// another student's justification has evidence.
	if key == "" {
		return errJSON(c, http.StatusNotFound, "La justificación no tiene evidencia")
	}

	url, err := h.Evidence.DownloadURL(ctx, key)
	if err != nil {
		return fmt.Errorf("presign evidence download: %w", err)
	}
	return c.JSON(http.StatusOK, evidencePart{URL: url, Key: key, ExpiresIn: int64(h.Evidence.TTL().Seconds())})
}
