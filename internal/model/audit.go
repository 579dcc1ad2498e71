package model

import "time"

// Audit actions recorded in logs_auditoria.accion.
const (
	ActionLogin                = "LOGIN"
	ActionRegister             = "REGISTRO"
	ActionCreateStudent        = "CREAR_ALUMNO"
	ActionRecordAttendance     = "REGISTRO_ASISTENCIA"
	ActionSubmitJustification  = "CREAR_JUSTIFICACION"
	ActionApproveJustification = "APROBAR_JUSTIFICACION"
	ActionRejectJustification  = "RECHAZAR_JUSTIFICACION"
	ActionUnlockAccount        = "DESBLOQUEAR_CUENTA"
)

// AuditEntry is a row of logs_auditoria.  UserID is nil when the actor is
// unknown.
type AuditEntry struct {
	ID        int64
	UserID    *int64
	Action    string
	Details   string
	CreatedAt time.Time
}
