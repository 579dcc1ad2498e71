package model

import "time"

// JustificationStatus is the value of justificaciones.estado.
type JustificationStatus string

const (
	JustificationPending  JustificationStatus = "Pendiente"
	JustificationApproved JustificationStatus = "Aprobada"
	JustificationRejected JustificationStatus = "Rechazada"
)

// Justification is a student's explanation for an absence or late arrival.
type Justification struct {
	ID           int64               `json:"id"`
	AttendanceID int64               `json:"asistencia_id"`
	Reason       string              `json:"motivo"`
	Status       JustificationStatus `json:"estado"`
	ReviewedBy   *int64              `json:"revisado_por"`
	EvidenceKey  *string             `json:"-"`
	CreatedAt    time.Time           `json:"fecha_creacion"`
	UpdatedAt    time.Time           `json:"fecha_actualizacion"`
}

// PendingJustification is a pending justification joined with the
// attendance record it refers to.
type PendingJustification struct {
	ID           int64               `json:"id"`
	AttendanceID int64               `json:"asistencia_id"`
	Reason       string              `json:"motivo"`
	Status       JustificationStatus `json:"estado"`
	StudentID    int64               `json:"alumno_id"`
	Date         time.Time           `json:"fecha"`
	HasEvidence  bool                `json:"tiene_evidencia"`
}
