package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/asistetec/internal/dbx"
	"github.com/iliyamo/asistetec/internal/model"
)

// JustificationRepo manages rows of the justificaciones table.  State
// transitions lock the row with SELECT ... FOR UPDATE so two reviewers
// cannot act on the same justification at once.
type JustificationRepo struct{ DB *sql.DB }

func NewJustificationRepo(db *sql.DB) *JustificationRepo { return &JustificationRepo{DB: db} }

// NewJustification is the input for Create.
type NewJustification struct {
	AttendanceID int64
	StudentID    int64 // owner check against asistencias.alumno_id
	Reason       string
	EvidenceKey  *string
}

// Create files a pending justification.  It returns ErrNotFound for an
// unknown attendance record, ErrForbidden when the record belongs to another
// student, ErrInvalidState when the record is not an absence or late
// arrival, and ErrConflict when a pending or approved justification exists.
func (r *JustificationRepo) Create(ctx context.Context, in NewJustification) (int64, error) {
	var id int64
	err := dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var owner int64
		var status string
		err := tx.QueryRowContext(ctx,
			"SELECT alumno_id, estado FROM asistencias WHERE id = ? FOR UPDATE", in.AttendanceID).
			Scan(&owner, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if owner != in.StudentID {
			return ErrForbidden
		}
		if !model.AttendanceStatus(status).Justifiable() {
			return ErrInvalidState
		}

		var open int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM justificaciones WHERE asistencia_id = ? AND estado IN ('Pendiente','Aprobada')",
			in.AttendanceID).Scan(&open); err != nil {
			return err
		}
		if open > 0 {
			return ErrConflict
		}

		var key sql.NullString
		if in.EvidenceKey != nil {
			key = sql.NullString{String: *in.EvidenceKey, Valid: true}
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO justificaciones (asistencia_id, motivo, estado, evidencia_clave) VALUES (?, ?, 'Pendiente', ?)",
			in.AttendanceID, in.Reason, key)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// ListPending returns pending justifications, oldest first.
func (r *JustificationRepo) ListPending(ctx context.Context) ([]model.PendingJustification, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT j.id, j.asistencia_id, j.motivo, j.estado, a.alumno_id, a.fecha, j.evidencia_clave IS NOT NULL
FROM justificaciones j
JOIN asistencias a ON j.asistencia_id = a.id
WHERE j.estado = 'Pendiente'
ORDER BY j.fecha_creacion ASC, j.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.PendingJustification{}
	for rows.Next() {
		var p model.PendingJustification
		var status string
		if err := rows.Scan(&p.ID, &p.AttendanceID, &p.Reason, &status, &p.StudentID, &p.Date, &p.HasEvidence); err != nil {
			return nil, err
		}
		p.Status = model.JustificationStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// lockForReview loads the state of a justification inside tx and locks it.
func lockForReview(ctx context.Context, tx dbx.DBTX, id int64) (attendanceID int64, status model.JustificationStatus, err error) {
	var s string
	err = tx.QueryRowContext(ctx,
		"SELECT asistencia_id, estado FROM justificaciones WHERE id = ? FOR UPDATE", id).
		Scan(&attendanceID, &s)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrNotFound
	}
	return attendanceID, model.JustificationStatus(s), err
}

// Approve marks the justification Aprobada and its attendance record
// Justificada in one transaction.  A rejected justification may still be
// approved; an approved one yields ErrInvalidState.
func (r *JustificationRepo) Approve(ctx context.Context, id, reviewerID int64) error {
	return dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		attendanceID, status, err := lockForReview(ctx, tx, id)
		if err != nil {
			return err
		}
		if status == model.JustificationApproved {
			return ErrInvalidState
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE justificaciones SET estado = 'Aprobada', revisado_por = ? WHERE id = ?",
			reviewerID, id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE asistencias SET estado = 'Justificada' WHERE id = ?", attendanceID)
		return err
	})
}

// Reject marks a pending justification Rechazada.  Anything but a pending
// justification yields ErrInvalidState.
func (r *JustificationRepo) Reject(ctx context.Context, id, reviewerID int64) error {
	return dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, status, err := lockForReview(ctx, tx, id)
		if err != nil {
			return err
		}
		if status != model.JustificationPending {
			return ErrInvalidState
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE justificaciones SET estado = 'Rechazada', revisado_por = ? WHERE id = ?",
			reviewerID, id)
		return err
	})
}

// Evidence returns the storage key of a justification's evidence and the
// student who owns it.  key is empty when no evidence was attached.
func (r *JustificationRepo) Evidence(ctx context.Context, id int64) (key string, studentID int64, err error) {
	var k sql.NullString
	err = r.DB.QueryRowContext(ctx,
		"SELECT j.evidencia_clave, a.alumno_id FROM justificaciones j JOIN asistencias a ON j.asistencia_id = a.id WHERE j.id = ?",
		id).Scan(&k, &studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, ErrNotFound
	}
	if err != nil {
		return "", 0, err
	}
	return k.String, studentID, nil
}
