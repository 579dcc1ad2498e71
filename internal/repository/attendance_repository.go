package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/asistetec/internal/model"
)

const dateLayout = "2006-01-02"

// AttendanceRepo manages rows of the asistencias table.
type AttendanceRepo struct{ DB *sql.DB }

func NewAttendanceRepo(db *sql.DB) *AttendanceRepo { return &AttendanceRepo{DB: db} }

// Record upserts one row per mark for the session (subjectID, date).  A mark
// that references a student or subject that does not exist is skipped; any
// other error stops the loop.  It returns the number of rows written.
func (r *AttendanceRepo) Record(ctx context.Context, subjectID int64, date time.Time, marks []model.AttendanceMark) (int, error) {
	const q = `INSERT INTO asistencias (alumno_id, materia_id, fecha, estado) VALUES (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE estado = VALUES(estado)`
	day := date.Format(dateLayout)
	n := 0
	for _, m := range marks {
		if _, err := r.DB.ExecContext(ctx, q, m.StudentID, subjectID, day, string(m.Status)); err != nil {
			if isMissingReference(err) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

// ListByStudent returns a student's records, newest first.
func (r *AttendanceRepo) ListByStudent(ctx context.Context, studentID int64) ([]model.Attendance, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, alumno_id, materia_id, fecha, estado FROM asistencias WHERE alumno_id = ? ORDER BY fecha DESC, id DESC",
		studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Attendance{}
	for rows.Next() {
		var a model.Attendance
		var status string
		if err := rows.Scan(&a.ID, &a.StudentID, &a.SubjectID, &a.Date, &status); err != nil {
			return nil, err
		}
		a.Status = model.AttendanceStatus(status)
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountAbsences counts Ausente records of a student in a subject.
func (r *AttendanceRepo) CountAbsences(ctx context.Context, studentID, subjectID int64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM asistencias WHERE alumno_id = ? AND materia_id = ? AND estado = 'Ausente'",
		studentID, subjectID).Scan(&n)
	return n, err
}
