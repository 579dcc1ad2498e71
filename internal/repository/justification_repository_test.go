package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/asistetec/internal/model"
)

const (
	lockAttendanceSQL    = "SELECT alumno_id, estado FROM asistencias WHERE id = ? FOR UPDATE"
	openCountSQL         = "SELECT COUNT(*) FROM justificaciones WHERE asistencia_id = ? AND estado IN ('Pendiente','Aprobada')"
	lockJustificationSQL = "SELECT asistencia_id, estado FROM justificaciones WHERE id = ? FOR UPDATE"
)

func ownerRow(owner int64, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"alumno_id", "estado"}).AddRow(owner, status)
}

func TestJustificationRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	key := "evidencias/abc.pdf"
	mock.ExpectBegin()
	mock.ExpectQuery(q(lockAttendanceSQL)).WithArgs(int64(10)).WillReturnRows(ownerRow(5, "Ausente"))
	mock.ExpectQuery(q(openCountSQL)).WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(q("INSERT INTO justificaciones (asistencia_id, motivo, estado, evidencia_clave) VALUES (?, ?, 'Pendiente', ?)")).
		WithArgs(int64(10), "Cita médica", key).
		WillReturnResult(sqlmock.NewResult(77, 1))
	mock.ExpectCommit()

	id, err := NewJustificationRepo(db).Create(context.Background(), NewJustification{
		AttendanceID: 10, StudentID: 5, Reason: "Cita médica", EvidenceKey: &key,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), id)
}

func TestJustificationRepo_Create_Rejections(t *testing.T) {
	cases := []struct {
		name  string
		setup func(sqlmock.Sqlmock)
		want  error
	}{
		{"unknown attendance", func(m sqlmock.Sqlmock) {
			m.ExpectQuery(q(lockAttendanceSQL)).WillReturnError(sql.ErrNoRows)
		}, ErrNotFound},
		{"someone else's record", func(m sqlmock.Sqlmock) {
			m.ExpectQuery(q(lockAttendanceSQL)).WillReturnRows(ownerRow(6, "Ausente"))
		}, ErrForbidden},
		{"present is not justifiable", func(m sqlmock.Sqlmock) {
			m.ExpectQuery(q(lockAttendanceSQL)).WillReturnRows(ownerRow(5, "Presente"))
		}, ErrInvalidState},
		{"already open", func(m sqlmock.Sqlmock) {
			m.ExpectQuery(q(lockAttendanceSQL)).WillReturnRows(ownerRow(5, "Retardo"))
			m.ExpectQuery(q(openCountSQL)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		}, ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMock(t)
			mock.ExpectBegin()
			tc.setup(mock)
			mock.ExpectRollback()

			_, err := NewJustificationRepo(db).Create(context.Background(), NewJustification{
				AttendanceID: 10, StudentID: 5, Reason: "x",
			})
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestJustificationRepo_ListPending(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(q("WHERE j.estado = 'Pendiente'\nORDER BY j.fecha_creacion ASC, j.id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "asistencia_id", "motivo", "estado", "alumno_id", "fecha", "ev"}).
			AddRow(1, 10, "Enfermedad", "Pendiente", 5, testDay, false).
			AddRow(2, 11, "Trámite", "Pendiente", 6, testDay, true))

	list, err := NewJustificationRepo(db).ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.PendingJustification{
		ID: 1, AttendanceID: 10, Reason: "Enfermedad", Status: model.JustificationPending, StudentID: 5, Date: testDay,
	}, list[0])
	assert.True(t, list[1].HasEvidence)
}

func TestJustificationRepo_Approve(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q(lockJustificationSQL)).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"asistencia_id", "estado"}).AddRow(10, "Pendiente"))
	mock.ExpectExec(q("UPDATE justificaciones SET estado = 'Aprobada', revisado_por = ? WHERE id = ?")).
		WithArgs(int64(7), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE asistencias SET estado = 'Justificada' WHERE id = ?")).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewJustificationRepo(db).Approve(context.Background(), 1, 7))
}

func TestJustificationRepo_Approve_AfterRejection(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q(lockJustificationSQL)).
		WillReturnRows(sqlmock.NewRows([]string{"asistencia_id", "estado"}).AddRow(10, "Rechazada"))
	mock.ExpectExec(q("UPDATE justificaciones SET estado = 'Aprobada'")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE asistencias SET estado = 'Justificada'")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewJustificationRepo(db).Approve(context.Background(), 1, 7))
}

func TestJustificationRepo_Approve_Errors(t *testing.T) {
	db, mock := newMock(t)
	r := NewJustificationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockJustificationSQL)).WithArgs(int64(404)).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()
	require.ErrorIs(t, r.Approve(context.Background(), 404, 7), ErrNotFound)

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockJustificationSQL)).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"asistencia_id", "estado"}).AddRow(10, "Aprobada"))
	mock.ExpectRollback()
	require.ErrorIs(t, r.Approve(context.Background(), 1, 7), ErrInvalidState)
}

func TestJustificationRepo_Reject(t *testing.T) {
	db, mock := newMock(t)
	r := NewJustificationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockJustificationSQL)).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"asistencia_id", "estado"}).AddRow(10, "Pendiente"))
	mock.ExpectExec(q("UPDATE justificaciones SET estado = 'Rechazada', revisado_por = ? WHERE id = ?")).
		WithArgs(int64(7), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, r.Reject(context.Background(), 1, 7))

	mock.ExpectBegin()
	mock.ExpectQuery(q(lockJustificationSQL)).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"asistencia_id", "estado"}).AddRow(10, "Aprobada"))
	mock.ExpectRollback()
	require.ErrorIs(t, r.Reject(context.Background(), 2, 7), ErrInvalidState)
}

func TestJustificationRepo_Evidence(t *testing.T) {
	db, mock := newMock(t)
	r := NewJustificationRepo(db)
	const evidenceSQL = "SELECT j.evidencia_clave, a.alumno_id FROM justificaciones j JOIN asistencias a ON j.asistencia_id = a.id WHERE j.id = ?"

	mock.ExpectQuery(q(evidenceSQL)).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"evidencia_clave", "alumno_id"}).AddRow("evidencias/a.pdf", 5))
	mock.ExpectQuery(q(evidenceSQL)).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"evidencia_clave", "alumno_id"}).AddRow(nil, 5))
	mock.ExpectQuery(q(evidenceSQL)).WithArgs(int64(3)).WillReturnError(sql.ErrNoRows)

	key, owner, err := r.Evidence(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "evidencias/a.pdf", key)
	assert.Equal(t, int64(5), owner)

	key, _, err = r.Evidence(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, key)

	_, _, err = r.Evidence(context.Background(), 3)
	require.ErrorIs(t, err, ErrNotFound)
}
