package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/asistetec/internal/auth"
	"github.com/iliyamo/asistetec/internal/model"
)

type fakeAttendance struct {
	subjectID int64
	date      time.Time
	marks     []model.AttendanceMark
	rows      []model.Attendance
	absences  int
	err       error
}

func (f *fakeAttendance) Record(_ context.Context, subjectID int64, date time.Time, marks []model.AttendanceMark) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.subjectID, f.date, f.marks = subjectID, date, marks
	return len(marks), nil
}

func (f *fakeAttendance) ListByStudent(_ context.Context, studentID int64) ([]model.Attendance, error) {
	return f.rows, f.err
}

func (f *fakeAttendance) CountAbsences(_ context.Context, studentID, subjectID int64) (int, error) {
	return f.absences, f.err
}

func TestRecordAttendance(t *testing.T) {
	store := &fakeAttendance{}
	au := &fakeAuditor{}
	h := NewAttendanceHandler(store, fakeStudents{}, au)

	rec := serve(t, h.Record, request{
		method: http.MethodPost, route: "/api/assistance/record", target: "/api/assistance/record",
		as: &professorID,
		body: map[string]any{
			"materiaId": 4,
			"fecha":     "2024-03-11",
			"asistencias": []map[string]any{
				{"alumnoId": 10, "estado": "Presente"},
				{"alumnoId": 11, "estado": "Ausente"},
				{"alumnoId": 0, "estado": "Presente"},
				{"alumnoId": 12, "estado": "Dormido"},
				{"alumnoId": 13, "estado": "Retardo"},
			},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "Asistencias registradas exitosamente", body["mensaje"])
	assert.EqualValues(t, 3, body["registrosInsertados"])

	assert.Equal(t, int64(4), store.subjectID)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), store.date)
	assert.Equal(t, []model.AttendanceMark{
		{StudentID: 10, Status: model.StatusPresent},
		{StudentID: 11, Status: model.StatusAbsent},
		{StudentID: 13, Status: model.StatusLate},
	}, store.marks)
	require.Len(t, au.entries, 1)
	assert.Equal(t, model.ActionRecordAttendance, au.entries[0].Action)
	assert.Equal(t, int64(2), *au.entries[0].Actor)
}

func TestRecordAttendance_InvalidBody(t *testing.T) {
	h := NewAttendanceHandler(&fakeAttendance{}, fakeStudents{}, &fakeAuditor{})
	for _, body := range []map[string]any{
		{"fecha": "2024-03-11", "asistencias": []any{}},
		{"materiaId": 4, "fecha": "11/03/2024", "asistencias": []any{}},
		{"materiaId": 4, "fecha": "2024-03-11"},
	} {
		rec := serve(t, h.Record, request{
			method: http.MethodPost, route: "/r", target: "/r", as: &professorID, body: body,
		})
		assertError(t, rec, http.StatusBadRequest, "Datos inválidos")
	}

	rec := serve(t, h.Record, request{
		method: http.MethodPost, route: "/r", target: "/r", as: &professorID,
		body: map[string]any{"materiaId": 4, "fecha": "2024-03-11", "asistencias": []any{}},
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["registrosInsertados"])
}

func historyRequest(target string, as auth.Identity) request {
	return request{method: http.MethodGet, route: "/api/assistance/history/:alumnoId", target: target, as: &as}
}

func TestHistory(t *testing.T) {
	day := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	store := &fakeAttendance{rows: []model.Attendance{
		{ID: 2, StudentID: 5, SubjectID: 1, Date: day.AddDate(0, 0, 1), Status: model.StatusAbsent},
		{ID: 1, StudentID: 5, SubjectID: 1, Date: day, Status: model.StatusPresent},
	}}
	h := NewAttendanceHandler(store, fakeStudents{byUser: map[int64]int64{3: 5}}, &fakeAuditor{})

	req := historyRequest("/api/assistance/history/5", professorID)
	rec := serve(t, h.History, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.EqualValues(t, 5, body["alumnoId"])
	assert.Len(t, body["asistencias"], 2)
	stats := body["estadisticas"].(map[string]any)
	assert.EqualValues(t, 2, stats["total"])
	assert.EqualValues(t, 50, stats["porcentajeAsistencia"])

	// A student may read their own history.
	req = historyRequest("/api/assistance/history/5", studentID)
	rec = serve(t, h.History, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// But not someone else's.
	req = historyRequest("/api/assistance/history/6", studentID)
	rec = serve(t, h.History, req)
	assertError(t, rec, http.StatusForbidden, "Acceso denegado")

	req = historyRequest("/api/assistance/history/abc", professorID)
	rec = serve(t, h.History, req)
	assertError(t, rec, http.StatusBadRequest, "ID de alumno requerido")
}

func TestHistory_StudentWithoutRecord(t *testing.T) {
	h := NewAttendanceHandler(&fakeAttendance{}, fakeStudents{}, &fakeAuditor{})
	req := historyRequest("/api/assistance/history/5", studentID)
	rec := serve(t, h.History, req)
	assertError(t, rec, http.StatusForbidden, "Acceso denegado")
}

func TestThreshold(t *testing.T) {
	h := NewAttendanceHandler(&fakeAttendance{absences: 3}, fakeStudents{}, &fakeAuditor{})
	route := "/api/assistance/threshold/:alumnoId/:materiaId"

	rec := serve(t, h.Threshold, request{
		method: http.MethodGet, route: route, target: "/api/assistance/threshold/5/1?sesiones=15", as: &professorID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 3, body["ausencias"])
	assert.EqualValues(t, 15, body["sesiones"])
	assert.EqualValues(t, 20, body["porcentajeAusencias"])
	assert.Equal(t, true, body["excedeLimite"])

	for _, target := range []string{
		"/api/assistance/threshold/5/1",
		"/api/assistance/threshold/5/1?sesiones=0",
		"/api/assistance/threshold/5/1?sesiones=-2",
		"/api/assistance/threshold/5/1?sesiones=x",
	} {
		rec = serve(t, h.Threshold, request{method: http.MethodGet, route: route, target: target, as: &professorID})
		assertError(t, rec, http.StatusBadRequest, "El número de sesiones debe ser mayor que cero")
	}
}

func TestAttendance_StoreFailure(t *testing.T) {
	h := NewAttendanceHandler(&fakeAttendance{err: errBoom}, fakeStudents{}, &fakeAuditor{})
	req := historyRequest("/api/assistance/history/5", adminID)
	rec := serve(t, h.History, req)
	assertError(t, rec, http.StatusInternalServerError, "Error interno del servidor")
}
