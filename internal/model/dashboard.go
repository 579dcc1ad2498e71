package model

// Dashboard holds the administrative counters.
type Dashboard struct {
	Users                 int64 `json:"totalUsuarios"`
	Students              int64 `json:"totalAlumnos"`
	Professors            int64 `json:"totalProfesores"`
	Subjects              int64 `json:"totalMaterias"`
	Attendances           int64 `json:"totalAsistencias"`
	PendingJustifications int64 `json:"justificacionesPendientes"`
}
