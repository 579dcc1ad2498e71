package model

import (
	"math"
	"time"
)

// AttendanceStatus is the value of asistencias.estado.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Presente"
	StatusAbsent  AttendanceStatus = "Ausente"
	StatusLate    AttendanceStatus = "Retardo"
	StatusExcused AttendanceStatus = "Justificada"
)

// Valid reports whether s is one of the enumerated statuses.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	}
	return false
}

// Justifiable reports whether a record in this status may receive a
// justification.
func (s AttendanceStatus) Justifiable() bool {
	return s == StatusAbsent || s == StatusLate
}

// Attendance is one student's status for one subject on one date.
type Attendance struct {
	ID        int64            `json:"id"`
	StudentID int64            `json:"alumno_id"`
	SubjectID int64            `json:"materia_id"`
	Date      time.Time        `json:"fecha"`
	Status    AttendanceStatus `json:"estado"`
}

// AttendanceMark is a single entry of a bulk attendance record.
type AttendanceMark struct {
	StudentID int64
	Status    AttendanceStatus
}

// AttendanceStats summarises a student's history.  Percentage counts
// present and excused sessions over the total, rounded to two decimals.
type AttendanceStats struct {
	Total      int     `json:"total"`
	Present    int     `json:"presentes"`
	Absent     int     `json:"ausentes"`
	Late       int     `json:"retardos"`
	Excused    int     `json:"justificadas"`
	Percentage float64 `json:"porcentajeAsistencia"`
}

// Summarize computes AttendanceStats over rows.
func Summarize(rows []Attendance) AttendanceStats {
	var st AttendanceStats
	for _, r := range rows {
		st.Total++
		switch r.Status {
		case StatusPresent:
			st.Present++
		case StatusAbsent:
			st.Absent++
		case StatusLate:
			st.Late++
		case StatusExcused:
			st.Excused++
		}
	}
	if st.Total > 0 {
		pct := float64(st.Present+st.Excused) / float64(st.Total) * 100
		st.Percentage = math.Round(pct*100) / 100
	}
	return st
}

// AbsenceLimitPercent is the share of absences at which a student exceeds
// the allowed limit for a subject.
const AbsenceLimitPercent = 20.0

// AbsenceReport compares a student's absences in a subject against the
// number of sessions held.
type AbsenceReport struct {
	StudentID    int64   `json:"alumnoId"`
	SubjectID    int64   `json:"materiaId"`
	Sessions     int     `json:"sesiones"`
	Absences     int     `json:"ausencias"`
	Percentage   float64 `json:"porcentajeAusencias"`
	ExceedsLimit bool    `json:"excedeLimite"`
}

// NewAbsenceReport fills in the percentage and limit flag.  sessions must be
// positive.
func NewAbsenceReport(studentID, subjectID int64, absences, sessions int) AbsenceReport {
	pct := float64(absences) / float64(sessions) * 100
	return AbsenceReport{
		StudentID:    studentID,
		SubjectID:    subjectID,
		Sessions:     sessions,
		Absences:     absences,
		Percentage:   math.Round(pct*100) / 100,
		ExceedsLimit: pct >= AbsenceLimitPercent,
	}
}
