package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/asistetec/internal/model"
)

// DashboardRepo computes the administrative counters.
type DashboardRepo struct{ DB *sql.DB }

func NewDashboardRepo(db *sql.DB) *DashboardRepo { return &DashboardRepo{DB: db} }

// Get reads all counters in a single round trip.
func (r *DashboardRepo) Get(ctx context.Context) (model.Dashboard, error) {
	var d model.Dashboard
	err := r.DB.QueryRowContext(ctx, `SELECT
  (SELECT COUNT(*) FROM usuarios),
  (SELECT COUNT(*) FROM alumnos),
  (SELECT COUNT(*) FROM profesores),
  (SELECT COUNT(*) FROM materias),
  (SELECT COUNT(*) FROM asistencias),
  (SELECT COUNT(*) FROM justificaciones WHERE estado = 'Pendiente')`).
		Scan(&d.Users, &d.Students, &d.Professors, &d.Subjects, &d.Attendances, &d.PendingJustifications)
	return d, err
}
