package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/asistetec/internal/dbx"
	"github.com/iliyamo/asistetec/internal/model"
)

// StudentRepo manages rows of the alumnos table.
type StudentRepo struct{ DB *sql.DB }

func NewStudentRepo(db *sql.DB) *StudentRepo { return &StudentRepo{DB: db} }

// Create inserts the account and the student row in one transaction.  It
// returns ErrEmailExists or ErrEnrollmentExists on duplicates.
func (r *StudentRepo) Create(ctx context.Context, in model.NewStudent) (model.Student, error) {
	st := model.Student{
		Email:     in.User.Email,
		Name:      in.User.Name,
		Matricula: in.Matricula,
		Career:    in.Career,
		Semester:  in.Semester,
	}
	err := dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		uid, err := insertUser(ctx, tx, in.User)
		if err != nil {
			return err
		}
		st.UserID = uid

		var career sql.NullString
		if in.Career != nil {
			career = sql.NullString{String: *in.Career, Valid: true}
		}
		var semester sql.NullInt64
		if in.Semester != nil {
			semester = sql.NullInt64{Int64: int64(*in.Semester), Valid: true}
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO alumnos (usuario_id, matricula, carrera, semestre) VALUES (?,?,?,?)",
			uid, in.Matricula, career, semester)
		if err != nil {
			if isDuplicate(err) {
				return ErrEnrollmentExists
			}
			return err
		}
		st.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return model.Student{}, err
	}
	return st, nil
}

// IDForUser returns the alumnos.id linked to an account, or ErrNotFound.
func (r *StudentRepo) IDForUser(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, "SELECT id FROM alumnos WHERE usuario_id = ? LIMIT 1", userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return id, err
}
