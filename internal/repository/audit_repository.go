package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/asistetec/internal/model"
)

// AuditRepo appends rows to logs_auditoria.
type AuditRepo struct{ DB *sql.DB }

func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{DB: db} }

// Insert stores e and returns the new row id.
func (r *AuditRepo) Insert(ctx context.Context, e model.AuditEntry) (int64, error) {
	var uid sql.NullInt64
	if e.UserID != nil {
		uid = sql.NullInt64{Int64: *e.UserID, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO logs_auditoria (usuario_id, accion, detalles) VALUES (?, ?, ?)",
		uid, e.Action, e.Details)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
