package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/iliyamo/asistetec/internal/auth"
	"github.com/iliyamo/asistetec/internal/dbx"
	"github.com/iliyamo/asistetec/internal/model"
)

// UserRepo persists accounts and implements auth.CredentialStore.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var _ auth.CredentialStore = (*UserRepo)(nil)

// Create inserts an account and returns its ID.
func (r *UserRepo) Create(ctx context.Context, u model.NewUser) (int64, error) {
	return insertUser(ctx, r.DB, u)
}

func insertUser(ctx context.Context, q dbx.DBTX, u model.NewUser) (int64, error) {
	res, err := q.ExecContext(ctx,
		"INSERT INTO usuarios (correo, contrasena_hash, nombre, rol) VALUES (?,?,?,?)",
		u.Email, u.PasswordHash, u.Name, u.Role)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	return res.LastInsertId()
}

// FindByEmail fetches an account by exact email.  Emails are compared
// case-sensitively by the column collation.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (auth.Account, error) {
	var (
		acc  auth.Account
		role string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,correo,contrasena_hash,nombre,rol,activo,intentos_fallidos,bloqueado FROM usuarios WHERE correo=? LIMIT 1",
		email).Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.Name, &role, &acc.Active, &acc.FailedAttempts, &acc.Locked)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Account{}, auth.ErrAccountNotFound
	}
	if err != nil {
		return auth.Account{}, err
	}
	parsed, ok := auth.ParseRole(role)
	if !ok {
		return auth.Account{}, fmt.Errorf("user %d has unknown role %q", acc.ID, role)
	}
	acc.Role = parsed
	return acc, nil
}

// RecordFailedAttempt increments the failure counter in a single UPDATE so
// concurrent failures are never lost, and sets the lock once the counter
// reaches threshold.  bloqueado is assigned first so it reads the
// pre-increment counter under MySQL's left-to-right SET evaluation.
func (r *UserRepo) RecordFailedAttempt(ctx context.Context, id int64, threshold int) (auth.CredentialState, error) {
	var st auth.CredentialState
	err := dbx.WithTx(ctx, r.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE usuarios SET bloqueado = (intentos_fallidos + 1 >= ?), intentos_fallidos = intentos_fallidos + 1 WHERE id = ?",
			threshold, id)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return auth.ErrAccountNotFound
		}
		return tx.QueryRowContext(ctx,
			"SELECT intentos_fallidos, bloqueado FROM usuarios WHERE id = ?", id).
			Scan(&st.FailedAttempts, &st.Locked)
	})
	return st, err
}

// RecordSuccess clears the failure counter and the lock.
func (r *UserRepo) RecordSuccess(ctx context.Context, id int64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE usuarios SET intentos_fallidos = 0, bloqueado = FALSE WHERE id = ?", id)
	return err
}

// Unlock is the administrative reset of a locked account.  It returns
// ErrNotFound for unknown ids.
func (r *UserRepo) Unlock(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE usuarios SET intentos_fallidos = 0, bloqueado = FALSE WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches an account by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,correo,contrasena_hash,nombre,rol,activo,intentos_fallidos,bloqueado,fecha_creacion,fecha_actualizacion FROM usuarios WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.Active, &u.FailedAttempts, &u.Locked, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}
