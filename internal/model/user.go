package model

import "time"

// User represents an account as stored in the `usuarios` table.  The
// lockout columns are owned by the credential store and are not exposed
// through the API.
//
// Fields:
//
//	ID             – primary key identifier of the user.
//	Email          – unique, case-sensitive email address.
//	PasswordHash   – bcrypt hash of the password.
//	Name           – display name.
//	Role           – Administrador, Profesor or Alumno.
//	Active         – inactive accounts cannot log in.
//	FailedAttempts – consecutive failed logins since the last success.
//	Locked         – set once FailedAttempts reaches the lockout threshold.
type User struct {
	ID             int64     // usuarios.id
	Email          string    // usuarios.correo
	PasswordHash   string    // usuarios.contrasena_hash
	Name           string    // usuarios.nombre
	Role           string    // usuarios.rol
	Active         bool      // usuarios.activo
	FailedAttempts int       // usuarios.intentos_fallidos
	Locked         bool      // usuarios.bloqueado
	CreatedAt      time.Time // usuarios.fecha_creacion
	UpdatedAt      time.Time // usuarios.fecha_actualizacion
}

// NewUser carries the columns supplied when an account is created.  The
// password must already be hashed.
type NewUser struct {
	Email        string
	PasswordHash string
	Name         string
	Role         string
}
