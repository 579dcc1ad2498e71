package model

// Student is a row of the `alumnos` table joined with its account.
type Student struct {
	ID        int64   `json:"id"`
	UserID    int64   `json:"usuarioId"`
	Email     string  `json:"correo"`
	Name      string  `json:"nombre"`
	Matricula string  `json:"matricula"`
	Career    *string `json:"carrera"`
	Semester  *int    `json:"semestre"`
}

// NewStudent is the input for creating a student together with its account.
type NewStudent struct {
	User      NewUser
	Matricula string
	Career    *string
	Semester  *int
}
