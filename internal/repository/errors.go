// Package repository holds the MySQL data access layer.  The sentinel
// errors below let handlers tell failure scenarios apart without looking at
// driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an account with the same email exists.
var ErrEmailExists = errors.New("email already exists")

// ErrEnrollmentExists is returned when a student with the same matrícula
// exists.
var ErrEnrollmentExists = errors.New("enrollment number already exists")

// ErrForbidden is returned when the caller attempts an operation on a
// resource that belongs to someone else.  Handlers translate it into 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation clashes with existing rows,
// such as a second open justification for the same attendance record.
// Handlers translate it into 409.
var ErrConflict = errors.New("conflict")

// ErrInvalidState is returned when a row is not in a state that allows the
// requested transition.  Handlers translate it into 400.
var ErrInvalidState = errors.New("invalid state")

const (
	mysqlDuplicateEntry    = 1062
	mysqlForeignKeyMissing = 1452
)

func mysqlErrorNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func isDuplicate(err error) bool { return mysqlErrorNumber(err) == mysqlDuplicateEntry }

func isMissingReference(err error) bool { return mysqlErrorNumber(err) == mysqlForeignKeyMissing }
