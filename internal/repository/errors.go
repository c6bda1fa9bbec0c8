// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to map
// storage outcomes onto the application error taxonomy without looking at
// driver-specific errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrEmailExists is returned when a user with the same email already exists.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when no user row matches.
var ErrUserNotFound = errors.New("user not found")

// ErrProductNotFound is returned when no product row matches.
var ErrProductNotFound = errors.New("product not found")

// ErrTokenNotFound is returned when a refresh token id is unknown.
var ErrTokenNotFound = errors.New("refresh token not found")

// ErrConflict is returned when a write violates a unique key other than
// the user email, such as a Google id already linked to another account.
var ErrConflict = errors.New("conflict")

// mysqlDuplicateEntry is the server error number for a unique key violation.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
