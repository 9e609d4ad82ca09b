// Package repository defines the unit of work, the generic entity service
// and the error values shared by every feature built on top of them.
// Handlers translate these sentinels into failure responses; only faults
// that are not listed here escape as server errors.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned by Single and First when no row matches.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write would duplicate a unique value.
var ErrConflict = errors.New("conflict")

// ErrConstraint is matched by *ConstraintError: the store refused a write
// because dependent rows still reference the target, or a referenced row
// does not exist.
var ErrConstraint = errors.New("constraint violation")

// ErrMultipleRows is returned by Single when more than one row matches.
var ErrMultipleRows = errors.New("multiple rows")

// ErrNotTracked is returned when an entity that did not come from a
// tracking query is passed to Update or Delete.
var ErrNotTracked = errors.New("entity is not tracked by this session")

// ErrNoSession is returned when a write or tracking query runs on a
// context that carries no open session.
var ErrNoSession = errors.New("no session in context")

// ConstraintError wraps the driver error behind a foreign key violation.
type ConstraintError struct {
	Op  string
	Err error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrConstraint, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

func (e *ConstraintError) Is(target error) bool { return target == ErrConstraint }

// MySQL server error numbers.
const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

// translate maps driver errors of MySQL and SQLite onto the sentinels above.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlRowIsReferenced, mysqlNoReferencedRow:
			return &ConstraintError{Op: op, Err: err}
		case mysqlDuplicateEntry:
			return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return &ConstraintError{Op: op, Err: err}
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
