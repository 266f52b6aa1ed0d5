package database

import (
	"errors"
	"slices"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// ConstraintKind identifies which kind of SQLite constraint rejected a write.
type ConstraintKind int

// Constraint kinds reported by AsConstraintViolation.
const (
	ConstraintOther ConstraintKind = iota
	ConstraintUnique
	ConstraintForeignKey
	ConstraintNotNull
	ConstraintCheck
)

// String returns the constraint kind name.
func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnique:
		return "unique"
	case ConstraintForeignKey:
		return "foreign_key"
	case ConstraintNotNull:
		return "not_null"
	case ConstraintCheck:
		return "check"
	default:
		return "other"
	}
}

// ConstraintViolation describes a write rejected by a schema constraint.
type ConstraintViolation struct {
	Kind ConstraintKind

	// Table is the table named in the driver message, if any.
	Table string

	// Columns lists the columns of the violated index in declaration order.
	// Foreign key violations carry no column information in SQLite.
	Columns []string
}

// Covers reports whether every given column is part of the violated constraint.
func (v *ConstraintViolation) Covers(columns ...string) bool {
	for _, c := range columns {
		if !slices.Contains(v.Columns, c) {
			return false
		}
	}
	return len(columns) > 0
}

// Exactly reports whether the violated constraint consists of exactly the given columns.
func (v *ConstraintViolation) Exactly(columns ...string) bool {
	return len(v.Columns) == len(columns) && v.Covers(columns...)
}

// AsConstraintViolation extracts constraint details from a SQLite error.
// It returns false when err is not a constraint failure.
func AsConstraintViolation(err error) (*ConstraintViolation, bool) {
	var se sqlite3.Error
	if !errors.As(err, &se) || se.Code != sqlite3.ErrConstraint {
		return nil, false
	}

	v := &ConstraintViolation{Kind: ConstraintOther}
	switch se.ExtendedCode {
	case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
		v.Kind = ConstraintUnique
	case sqlite3.ErrConstraintForeignKey:
		v.Kind = ConstraintForeignKey
	case sqlite3.ErrConstraintNotNull:
		v.Kind = ConstraintNotNull
	case sqlite3.ErrConstraintCheck:
		v.Kind = ConstraintCheck
	}

	v.Table, v.Columns = parseConstraintMessage(se.Error())
	return v, true
}

// IsOperational reports whether err is a storage infrastructure failure
// (locking, I/O, disk, corruption) rather than a problem with the data written.
func IsOperational(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr, sqlite3.ErrFull,
		sqlite3.ErrCantOpen, sqlite3.ErrNomem, sqlite3.ErrCorrupt, sqlite3.ErrReadonly,
		sqlite3.ErrNotADB:
		return true
	default:
		return false
	}
}

// parseConstraintMessage extracts table and columns from messages of the form
// "UNIQUE constraint failed: access_rules.room_id, access_rules.role_id".
func parseConstraintMessage(msg string) (table string, columns []string) {
	_, list, ok := strings.Cut(msg, "constraint failed: ")
	if !ok {
		return "", nil
	}
	for _, qualified := range strings.Split(list, ",") {
		qualified = strings.TrimSpace(qualified)
		if qualified == "" {
			continue
		}
		tbl, col, found := strings.Cut(qualified, ".")
		if !found {
			columns = append(columns, tbl)
			continue
		}
		table = tbl
		columns = append(columns, col)
	}
	return table, columns
}
