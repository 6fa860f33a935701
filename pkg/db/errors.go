package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	uniqueViolationCode = "23505"
	sqliteUniqueFailed  = "UNIQUE constraint failed"
)

// IsUniqueViolation reports whether err is a unique constraint violation. When
// constraintName is provided the violation must reference that constraint.
// sqlite names columns instead of indexes, so column ("table.column") is
// matched against its messages.
func IsUniqueViolation(err error, constraintName, column string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == uniqueViolationCode && matchesConstraint(pgErr.ConstraintName, pgErr.Message, constraintName)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolationCode && matchesConstraint(pqErr.Constraint, pqErr.Message, constraintName)
	}

	msg := err.Error()
	if strings.Contains(msg, "duplicate key value") {
		return constraintName == "" || strings.Contains(msg, constraintName)
	}
	if !strings.Contains(msg, sqliteUniqueFailed) {
		return false
	}
	if constraintName == "" && column == "" {
		return true
	}
	return column != "" && sqliteColumnMatches(msg, column)
}

// sqliteColumnMatches checks the comma separated column list that follows
// "UNIQUE constraint failed: ".
func sqliteColumnMatches(msg, column string) bool {
	_, cols, ok := strings.Cut(msg, sqliteUniqueFailed+": ")
	if !ok {
		return false
	}
	for _, c := range strings.Split(cols, ",") {
		if strings.TrimSpace(c) == column {
			return true
		}
	}
	return false
}

func matchesConstraint(constraint, message, want string) bool {
	if want == "" {
		return true
	}
	return constraint == want || strings.Contains(message, want)
}
