package db

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/tradein-backend/pkg/errors"
)

// ErrWriteConflict signals that a conditional write lost against a concurrent
// transaction. WithTxRetry replays the transaction when it sees this error.
var ErrWriteConflict = errors.New("db: write conflict")

const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// IsUniqueViolation reports whether the provided error references a unique
// constraint violation. When constraintName is provided, the helper looks for
// the constraint text in the error message.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	if constraintName != "" {
		return strings.Contains(err.Error(), constraintName)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || pkgerrors.PostgresCode(err) == pgUniqueViolation {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "UNIQUE constraint failed")
}

// IsConflict reports whether err means the transaction should be replayed.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrWriteConflict) {
		return true
	}
	switch pkgerrors.PostgresCode(err) {
	case pgSerializationFailure, pgDeadlockDetected:
		return true
	}
	return strings.Contains(err.Error(), "database is locked")
}
