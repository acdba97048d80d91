package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrNotFound   = errors.New("entity not found")
	ErrStorage    = errors.New("storage failure")
	ErrValidation = errors.New("invalid patch")
)

// NotFoundError reports a read, update or delete against a missing row.
// Entity is the table name; ID is the row id, or "recipeID:ingredientID" for
// recipe lines.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("entity not found - %s[%s]", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageKind classifies the cause of a StorageError.
type StorageKind string

const (
	KindConstraint  StorageKind = "constraint"
	KindConflict    StorageKind = "conflict"
	KindUnavailable StorageKind = "unavailable"
	KindTimeout     StorageKind = "timeout"
	KindUnknown     StorageKind = "unknown"
)

// StorageError wraps any storage failure that is not a missing row.
type StorageError struct {
	Op   string
	Kind StorageKind
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: storage failure (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ValidationError reports a patch that breaks the caller contract, such as a
// recipe line without a recipe id.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func notFound(entity, id string) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// storageFailure wraps err unless it already carries a store error type.
func storageFailure(op string, err error) error {
	if err == nil || isTyped(err) {
		return err
	}
	return &StorageError{Op: op, Kind: classify(err), Err: err}
}

// mapError converts a storage result at the store boundary: a missing row
// becomes NotFoundError(entity, id), typed errors pass through and anything
// else becomes a StorageError.
func mapError(op, entity, id string, err error) error {
	if err == nil || isTyped(err) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(entity, id)
	}
	return storageFailure(op, err)
}

func isTyped(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrStorage) || errors.Is(err, ErrValidation)
}

func classify(err error) StorageKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		code := strings.TrimSpace(pgErr.Code)
		switch {
		case strings.HasPrefix(code, "23"): // integrity_constraint_violation
			return KindConstraint
		case code == "40001", code == "40P01", code == "55P03": // serialization, deadlock, lock_not_available
			return KindConflict
		case code == "57014": // query_canceled, statement_timeout
			return KindTimeout
		case strings.HasPrefix(code, "08"), strings.HasPrefix(code, "53"), strings.HasPrefix(code, "57P"):
			return KindUnavailable
		}
		return KindUnknown
	}
	if pgconn.Timeout(err) {
		return KindTimeout
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrConstraint:
			return KindConstraint
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return KindConflict
		case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrFull, sqlite3.ErrReadonly:
			return KindUnavailable
		}
		return KindUnknown
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, gorm.ErrInvalidDB) {
		return KindUnavailable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindUnavailable
	}

	return KindUnknown
}
