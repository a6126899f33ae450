package scores

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Failure classes for persistence calls. Backends and the Service wrap
// driver errors so callers can match with errors.Is.
var (
	ErrUnauthenticated  = errors.New("no authenticated user")
	ErrPermissionDenied = errors.New("permission denied by store")
	ErrIndexUnavailable = errors.New("ordered attempts index unavailable")
	ErrTransient        = errors.New("store unavailable")
	ErrInvalidScore     = errors.New("score out of range")
)

var knownClasses = []error{
	ErrUnauthenticated,
	ErrPermissionDenied,
	ErrIndexUnavailable,
	ErrTransient,
	ErrInvalidScore,
}

// Classify maps err onto one of the failure classes. Errors already carrying
// a class are returned unchanged; anything unrecognised is transient.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, class := range knownClasses {
		if errors.Is(err, class) {
			return err
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42501" { // insufficient_privilege
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_PERM, sqlite3lib.SQLITE_AUTH, sqlite3lib.SQLITE_READONLY:
			return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return fmt.Errorf("%w: %v", ErrTransient, err)
}

// className is the log label for a classified error.
func className(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, ErrIndexUnavailable):
		return "index_unavailable"
	case errors.Is(err, ErrInvalidScore):
		return "invalid_score"
	default:
		return "transient"
	}
}
