package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced to callers. Concrete errors wrap exactly one of these.
var (
	// ErrValidation is returned when a required field is empty or a value is out of range.
	ErrValidation = errors.New("validation error")
	// ErrDuplicate indicates a uniqueness violation (username, course code).
	ErrDuplicate = errors.New("already exists")
	// ErrNotFound is returned when a lookup by id or code found nothing.
	ErrNotFound = errors.New("not found")
	// ErrAuth covers rejected credentials and locked accounts.
	ErrAuth = errors.New("authentication failed")
	// ErrPersistence indicates the store could not be opened or a write failed.
	ErrPersistence = errors.New("persistence error")
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuth)
	ErrAccountLocked      = fmt.Errorf("%w: account locked", ErrAuth)
	ErrForbidden          = fmt.Errorf("%w: admin role required", ErrAuth)

	ErrInsufficientQuestions = fmt.Errorf("%w: course has insufficient questions", ErrValidation)
	ErrNoCourseSelected      = fmt.Errorf("%w: no course selected", ErrValidation)
	ErrConfirmationRequired  = fmt.Errorf("%w: submission must be confirmed", ErrValidation)
	ErrExamInProgress        = fmt.Errorf("%w: an exam is already in progress", ErrValidation)
	ErrExamClosed            = fmt.Errorf("%w: exam is no longer in progress", ErrValidation)

	ErrSessionNotFound = fmt.Errorf("login session %w", ErrNotFound)
	ErrNoActiveExam    = fmt.Errorf("active exam %w", ErrNotFound)
)

// Kind names the error category of err for display: validation, duplicate,
// not_found, auth, persistence or internal.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}
