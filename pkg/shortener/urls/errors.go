package urls

import "errors"

var (
	// ErrNotFound is returned when no URL matches the given id or code
	ErrNotFound = errors.New("url not found")

	// ErrDuplicateShortCode is returned by Create when the short code is
	// already taken. Recoverable: the creation workflow retries with a
	// fresh candidate.
	ErrDuplicateShortCode = errors.New("short code already exists")

	// ErrVisitsRemain is returned by Delete while visit events still
	// reference the URL. Visits must be deleted first.
	ErrVisitsRemain = errors.New("url still has recorded visits")
)

// ValidationError represents a rejected record or request field
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
