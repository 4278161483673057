package frontier

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrDuplicate is returned when adding a URL whose normalized form has
	// already been seen.
	ErrDuplicate = errors.New("url already seen")

	// ErrInvalidURL is returned when adding a URL that cannot be
	// normalized into an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid url")

	// ErrEmpty is returned by NextURL when the frontier holds no entries
	// at all.
	ErrEmpty = errors.New("frontier is empty")

	// ErrUnavailable is returned by NextURL when entries exist but every
	// eligible domain is in politeness cooldown or backoff. Callers should
	// wait and retry rather than treat the frontier as drained.
	ErrUnavailable = errors.New("all domains in cooldown")

	// ErrNotInFlight is returned by MarkResult for a URL the frontier has
	// not handed out.
	ErrNotInFlight = errors.New("url is not being fetched")
)

// UnavailableError wraps ErrUnavailable with the earliest time at which a
// retry can succeed.
type UnavailableError struct {
	RetryAt time.Time
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("all domains in cooldown until %s", e.RetryAt.Format(time.RFC3339))
}

// Is reports a match against ErrUnavailable so callers can use errors.Is.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}
