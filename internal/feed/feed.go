package feed

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeypiti/RedditPerspectiveAPI/internal/models"
)

// Stream produces an unbounded sequence of comment events. Next blocks until
// the next event is available; waiting indefinitely on a quiet feed is
// normal, not a failure.
type Stream interface {
	Next(ctx context.Context) (models.Comment, error)
}

// ServerError marks a transient server-side feed failure. The supervisor
// recovers from these with backoff; every other error class is fatal.
type ServerError struct {
	StatusCode int
	Err        error
}

func (e *ServerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feed: server error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("feed: server error (status %d)", e.StatusCode)
}

func (e *ServerError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is recoverable by backoff-and-resume.
func IsTransient(err error) bool {
	var serverErr *ServerError
	return errors.As(err, &serverErr)
}
