package data

import (
	"errors"
	"fmt"
)

var (
	// ErrUserNotFound is returned when a user row does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrJobNotFound is returned when a job is not found (or not owned by the caller).
	ErrJobNotFound = errors.New("job not found")
	// ErrAPIKeyNotFound is returned when no active API key matches the hash.
	ErrAPIKeyNotFound = errors.New("api key not found")
	// ErrInsufficientCredits is returned by Admit when the user has no credits left.
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrConcurrencyLimit is returned by Admit when the plan's in-flight job cap is hit.
	ErrConcurrencyLimit = errors.New("concurrency limit reached")
	// ErrIdempotencyConflict is returned when the (user, key) pair already exists.
	ErrIdempotencyConflict = errors.New("idempotency key already recorded")
	// ErrJobTerminal is returned when a state change targets a job already in a final state.
	ErrJobTerminal = errors.New("job is already in a terminal state")
)

// ConcurrencyLimitError carries the plan limit and the observed in-flight
// count so the API can report both. errors.Is(err, ErrConcurrencyLimit)
// matches it.
type ConcurrencyLimitError struct {
	Limit int
	Count int
}

func (e *ConcurrencyLimitError) Error() string {
	return fmt.Sprintf("concurrency limit reached: %d of %d jobs in flight", e.Count, e.Limit)
}

// Is makes the error match the ErrConcurrencyLimit sentinel.
func (e *ConcurrencyLimitError) Is(target error) bool {
	return target == ErrConcurrencyLimit
}
