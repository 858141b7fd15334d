package nlq

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuestion is returned for blank questions before any strategy runs.
	ErrEmptyQuestion = errors.New("empty question")
	// ErrRateLimited is returned when the translation window is exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrTranslationUnavailable is returned by the AI translator when its
	// recognizer is missing or failed. The orchestrator recovers from it.
	ErrTranslationUnavailable = errors.New("translation unavailable")
)

// ExecutionError is a failure to run a translated query. It carries the query
// that was sent to the triplestore.
type ExecutionError struct {
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("failed to execute query: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
