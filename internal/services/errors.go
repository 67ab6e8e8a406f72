package services

import (
	"errors"
	"fmt"
)

var (
	// ErrAIUnavailable is returned when no completion client or model is configured.
	ErrAIUnavailable = errors.New("openai integration is not configured")

	// ErrMissingAPIKey is returned before any request is made when no credential was supplied.
	ErrMissingAPIKey = errors.New("openai api key is required")
)

// ProcessingError reports a failure while inspecting a completion that the
// API returned successfully. Unlike a failed call it is always fatal.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing error during %s: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
