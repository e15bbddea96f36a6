package inference

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCompletion = errors.New("empty completion content")
	ErrFiltered        = errors.New("completion was filtered")
)

// UpstreamError is a non-2xx answer from a text provider.
type UpstreamError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: upstream status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: upstream status %d: %s", e.Provider, e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
