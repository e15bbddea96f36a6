package turn

import (
	"fmt"
	"net/http"
)

// Kind classifies why a turn failed.
type Kind string

const (
	KindTextTimeout  Kind = "text_timeout"
	KindTextEmpty    Kind = "text_empty"
	KindTextFiltered Kind = "text_filtered"
	KindTextUpstream Kind = "text_upstream"
	KindAudioFailed  Kind = "audio_failed"
	KindImageFailed  Kind = "image_failed"
	KindInternal     Kind = "internal"
)

// Error is a failed turn. It wraps the stage error so callers can still use
// errors.Is and errors.As on provider errors.
type Error struct {
	Kind           Kind
	Message        string
	ProviderStatus int
	Err            error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether sending the same turn again may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTextTimeout, KindTextEmpty, KindTextUpstream, KindAudioFailed:
		return true
	default:
		return false
	}
}

// HTTPStatus maps the failure to the status the turn endpoint answers with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindTextTimeout, KindTextEmpty, KindTextFiltered, KindTextUpstream:
		return http.StatusBadRequest
	case KindAudioFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, status int, err error) *Error {
	return &Error{Kind: kind, Message: message(kind, status), ProviderStatus: status, Err: err}
}

func message(kind Kind, status int) string {
	switch kind {
	case KindTextTimeout:
		return "Luna is taking too long to think. Please try again."
	case KindTextEmpty:
		return "Luna had nothing to say. Try rephrasing your message."
	case KindTextFiltered:
		return "Luna can't continue the story that way. Try a different action."
	case KindTextUpstream:
		if status > 0 {
			return fmt.Sprintf("The story service is unavailable (status %d). Please try again.", status)
		}
		return "The story service is unavailable. Please try again."
	case KindAudioFailed:
		return "Luna's voice faded for a moment. Please try again."
	case KindImageFailed:
		return "The illustration could not be painted this time."
	default:
		return "Something went wrong."
	}
}
