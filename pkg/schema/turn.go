package schema

import (
	"errors"
	"fmt"

	"luna/pkg/session"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var ErrInvalidRole = errors.New("invalid role")

type Message struct {
	Role    Role   `json:"role" jsonschema:"enum=user,enum=assistant" jsonschema_description:"Who wrote this turn"`
	Content string `json:"content" jsonschema_description:"Text of the turn as it was shown to the reader"`
}

func (m Message) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("%w %q", ErrInvalidRole, m.Role)
	}
}

// TurnRequest is everything the browser holds for a session.
type TurnRequest struct {
	Message      string                `json:"message" jsonschema_description:"What the reader typed; empty on a fresh session"`
	Conversation []Message             `json:"conversation" jsonschema_description:"Earlier turns, oldest first"`
	Characters   session.KnowledgeBase `json:"characters" jsonschema_description:"Characters known so far"`
	Settings     session.KnowledgeBase `json:"settings" jsonschema_description:"Settings known so far"`
}

func (r TurnRequest) Validate() error {
	for i, m := range r.Conversation {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("conversation[%d]: %w", i, err)
		}
	}
	return nil
}

type TurnResponse struct {
	TurnID     string                `json:"turnId" jsonschema_description:"Identifier of this turn, matches the X-Request-Id header"`
	Text       string                `json:"text" jsonschema_description:"Narration to display"`
	Audio      []byte                `json:"audio" jsonschema_description:"Base64 encoded MP3 narration"`
	Image      string                `json:"image,omitempty" jsonschema_description:"Illustration URL or data URL"`
	ImageError string                `json:"imageError,omitempty" jsonschema_description:"Why no illustration was produced"`
	Characters session.KnowledgeBase `json:"characters" jsonschema_description:"Updated characters to send back next turn"`
	Settings   session.KnowledgeBase `json:"settings" jsonschema_description:"Updated settings to send back next turn"`
}

type ErrorResponse struct {
	TextError      string `json:"textError" jsonschema_description:"Human readable failure"`
	Kind           string `json:"kind,omitempty" jsonschema_description:"Machine readable failure kind"`
	Retryable      bool   `json:"retryable" jsonschema_description:"Whether resending the same turn may succeed"`
	ProviderStatus int    `json:"providerStatus,omitempty" jsonschema_description:"HTTP status returned by the upstream service"`
}

type Health struct {
	Service string `json:"service"`
	Status  string `json:"status"`
}
