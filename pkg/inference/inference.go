package inference

import (
	"context"
	"fmt"
	"strings"

	"luna/pkg/schema"
)

// Inferencer produces the next narration from a system instruction, the
// earlier turns and the reader's new message. An empty user message asks the
// model to continue from history alone.
type Inferencer interface {
	Infer(ctx context.Context, system string, history []schema.Message, user string) (string, error)
}

// Preset describes an OpenAI compatible chat completion endpoint.
type Preset struct {
	Name    string
	BaseURL string
	Model   string
}

const (
	ProviderGroq     = "groq"
	ProviderOpenAI   = "openai"
	ProviderGrok     = "grok"
	ProviderMoonshot = "moonshot"
	ProviderKimi     = "kimi"
	ProviderGemini   = "gemini"
)

var presets = map[string]Preset{
	ProviderGroq:     {Name: ProviderGroq, BaseURL: "https://api.groq.com/openai/v1", Model: "llama-3.3-70b-versatile"},
	ProviderOpenAI:   {Name: ProviderOpenAI, BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
	ProviderGrok:     {Name: ProviderGrok, BaseURL: "https://api.x.ai/v1", Model: "grok-4-fast-reasoning"},
	ProviderMoonshot: {Name: ProviderMoonshot, BaseURL: "https://api.moonshot.ai/v1", Model: "kimi-k2-5"},
	ProviderKimi:     {Name: ProviderKimi, BaseURL: "https://api.kimi.com/coding/v1", Model: "kimi-for-coding"},
}

// LookupPreset returns the endpoint for an OpenAI compatible provider.
func LookupPreset(provider string) (Preset, error) {
	p, ok := presets[strings.ToLower(provider)]
	if !ok {
		return Preset{}, fmt.Errorf("unknown text provider %q", provider)
	}
	return p, nil
}
