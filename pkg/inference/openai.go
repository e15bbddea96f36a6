package inference

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"luna/pkg/schema"
)

const finishReasonContentFilter = "content_filter"

// OpenAIInferencer implements Inferencer against any OpenAI compatible chat
// completion API. Groq is the default.
type OpenAIInferencer struct {
	client   *openai.Client
	provider string
	apiKey   string
	model    string

	MaxTokens   int64
	Temperature float64
}

// NewOpenAIInferencer creates an inferencer for the given preset. A non-empty
// model or baseURL overrides the preset.
func NewOpenAIInferencer(preset Preset, apiKey, model, baseURL string, opts ...option.RequestOption) *OpenAIInferencer {
	o := &OpenAIInferencer{
		provider:    preset.Name,
		apiKey:      apiKey,
		model:       cmp.Or(model, preset.Model),
		MaxTokens:   1024,
		Temperature: 0.9,
	}
	o.ChangeBaseURL(cmp.Or(baseURL, preset.BaseURL), opts...)
	return o
}

// ChangeBaseURL points the client at another endpoint. Automatic retries are
// off so a failed turn surfaces immediately to the reader.
func (o *OpenAIInferencer) ChangeBaseURL(baseURL string, opts ...option.RequestOption) {
	base := []option.RequestOption{
		option.WithAPIKey(o.apiKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	client := openai.NewClient(append(base, opts...)...)
	o.client = &client
}

func (o *OpenAIInferencer) SetModel(model string) {
	o.model = model
}

func (o *OpenAIInferencer) Model() string { return o.model }

// Infer sends the conversation to the chat completion endpoint and returns the output.
func (o *OpenAIInferencer) Infer(ctx context.Context, system string, history []schema.Message, user string) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(system))
	for _, m := range history {
		switch m.Role {
		case schema.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}
	if user != "" {
		messages = append(messages, openai.UserMessage(user))
	}

	params := openai.ChatCompletionNewParams{
		Model:               o.model,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(o.MaxTokens),
		Temperature:         openai.Float(o.Temperature),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{
				Provider:   o.provider,
				StatusCode: apiErr.StatusCode,
				Message:    cmp.Or(apiErr.Message, http.StatusText(apiErr.StatusCode)),
				Err:        err,
			}
		}
		return "", fmt.Errorf("%s inference error: %w", o.provider, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices returned: %w", o.provider, ErrEmptyCompletion)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == finishReasonContentFilter {
		return "", fmt.Errorf("%s: %w", o.provider, ErrFiltered)
	}
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("%s: %w: %s", o.provider, ErrFiltered, choice.Message.Refusal)
	}
	if choice.Message.Content == "" {
		return "", fmt.Errorf("%s: %w", o.provider, ErrEmptyCompletion)
	}

	return choice.Message.Content, nil
}
