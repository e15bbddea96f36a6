package inference

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"luna/pkg/schema"
)

type GeminiInferencer struct {
	client *genai.Client
	apiKey string
	model  string

	MaxTokens   int32
	Temperature float32
}

// NewGeminiInferencer creates an inferencer backed by the Gemini API. An empty
// baseURL uses Google's endpoint.
func NewGeminiInferencer(ctx context.Context, apiKey, model, baseURL string) (*GeminiInferencer, error) {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	g := &GeminiInferencer{
		apiKey:      apiKey,
		model:       model,
		MaxTokens:   1024,
		Temperature: 0.9,
	}
	if err := g.ChangeConfig(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	}); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GeminiInferencer) ChangeConfig(ctx context.Context, config *genai.ClientConfig) error {
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return fmt.Errorf("gemini client: %w", err)
	}
	g.client = client
	return nil
}

func (g *GeminiInferencer) Model() string { return g.model }

// Infer sends the conversation to Gemini. Assistant turns are sent with the
// model role.
func (g *GeminiInferencer) Infer(ctx context.Context, system string, history []schema.Message, user string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == schema.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	if user != "" {
		contents = append(contents, genai.NewContentFromText(user, genai.RoleUser))
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		MaxOutputTokens:   cmp.Or(g.MaxTokens, 1024),
		Temperature:       genai.Ptr(g.Temperature),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &UpstreamError{
				Provider:   ProviderGemini,
				StatusCode: apiErr.Code,
				Message:    cmp.Or(apiErr.Message, http.StatusText(apiErr.Code)),
				Err:        err,
			}
		}
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if fb := result.PromptFeedback; fb != nil && fb.BlockReason != "" {
		return "", fmt.Errorf("gemini: %w: %s", ErrFiltered, fb.BlockReason)
	}
	if len(result.Candidates) > 0 && result.Candidates[0] != nil {
		switch result.Candidates[0].FinishReason {
		case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent:
			return "", fmt.Errorf("gemini: %w: %s", ErrFiltered, result.Candidates[0].FinishReason)
		}
	}

	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyCompletion)
	}
	return text, nil
}
