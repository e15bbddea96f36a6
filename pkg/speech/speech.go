package speech

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"luna/pkg/utils"
)

const (
	DefaultBaseURL = "https://api.elevenlabs.io"
	DefaultVoiceID = "EXAVITQu4vr4xnSDxMaL"
	DefaultModelID = "eleven_multilingual_v2"
)

var ErrEmptyAudio = errors.New("speech service returned no audio")

// Synthesizer turns narration into audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// StatusError is a non-2xx answer from the speech service.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("speech service returned status %d: %s", e.StatusCode, e.Message)
}

type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

type request struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id,omitempty"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// Options configure an ElevenLabs client. Zero fields take defaults.
type Options struct {
	APIKey   string
	BaseURL  string
	VoiceID  string
	ModelID  string
	Settings VoiceSettings
	Timeout  time.Duration
}

// ElevenLabs implements Synthesizer with the ElevenLabs text-to-speech API.
type ElevenLabs struct {
	client   *http.Client
	apiKey   string
	baseURL  string
	voiceID  string
	modelID  string
	settings VoiceSettings
	logger   *log.Logger
}

func NewElevenLabs(opts Options, logger *log.Logger) *ElevenLabs {
	if opts.Settings == (VoiceSettings{}) {
		opts.Settings = VoiceSettings{Stability: 0.4, SimilarityBoost: 0.8}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ElevenLabs{
		client:   &http.Client{Timeout: cmp.Or(opts.Timeout, 60*time.Second)},
		apiKey:   opts.APIKey,
		baseURL:  strings.TrimRight(cmp.Or(opts.BaseURL, DefaultBaseURL), "/"),
		voiceID:  cmp.Or(opts.VoiceID, DefaultVoiceID),
		modelID:  cmp.Or(opts.ModelID, DefaultModelID),
		settings: opts.Settings,
		logger:   logger.WithPrefix("speech"),
	}
}

// Synthesize returns MP3 audio for text.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(request{
		Text:          text,
		ModelID:       e.modelID,
		VoiceSettings: e.settings,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal speech request: %w", err)
	}

	endpoint := e.baseURL + "/v1/text-to-speech/" + e.voiceID
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", e.apiKey)

	e.logger.Debug("Requesting narration audio", "voice", e.voiceID, "chars", len(text))
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	audio, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.Error("Speech service returned non-OK status", "status", resp.StatusCode, "body", utils.LimitStr(string(audio), 200))
		return nil, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(audio, resp.StatusCode)}
	}
	if readErr != nil {
		return nil, fmt.Errorf("failed to read response body: %w", readErr)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}
	return audio, nil
}

// errorMessage pulls detail.message out of an ElevenLabs error body.
func errorMessage(body []byte, status int) string {
	var payload struct {
		Detail struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail.Message != "" {
		return payload.Detail.Message
	}
	if s := strings.TrimSpace(string(body)); s != "" {
		return utils.LimitStr(s, 200)
	}
	return http.StatusText(status)
}
