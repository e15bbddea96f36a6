package config

import (
	"cmp"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"luna/pkg/compose"
	"luna/pkg/inference"
)

var ErrMissingCredentials = errors.New("missing credentials")

// Config is read from the environment. Every field can be set with the
// variable named in its envconfig tag.
type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	PublicDir string `envconfig:"PUBLIC_DIR" default:"public"`
	AssetsDir string `envconfig:"ASSETS_DIR" default:"assets"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
	BodyLimit string `envconfig:"BODY_LIMIT" default:"2M"`

	// Narrator
	TextProvider       string        `envconfig:"TEXT_PROVIDER" default:"groq"`
	TextModel          string        `envconfig:"TEXT_MODEL"`
	TextBaseURL        string        `envconfig:"TEXT_BASE_URL"`
	TextTimeout        time.Duration `envconfig:"TEXT_TIMEOUT" default:"30s"`
	// Zero sends the whole conversation; a positive budget drops the oldest turns.
	HistoryTokenBudget int           `envconfig:"HISTORY_TOKEN_BUDGET" default:"0"`
	GroqAPIKey         string        `envconfig:"GROQ_API_KEY"`
	OpenAIAPIKey       string        `envconfig:"OPENAI_API_KEY"`
	GrokAPIKey         string        `envconfig:"GROK_API_KEY"`
	MoonshotAPIKey     string        `envconfig:"MOONSHOT_API_KEY"`
	KimiAPIKey         string        `envconfig:"KIMI_API_KEY"`
	GeminiAPIKey       string        `envconfig:"GEMINI_API_KEY"`

	// Voice
	ElevenLabsAPIKey  string        `envconfig:"ELEVENLABS_API_KEY"`
	ElevenLabsVoiceID string        `envconfig:"ELEVENLABS_VOICE_ID" default:"EXAVITQu4vr4xnSDxMaL"`
	ElevenLabsModelID string        `envconfig:"ELEVENLABS_MODEL_ID" default:"eleven_multilingual_v2"`
	SpeechTimeout     time.Duration `envconfig:"SPEECH_TIMEOUT" default:"60s"`

	// Illustration
	ImageAPIKey         string        `envconfig:"IMAGE_API_KEY"`
	ImageEndpoint       string        `envconfig:"IMAGE_ENDPOINT" default:"https://modelslab.com/api/v6/realtime/text2img"`
	ImageWidth          int           `envconfig:"IMAGE_WIDTH" default:"768"`
	ImageHeight         int           `envconfig:"IMAGE_HEIGHT" default:"512"`
	ImageSafetyChecker  bool          `envconfig:"IMAGE_SAFETY_CHECKER" default:"true"`
	ImageRequestTimeout time.Duration `envconfig:"IMAGE_REQUEST_TIMEOUT" default:"60s"`
	PollInterval        time.Duration `envconfig:"POLL_INTERVAL" default:"3s"`
	MaxPollAttempts     int           `envconfig:"MAX_POLL_ATTEMPTS" default:"10"`
	ImageInline         bool          `envconfig:"IMAGE_INLINE" default:"false"`
	ImageWorkers        int           `envconfig:"IMAGE_WORKERS" default:"2"`
	ImageQueueSize      int           `envconfig:"IMAGE_QUEUE_SIZE" default:"16"`

	CharacterPolicy string `envconfig:"CHARACTER_POLICY" default:"all-new"`
}

// Load reads the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that envconfig cannot. Missing credentials are
// reported together so one restart fixes all of them.
func (c *Config) Validate() error {
	if _, err := compose.ParsePolicy(c.CharacterPolicy); err != nil {
		return err
	}
	if !strings.EqualFold(c.TextProvider, inference.ProviderGemini) {
		if _, err := inference.LookupPreset(c.TextProvider); err != nil {
			return err
		}
	}
	if c.MaxPollAttempts < 1 {
		return fmt.Errorf("MAX_POLL_ATTEMPTS must be at least 1, got %d", c.MaxPollAttempts)
	}
	if c.TextTimeout <= 0 {
		return fmt.Errorf("TEXT_TIMEOUT must be positive, got %s", c.TextTimeout)
	}

	var missing []string
	if name := c.textKeyVar(); c.TextAPIKey() == "" {
		missing = append(missing, name)
	}
	if c.ElevenLabsAPIKey == "" {
		missing = append(missing, "ELEVENLABS_API_KEY")
	}
	if c.ImageAPIKey == "" {
		missing = append(missing, "IMAGE_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// TextAPIKey returns the key for the configured text provider.
func (c *Config) TextAPIKey() string {
	switch strings.ToLower(c.TextProvider) {
	case inference.ProviderOpenAI:
		return c.OpenAIAPIKey
	case inference.ProviderGrok:
		return c.GrokAPIKey
	case inference.ProviderMoonshot:
		return c.MoonshotAPIKey
	case inference.ProviderKimi:
		return c.KimiAPIKey
	case inference.ProviderGemini:
		return c.GeminiAPIKey
	default:
		return c.GroqAPIKey
	}
}

func (c *Config) textKeyVar() string {
	return strings.ToUpper(cmp.Or(c.TextProvider, inference.ProviderGroq)) + "_API_KEY"
}

// Policy returns the parsed character policy. Validate has already checked it.
func (c *Config) Policy() compose.Policy {
	p, _ := compose.ParsePolicy(c.CharacterPolicy)
	return p
}

func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}
