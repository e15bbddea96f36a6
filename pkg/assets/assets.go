package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"luna/pkg/flight"
	"luna/pkg/imagegen"
	"luna/pkg/utils"
)

const (
	GreetingAudioFile = "greeting.mp3"
	GreetingImageFile = "greeting.png"
	GreetingTextFile  = "greeting.txt"
)

// DefaultGreeting is the narration that matches the bundled greeting audio.
const DefaultGreeting = "Well hello there, traveler! I'm **Luna**, the fairy who keeps this story. " +
	"Pull up a toadstool and tell me: where shall our adventure begin?"

var ErrMissingAsset = errors.New("missing greeting asset")

// Greeting is the canned opening of every session.
type Greeting struct {
	Text  string
	Audio []byte
	Image string
}

// Loader reads the greeting from disk once and shares it between requests.
type Loader struct {
	dir    string
	cache  *flight.Cache[string, *Greeting]
	logger *log.Logger
}

func NewLoader(dir string, logger *log.Logger) *Loader {
	if logger == nil {
		logger = log.Default()
	}
	l := &Loader{dir: dir, logger: logger.WithPrefix("assets")}
	l.cache = flight.NewCache(l.load)
	l.cache.Expiry(0)
	return l
}

// Greeting returns the cached greeting, loading it on first use. A failed
// load is retried on the next call.
func (l *Loader) Greeting() (*Greeting, error) {
	return l.cache.Get("greeting")
}

func (l *Loader) load(string) (*Greeting, error) {
	audioPath := filepath.Join(l.dir, GreetingAudioFile)
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingAsset, err)
	}

	imagePath := filepath.Join(l.dir, GreetingImageFile)
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingAsset, err)
	}
	encoded, err := imagegen.EncodeWebP(raw)
	if err != nil {
		return nil, fmt.Errorf("greeting image %s: %w", imagePath, err)
	}

	text := DefaultGreeting
	if textPath := filepath.Join(l.dir, GreetingTextFile); utils.Exists(textPath) {
		b, err := os.ReadFile(textPath)
		if err != nil {
			return nil, fmt.Errorf("greeting text %s: %w", textPath, err)
		}
		if s := strings.TrimSpace(string(b)); s != "" {
			text = s
		}
	}

	l.logger.Info("Loaded greeting assets", "dir", l.dir, "audio_bytes", len(audio), "image_bytes", len(encoded))
	return &Greeting{
		Text:  text,
		Audio: audio,
		Image: imagegen.DataURL("image/webp", encoded),
	}, nil
}
