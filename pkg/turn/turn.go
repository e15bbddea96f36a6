package turn

import (
	"cmp"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"luna/pkg/assets"
	"luna/pkg/compose"
	"luna/pkg/diff"
	"luna/pkg/imagegen"
	"luna/pkg/inference"
	"luna/pkg/metrics"
	"luna/pkg/schema"
	"luna/pkg/session"
	"luna/pkg/speech"
)

// GreetingSource provides the canned opening of a session.
type GreetingSource interface {
	Greeting() (*assets.Greeting, error)
}

// Inliner turns an illustration URL into something the client can show
// without contacting the image provider.
type Inliner interface {
	Inline(ctx context.Context, url string) (string, error)
}

type Config struct {
	SystemPrompt       string
	TextTimeout        time.Duration
	HistoryTokenBudget int
	InlineImages       bool
}

type Deps struct {
	Text     inference.Inferencer
	Speech   speech.Synthesizer
	Images   imagegen.Generator
	Greeting GreetingSource
	Composer *compose.Composer
	Inliner  Inliner
	Tokens   inference.TokenCounter
}

// Request is one turn as sent by the client.
type Request struct {
	TurnID     string
	Message    string
	History    []schema.Message
	Characters session.KnowledgeBase
	Settings   session.KnowledgeBase
}

// Result is a successful turn. Image and ImageError are mutually exclusive
// except on greetings, which have neither error nor prompt.
type Result struct {
	TurnID     string
	Text       string
	Audio      []byte
	Image      string
	ImageError string

	Characters    session.KnowledgeBase
	Settings      session.KnowledgeBase
	NewCharacters session.KnowledgeBase
	NewSettings   session.KnowledgeBase
	Changes       []diff.Change
	Rejected      []session.Rejection

	Prompt string
	State  State
	Trace  []State
}

// Orchestrator runs turns. It holds no session state, so one instance
// serves every session concurrently.
type Orchestrator struct {
	cfg    Config
	deps   Deps
	logger *log.Logger
}

func New(cfg Config, deps Deps, logger *log.Logger) *Orchestrator {
	cfg.SystemPrompt = cmp.Or(cfg.SystemPrompt, SystemPrompt)
	cfg.TextTimeout = cmp.Or(cfg.TextTimeout, 30*time.Second)
	if deps.Composer == nil {
		deps.Composer = compose.New(compose.PolicyAllNew)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{cfg: cfg, deps: deps, logger: logger}
}

// tracker records state transitions for one turn.
type tracker struct {
	trace  []State
	logger *log.Logger
}

func (t *tracker) move(to State) {
	from := t.current()
	if from != "" && !canMove(from, to) {
		t.logger.Warn("Unexpected turn transition", "from", from, "to", to)
	}
	t.trace = append(t.trace, to)
	t.logger.Debug("Turn state", "from", from, "to", to)
	if to.Terminal() {
		metrics.TurnsTotal.WithLabelValues(string(to)).Inc()
	}
}

func (t *tracker) current() State {
	if len(t.trace) == 0 {
		return ""
	}
	return t.trace[len(t.trace)-1]
}

// Run executes one turn: text, then speech, then illustration. Text and
// speech failures end the turn with an *Error; an illustration failure only
// sets Result.ImageError.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	logger := o.logger.With("turn", req.TurnID)
	t := &tracker{logger: logger}
	t.move(StateReceived)

	msg := strings.TrimSpace(req.Message)
	if len(req.History) == 0 && msg == "" {
		return o.greet(req, t)
	}

	history := o.prepareHistory(req.History, msg, logger)

	t.move(StateTextGenerating)
	start := time.Now()
	tctx, cancel := context.WithTimeout(ctx, o.cfg.TextTimeout)
	raw, err := o.deps.Text.Infer(tctx, o.cfg.SystemPrompt, history, msg)
	timedOut := errors.Is(tctx.Err(), context.DeadlineExceeded)
	cancel()
	metrics.ObserveStage("text", start, err)
	if err != nil {
		t.move(StateTextFailed)
		turnErr := classifyText(ctx, err, timedOut)
		logger.Error("Text generation failed", "kind", turnErr.Kind, "err", err, "elapsed", time.Since(start))
		return nil, turnErr
	}

	parsed := session.Parse(raw)
	for _, r := range parsed.Rejected {
		metrics.AnnotationsRejectedTotal.WithLabelValues(r.Kind.String()).Inc()
		logger.Warn("Dropped annotation", "kind", r.Kind, "name", r.Name, "offset", r.Offset, "reason", r.Reason)
	}
	t.move(StateMetadataExtracted)
	if parsed.Text == "" {
		t.move(StateTextFailed)
		logger.Error("Narration was empty after removing annotations", "raw_len", len(raw))
		return nil, newError(KindTextEmpty, 0, inference.ErrEmptyCompletion)
	}

	res := &Result{
		TurnID:        req.TurnID,
		Text:          parsed.Text,
		Characters:    session.Merge(req.Characters, parsed.Characters),
		Settings:      session.Merge(req.Settings, parsed.Settings),
		NewCharacters: parsed.Characters,
		NewSettings:   parsed.Settings,
		Rejected:      parsed.Rejected,
	}
	res.Changes = append(
		diff.KnowledgeBases("characters", req.Characters, res.Characters),
		diff.KnowledgeBases("settings", req.Settings, res.Settings)...,
	)
	for _, c := range res.Changes {
		logger.Info("Knowledge base updated", "kind", c.Kind, "name", c.Name, "change", c.State, "diff", c.Str.Plain())
	}

	t.move(StateAudioGenerating)
	start = time.Now()
	audio, err := o.deps.Speech.Synthesize(ctx, parsed.Text)
	metrics.ObserveStage("audio", start, err)
	if err != nil {
		t.move(StateAudioFailed)
		logger.Error("Speech synthesis failed", "err", err)
		kind := KindAudioFailed
		if ctx.Err() != nil {
			kind = KindInternal
		}
		return nil, newError(kind, speechStatus(err), err)
	}
	res.Audio = audio

	t.move(StateImageGenerating)
	res.Prompt = o.deps.Composer.Compose(compose.Input{
		Characters:    res.Characters,
		Settings:      res.Settings,
		NewCharacters: parsed.Characters,
		Narration:     parsed.Text,
	})
	logger.Debug("Composed image prompt", "prompt", res.Prompt)

	start = time.Now()
	image, err := o.illustrate(ctx, res.Prompt)
	metrics.ObserveStage("image", start, err)
	if err != nil {
		t.move(StateImageFailed)
		t.move(StateDegradedSuccess)
		logger.Warn("Illustration failed, answering without one", "err", err)
		res.ImageError = message(KindImageFailed, 0)
		if errors.Is(err, imagegen.ErrPollExhausted) {
			res.ImageError = "The illustration took too long to paint."
		}
	} else {
		t.move(StateImageSucceeded)
		t.move(StateFullSuccess)
		res.Image = image
	}

	res.State = t.current()
	res.Trace = t.trace
	logger.Info("Turn complete", "state", res.State, "characters", res.Characters.Len(), "settings", res.Settings.Len())
	return res, nil
}

func (o *Orchestrator) greet(req Request, t *tracker) (*Result, error) {
	if o.deps.Greeting == nil {
		return nil, newError(KindInternal, 0, errors.New("no greeting configured"))
	}
	g, err := o.deps.Greeting.Greeting()
	if err != nil {
		t.logger.Error("Greeting assets unavailable", "err", err)
		return nil, newError(KindInternal, 0, err)
	}
	t.move(StateGreeting)
	return &Result{
		TurnID:     req.TurnID,
		Text:       g.Text,
		Audio:      g.Audio,
		Image:      g.Image,
		Characters: req.Characters,
		Settings:   req.Settings,
		State:      StateGreeting,
		Trace:      t.trace,
	}, nil
}

// prepareHistory drops a trailing user turn that repeats the new message,
// since clients append the message to history before sending it, and then
// trims the history to the token budget.
func (o *Orchestrator) prepareHistory(history []schema.Message, msg string, logger *log.Logger) []schema.Message {
	if n := len(history); n > 0 && msg != "" {
		last := history[n-1]
		if last.Role == schema.RoleUser && strings.TrimSpace(last.Content) == msg {
			history = history[:n-1]
		}
	}

	trimmed, dropped, err := inference.TrimHistory(history, o.cfg.HistoryTokenBudget, o.deps.Tokens)
	if err != nil {
		logger.Warn("Could not count history tokens, sending full history", "err", err)
	}
	if dropped > 0 {
		logger.Info("Trimmed history to token budget", "dropped", dropped, "budget", o.cfg.HistoryTokenBudget)
	}
	return trimmed
}

func (o *Orchestrator) illustrate(ctx context.Context, prompt string) (string, error) {
	if o.deps.Images == nil {
		return "", errors.New("no image generator configured")
	}
	img, err := o.deps.Images.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	metrics.ImagePollAttempts.Observe(float64(img.Attempts))
	if !o.cfg.InlineImages || o.deps.Inliner == nil {
		return img.URL, nil
	}
	return o.deps.Inliner.Inline(ctx, img.URL)
}

func classifyText(ctx context.Context, err error, timedOut bool) *Error {
	var upErr *inference.UpstreamError
	switch {
	case timedOut || errors.Is(err, context.DeadlineExceeded):
		if ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return newError(KindInternal, 0, err)
		}
		return newError(KindTextTimeout, 0, err)
	case ctx.Err() != nil:
		return newError(KindInternal, 0, err)
	case errors.Is(err, inference.ErrFiltered):
		return newError(KindTextFiltered, 0, err)
	case errors.Is(err, inference.ErrEmptyCompletion):
		return newError(KindTextEmpty, 0, err)
	case errors.As(err, &upErr):
		return newError(KindTextUpstream, upErr.StatusCode, err)
	default:
		return newError(KindTextUpstream, 0, err)
	}
}

func speechStatus(err error) int {
	var statusErr *speech.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}
