package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"luna/pkg/assets"
	"luna/pkg/compose"
	"luna/pkg/config"
	"luna/pkg/imagegen"
	"luna/pkg/inference"
	"luna/pkg/queue"
	"luna/pkg/server"
	"luna/pkg/speech"
	"luna/pkg/turn"
	"luna/pkg/utils"
)

const shutdownTimeout = 10 * time.Second

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the story server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("port", "", "Listen port or address, overrides PORT")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}

	logger, err := NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	images := queue.New(imagegen.New(imageParams(cfg), logger), cfg.ImageWorkers, cfg.ImageQueueSize, logger)
	images.Start()
	defer images.Stop()

	orchestrator, err := newOrchestrator(ctx, cfg, images, logger)
	if err != nil {
		return err
	}

	srv := server.NewServer(orchestrator, server.Options{
		PublicDir: cfg.PublicDir,
		BodyLimit: cfg.BodyLimit,
		Debug:     logger.GetLevel() <= log.DebugLevel,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Addr())
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newOrchestrator(ctx context.Context, cfg *config.Config, images imagegen.Generator, logger *log.Logger) (*turn.Orchestrator, error) {
	text, err := newInferencer(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Narrator ready", "provider", cfg.TextProvider, "model", text.Model())

	voice := speech.NewElevenLabs(speech.Options{
		APIKey:  cfg.ElevenLabsAPIKey,
		VoiceID: cfg.ElevenLabsVoiceID,
		ModelID: cfg.ElevenLabsModelID,
		Timeout: cfg.SpeechTimeout,
	}, logger)

	greeting := assets.NewLoader(cfg.AssetsDir, logger)
	if _, err := greeting.Greeting(); err != nil {
		logger.Warn("Greeting assets not loaded yet", "dir", cfg.AssetsDir, "err", err)
	}

	return turn.New(turn.Config{
		TextTimeout:        cfg.TextTimeout,
		HistoryTokenBudget: cfg.HistoryTokenBudget,
		InlineImages:       cfg.ImageInline,
	}, turn.Deps{
		Text:     text,
		Speech:   voice,
		Images:   images,
		Greeting: greeting,
		Composer: compose.New(cfg.Policy()),
		Inliner:  imagegen.NewInliner(cfg.ImageRequestTimeout),
		Tokens:   utils.NumTokens,
	}, logger), nil
}

func imageParams(cfg *config.Config) imagegen.Params {
	params := imagegen.DefaultParams()
	params.APIKey = cfg.ImageAPIKey
	params.Endpoint = cfg.ImageEndpoint
	params.NegativePrompt = compose.NegativePrompt
	params.Width = cfg.ImageWidth
	params.Height = cfg.ImageHeight
	params.SafetyChecker = cfg.ImageSafetyChecker
	params.RequestTimeout = cfg.ImageRequestTimeout
	params.PollInterval = cfg.PollInterval
	params.MaxPollAttempts = cfg.MaxPollAttempts
	return params
}

type narrator interface {
	inference.Inferencer
	Model() string
}

func newInferencer(ctx context.Context, cfg *config.Config) (narrator, error) {
	if strings.EqualFold(cfg.TextProvider, inference.ProviderGemini) {
		return inference.NewGeminiInferencer(ctx, cfg.TextAPIKey(), cfg.TextModel, cfg.TextBaseURL)
	}
	preset, err := inference.LookupPreset(cfg.TextProvider)
	if err != nil {
		return nil, err
	}
	return inference.NewOpenAIInferencer(preset, cfg.TextAPIKey(), cfg.TextModel, cfg.TextBaseURL), nil
}
