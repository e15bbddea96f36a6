package imagegen

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"luna/pkg/utils"
)

// DefaultEndpoint is the realtime text2img API, which needs no model_id.
const DefaultEndpoint = "https://modelslab.com/api/v6/realtime/text2img"

const (
	statusSuccess    = "success"
	statusProcessing = "processing"
)

// Generator turns a prompt into an illustration.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*Image, error)
}

// Image is a finished illustration.
type Image struct {
	URL      string
	JobID    string
	Attempts int
}

// StatusError is a non-2xx answer from the image service.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("image service returned status %d: %s", e.StatusCode, e.Message)
}

// Params are the generation settings sent with every prompt.
type Params struct {
	NegativePrompt  string
	Width           int
	Height          int
	Samples         int
	InferenceSteps  int
	GuidanceScale   float64
	SafetyChecker   bool
	PollInterval    time.Duration
	MaxPollAttempts int
	RequestTimeout  time.Duration
	Endpoint        string
	APIKey          string
}

func DefaultParams() Params {
	return Params{
		Width:           768,
		Height:          512,
		Samples:         1,
		InferenceSteps:  30,
		GuidanceScale:   7.5,
		SafetyChecker:   true,
		PollInterval:    3 * time.Second,
		MaxPollAttempts: 10,
		RequestTimeout:  60 * time.Second,
		Endpoint:        DefaultEndpoint,
	}
}

type request struct {
	Key               string  `json:"key"`
	Prompt            string  `json:"prompt"`
	NegativePrompt    string  `json:"negative_prompt"`
	Width             string  `json:"width"`
	Height            string  `json:"height"`
	Samples           string  `json:"samples"`
	NumInferenceSteps string  `json:"num_inference_steps"`
	GuidanceScale     float64 `json:"guidance_scale"`
	SafetyChecker     string  `json:"safety_checker"`
}

type fetchRequest struct {
	Key string `json:"key"`
}

type response struct {
	Status      string          `json:"status"`
	ID          json.Number     `json:"id"`
	Output      []string        `json:"output"`
	FetchResult string          `json:"fetch_result"`
	ETA         float64         `json:"eta"`
	Message     json.RawMessage `json:"message"`
}

func (r response) message() string {
	var s string
	if err := json.Unmarshal(r.Message, &s); err == nil && s != "" {
		return s
	}
	if len(r.Message) > 0 && string(r.Message) != "null" {
		return string(r.Message)
	}
	return cmp.Or(r.Status, "unknown status")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Client submits text2img jobs and polls them to completion.
type Client struct {
	http   *http.Client
	params Params
	logger *log.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

func New(params Params, logger *log.Logger) *Client {
	def := DefaultParams()
	params.Width = cmp.Or(params.Width, def.Width)
	params.Height = cmp.Or(params.Height, def.Height)
	params.Samples = cmp.Or(params.Samples, def.Samples)
	params.InferenceSteps = cmp.Or(params.InferenceSteps, def.InferenceSteps)
	params.GuidanceScale = cmp.Or(params.GuidanceScale, def.GuidanceScale)
	params.PollInterval = cmp.Or(params.PollInterval, def.PollInterval)
	params.MaxPollAttempts = cmp.Or(params.MaxPollAttempts, def.MaxPollAttempts)
	params.RequestTimeout = cmp.Or(params.RequestTimeout, def.RequestTimeout)
	params.Endpoint = cmp.Or(params.Endpoint, def.Endpoint)
	if logger == nil {
		logger = log.Default()
	}
	return &Client{
		http:   &http.Client{Timeout: params.RequestTimeout},
		params: params,
		logger: logger.WithPrefix("imagegen"),
		sleep:  sleepContext,
	}
}

// Generate submits prompt and waits for the job to finish.
func (c *Client) Generate(ctx context.Context, prompt string) (*Image, error) {
	job, err := c.Submit(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if err := c.Wait(ctx, job); err != nil {
		return nil, err
	}
	return &Image{URL: job.Output[0], JobID: job.ID, Attempts: job.Attempts}, nil
}

// Submit starts a job. The returned job is either terminal or polling.
func (c *Client) Submit(ctx context.Context, prompt string) (*Job, error) {
	p := c.params
	var resp response
	err := c.post(ctx, p.Endpoint, request{
		Key:               p.APIKey,
		Prompt:            prompt,
		NegativePrompt:    p.NegativePrompt,
		Width:             fmt.Sprint(p.Width),
		Height:            fmt.Sprint(p.Height),
		Samples:           fmt.Sprint(p.Samples),
		NumInferenceSteps: fmt.Sprint(p.InferenceSteps),
		GuidanceScale:     p.GuidanceScale,
		SafetyChecker:     yesNo(p.SafetyChecker),
	}, &resp)
	if err != nil {
		return nil, err
	}

	job := &Job{State: StateSubmitted}
	if err := job.apply(resp); err != nil {
		return job, err
	}
	c.logger.Debug("Image job submitted", "id", job.ID, "state", job.State, "eta", job.ETA)
	if job.State == StateFailed {
		return job, job.Err
	}
	return job, nil
}

// Wait polls a job at the configured interval until it reaches a terminal
// state. Running out of attempts leaves the job timed out with
// ErrPollExhausted; cancelling ctx leaves it cancelled.
func (c *Client) Wait(ctx context.Context, job *Job) error {
	for !job.State.Terminal() {
		if job.Attempts >= c.params.MaxPollAttempts {
			job.Err = fmt.Errorf("%w after %d attempts", ErrPollExhausted, job.Attempts)
			if err := job.moveTo(StateTimedOut); err != nil {
				return err
			}
			break
		}
		if err := c.sleep(ctx, c.params.PollInterval); err != nil {
			job.Err = err
			job.State = StateCancelled
			break
		}
		if err := c.Poll(ctx, job); err != nil {
			if ctx.Err() != nil {
				job.Err = ctx.Err()
				job.State = StateCancelled
				break
			}
			return err
		}
	}
	if job.State != StateSucceeded {
		return job.Err
	}
	return nil
}

// Poll asks the provider for the current state of job once.
func (c *Client) Poll(ctx context.Context, job *Job) error {
	job.Attempts++
	var resp response
	if err := c.post(ctx, job.FetchURL, fetchRequest{Key: c.params.APIKey}, &resp); err != nil {
		job.Err = err
		job.State = StateFailed
		return err
	}
	if err := job.apply(resp); err != nil {
		return err
	}
	c.logger.Debug("Image job polled", "id", job.ID, "attempt", job.Attempts, "state", job.State)
	if job.State == StateFailed {
		return job.Err
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal image request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Message: utils.LimitStr(strings.TrimSpace(string(raw)), 200)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode image response: %w", err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
