package imagegen

import (
	"errors"
	"fmt"
)

// State is the lifecycle of one text2img job.
type State int

const (
	StateSubmitted State = iota
	StatePolling
	StateSucceeded
	StateFailed
	StateTimedOut
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateSubmitted:
		return "submitted"
	case StatePolling:
		return "polling"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s >= StateSucceeded
}

var (
	ErrPollExhausted = errors.New("image job did not finish within the poll budget")
	ErrJobFailed     = errors.New("image job failed")
	ErrNoOutput      = errors.New("image job finished without output")
	ErrInvalidMove   = errors.New("invalid job transition")
)

// Job tracks a submitted generation request until it reaches a terminal state.
type Job struct {
	ID       string
	FetchURL string
	State    State
	Attempts int
	ETA      float64
	Output   []string
	Err      error
}

var transitions = map[State][]State{
	StateSubmitted: {StatePolling, StateSucceeded, StateFailed, StateCancelled},
	StatePolling:   {StatePolling, StateSucceeded, StateFailed, StateTimedOut, StateCancelled},
}

// moveTo changes the job state, refusing moves out of terminal states.
func (j *Job) moveTo(next State) error {
	for _, allowed := range transitions[j.State] {
		if allowed == next {
			j.State = next
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidMove, j.State, next)
}

// apply folds one provider answer into the job.
func (j *Job) apply(r response) error {
	if r.ID.String() != "" {
		j.ID = r.ID.String()
	}
	if r.FetchResult != "" {
		j.FetchURL = r.FetchResult
	}
	j.ETA = r.ETA

	switch r.Status {
	case statusSuccess:
		if len(r.Output) == 0 || r.Output[0] == "" {
			j.Err = ErrNoOutput
			return j.moveTo(StateFailed)
		}
		j.Output = r.Output
		return j.moveTo(StateSucceeded)
	case statusProcessing:
		if j.FetchURL == "" {
			j.Err = fmt.Errorf("%w: processing without a fetch url", ErrJobFailed)
			return j.moveTo(StateFailed)
		}
		return j.moveTo(StatePolling)
	default:
		j.Err = fmt.Errorf("%w: %s", ErrJobFailed, r.message())
		return j.moveTo(StateFailed)
	}
}
