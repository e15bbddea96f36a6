// Package queue bounds how many image jobs run against the provider at once.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"

	"luna/pkg/imagegen"
	"luna/pkg/utils"
)

var (
	ErrFull    = errors.New("image queue is full")
	ErrStopped = errors.New("image queue stopped")
)

type result struct {
	image *imagegen.Image
	err   error
}

type item struct {
	ctx    context.Context
	prompt string
	done   chan result
}

// Queue runs image jobs on a fixed number of workers. It implements
// imagegen.Generator, so callers do not know whether they are queued.
type Queue struct {
	gen     imagegen.Generator
	workers int
	items   chan *item
	stop    chan struct{}
	wg      sync.WaitGroup
	logger  *log.Logger

	// mu orders enqueues against Stop so no job lands after the drain.
	mu      sync.Mutex
	stopped bool
}

func New(gen imagegen.Generator, workers, size int, logger *log.Logger) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 0 {
		size = 0
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Queue{
		gen:     gen,
		workers: workers,
		items:   make(chan *item, size),
		stop:    make(chan struct{}),
		logger:  logger.WithPrefix("queue"),
	}
}

func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.processLoop(i)
	}
	q.logger.Info("Image queue started", "workers", q.workers, "size", cap(q.items))
}

// Stop ends the workers after their current job. Jobs still waiting fail
// with ErrStopped, and so does every later Generate.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.stop)
	q.mu.Unlock()

	q.wg.Wait()
	for {
		select {
		case it := <-q.items:
			it.done <- result{err: ErrStopped}
		default:
			q.logger.Info("Image queue stopped")
			return
		}
	}
}

// Generate enqueues prompt and waits for a worker to finish it. A full
// queue fails immediately instead of piling up requests.
func (q *Queue) Generate(ctx context.Context, prompt string) (*imagegen.Image, error) {
	it := &item{ctx: ctx, prompt: prompt, done: make(chan result, 1)}

	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil, ErrStopped
	}
	select {
	case q.items <- it:
	default:
		q.mu.Unlock()
		return nil, ErrFull
	}
	q.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-it.done:
		return r.image, r.err
	}
}

// Len returns the number of jobs waiting for a worker.
func (q *Queue) Len() int {
	return len(q.items)
}

func (q *Queue) processLoop(worker int) {
	defer q.wg.Done()
	for {
		// a stopped queue leaves waiting jobs to the drain in Stop
		select {
		case <-q.stop:
			return
		default:
		}
		select {
		case <-q.stop:
			return
		case it := <-q.items:
			q.processItem(worker, it)
		}
	}
}

func (q *Queue) processItem(worker int, it *item) {
	if err := it.ctx.Err(); err != nil {
		it.done <- result{err: err}
		return
	}

	q.logger.Debug("Processing image job", "worker", worker, "prompt", utils.LimitStr(it.prompt, 50))
	img, err := q.gen.Generate(it.ctx, it.prompt)
	if err != nil {
		q.logger.Warn("Image job failed", "worker", worker, "err", err)
	}
	it.done <- result{image: img, err: err}
}
