// Package pipeline provides the single-consumer task queue that serializes
// every mutation of the ledger and taxonomy stores. Tasks execute strictly
// in submission order on one worker goroutine, so no two tasks ever touch
// the stores concurrently. A failing or panicking task is logged and
// recorded on a dead-letter list; the worker keeps running.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ledgercat/internal/logging"

	"github.com/google/uuid"
)

// Task is a unit of work executed by the pipeline. Side effects on the
// stores are the only observable outcome of a task.
type Task interface {
	// Name identifies the task kind for logging and dead-letter records.
	Name() string

	// Execute runs the task to completion.
	Execute(ctx context.Context) error
}

var (
	// ErrStopped is returned by Enqueue and Run after Shutdown.
	ErrStopped = errors.New("pipeline: stopped")

	// ErrQueueFull is returned when the submission queue is at capacity.
	ErrQueueFull = errors.New("pipeline: queue full")
)

// DeadLetter records a task whose execution failed.
type DeadLetter struct {
	ID   string    `json:"id"`
	Task string    `json:"task"`
	Err  string    `json:"error"`
	At   time.Time `json:"at"`
}

type submission struct {
	id   string
	task Task
	done chan error // nil for fire-and-forget submissions
}

// Pipeline is a single-consumer FIFO task queue.
type Pipeline struct {
	queue chan submission
	log   logging.Logger

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup

	deadMu sync.Mutex
	dead   []DeadLetter
}

// New creates a pipeline whose queue holds up to size pending tasks.
func New(size int, log logging.Logger) *Pipeline {
	if log == nil {
		log = logging.NewLogrusAdapter("info", "text")
	}
	return &Pipeline{
		queue: make(chan submission, size),
		log:   log,
	}
}

// Start launches the worker goroutine. The context is passed to every
// task's Execute.
func (p *Pipeline) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.log.Info("Pipeline worker running")
		for sub := range p.queue {
			p.execute(ctx, sub)
		}
		p.log.Info("Pipeline worker done")
	}()
}

// Enqueue appends a task to the queue without blocking. It returns the
// submission id, ErrStopped after shutdown, or ErrQueueFull when the
// queue is at capacity.
func (p *Pipeline) Enqueue(task Task) (string, error) {
	return p.submit(submission{id: uuid.New().String(), task: task})
}

// Run enqueues a task and blocks until the worker has executed it,
// returning the task's error. If ctx expires first, the task still runs
// in its queue position; only the wait is abandoned.
func (p *Pipeline) Run(ctx context.Context, task Task) error {
	sub := submission{
		id:   uuid.New().String(),
		task: task,
		done: make(chan error, 1),
	}
	if _, err := p.submit(sub); err != nil {
		return err
	}

	select {
	case err := <-sub.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) submit(sub submission) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return "", ErrStopped
	}

	select {
	case p.queue <- sub:
		p.log.WithFields(
			logging.F("task", sub.task.Name()),
			logging.F("id", sub.id),
		).Debug("Task enqueued")
		return sub.id, nil
	default:
		return "", ErrQueueFull
	}
}

// execute runs one task inside a recovery boundary. A failure never stops
// the worker: it is logged, dead-lettered, and reported to a synchronous
// caller if there is one.
func (p *Pipeline) execute(ctx context.Context, sub submission) {
	log := p.log.WithFields(
		logging.F("task", sub.task.Name()),
		logging.F("id", sub.id),
	)
	log.Debug("Task started")

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panic: %v", r)
			}
		}()
		return sub.task.Execute(ctx)
	}()

	if err != nil {
		log.WithError(err).Error("Task failed")
		p.deadMu.Lock()
		p.dead = append(p.dead, DeadLetter{
			ID:   sub.id,
			Task: sub.task.Name(),
			Err:  err.Error(),
			At:   time.Now(),
		})
		p.deadMu.Unlock()
	} else {
		log.Debug("Task finished")
	}

	if sub.done != nil {
		sub.done <- err
	}
}

// DeadLetters returns a copy of the failed-task records.
func (p *Pipeline) DeadLetters() []DeadLetter {
	p.deadMu.Lock()
	defer p.deadMu.Unlock()
	return append([]DeadLetter(nil), p.dead...)
}

// Shutdown stops accepting new tasks, lets the worker drain everything
// already queued, and waits for it to exit. It returns ctx's error if the
// drain does not finish in time.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("Pipeline shut down")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
