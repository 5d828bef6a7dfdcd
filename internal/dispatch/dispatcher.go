package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/examstack/exam-engine/internal/utils"
)

// Job is one unit of best-effort background work. Run errors are terminal
// at the dispatcher: logged, never retried, never propagated.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Dispatcher executes jobs on supervised workers
type Dispatcher interface {
	// Enqueue hands a job to the worker pool. Returns false when the
	// dispatcher is stopped or its queue is full; the job is then dropped
	// and logged, never run inline on the caller.
	Enqueue(job Job) bool
	// Shutdown stops intake and waits for in-flight jobs up to the context
	// deadline.
	Shutdown(ctx context.Context) error
}

type dispatcher struct {
	jobs       chan Job
	logger     utils.Logger
	jobTimeout time.Duration

	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// Options configures the dispatcher
type Options struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// NewDispatcher starts the worker pool immediately
func NewDispatcher(opts Options, logger utils.Logger) Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 30 * time.Second
	}

	d := &dispatcher{
		jobs:       make(chan Job, opts.QueueSize),
		logger:     logger,
		jobTimeout: opts.JobTimeout,
	}

	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	return d
}

func (d *dispatcher) Enqueue(job Job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		d.logger.Warn("Dispatcher stopped, dropping job", "job", job.Name)
		return false
	}

	select {
	case d.jobs <- job:
		return true
	default:
		d.logger.Warn("Dispatcher queue full, dropping job", "job", job.Name)
		return false
	}
}

func (d *dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.jobs)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
}

func (d *dispatcher) worker(id int) {
	defer d.wg.Done()
	for job := range d.jobs {
		d.runJob(id, job)
	}
}

// runJob gives every job its own deadline and error boundary. A panicking
// job must not take down the worker or reach the request path that
// enqueued it.
func (d *dispatcher) runJob(workerID int, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Background job panicked",
				"job", job.Name,
				"worker", workerID,
				"panic", r)
		}
	}()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		d.logger.Error("Background job failed",
			"job", job.Name,
			"worker", workerID,
			"duration", time.Since(start).String(),
			"error", err)
		return
	}

	d.logger.Debug("Background job finished",
		"job", job.Name,
		"worker", workerID,
		"duration", time.Since(start).String())
}
