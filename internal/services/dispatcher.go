package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarthive/community-backend/internal/metrics"
)

// ErrDispatcherClosed is returned by Submit after Close
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// ErrQueueFull is returned when the task queue has no room
var ErrQueueFull = errors.New("dispatcher queue is full")

// Task is a side effect run after a state change has committed
type Task struct {
	Kind string
	Run  func(ctx context.Context) error
}

// Dispatcher runs detached side effects (broadcasts, emails) on a bounded worker pool.
// Tasks get their own context so a finished HTTP request never cancels them.
type Dispatcher struct {
	logger  *logrus.Logger
	tasks   chan Task
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts workers goroutines reading from a queue of the given size
func NewDispatcher(logger *logrus.Logger, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	d := &Dispatcher{
		logger:  logger,
		tasks:   make(chan Task, queueSize),
		timeout: timeout,
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}

	return d
}

// Submit enqueues a task without blocking
func (d *Dispatcher) Submit(kind string, run func(ctx context.Context) error) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.IncDispatchedTask(kind, "rejected")
		return ErrDispatcherClosed
	}

	select {
	case d.tasks <- Task{Kind: kind, Run: run}:
		return nil
	default:
		metrics.IncDispatchedTask(kind, "dropped")
		d.logger.WithField("kind", kind).Warn("Dispatcher queue full, task dropped")
		return ErrQueueFull
	}
}

// Go submits a task and logs instead of returning the error
func (d *Dispatcher) Go(kind string, run func(ctx context.Context) error) {
	if err := d.Submit(kind, run); err != nil && !errors.Is(err, ErrQueueFull) {
		d.logger.WithError(err).WithField("kind", kind).Warn("Failed to submit task")
	}
}

// Close stops accepting tasks and waits for queued ones to finish or ctx to expire
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
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
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for task := range d.tasks {
		d.run(task)
	}
}

func (d *Dispatcher) run(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			metrics.IncDispatchedTask(task.Kind, "panic")
			d.logger.WithFields(logrus.Fields{
				"kind":  task.Kind,
				"panic": r,
			}).Error("Dispatched task panicked")
		}
	}()

	start := time.Now()
	if err := task.Run(ctx); err != nil {
		metrics.IncDispatchedTask(task.Kind, "error")
		d.logger.WithError(err).WithFields(logrus.Fields{
			"kind":     task.Kind,
			"duration": time.Since(start),
		}).Warn("Dispatched task failed")
		return
	}

	metrics.IncDispatchedTask(task.Kind, "ok")
}
