// Package worker runs accepted webhook events in the background with a fixed
// number of workers and a bounded queue.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrQueueFull = errors.New("worker queue is full")
	ErrClosed    = errors.New("worker pool is closed")
)

const (
	DefaultWorkers   = 4
	DefaultQueueSize = 64
)

// Job gets a context derived from the pool, never from the request that submitted it.
type Job func(ctx context.Context)

type Pool struct {
	jobs       chan Job
	group      *errgroup.Group
	base       context.Context
	cancel     context.CancelFunc
	jobTimeout time.Duration
	logger     *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// New starts workers goroutines. jobTimeout of zero means no per-job deadline.
func New(workers, queueSize int, jobTimeout time.Duration, logger *zap.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize < 0 {
		queueSize = DefaultQueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base, cancel := context.WithCancel(context.Background())
	p := &Pool{
		jobs:       make(chan Job, queueSize),
		group:      &errgroup.Group{},
		base:       base,
		cancel:     cancel,
		jobTimeout: jobTimeout,
		logger:     logger.With(zap.String("component", "worker")),
	}
	for i := 0; i < workers; i++ {
		p.group.Go(func() error {
			for job := range p.jobs {
				if p.base.Err() != nil {
					p.logger.Warn("queued job dropped, pool cancelled")
					continue
				}
				p.run(job)
			}
			return nil
		})
	}
	return p
}

// Submit enqueues job without blocking.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Depth is the number of queued jobs not yet picked up.
func (p *Pool) Depth() int { return len(p.jobs) }

func (p *Pool) Capacity() int { return cap(p.jobs) }

// Shutdown stops accepting jobs and waits for queued and running ones. When ctx
// ends first, running jobs are cancelled, queued ones are dropped without
// running, and ctx's error is returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = p.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pool) run(job Job) {
	ctx := p.base
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("job panicked", zap.Any("panic", r))
		}
	}()
	job(ctx)
}
