package worker

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrQueueFull is returned by Submit when every queue slot is taken.
	ErrQueueFull = errors.New("worker queue is full")
	// ErrPoolStopped is returned by Submit after Stop has been called.
	ErrPoolStopped = errors.New("worker pool stopped")
)

// Job is a unit of background work.
type Job func()

// Pool runs submitted jobs on a fixed set of goroutines fed by a bounded queue.
// Submit never blocks the caller.
type Pool struct {
	jobs    chan Job
	onPanic func(interface{})

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewPool starts workers goroutines draining a queue of queueSize jobs.
// onPanic, when set, receives the value of any panicking job.
func NewPool(workers, queueSize int, onPanic func(interface{})) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &Pool{
		jobs:    make(chan Job, queueSize),
		onPanic: onPanic,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.execute(job)
	}
}

func (p *Pool) execute(job Job) {
	defer func() {
		if r := recover(); r != nil && p.onPanic != nil {
			p.onPanic(r)
		}
	}()
	job()
}

// Submit enqueues job without waiting for a free slot.
func (p *Pool) Submit(job Job) error {
	if job == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop rejects new jobs and waits for queued ones to finish or ctx to expire.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
