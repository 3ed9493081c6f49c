// Package worker provides a generic worker pool for concurrent task execution.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrBackpressure is returned when a job cannot be enqueued because the
// queue is full.
var ErrBackpressure = errors.New("worker: job queue full")

// DropPolicy controls what happens when the job queue is full.
type DropPolicy int

const (
	// DropPolicyBlock blocks Submit until queue space is available.
	DropPolicyBlock DropPolicy = iota

	// DropPolicyNewest drops the incoming job and returns ErrBackpressure.
	DropPolicyNewest
)

// Job represents a unit of work to be executed by a worker.
type Job struct {
	// ID is an optional identifier for the job (useful for logging/debugging)
	ID string
	// Execute is the function to run. It receives a context and returns a result and error.
	Execute func(ctx context.Context) (interface{}, error)
}

// Result represents the outcome of a job execution.
type Result struct {
	// JobID is the ID of the job that produced this result
	JobID string
	// Value is the result of the job execution
	Value interface{}
	// Err is the error from job execution (nil if successful)
	Err error
}

// PoolConfig holds worker pool configuration.
type PoolConfig struct {
	// Workers is the number of concurrent workers (defaults to 1)
	Workers int
	// QueueSize is the job queue buffer size (0 for unbuffered)
	QueueSize int
	// DropPolicy controls backpressure behavior (defaults to DropPolicyBlock)
	DropPolicy DropPolicy
}

// PoolStats holds cumulative pool counters.
type PoolStats struct {
	JobsSubmitted int64
	JobsCompleted int64
	JobsDropped   int64
}

// Pool is a worker pool that processes jobs concurrently.
// It maintains a fixed number of worker goroutines that pull jobs from a queue.
type Pool struct {
	workers    int
	dropPolicy DropPolicy
	jobQueue   chan Job
	results    chan Result
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc

	jobsSubmitted int64
	jobsCompleted int64
	jobsDropped   int64
}

// NewPool creates a pool with the given worker count and queue size and
// the default blocking drop policy.
func NewPool(ctx context.Context, workers int, queueSize int) *Pool {
	return NewPoolWithConfig(ctx, PoolConfig{
		Workers:   workers,
		QueueSize: queueSize,
	})
}

// NewPoolWithConfig creates a new worker pool. The pool starts immediately
// and workers begin waiting for jobs.
func NewPoolWithConfig(ctx context.Context, cfg PoolConfig) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}

	poolCtx, cancel := context.WithCancel(ctx)

	p := &Pool{
		workers:    cfg.Workers,
		dropPolicy: cfg.DropPolicy,
		jobQueue:   make(chan Job, cfg.QueueSize),
		results:    make(chan Result, cfg.QueueSize),
		ctx:        poolCtx,
		cancel:     cancel,
	}

	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	return p
}

// worker is the main worker goroutine loop.
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job := <-p.jobQueue:
			value, err := job.Execute(p.ctx)
			atomic.AddInt64(&p.jobsCompleted, 1)
			// Send result (non-blocking; dropped if nobody is consuming)
			select {
			case p.results <- Result{JobID: job.ID, Value: value, Err: err}:
			default:
			}
		}
	}
}

// Submit adds a job to the pool's queue. With DropPolicyBlock it blocks
// until space is available or the pool context is cancelled. With
// DropPolicyNewest a full queue drops the job and returns ErrBackpressure.
func (p *Pool) Submit(job Job) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}

	if p.dropPolicy == DropPolicyNewest {
		return p.TrySubmit(job)
	}

	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.jobQueue <- job:
		atomic.AddInt64(&p.jobsSubmitted, 1)
		return nil
	}
}

// TrySubmit adds a job without blocking. Returns ErrBackpressure if the
// queue is full.
func (p *Pool) TrySubmit(job Job) error {
	if err := p.ctx.Err(); err != nil {
		return err
	}

	select {
	case p.jobQueue <- job:
		atomic.AddInt64(&p.jobsSubmitted, 1)
		return nil
	default:
		atomic.AddInt64(&p.jobsDropped, 1)
		return ErrBackpressure
	}
}

// SubmitAndWait submits multiple jobs and waits for all results.
// Returns results in the order they complete (not submission order).
func (p *Pool) SubmitAndWait(jobs []Job) []Result {
	submitted := 0
	for _, job := range jobs {
		if err := p.Submit(job); err != nil {
			// Context cancelled or backpressure, collect what we can
			continue
		}
		submitted++
	}

	results := make([]Result, 0, submitted)
	for i := 0; i < submitted; i++ {
		select {
		case <-p.ctx.Done():
			return results
		case result := <-p.results:
			results = append(results, result)
		}
	}

	return results
}

// Results returns the results channel for consuming job outcomes.
func (p *Pool) Results() <-chan Result {
	return p.results
}

// Close gracefully shuts down the pool. It stops accepting new jobs and
// waits for in-flight jobs to finish. Queued jobs that no worker has
// picked up yet are discarded.
func (p *Pool) Close() {
	p.cancel()
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int {
	return p.workers
}

// DropPolicy returns the pool's backpressure policy.
func (p *Pool) DropPolicy() DropPolicy {
	return p.dropPolicy
}

// QueueLen returns the current number of jobs waiting in the queue.
func (p *Pool) QueueLen() int {
	return len(p.jobQueue)
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() PoolStats {
	return PoolStats{
		JobsSubmitted: atomic.LoadInt64(&p.jobsSubmitted),
		JobsCompleted: atomic.LoadInt64(&p.jobsCompleted),
		JobsDropped:   atomic.LoadInt64(&p.jobsDropped),
	}
}
