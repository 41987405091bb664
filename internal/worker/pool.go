// Package worker provides bounded concurrent execution.
//
// Reconciliation is embarrassingly parallel across source servers: each
// server touches only its own launch configuration and template. The pool
// caps the number of in-flight servers so a large fleet cannot exhaust API
// rate limits or local resources.
package worker

import (
	"context"
	"runtime"
	"sync"

	"github.com/protera/launchsync/internal/logger"
)

// Pool manages a bounded set of concurrent workers using a semaphore.
type Pool struct {
	concurrency int
	sem         chan struct{}
}

// NewPool creates a pool with the given concurrency limit. A limit <= 0
// defaults to the number of CPUs.
func NewPool(concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Pool{
		concurrency: concurrency,
		sem:         make(chan struct{}, concurrency),
	}
}

// Concurrency returns the maximum number of concurrent workers.
func (p *Pool) Concurrency() int {
	return p.concurrency
}

// Job is a unit of work with typed input and output.
type Job[T any, R any] struct {
	Input   T
	Execute func(context.Context, T) (R, error)
}

// Result wraps a job's output with its error and original position.
type Result[R any] struct {
	Value R
	Err   error
	Index int
}

// Run executes jobs with bounded concurrency. Results are returned in the
// same order as the input jobs regardless of completion order.
func Run[T, R any](ctx context.Context, pool *Pool, jobs []Job[T, R]) []Result[R] {
	if len(jobs) == 0 {
		return nil
	}

	logger.Debug("starting worker pool",
		"job_count", len(jobs),
		"concurrency", pool.concurrency)

	results := make([]Result[R], len(jobs))
	var wg sync.WaitGroup

	for i, job := range jobs {
		wg.Add(1)
		go func(idx int, j Job[T, R]) {
			defer wg.Done()

			select {
			case pool.sem <- struct{}{}:
				defer func() { <-pool.sem }()
			case <-ctx.Done():
				results[idx] = Result[R]{Err: ctx.Err(), Index: idx}
				return
			}

			// The context may have expired while waiting for a slot.
			select {
			case <-ctx.Done():
				results[idx] = Result[R]{Err: ctx.Err(), Index: idx}
				return
			default:
			}

			value, err := j.Execute(ctx, j.Input)
			results[idx] = Result[R]{Value: value, Err: err, Index: idx}
		}(i, job)
	}

	wg.Wait()

	logger.Debug("worker pool finished", "job_count", len(jobs))

	return results
}

// RunFunc applies one function to every input with bounded concurrency.
func RunFunc[T, R any](
	ctx context.Context,
	pool *Pool,
	inputs []T,
	fn func(context.Context, T) (R, error),
) []Result[R] {
	jobs := make([]Job[T, R], len(inputs))
	for i, input := range inputs {
		jobs[i] = Job[T, R]{Input: input, Execute: fn}
	}
	return Run(ctx, pool, jobs)
}
