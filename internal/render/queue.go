package render

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("render queue closed")

// Job is a unit of rendering work.
type Job func(ctx context.Context) error

type request struct {
	ctx    context.Context
	job    Job
	result chan error
}

// Queue runs jobs strictly one at a time in FIFO order.
type Queue struct {
	jobs      chan request
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewQueue starts a queue with its worker goroutine.
func NewQueue() *Queue {
	q := &Queue{
		jobs: make(chan request, 64),
		done: make(chan struct{}),
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case req := <-q.jobs:
			// a submitter that gave up no longer needs the result
			if err := req.ctx.Err(); err != nil {
				req.result <- err
				continue
			}
			req.result <- req.job(req.ctx)
		case <-q.done:
			return
		}
	}
}

// Submit enqueues job and blocks until it has run, returning its error.
//
// If ctx ends first Submit returns ctx.Err(); a job that has not started by
// then is skipped.
func (q *Queue) Submit(ctx context.Context, job Job) error {
	req := request{ctx: ctx, job: job, result: make(chan error, 1)}
	select {
	case <-q.done:
		return ErrClosed
	default:
	}

	select {
	case q.jobs <- req:
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		return err
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the worker after the running job, if any, has finished.
// Jobs still waiting are dropped and their submitters get ErrClosed.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
	q.wg.Wait()
}
