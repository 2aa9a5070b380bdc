package transcriber

import (
	"context"
	"sync"
)

type Result struct {
	Text string
}

// Job is a one-shot transcription running in the background.
type Job struct {
	cancel context.CancelFunc
	done   chan struct{}

	once   sync.Once
	result Result
	err    error
}

// NewJob runs fn on its own goroutine with a cancellable child of ctx.
func NewJob(ctx context.Context, fn func(ctx context.Context) (Result, error)) *Job {
	ctx, cancel := context.WithCancel(ctx)
	j := &Job{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer cancel()
		res, err := fn(ctx)
		j.finish(res, err)
	}()
	return j
}

func (j *Job) finish(res Result, err error) {
	j.once.Do(func() {
		j.result, j.err = res, err
		close(j.done)
	})
}

// Cancel aborts the transcription. Wait then returns context.Canceled.
func (j *Job) Cancel() {
	j.cancel()
}

func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or ctx is done. Leaving early does not cancel the job.
func (j *Job) Wait(ctx context.Context) (Result, error) {
	select {
	case <-j.done:
		return j.result, j.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
