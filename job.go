package xltransform

import (
	"context"
	"sync/atomic"
)

// Job is a run executing on its own goroutine.
type Job struct {
	id      string
	done    chan struct{}
	state   atomic.Int32
	outcome Outcome[string]
}

// Start begins a run in the background and returns immediately. The template
// is cloned before Start returns, so the caller may reuse it afterwards.
func (e *Engine) Start(ctx context.Context, inputPath, outputPath string, tmpl *Template) *Job {
	if tmpl != nil {
		tmpl = tmpl.Clone()
	}
	j := &Job{done: make(chan struct{})}
	r := e.newRun(func(s State) {
		j.state.Store(int32(s))
		e.state.Store(int32(s))
	})
	j.id = r.id

	go func() {
		defer close(j.done)
		j.outcome = r.execute(ctx, inputPath, outputPath, tmpl)
	}()
	return j
}

// ID returns the run id used in logs.
func (j *Job) ID() string {
	return j.id
}

// Done is closed when the run reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// State returns the current state of this run, unaffected by other runs on
// the same engine.
func (j *Job) State() State {
	return State(j.state.Load())
}

// Wait blocks until the run finishes or ctx is done. A ctx error only stops
// the wait; cancel the context passed to Start to stop the run itself.
func (j *Job) Wait(ctx context.Context) (Outcome[string], error) {
	select {
	case <-j.done:
		return j.outcome, nil
	case <-ctx.Done():
		return Outcome[string]{}, ctx.Err()
	}
}
