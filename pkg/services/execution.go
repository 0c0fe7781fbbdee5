package services

import (
	"context"
	"sync"

	"github.com/slatedata/querykit/pkg/history"
)

// Execution is one foreground query in flight. At most one outcome is
// ever delivered: Cancel is terminal, so a response that lands after
// cancellation is dropped instead of reaching either callback.
type Execution struct {
	mu     sync.Mutex
	done   bool
	cancel context.CancelFunc

	onSuccess func(history.Run)
	onError   func(error)
}

// NewExecution creates an Execution delivering to the given callbacks.
// Either callback may be nil.
func NewExecution(onSuccess func(history.Run), onError func(error)) *Execution {
	return &Execution{
		onSuccess: onSuccess,
		onError:   onError,
	}
}

// Start launches fn off-thread. Calling Start more than once is a
// programming error; the second call is ignored once an outcome has
// been delivered or the execution was cancelled.
func (e *Execution) Start(ctx context.Context, fn func(ctx context.Context) (history.Run, error)) {
	runCtx, cancel := context.WithCancel(ctx)

	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		cancel()
		return
	}
	e.cancel = cancel
	e.mu.Unlock()

	go func() {
		run, err := fn(runCtx)

		e.mu.Lock()
		if e.done {
			e.mu.Unlock()
			return
		}
		e.done = true
		e.mu.Unlock()

		if err != nil {
			if e.onError != nil {
				e.onError(err)
			}
			return
		}
		if e.onSuccess != nil {
			e.onSuccess(run)
		}
	}()
}

// Cancel stops the execution. After Cancel returns, neither callback
// will fire, even if the transport later completes.
func (e *Execution) Cancel() {
	e.mu.Lock()
	if e.done {
		e.mu.Unlock()
		return
	}
	e.done = true
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
