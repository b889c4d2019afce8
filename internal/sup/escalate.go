package sup

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// escalationSteps is the fixed shutdown order for the whole namespace.
var escalationSteps = []syscall.Signal{unix.SIGTERM, unix.SIGINT, unix.SIGKILL}

// Escalator drives the best-effort, increasingly forceful termination of
// every process in the namespace. The cursor over escalationSteps is
// shared for the process lifetime and only moves forward: a second trigger
// resumes from wherever an earlier one got to and becomes a no-op once any
// broadcast has succeeded. Once shutdown begins it cannot be cancelled.
type Escalator struct {
	logger    *slog.Logger
	broadcast BroadcastFunc
	backoff   time.Duration
	sleep     func(time.Duration)

	mu     sync.Mutex
	cursor int
	done   bool
}

func NewEscalator(logger *slog.Logger, broadcast BroadcastFunc) *Escalator {
	return &Escalator{
		logger:    logger,
		broadcast: broadcast,
		backoff:   3 * time.Second,
		sleep:     time.Sleep,
	}
}

// WithBackoff overrides the retry backoff. This method exists for unit
// testing only.
func (e *Escalator) WithBackoff(d time.Duration) *Escalator {
	e.backoff = d
	return e
}

// Trigger broadcasts initial (normally SIGTERM) to the namespace. On
// delivery failure it sleeps the backoff and advances to the next signal
// in escalationSteps until one send succeeds or the list is exhausted —
// after SIGKILL has been attempted there is no further recourse. The mutex
// is held for the whole invocation so concurrent triggers cannot
// interleave escalation steps.
func (e *Escalator) Trigger(ctx context.Context, initial syscall.Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return
	}

	step := slices.Index(escalationSteps, initial)
	if step < 0 {
		// not an escalation step: send it best-effort, on failure fall
		// back to the regular sequence
		e.logger.InfoContext(ctx, "sending signal to all processes", "signal", sigName(initial))
		err := e.broadcast(initial)
		if err == nil {
			e.done = true
			return
		}
		e.logger.ErrorContext(ctx, "failed to send signal", "signal", sigName(initial), "error", err)
		e.sleep(e.backoff)
		step = 0
	}
	if step < e.cursor {
		step = e.cursor
	}

	for ; step < len(escalationSteps); step++ {
		e.cursor = step
		sig := escalationSteps[step]
		e.logger.InfoContext(ctx, "sending signal to all processes", "signal", sigName(sig))
		err := e.broadcast(sig)
		if err == nil {
			e.done = true
			return
		}
		e.logger.ErrorContext(ctx, "failed to send signal", "signal", sigName(sig), "error", err)
		e.sleep(e.backoff)
	}
	e.cursor = len(escalationSteps)
}
