package sup

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sys/unix"

	"github.com/whaleinit/whaleinit/internal/log"
)

// WaitFunc blocks until any descendant changes state and fills in its wait
// status. It has the contract of wait4(-1, ...).
type WaitFunc func(ws *unix.WaitStatus) (pid int, err error)

func waitAnyChild(ws *unix.WaitStatus) (int, error) {
	// WUNTRACED/WCONTINUED so stop and resume are observable too
	return unix.Wait4(-1, ws, unix.WUNTRACED|unix.WCONTINUED, nil)
}

// Reaper claims the exit status of any descendant, including processes
// re-parented to us after their own parent died. PID 1 must do this or
// zombies accumulate for the life of the namespace.
type Reaper struct {
	logger *slog.Logger
	wait   WaitFunc
}

func NewReaper(logger *slog.Logger) *Reaper {
	return &Reaper{
		logger: logger,
		wait:   waitAnyChild,
	}
}

// WithWait replaces the wait primitive. This method exists for unit
// testing only.
func (r *Reaper) WithWait(fn WaitFunc) *Reaper {
	r.wait = fn
	return r
}

// Run loops on "wait for any child" and logs one event per state change.
// A Runner's direct wait may claim a status first; the resulting ECHILD
// here means no children currently await reaping and ends the loop. Any
// other wait error is logged and the loop continues — a transient error
// must not stop reaping for the rest of the process's life.
func (r *Reaper) Run(ctx context.Context) {
	for {
		var ws unix.WaitStatus
		pid, err := r.wait(&ws)
		switch {
		case errors.Is(err, unix.ECHILD):
			r.logger.Log(ctx, log.LevelTrace, "no child process")
			return
		case errors.Is(err, unix.EINTR):
			continue
		case err != nil:
			r.logger.WarnContext(ctx, "failed to wait for child process", "error", err)
			continue
		}

		switch {
		case ws.Exited():
			r.logger.InfoContext(ctx, "child process exited", "pid", pid, "code", ws.ExitStatus())
		case ws.Signaled():
			r.logger.InfoContext(ctx, "child process signaled", "pid", pid, "signal", sigName(ws.Signal()))
		case ws.Stopped():
			r.logger.InfoContext(ctx, "child process stopped", "pid", pid, "signal", sigName(ws.StopSignal()))
		case ws.Continued():
			r.logger.InfoContext(ctx, "child process continued", "pid", pid)
		}
	}
}
