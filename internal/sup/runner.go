package sup

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/whaleinit/whaleinit/internal/log"
	"github.com/whaleinit/whaleinit/internal/model"
)

// Runner launches and observes exactly one configured service.
type Runner struct {
	cfg       model.ServiceConfig
	escalator *Escalator
	logger    *slog.Logger
}

func NewRunner(cfg model.ServiceConfig, escalator *Escalator, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:       cfg,
		escalator: escalator,
		logger:    logger,
	}
}

// Run spawns the service with stdout and stderr redirected into pipes and
// blocks until the process has exited and both streams hit end-of-input.
// The exec path and args are used verbatim, no shell; the child inherits
// our environment. A spawn failure returns a model.LaunchError and is
// fatal to this service only.
//
// Plain os.Pipe pairs are used instead of exec.Cmd's StdoutPipe: Wait
// closes those behind the reader's back, while here the readers own the
// read ends and see EOF exactly when the last writer is gone.
func (r *Runner) Run(ctx context.Context) error {
	cmd := exec.Command(r.cfg.Exec, r.cfg.Args...)

	outR, outW, err := os.Pipe()
	if err != nil {
		return &model.LaunchError{Service: r.cfg.Title, Err: err}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return &model.LaunchError{Service: r.cfg.Title, Err: err}
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		for _, f := range []*os.File{outR, outW, errR, errW} {
			f.Close()
		}
		return &model.LaunchError{Service: r.cfg.Title, Err: err}
	}

	// the child holds the write ends now
	outW.Close()
	errW.Close()

	r.logger.InfoContext(ctx, "service started", "service", r.cfg.Title, "pid", cmd.Process.Pid)

	var g errgroup.Group
	g.Go(func() error {
		defer outR.Close()
		logLines(ctx, r.logger, outR, r.cfg.Title, "stdout")
		return nil
	})
	g.Go(func() error {
		defer errR.Close()
		logLines(ctx, r.logger, errR, r.cfg.Title, "stderr")
		return nil
	})
	g.Go(func() error {
		r.waitService(ctx, cmd)
		return nil
	})
	_ = g.Wait() // goroutines do not return an error
	return nil
}

// waitService blocks until the exit status has been claimed, by us or by
// the reaper, and triggers the shutdown escalation for essential services.
func (r *Runner) waitService(ctx context.Context, cmd *exec.Cmd) {
	err := cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		r.logger.InfoContext(ctx, "service exited", "service", r.cfg.Title, "code", 0)
	case errors.As(err, &exitErr):
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			r.logger.InfoContext(ctx, "service signaled", "service", r.cfg.Title, "signal", sigName(ws.Signal()))
		} else {
			r.logger.InfoContext(ctx, "service exited", "service", r.cfg.Title, "code", exitErr.ExitCode())
		}
	case errors.Is(err, unix.ECHILD):
		// the reaper claimed the status first, the service is gone either way
		r.logger.Log(ctx, log.LevelTrace, "no child process", "service", r.cfg.Title)
	default:
		r.logger.WarnContext(ctx, "failed to wait for service", "service", r.cfg.Title, "error", err)
	}

	if r.cfg.Essential {
		r.logger.InfoContext(ctx, "essential service exited", "service", r.cfg.Title)
		r.escalator.Trigger(ctx, unix.SIGTERM)
	}
}
