package sup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/whaleinit/whaleinit/internal/model"
)

// BroadcastFunc delivers a signal to every process in the namespace.
type BroadcastFunc func(sig syscall.Signal) error

// Broadcast sends sig to all processes the kernel lets us signal. For
// PID 1 inside its own namespace that is every descendant; kill(-1) never
// targets the calling process itself.
func Broadcast(sig syscall.Signal) error {
	return unix.Kill(-1, sig)
}

// InstallForwarding registers process-wide handlers for the given signals
// and starts a goroutine that re-broadcasts each received signal to the
// whole namespace. It must run before any child is spawned, since children
// may not exist without the forwarding contract in place. The returned
// stop function unregisters the handlers and ends the goroutine.
func InstallForwarding(ctx context.Context, logger *slog.Logger, broadcast BroadcastFunc, sigs ...syscall.Signal) (func(), error) {
	notify := make([]os.Signal, 0, len(sigs))
	for _, sig := range sigs {
		if err := catchable(sig); err != nil {
			return nil, &model.SignalInstallError{Signal: sig, Err: err}
		}
		notify = append(notify, sig)
	}

	ch := make(chan os.Signal, 16)
	signal.Notify(ch, notify...)

	go func() {
		for received := range ch {
			sig, ok := received.(syscall.Signal)
			if !ok {
				logger.WarnContext(ctx, "invalid signal", "signal", received)
				continue
			}
			if err := broadcast(sig); err != nil {
				logger.ErrorContext(ctx, "failed to send signal", "signal", sigName(sig), "error", err)
				continue
			}
			logger.InfoContext(ctx, "signal sent", "signal", sigName(sig))
		}
	}()

	stop := func() {
		// Stop guarantees no further sends on ch, so closing it is safe
		// and ends the forwarding goroutine.
		signal.Stop(ch)
		close(ch)
	}
	return stop, nil
}

// catchable rejects signals no handler can be installed for, the classic
// sigaction failure mode of an init.
func catchable(sig syscall.Signal) error {
	switch sig {
	case unix.SIGKILL, unix.SIGSTOP:
		return fmt.Errorf("signal %s cannot be caught", sigName(sig))
	}
	if sig <= 0 || unix.SignalName(sig) == "" {
		return fmt.Errorf("invalid signal number %d", sig)
	}
	return nil
}

func sigName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return sig.String()
}
