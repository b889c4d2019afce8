package sup

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/whaleinit/whaleinit/internal/model"
)

// Supervisor is the init entry point. Given the final service list it
// installs the forwarding handlers, starts one Runner per service, starts
// the zombie reaper and blocks until every Runner has completed.
type Supervisor struct {
	services  []model.ServiceConfig
	logger    *slog.Logger
	broadcast BroadcastFunc
	escalator *Escalator
	reaper    *Reaper
}

func New(logger *slog.Logger, services []model.ServiceConfig) *Supervisor {
	return &Supervisor{
		services:  services,
		logger:    logger,
		broadcast: Broadcast,
		escalator: NewEscalator(logger, Broadcast),
		reaper:    NewReaper(logger),
	}
}

// WithBroadcast replaces the signal delivery primitive used by the
// forwarding handlers and the escalator. This method exists for unit
// testing only.
func (s *Supervisor) WithBroadcast(fn BroadcastFunc) *Supervisor {
	s.broadcast = fn
	s.escalator.broadcast = fn
	return s
}

// WithReaper replaces the zombie reaper. This method exists for unit
// testing only.
func (s *Supervisor) WithReaper(r *Reaper) *Supervisor {
	s.reaper = r
	return s
}

// Run returns normally once every service has exited and been fully
// handled. Failures local to one service never abort the others; only a
// failure to install the forwarding handlers is returned, because without
// them the forwarding contract cannot be honored.
func (s *Supervisor) Run(ctx context.Context) error {
	stop, err := InstallForwarding(ctx, s.logger, s.broadcast, unix.SIGINT, unix.SIGTERM)
	if err != nil {
		return err
	}
	defer stop()

	var wg sync.WaitGroup
	for _, svc := range s.services {
		wg.Go(func() {
			runner := NewRunner(svc, s.escalator, s.logger)
			if err := runner.Run(ctx); err != nil {
				s.logger.ErrorContext(ctx, "failed to handle service", "service", svc.Title, "error", err)
			}
		})
	}

	go s.reaper.Run(ctx)

	wg.Wait()
	return nil
}
