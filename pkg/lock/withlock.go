package lock

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ExitInterrupted is the status used when a signal ends a locked operation.
const ExitInterrupted = 130

// WithLock acquires the lock, runs fn and releases the lock on every path:
// normal return, error, panic (re-raised after release) and SIGINT/SIGTERM
// (the process exits after releasing).
func (m *Manager) WithLock(ctx context.Context, req Request, fn func(*Guard) error) (err error) {
	g, err := m.Acquire(ctx, req)
	if err != nil {
		return err
	}

	stop := m.releaseOnSignal(g)
	defer stop()

	defer func() {
		if r := recover(); r != nil {
			if rerr := g.Release(); rerr != nil {
				m.logger.Error().Err(rerr).Msg("Cannot release lock after panic")
			}
			panic(r)
		}
		if rerr := g.Release(); rerr != nil && err == nil {
			err = rerr
		}
	}()

	return fn(g)
}

// releaseOnSignal releases g and exits when an interrupt arrives before the
// returned stop function is called.
func (m *Manager) releaseOnSignal(g *Guard) (stop func()) {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			m.logger.Warn().Str("signal", sig.String()).Msg("Interrupted, releasing state lock")
			if err := g.Release(); err != nil {
				m.logger.Error().Err(err).Msg("Cannot release lock on interrupt")
			}
			m.exit(ExitInterrupted)
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
