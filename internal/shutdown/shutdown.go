// Package shutdown holds the process-wide stop flag of the capture loop.
package shutdown

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"codeberg.org/mutker/daviscap/internal/logger"
)

// Signal flips from false to true once and never back. It is written by
// signal and disconnect handlers and read by the capture loop.
type Signal struct {
	flag atomic.Bool
}

func New() *Signal {
	return &Signal{}
}

// Trigger sets the flag. Calling it again has no further effect.
func (s *Signal) Trigger() {
	s.flag.Store(true)
}

func (s *Signal) Triggered() bool {
	return s.flag.Load()
}

// Notify triggers s on SIGINT or SIGTERM. The returned function stops
// listening.
func Notify(s *Signal) (stop func()) {
	sigs := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigs:
			logger.Info().Str("signal", sig.String()).Msg("Received termination signal.")
			s.Trigger()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
