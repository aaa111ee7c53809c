// Package service ties the registry, the idle reaper and the engine together
// for start and shutdown.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/shehryarbajwa/agent-browser/internal/engine"
	"github.com/shehryarbajwa/agent-browser/internal/session"
)

type Service struct {
	registry *session.Registry
	reaper   *session.Reaper
	launcher engine.Launcher
	log      zerolog.Logger
}

func New(registry *session.Registry, reaper *session.Reaper, launcher engine.Launcher, log zerolog.Logger) *Service {
	return &Service{
		registry: registry,
		reaper:   reaper,
		launcher: launcher,
		log:      log.With().Str("component", "service").Logger(),
	}
}

// Start begins idle reaping
func (s *Service) Start(ctx context.Context) {
	s.reaper.Start(ctx)
	s.log.Info().Int("maxConcurrent", s.registry.MaxConcurrent()).Msg("Service started")
}

// Stop halts the reaper, drains every session and then releases the engine.
// Sessions are torn down even when ctx is already cancelled.
func (s *Service) Stop(ctx context.Context) error {
	s.reaper.Stop()
	drained := s.registry.DrainAll(context.WithoutCancel(ctx))

	var errs []error
	if c, ok := s.launcher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close engine: %w", err))
		}
	}

	s.log.Info().Int("drained", drained).Msg("Service stopped")
	return errors.Join(errs...)
}
