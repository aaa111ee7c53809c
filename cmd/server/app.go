package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/shehryarbajwa/agent-browser/internal/browser"
	"github.com/shehryarbajwa/agent-browser/internal/config"
	"github.com/shehryarbajwa/agent-browser/internal/engine"
	"github.com/shehryarbajwa/agent-browser/internal/engine/chromium"
	"github.com/shehryarbajwa/agent-browser/internal/engine/daemon"
	"github.com/shehryarbajwa/agent-browser/internal/media"
	"github.com/shehryarbajwa/agent-browser/internal/recording"
	"github.com/shehryarbajwa/agent-browser/internal/service"
	"github.com/shehryarbajwa/agent-browser/internal/session"
	"github.com/shehryarbajwa/agent-browser/internal/storage"
	"github.com/shehryarbajwa/agent-browser/internal/tools"
)

const imagePullTimeout = 5 * time.Minute

// app is the wired object graph shared by both transports
type app struct {
	registry *session.Registry
	service  *service.Service
	router   *tools.Router
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	launcher, err := newLauncher(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	registry := session.NewRegistry(launcher, session.Options{
		MaxConcurrent: cfg.MaxConcurrent,
		IdleTimeout:   cfg.IdleTimeout(),
		Headless:      cfg.Headless,
		Viewport:      engine.Viewport{Width: cfg.Viewport.Width, Height: cfg.Viewport.Height},
	}, log)
	reaper := session.NewReaper(registry, cfg.ReapInterval(), log)

	processor := media.NewProcessor(
		storage.FromEnv(storageOptions(cfg.Storage), log),
		media.FFmpeg{Path: cfg.FFmpegPath},
		cfg.GIFEnabled,
		log,
	)
	recorder := recording.NewCoordinator(registry, processor, cfg.ArtifactDir, log)

	return &app{
		registry: registry,
		service:  service.New(registry, reaper, launcher, log),
		router:   tools.NewRouter(registry, recorder, processor, cfg.ArtifactDir, log),
	}, nil
}

func newLauncher(ctx context.Context, cfg *config.Config, log zerolog.Logger) (engine.Launcher, error) {
	switch cfg.Engine {
	case config.EnginePlaywright:
		return chromium.NewLauncher(cfg.InstallBrowsers, log), nil

	case config.EngineDocker:
		pool, err := browser.NewPool(cfg.DockerImage, log)
		if err != nil {
			return nil, err
		}

		pullCtx, cancel := context.WithTimeout(ctx, imagePullTimeout)
		defer cancel()
		log.Info().Msg("Ensuring browser image is available")
		if err := pool.EnsureImage(pullCtx); err != nil {
			_ = pool.Close()
			return nil, fmt.Errorf("failed to ensure image: %w", err)
		}
		return browser.NewLauncher(pool, chromium.NewLauncher(cfg.InstallBrowsers, log), log), nil

	case config.EngineDaemon:
		return daemon.NewLauncher(daemon.Config{Command: cfg.DaemonCommand}, log), nil

	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

func storageOptions(s *config.Storage) *storage.Options {
	if s == nil {
		return nil
	}
	return &storage.Options{
		AccountID:    s.AccountID,
		Bucket:       s.Bucket,
		PublicDomain: s.PublicDomain,
	}
}
