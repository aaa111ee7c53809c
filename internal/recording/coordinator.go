// Package recording tracks the Idle/Recording state of each session and
// hands finished captures to the media processor.
package recording

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/shehryarbajwa/agent-browser/internal/command"
	"github.com/shehryarbajwa/agent-browser/internal/media"
	"github.com/shehryarbajwa/agent-browser/internal/session"
	"github.com/shehryarbajwa/agent-browser/pkg/models"
)

// PostProcessor finalizes a saved recording
type PostProcessor interface {
	Recording(ctx context.Context, path string) media.Artifact
}

// Coordinator starts and stops recordings. State lives on the session and
// is only read or changed while holding the session's mutation right.
type Coordinator struct {
	registry    *session.Registry
	processor   PostProcessor
	artifactDir string
	log         zerolog.Logger
}

func NewCoordinator(registry *session.Registry, processor PostProcessor, artifactDir string, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		registry:    registry,
		processor:   processor,
		artifactDir: artifactDir,
		log:         log.With().Str("component", "recording").Logger(),
	}
}

// Start begins a recording. A session already recording gets the
// "Already recording" payload and nothing is dispatched. The state only
// changes once the engine accepts the command.
func (c *Coordinator) Start(ctx context.Context, name, label string) (models.Result, error) {
	var out models.Result

	err := c.registry.With(ctx, name, func(conn *session.Conn) error {
		if state, _ := conn.Recording(); state == models.RecordingActive {
			out = models.ErrorResult(models.MsgAlreadyRecording)
			return nil
		}

		path := media.ArtifactPath(c.artifactDir, name, label, "webm", c.registry.Now())
		res := conn.Dispatch(ctx, command.RecordingStart{Path: path})
		out = res.Payload()
		if !res.Success {
			return nil
		}

		conn.StartRecording(path)
		out["path"] = path
		out["recording"] = models.RecordingActive
		c.log.Info().Str("session", name).Str("path", path).Msg("Recording started")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Stop ends a recording. The session returns to idle whatever the engine
// replies; post-processing runs after the session is released and only
// if the engine saved the capture.
func (c *Coordinator) Stop(ctx context.Context, name string) (models.Result, error) {
	var (
		out   models.Result
		path  string
		saved bool
	)

	err := c.registry.With(ctx, name, func(conn *session.Conn) error {
		if state, _ := conn.Recording(); state != models.RecordingActive {
			out = models.ErrorResult(models.MsgNotRecording)
			return nil
		}

		res := conn.Dispatch(ctx, command.RecordingStop{})
		path = conn.StopRecording()
		out = res.Payload()
		out["recording"] = models.RecordingIdle
		saved = res.Success
		return nil
	})
	if err != nil {
		return nil, err
	}
	if path == "" {
		return out, nil
	}

	out["path"] = path
	if !saved {
		c.log.Warn().Str("session", name).Str("path", path).Msg("Engine failed to save recording")
		return out, nil
	}

	art := c.processor.Recording(ctx, path)
	out["path"] = art.Path
	out["transcoded"] = art.Transcoded
	if art.URL != "" {
		out["url"] = art.URL
	}
	c.log.Info().Str("session", name).Str("path", art.Path).Bool("transcoded", art.Transcoded).Msg("Recording saved")
	return out, nil
}
