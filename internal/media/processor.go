// Package media post-processes captured artifacts. Transcoding and upload
// are best-effort: failures are logged and the local artifact is kept.
package media

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/shehryarbajwa/agent-browser/internal/storage"
)

const (
	screenshotPrefix = "screenshots/"
	recordingPrefix  = "recordings/"
)

// Artifact is the final local file and its public URL, if any
type Artifact struct {
	Path       string
	URL        string
	Transcoded bool
}

// Processor uploads screenshots and optionally converts recordings to GIF
type Processor struct {
	uploader   storage.Uploader
	transcoder Transcoder
	gifEnabled bool
	log        zerolog.Logger
}

// NewProcessor creates a processor. A nil uploader disables uploads.
func NewProcessor(uploader storage.Uploader, transcoder Transcoder, gifEnabled bool, log zerolog.Logger) *Processor {
	if uploader == nil {
		uploader = storage.Noop{}
	}
	if transcoder == nil {
		transcoder = FFmpeg{}
	}
	return &Processor{
		uploader:   uploader,
		transcoder: transcoder,
		gifEnabled: gifEnabled,
		log:        log.With().Str("component", "media").Logger(),
	}
}

// Screenshot uploads a PNG
func (p *Processor) Screenshot(ctx context.Context, path string) Artifact {
	return Artifact{Path: path, URL: p.upload(ctx, path, screenshotPrefix, "image/png")}
}

// Recording transcodes a WebM when enabled, then uploads whichever file
// survived.
func (p *Processor) Recording(ctx context.Context, path string) Artifact {
	art := Artifact{Path: path}

	if p.gifEnabled {
		gif := strings.TrimSuffix(path, filepath.Ext(path)) + ".gif"
		if err := p.transcoder.ToGIF(ctx, path, gif); err != nil {
			p.log.Warn().Err(err).Str("path", path).Msg("GIF conversion failed, keeping original recording")
		} else {
			art.Path = gif
			art.Transcoded = true
		}
	}

	contentType := "video/webm"
	if art.Transcoded {
		contentType = "image/gif"
	}
	art.URL = p.upload(ctx, art.Path, recordingPrefix, contentType)
	return art
}

func (p *Processor) upload(ctx context.Context, path, prefix, contentType string) string {
	key := prefix + filepath.Base(path)
	url, err := p.uploader.Store(ctx, path, key, contentType)
	if err != nil {
		p.log.Warn().Err(err).Str("key", key).Msg("Upload failed")
		return ""
	}
	return url
}
