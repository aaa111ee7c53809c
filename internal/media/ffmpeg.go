package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// gifFilter scales to 10fps at 800px wide and builds a per-clip palette
const gifFilter = "fps=10,scale=800:-1:flags=lanczos,split[s0][s1];[s0]palettegen[p];[s1][p]paletteuse"

// Transcoder converts a captured video to a GIF
type Transcoder interface {
	ToGIF(ctx context.Context, input, output string) error
}

// FFmpeg runs the ffmpeg binary
type FFmpeg struct {
	Path string
}

func (f FFmpeg) binary() string {
	if f.Path == "" {
		return "ffmpeg"
	}
	return f.Path
}

func gifArgs(input, output string) []string {
	return []string{"-y", "-i", input, "-vf", gifFilter, "-loop", "0", output}
}

// ToGIF implements Transcoder. A non-zero exit is returned as an error
// carrying the tail of ffmpeg's stderr.
func (f FFmpeg) ToGIF(ctx context.Context, input, output string) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.binary(), gifArgs(input, output)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg failed: %w: %s", err, tail(stderr.String(), 400))
	}
	return nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
