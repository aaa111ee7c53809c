package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stored struct {
	path, key, contentType string
}

type fakeUploader struct {
	mu    sync.Mutex
	calls []stored
	url   string
	err   error
}

func (u *fakeUploader) Store(_ context.Context, path, key, contentType string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.calls = append(u.calls, stored{path, key, contentType})
	return u.url, u.err
}

type fakeTranscoder struct {
	err   error
	calls int
}

func (f *fakeTranscoder) ToGIF(_ context.Context, input, output string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(output, []byte("GIF89a"), 0644)
}

func TestProcessor_Screenshot(t *testing.T) {
	up := &fakeUploader{url: "https://cdn/screenshots/s-1.png"}
	p := NewProcessor(up, nil, false, zerolog.Nop())

	art := p.Screenshot(context.Background(), "/tmp/artifacts/s-1.png")

	assert.Equal(t, "/tmp/artifacts/s-1.png", art.Path)
	assert.Equal(t, "https://cdn/screenshots/s-1.png", art.URL)
	require.Len(t, up.calls, 1)
	assert.Equal(t, stored{"/tmp/artifacts/s-1.png", "screenshots/s-1.png", "image/png"}, up.calls[0])
}

func TestProcessor_RecordingGIF(t *testing.T) {
	dir := t.TempDir()
	webm := filepath.Join(dir, "s-demo.webm")
	up := &fakeUploader{url: "https://cdn/recordings/s-demo.gif"}
	tc := &fakeTranscoder{}

	art := NewProcessor(up, tc, true, zerolog.Nop()).Recording(context.Background(), webm)

	assert.True(t, art.Transcoded)
	assert.Equal(t, filepath.Join(dir, "s-demo.gif"), art.Path)
	assert.FileExists(t, art.Path)
	require.Len(t, up.calls, 1)
	assert.Equal(t, "recordings/s-demo.gif", up.calls[0].key)
	assert.Equal(t, "image/gif", up.calls[0].contentType)
}

func TestProcessor_RecordingTranscodeFailureKeepsOriginal(t *testing.T) {
	up := &fakeUploader{}
	tc := &fakeTranscoder{err: errors.New("exit status 1")}

	art := NewProcessor(up, tc, true, zerolog.Nop()).Recording(context.Background(), "/tmp/s-1.webm")

	assert.Equal(t, 1, tc.calls)
	assert.False(t, art.Transcoded)
	assert.Equal(t, "/tmp/s-1.webm", art.Path)
	require.Len(t, up.calls, 1)
	assert.Equal(t, stored{"/tmp/s-1.webm", "recordings/s-1.webm", "video/webm"}, up.calls[0])
}

func TestProcessor_RecordingGIFDisabled(t *testing.T) {
	up := &fakeUploader{}
	tc := &fakeTranscoder{}

	art := NewProcessor(up, tc, false, zerolog.Nop()).Recording(context.Background(), "/tmp/s-1.webm")

	assert.Zero(t, tc.calls)
	assert.Equal(t, "/tmp/s-1.webm", art.Path)
	assert.Len(t, up.calls, 1)
}

func TestProcessor_UploadFailureIsSwallowed(t *testing.T) {
	up := &fakeUploader{url: "ignored", err: errors.New("503")}

	art := NewProcessor(up, nil, false, zerolog.Nop()).Screenshot(context.Background(), "/tmp/a.png")

	assert.Equal(t, "/tmp/a.png", art.Path)
	assert.Empty(t, art.URL)
}

func TestFFmpeg_NonZeroExit(t *testing.T) {
	// "false" exits 1 for any arguments
	err := FFmpeg{Path: "false"}.ToGIF(context.Background(), "in.webm", "out.gif")
	assert.ErrorContains(t, err, "ffmpeg failed")
}

func TestGIFArgs(t *testing.T) {
	args := gifArgs("in.webm", "out.gif")
	assert.Equal(t, []string{"-y", "-i", "in.webm", "-vf", gifFilter, "-loop", "0", "out.gif"}, args)
}
