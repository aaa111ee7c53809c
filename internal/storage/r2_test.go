package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type put struct {
	path        string
	contentType string
	body        string
}

func fakeBucket(t *testing.T) (*httptest.Server, func() []put) {
	t.Helper()
	var (
		mu   sync.Mutex
		puts []put
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		mu.Lock()
		puts = append(puts, put{path: r.URL.Path, contentType: r.Header.Get("Content-Type"), body: string(body)})
		mu.Unlock()
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []put {
		mu.Lock()
		defer mu.Unlock()
		return append([]put(nil), puts...)
	}
}

func artifact(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestR2_Store(t *testing.T) {
	srv, puts := fakeBucket(t)

	r2, err := NewR2(Options{
		Bucket:          "media",
		PublicDomain:    "cdn.example.com",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Endpoint:        srv.URL,
	}, zerolog.Nop())
	require.NoError(t, err)

	url, err := r2.Store(context.Background(), artifact(t, "s-1.gif", "GIF89a"), "recordings/s-1.gif", "image/gif")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/recordings/s-1.gif", url)

	got := puts()
	require.Len(t, got, 1)
	assert.Equal(t, "/media/recordings/s-1.gif", got[0].path)
	assert.Equal(t, "image/gif", got[0].contentType)
	assert.Equal(t, "GIF89a", got[0].body)
}

func TestR2_StoreWithoutPublicDomain(t *testing.T) {
	srv, puts := fakeBucket(t)

	r2, err := NewR2(Options{Bucket: "media", AccessKeyID: "k", SecretAccessKey: "s", Endpoint: srv.URL}, zerolog.Nop())
	require.NoError(t, err)

	url, err := r2.Store(context.Background(), artifact(t, "a.png", "png"), "screenshots/a.png", "image/png")
	require.NoError(t, err)
	assert.Empty(t, url)
	assert.Len(t, puts(), 1)
}

func TestR2_StoreMissingFile(t *testing.T) {
	r2, err := NewR2(Options{Bucket: "media", AccountID: "acct", AccessKeyID: "k", SecretAccessKey: "s"}, zerolog.Nop())
	require.NoError(t, err)

	_, err = r2.Store(context.Background(), filepath.Join(t.TempDir(), "missing.png"), "screenshots/missing.png", "image/png")
	assert.ErrorContains(t, err, "failed to open artifact")
}

func TestOptions_Endpoint(t *testing.T) {
	assert.Equal(t, "https://acct.r2.cloudflarestorage.com", Options{AccountID: "acct"}.endpoint())
	assert.Equal(t, "http://localhost:9000", Options{AccountID: "acct", Endpoint: "http://localhost:9000"}.endpoint())
}

func TestFromEnv(t *testing.T) {
	assert.IsType(t, Noop{}, FromEnv(nil, zerolog.Nop()))

	t.Setenv(EnvAccessKeyID, "")
	t.Setenv(EnvSecretAccessKey, "")
	assert.IsType(t, Noop{}, FromEnv(&Options{AccountID: "acct", Bucket: "media"}, zerolog.Nop()))

	t.Setenv(EnvAccessKeyID, "key")
	t.Setenv(EnvSecretAccessKey, "secret")
	assert.IsType(t, &R2{}, FromEnv(&Options{AccountID: "acct", Bucket: "media"}, zerolog.Nop()))
}

func TestNoop(t *testing.T) {
	url, err := Noop{}.Store(context.Background(), "/nope", "k", "image/png")
	assert.NoError(t, err)
	assert.Empty(t, url)
}
