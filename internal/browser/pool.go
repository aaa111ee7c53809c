// Package browser runs one browserless Chrome container per session and
// hands its CDP endpoint to the chromium engine.
package browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/rs/zerolog"
)

const (
	DefaultImage = "browserless/chrome:latest"
	chromePort   = nat.Port("3000/tcp")
	managedBy    = "agent-browser"
)

// Instance is one running browser container
type Instance struct {
	ContainerID string
	Session     string
	ConnectURL  string
	Port        string
}

// Pool creates and removes browser containers
type Pool struct {
	client       *client.Client
	image        string
	readyTimeout time.Duration
	log          zerolog.Logger
}

func NewPool(image string, log zerolog.Logger) (*Pool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if image == "" {
		image = DefaultImage
	}

	return &Pool{
		client:       cli,
		image:        image,
		readyTimeout: 10 * time.Second,
		log:          log.With().Str("engine", "docker").Logger(),
	}, nil
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// containerName derives a docker-safe container name from a session name
func containerName(session string) string {
	name := unsafeName.ReplaceAllString(session, "_")
	if len(name) > 48 {
		name = name[:48]
	}
	return fmt.Sprintf("agent-browser-%s-%d", name, time.Now().UnixNano()%100000)
}

// Start launches a container for session and waits until Chrome answers
func (p *Pool) Start(ctx context.Context, session string) (*Instance, error) {
	containerConfig := &container.Config{
		Image: p.image,
		Labels: map[string]string{
			"session":    session,
			"managed-by": managedBy,
		},
		Env: []string{
			"CONNECTION_TIMEOUT=-1",
			"MAX_CONCURRENT_SESSIONS=1",
			"PREBOOT_CHROME=true",
			"KEEP_ALIVE=true",
			"EXIT_ON_HEALTH_FAILURE=false",
		},
		ExposedPorts: nat.PortSet{
			chromePort: struct{}{},
		},
	}

	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			chromePort: []nat.PortBinding{
				{
					HostIP:   "127.0.0.1",
					HostPort: "0",
				},
			},
		},
	}

	resp, err := p.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, containerName(session))
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	if err := p.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		p.remove(ctx, resp.ID)
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	inspect, err := p.client.ContainerInspect(ctx, resp.ID)
	if err != nil {
		p.remove(ctx, resp.ID)
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}

	bindings := inspect.NetworkSettings.Ports[chromePort]
	if len(bindings) == 0 {
		p.remove(ctx, resp.ID)
		return nil, fmt.Errorf("container %s exposes no chrome port", resp.ID[:12])
	}
	port := bindings[0].HostPort

	if err := p.waitForBrowserReady(ctx, port); err != nil {
		p.remove(ctx, resp.ID)
		return nil, fmt.Errorf("browser failed to become ready: %w", err)
	}

	p.log.Info().Str("session", session).Str("container", resp.ID[:12]).Str("port", port).Msg("Browser container started")

	return &Instance{
		ContainerID: resp.ID,
		Session:     session,
		ConnectURL:  fmt.Sprintf("ws://127.0.0.1:%s", port),
		Port:        port,
	}, nil
}

// Stop stops and removes the container
func (p *Pool) Stop(ctx context.Context, containerID string) error {
	timeout := 10
	if err := p.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}
	if err := p.client.ContainerRemove(ctx, containerID, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// remove force-removes a container left behind by a failed start
func (p *Pool) remove(ctx context.Context, containerID string) {
	ctx = context.WithoutCancel(ctx)
	if err := p.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil {
		p.log.Warn().Err(err).Str("container", containerID).Msg("Failed to remove container")
	}
}

// EnsureImage pulls the browser image unless it is already present
func (p *Pool) EnsureImage(ctx context.Context) error {
	images, err := p.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == p.image {
				return nil
			}
		}
	}

	p.log.Info().Str("image", p.image).Msg("Pulling browser image")
	reader, err := p.client.ImagePull(ctx, p.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

func (p *Pool) Close() error {
	return p.client.Close()
}

// waitForBrowserReady polls /json/version until Chrome responds
func (p *Pool) waitForBrowserReady(ctx context.Context, port string) error {
	url := fmt.Sprintf("http://127.0.0.1:%s/json/version", port)
	deadline := time.Now().Add(p.readyTimeout)

	for time.Now().Before(deadline) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				// the websocket lags slightly behind the HTTP endpoint
				time.Sleep(500 * time.Millisecond)
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	return fmt.Errorf("browser did not become ready within %s", p.readyTimeout)
}
