// Package config loads settings from defaults, an optional YAML file and
// AGENT_BROWSER_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "AGENT_BROWSER_"

// Engine backends
const (
	EnginePlaywright = "playwright"
	EngineDocker     = "docker"
	EngineDaemon     = "daemon"
)

type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Storage locates the upload bucket. Credentials come from the environment.
type Storage struct {
	AccountID    string `yaml:"accountId"`
	Bucket       string `yaml:"bucket"`
	PublicDomain string `yaml:"publicDomain"`
}

type RateLimit struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	Burst             int `yaml:"burst"`
}

type Config struct {
	MaxConcurrent  int      `yaml:"maxConcurrent"`
	IdleTimeoutMs  int      `yaml:"idleTimeoutMs"`
	Headless       bool     `yaml:"headless"`
	Viewport       Viewport `yaml:"viewport"`
	GIFEnabled     bool     `yaml:"gifEnabled"`
	Storage        *Storage `yaml:"storage"`
	ReapIntervalMs int      `yaml:"reapIntervalMs"`
	ArtifactDir    string   `yaml:"artifactDir"`

	Engine          string   `yaml:"engine"`
	InstallBrowsers bool     `yaml:"installBrowsers"`
	DockerImage     string   `yaml:"dockerImage"`
	DaemonCommand   []string `yaml:"daemonCommand"`
	FFmpegPath      string   `yaml:"ffmpegPath"`

	HTTPAddr  string    `yaml:"httpAddr"`
	RateLimit RateLimit `yaml:"rateLimit"`
	LogLevel  string    `yaml:"logLevel"`
	LogFormat string    `yaml:"logFormat"`
}

// Default returns the built-in settings
func Default() *Config {
	return &Config{
		MaxConcurrent:  3,
		IdleTimeoutMs:  300000,
		Headless:       true,
		Viewport:       Viewport{Width: 1280, Height: 720},
		ReapIntervalMs: 60000,
		ArtifactDir:    filepath.Join(os.TempDir(), "agent-browser"),
		Engine:         EnginePlaywright,
		FFmpegPath:     "ffmpeg",
		HTTPAddr:       ":8080",
		RateLimit:      RateLimit{RequestsPerMinute: 120, Burst: 20},
		LogLevel:       "info",
		LogFormat:      "json",
	}
}

// Load reads .env, then path if non-empty, then the environment
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(envPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(envPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
				return
			}
			*dst = b
		}
	}

	num("MAX_CONCURRENT", &c.MaxConcurrent)
	num("IDLE_TIMEOUT_MS", &c.IdleTimeoutMs)
	flag("HEADLESS", &c.Headless)
	num("VIEWPORT_WIDTH", &c.Viewport.Width)
	num("VIEWPORT_HEIGHT", &c.Viewport.Height)
	flag("GIF_ENABLED", &c.GIFEnabled)
	num("REAP_INTERVAL_MS", &c.ReapIntervalMs)
	str("ARTIFACT_DIR", &c.ArtifactDir)
	str("ENGINE", &c.Engine)
	flag("INSTALL_BROWSERS", &c.InstallBrowsers)
	str("DOCKER_IMAGE", &c.DockerImage)
	str("FFMPEG_PATH", &c.FFmpegPath)
	str("HTTP_ADDR", &c.HTTPAddr)
	num("RATE_LIMIT_PER_MINUTE", &c.RateLimit.RequestsPerMinute)
	num("RATE_LIMIT_BURST", &c.RateLimit.Burst)
	str("LOG_LEVEL", &c.LogLevel)
	str("LOG_FORMAT", &c.LogFormat)

	if v, ok := lookup(envPrefix + "DAEMON_COMMAND"); ok {
		c.DaemonCommand = strings.Fields(v)
	}

	storage := Storage{}
	if c.Storage != nil {
		storage = *c.Storage
	}
	before := storage
	str("STORAGE_ACCOUNT_ID", &storage.AccountID)
	str("STORAGE_BUCKET", &storage.Bucket)
	str("STORAGE_PUBLIC_DOMAIN", &storage.PublicDomain)
	if storage != before {
		c.Storage = &storage
	}

	return errors.Join(errs...)
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.MaxConcurrent < 1 {
		errs = append(errs, fmt.Errorf("maxConcurrent must be at least 1, got %d", c.MaxConcurrent))
	}
	if c.IdleTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("idleTimeoutMs must not be negative, got %d", c.IdleTimeoutMs))
	}
	if c.ReapIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("reapIntervalMs must be positive, got %d", c.ReapIntervalMs))
	}
	if c.Viewport.Width <= 0 || c.Viewport.Height <= 0 {
		errs = append(errs, fmt.Errorf("invalid viewport %dx%d", c.Viewport.Width, c.Viewport.Height))
	}
	if c.ArtifactDir == "" {
		errs = append(errs, errors.New("artifactDir is required"))
	}

	switch c.Engine {
	case EnginePlaywright, EngineDocker:
	case EngineDaemon:
		if len(c.DaemonCommand) == 0 {
			errs = append(errs, errors.New("daemonCommand is required for the daemon engine"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown engine %q", c.Engine))
	}

	if c.Storage != nil && c.Storage.Bucket != "" && c.Storage.AccountID == "" {
		errs = append(errs, errors.New("storage.accountId is required when storage.bucket is set"))
	}
	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("rateLimit values must not be negative"))
	}

	return errors.Join(errs...)
}

func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMs) * time.Millisecond
}

func (c *Config) ReapInterval() time.Duration {
	return time.Duration(c.ReapIntervalMs) * time.Millisecond
}
