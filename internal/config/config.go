package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/flagx"
	"github.com/dmitrijs2005/memojournal/internal/models"
)

// Config holds everything the CLI needs to assemble the client.
type Config struct {
	ServerEndpointAddr  string
	DataDir             string
	SessionToken        string
	CallTimeout         time.Duration
	OnlineCheckInterval time.Duration

	CacheTTL              time.Duration
	SortOrder             string
	DedupeWindow          time.Duration
	RefreshOnInvalidation bool

	SyncSuccessReset time.Duration
	SyncErrorReset   time.Duration

	LogFile  string
	LogLevel string

	Upload UploadConfig
	S3     S3Config
}

// UploadConfig tunes the media upload pipeline.
type UploadConfig struct {
	Concurrency    int
	MaxRetries     int
	RetryBaseDelay time.Duration
	AttemptTimeout time.Duration
	MaxDimension   int
	Quality        int
	Folder         string
}

// S3Config locates the object store bucket.
type S3Config struct {
	Region        string
	Endpoint      string
	Bucket        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
	UsePathStyle  bool
}

// LoadDefaults sets sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.DataDir = ".memojournal"
	c.CallTimeout = 15 * time.Second
	c.OnlineCheckInterval = 3 * time.Second

	c.CacheTTL = 10 * time.Minute
	c.SortOrder = string(models.SortByNextOccurrence)
	c.DedupeWindow = 500 * time.Millisecond
	c.RefreshOnInvalidation = true

	c.SyncSuccessReset = 3 * time.Second
	c.SyncErrorReset = 5 * time.Second

	c.LogLevel = "info"

	c.Upload = UploadConfig{
		Concurrency:    3,
		MaxRetries:     3,
		RetryBaseDelay: time.Second,
		AttemptTimeout: 30 * time.Second,
		MaxDimension:   1920,
		Quality:        80,
		Folder:         "memories",
	}
	c.S3 = S3Config{Region: "us-east-1", UsePathStyle: true}
}

// Load builds a Config from defaults, the environment, the optional JSON
// file and finally the flags found in args.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, ".env", os.LookupEnv); err != nil {
		return nil, err
	}
	if path := flagx.ConfigFile(args); path != "" {
		if err := parseJSON(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the client cannot run with.
func (c *Config) Validate() error {
	if c.ServerEndpointAddr == "" {
		return fmt.Errorf("server endpoint address is empty")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir is empty")
	}
	if _, err := models.ParseSortOrder(c.SortOrder); err != nil {
		return err
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %s", c.CacheTTL)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call timeout must be positive, got %s", c.CallTimeout)
	}
	if c.OnlineCheckInterval <= 0 {
		return fmt.Errorf("online check interval must be positive, got %s", c.OnlineCheckInterval)
	}
	if c.Upload.AttemptTimeout <= 0 {
		return fmt.Errorf("upload attempt timeout must be positive, got %s", c.Upload.AttemptTimeout)
	}
	if c.Upload.Concurrency < 1 {
		return fmt.Errorf("upload concurrency must be at least 1, got %d", c.Upload.Concurrency)
	}
	if c.Upload.MaxRetries < 0 {
		return fmt.Errorf("upload max retries must not be negative, got %d", c.Upload.MaxRetries)
	}
	if c.Upload.Quality < 1 || c.Upload.Quality > 100 {
		return fmt.Errorf("upload quality must be within 1..100, got %d", c.Upload.Quality)
	}
	return nil
}

// SlogLevel converts LogLevel for the logging package.
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return lvl, nil
}

// ObjectStoreConfigured reports whether media uploads can be enabled.
func (c *Config) ObjectStoreConfigured() bool {
	return c.S3.Bucket != ""
}
