package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Absent or zero fields
// keep the value from earlier sources.
type JsonConfig struct {
	ServerEndpointAddr    string         `json:"server_endpoint_addr"`
	DataDir               string         `json:"data_dir"`
	CallTimeout           timex.Duration `json:"call_timeout"`
	OnlineCheckInterval   timex.Duration `json:"online_check_interval"`
	CacheTTL              timex.Duration `json:"cache_ttl"`
	SortOrder             string         `json:"sort_order"`
	DedupeWindow          timex.Duration `json:"dedupe_window"`
	RefreshOnInvalidation *bool          `json:"refresh_on_invalidation"`
	SyncSuccessReset      timex.Duration `json:"sync_success_reset"`
	SyncErrorReset        timex.Duration `json:"sync_error_reset"`
	LogFile               string         `json:"log_file"`
	LogLevel              string         `json:"log_level"`

	Upload struct {
		Concurrency    int            `json:"concurrency"`
		MaxRetries     *int           `json:"max_retries"`
		RetryBaseDelay timex.Duration `json:"retry_base_delay"`
		AttemptTimeout timex.Duration `json:"attempt_timeout"`
		MaxDimension   int            `json:"max_dimension"`
		Quality        int            `json:"quality"`
		Folder         string         `json:"folder"`
	} `json:"upload"`

	S3 struct {
		Region        string `json:"region"`
		Endpoint      string `json:"endpoint"`
		Bucket        string `json:"bucket"`
		PublicBaseURL string `json:"public_base_url"`
		UsePathStyle  *bool  `json:"use_path_style"`
	} `json:"s3"`
}

// parseJSON overlays cfg with the file at path. Credentials are not read
// from JSON; they come from the environment.
func parseJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setStr(&cfg.ServerEndpointAddr, jc.ServerEndpointAddr)
	setStr(&cfg.DataDir, jc.DataDir)
	setDur(&cfg.CallTimeout, jc.CallTimeout)
	setDur(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDur(&cfg.CacheTTL, jc.CacheTTL)
	setStr(&cfg.SortOrder, jc.SortOrder)
	setDur(&cfg.DedupeWindow, jc.DedupeWindow)
	if jc.RefreshOnInvalidation != nil {
		cfg.RefreshOnInvalidation = *jc.RefreshOnInvalidation
	}
	setDur(&cfg.SyncSuccessReset, jc.SyncSuccessReset)
	setDur(&cfg.SyncErrorReset, jc.SyncErrorReset)
	setStr(&cfg.LogFile, jc.LogFile)
	setStr(&cfg.LogLevel, jc.LogLevel)

	setInt(&cfg.Upload.Concurrency, jc.Upload.Concurrency)
	if jc.Upload.MaxRetries != nil {
		cfg.Upload.MaxRetries = *jc.Upload.MaxRetries
	}
	setDur(&cfg.Upload.RetryBaseDelay, jc.Upload.RetryBaseDelay)
	setDur(&cfg.Upload.AttemptTimeout, jc.Upload.AttemptTimeout)
	setInt(&cfg.Upload.MaxDimension, jc.Upload.MaxDimension)
	setInt(&cfg.Upload.Quality, jc.Upload.Quality)
	setStr(&cfg.Upload.Folder, jc.Upload.Folder)

	setStr(&cfg.S3.Region, jc.S3.Region)
	setStr(&cfg.S3.Endpoint, jc.S3.Endpoint)
	setStr(&cfg.S3.Bucket, jc.S3.Bucket)
	setStr(&cfg.S3.PublicBaseURL, jc.S3.PublicBaseURL)
	if jc.S3.UsePathStyle != nil {
		cfg.S3.UsePathStyle = *jc.S3.UsePathStyle
	}
	return nil
}

func setStr(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDur(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
