package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "MEMOJ_"

// parseEnv overlays cfg with MEMOJ_* variables. Process environment wins over
// the .env file at dotenvPath, which may be missing.
func parseEnv(cfg *Config, dotenvPath string, lookup func(string) (string, bool)) error {
	file := map[string]string{}
	if dotenvPath != "" {
		m, err := godotenv.Read(dotenvPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return fmt.Errorf("read %s: %w", dotenvPath, err)
		default:
			file = m
		}
	}

	get := func(name string) (string, bool) {
		if v, ok := lookup(envPrefix + name); ok {
			return v, true
		}
		v, ok := file[envPrefix+name]
		return v, ok
	}

	strs := map[string]*string{
		"SERVER_ADDR":   &cfg.ServerEndpointAddr,
		"DATA_DIR":      &cfg.DataDir,
		"SESSION_TOKEN": &cfg.SessionToken,
		"SORT_ORDER":    &cfg.SortOrder,
		"LOG_FILE":      &cfg.LogFile,
		"LOG_LEVEL":     &cfg.LogLevel,
		"S3_REGION":     &cfg.S3.Region,
		"S3_ENDPOINT":   &cfg.S3.Endpoint,
		"S3_BUCKET":     &cfg.S3.Bucket,
		"S3_ACCESS_KEY": &cfg.S3.AccessKey,
		"S3_SECRET_KEY": &cfg.S3.SecretKey,
		"S3_PUBLIC_URL": &cfg.S3.PublicBaseURL,
		"UPLOAD_FOLDER": &cfg.Upload.Folder,
	}
	for name, dst := range strs {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"CACHE_TTL":       &cfg.CacheTTL,
		"CALL_TIMEOUT":    &cfg.CallTimeout,
		"ONLINE_INTERVAL": &cfg.OnlineCheckInterval,
	}
	for name, dst := range durations {
		v, ok := get(name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = d
	}

	ints := map[string]*int{
		"UPLOAD_CONCURRENCY": &cfg.Upload.Concurrency,
		"UPLOAD_MAX_RETRIES": &cfg.Upload.MaxRetries,
	}
	for name, dst := range ints {
		v, ok := get(name)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = n
	}

	if v, ok := get("S3_PATH_STYLE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sS3_PATH_STYLE: %w", envPrefix, err)
		}
		cfg.S3.UsePathStyle = b
	}
	return nil
}
