package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJSON_Overlay(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"server_endpoint_addr":    "www.example:9000",
		"online_check_interval":   "10s",
		"cache_ttl":               "2m",
		"refresh_on_invalidation": false,
		"upload": map[string]any{
			"concurrency":      5,
			"max_retries":      0,
			"retry_base_delay": "250ms",
		},
		"s3": map[string]any{
			"bucket":         "journal",
			"use_path_style": false,
		},
	})

	var cfg Config
	cfg.LoadDefaults()
	require.NoError(t, parseJSON(&cfg, path))

	want := Config{}
	want.LoadDefaults()
	want.ServerEndpointAddr = "www.example:9000"
	want.OnlineCheckInterval = 10 * time.Second
	want.CacheTTL = 2 * time.Minute
	want.RefreshOnInvalidation = false
	want.Upload.Concurrency = 5
	want.Upload.MaxRetries = 0
	want.Upload.RetryBaseDelay = 250 * time.Millisecond
	want.S3.Bucket = "journal"
	want.S3.UsePathStyle = false

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func Test_parseJSON_ZeroValuesKeepEarlierSources(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{"data_dir": "/var/journal"})

	cfg := Config{ServerEndpointAddr: "keep:1", CacheTTL: time.Minute}
	require.NoError(t, parseJSON(&cfg, path))

	assert.Equal(t, "keep:1", cfg.ServerEndpointAddr)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, "/var/journal", cfg.DataDir)
}

func Test_parseJSON_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))

	var cfg Config
	assert.Error(t, parseJSON(&cfg, bad))
	assert.Error(t, parseJSON(&cfg, filepath.Join(dir, "absent.json")))
}
