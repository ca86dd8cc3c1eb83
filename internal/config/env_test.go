package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func Test_parseEnv(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte(
		"MEMOJ_SESSION_TOKEN=file-token\nMEMOJ_S3_BUCKET=from-file\nMEMOJ_S3_SECRET_KEY=s3cr3t\n"), 0o600))

	var cfg Config
	cfg.LoadDefaults()
	err := parseEnv(&cfg, dotenv, lookupFrom(map[string]string{
		"MEMOJ_S3_BUCKET":          "from-env",
		"MEMOJ_CACHE_TTL":          "90s",
		"MEMOJ_UPLOAD_CONCURRENCY": "2",
		"MEMOJ_S3_PATH_STYLE":      "false",
	}))
	require.NoError(t, err)

	assert.Equal(t, "file-token", cfg.SessionToken)
	assert.Equal(t, "from-env", cfg.S3.Bucket)
	assert.Equal(t, "s3cr3t", cfg.S3.SecretKey)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, 2, cfg.Upload.Concurrency)
	assert.False(t, cfg.S3.UsePathStyle)
}

func Test_parseEnv_MissingDotenvIsFine(t *testing.T) {
	var cfg Config
	cfg.LoadDefaults()
	require.NoError(t, parseEnv(&cfg, filepath.Join(t.TempDir(), ".env"), lookupFrom(nil)))
	assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
}

func Test_parseEnv_BadValues(t *testing.T) {
	for _, env := range []map[string]string{
		{"MEMOJ_CACHE_TTL": "forever"},
		{"MEMOJ_UPLOAD_MAX_RETRIES": "many"},
		{"MEMOJ_S3_PATH_STYLE": "maybe"},
	} {
		var cfg Config
		assert.Error(t, parseEnv(&cfg, "", lookupFrom(env)))
	}
}
