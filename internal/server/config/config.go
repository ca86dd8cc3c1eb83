// Package config handles configuration for the development memory store,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/flagx"
)

// Config holds runtime settings for the memory store server.
//
// Fields:
//   - EndpointAddrGRPC: bind address for the gRPC endpoint.
//   - SecretKey: HMAC secret for signing session tokens (HS256). Do not use
//     the default outside local development.
//   - TokenValidityDuration: lifetime of issued tokens.
//   - IssueFor: when set, print a token for this user id and exit.
type Config struct {
	EndpointAddrGRPC      string
	SecretKey             string
	TokenValidityDuration time.Duration
	IssueFor              string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.SecretKey = "secretKey"
	c.TokenValidityDuration = 24 * time.Hour
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if path := flagx.ConfigFile(args); path != "" {
		if err := parseJson(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("secret key is empty")
	}
	return cfg, nil
}
