package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-k string   JWT HMAC secret key
//	-t int      token validity, minutes
//	-u string   issue a token for this user id and exit
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-k", "-t", "-u"})

	fs := flag.NewFlagSet("memstore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.SecretKey, "k", config.SecretKey, "secret key")
	fs.StringVar(&config.IssueFor, "u", config.IssueFor, "issue a token for this user and exit")
	validity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.TokenValidityDuration = time.Duration(*validity) * time.Minute
	return nil
}
