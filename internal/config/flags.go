package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/flagx"
)

// Flags lists every flag parseFlags understands, in the forms FilterArgs
// should keep. The CLI registers the same names so its own parser accepts
// them.
var Flags = []string{
	"-a", "--addr",
	"-d", "--data-dir",
	"-i", "--online-interval",
	"-s", "--sort",
	"-l", "--log-level",
}

// parseFlags populates selected Config fields from command-line flags. Other
// arguments (subcommands, their flags) are filtered out first.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("journal", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.ServerEndpointAddr, "addr", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.SortOrder, "s", cfg.SortOrder, "sort order")
	fs.StringVar(&cfg.SortOrder, "sort", cfg.SortOrder, "sort order")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	interval := int(cfg.OnlineCheckInterval.Seconds())
	fs.IntVar(&interval, "i", interval, "online check interval (in seconds)")
	fs.IntVar(&interval, "online-interval", interval, "online check interval (in seconds)")

	if err := fs.Parse(flagx.FilterArgs(args, Flags)); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" || f.Name == "online-interval" {
			cfg.OnlineCheckInterval = time.Duration(interval) * time.Second
		}
	})
	return nil
}
