package cli

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/cache"
	"github.com/spf13/cobra"
)

func (c *CLI) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session, connectivity and cache state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			online := c.app.Monitor.Check(ctx)
			conn := "online"
			if !online {
				conn = "offline"
			}
			fmt.Fprintf(c.out, "Server:  %s (%s)\n", c.cfg.ServerEndpointAddr, conn)
			fmt.Fprintf(c.out, "Sync:    %s\n", c.app.Status.State().Phase)

			s, ok := c.app.Session.Current()
			if !ok {
				fmt.Fprintln(c.out, "Session: signed out")
				return nil
			}
			fmt.Fprintf(c.out, "Session: %s", s.UserID)
			if !s.ExpiresAt.IsZero() {
				fmt.Fprintf(c.out, " (expires %s)", s.ExpiresAt.Local().Format(time.DateTime))
			}
			fmt.Fprintln(c.out)

			entry, ok := c.app.Cache.Read(ctx, s.UserID)
			if !ok {
				fmt.Fprintln(c.out, "Cache:   empty")
				return nil
			}
			freshness := "stale"
			if cache.IsFresh(entry, c.cfg.CacheTTL, time.Now()) {
				freshness = "fresh"
			}
			fmt.Fprintf(c.out, "Cache:   %d memories, fetched %s ago (%s)\n",
				len(entry.Records), time.Since(entry.FetchedAt).Round(time.Second), freshness)
			return nil
		},
	}
}
