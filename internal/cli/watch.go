package cli

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/invalidation"
	"github.com/dmitrijs2005/memojournal/internal/syncstatus"
	"github.com/spf13/cobra"
)

func (c *CLI) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow connectivity, sync state and cache invalidations",
		Long: `Follow connectivity, sync state and cache invalidations until interrupted.
Invalidations published by other journal processes sharing the data
directory are shown as remote and trigger a refetch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var mu sync.Mutex
			printf := func(format string, args ...any) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(c.out, time.Now().Format(time.TimeOnly)+" "+format+"\n", args...)
			}

			unsubStatus := c.app.Status.Subscribe(func(s syncstatus.State) {
				if s.ErrorMessage != "" && s.Phase == syncstatus.PhaseError {
					printf("sync: %s (%s)", s.Phase, s.ErrorMessage)
					return
				}
				printf("sync: %s", s.Phase)
			})
			defer unsubStatus()

			unsubBus := c.app.Bus.Subscribe(func(ev invalidation.Event) {
				origin := "local"
				if ev.Remote {
					origin = "remote"
				}
				printf("invalidated: user %s (%s)", ev.UserID, origin)
			})
			defer unsubBus()

			printf("watching %s, press Ctrl-C to stop", c.cfg.ServerEndpointAddr)

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.app.Monitor.Run(ctx)
			}()
			<-ctx.Done()
			wg.Wait()
			return nil
		},
	}
}
