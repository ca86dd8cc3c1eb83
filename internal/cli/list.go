package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/memojournal/internal/models"
	"github.com/dmitrijs2005/memojournal/internal/mutation"
	"github.com/spf13/cobra"
)

func (c *CLI) listCommand() *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories",
		Long:  `List your memories, served from the local cache while it is fresh. Use --refresh to ask the memory store directly.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := c.app.UserID()
			if err != nil {
				return err
			}

			var snap mutation.Snapshot
			if refresh {
				snap, err = c.app.Journal.Refresh(cmd.Context(), userID)
			} else {
				snap, err = c.app.Journal.Load(cmd.Context(), userID)
			}
			if err != nil {
				return fmt.Errorf("failed to list memories: %w", err)
			}

			printSnapshot(c.out, snap)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "bypass the cache")
	return cmd
}

func printSnapshot(w io.Writer, snap mutation.Snapshot) {
	if snap.Stale {
		fmt.Fprintf(w, "offline: showing memories as of %s\n", snap.FetchedAt.Local().Format(time.DateTime))
	}
	if len(snap.Records) == 0 {
		fmt.Fprintln(w, "No memories yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tIN DAYS\tYEARS\tTITLE\tIMAGES\tTAGS")
	for _, m := range snap.Records {
		r := m.Base()
		id := r.ID
		if models.IsProvisional(m) {
			id += " (saving)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%d\t%s\n",
			id, r.Date, r.DaysUntil, r.YearsSince, r.Title, len(r.Images), strings.Join(r.Tags, ","))
	}
	_ = tw.Flush()
}

func printRecord(w io.Writer, r models.Record) {
	fmt.Fprintf(w, "ID:     %s\n", r.ID)
	fmt.Fprintf(w, "Title:  %s\n", r.Title)
	fmt.Fprintf(w, "Date:   %s (in %d days, %d years ago)\n", r.Date, r.DaysUntil, r.YearsSince)
	if r.Location != nil {
		fmt.Fprintf(w, "Place:  %s\n", r.Location.Name)
	}
	if len(r.Tags) > 0 {
		fmt.Fprintf(w, "Tags:   %s\n", strings.Join(r.Tags, ", "))
	}
	for i, img := range r.Images {
		fmt.Fprintf(w, "Image %d: %s\n", i+1, img.URL)
	}
	if r.Text != "" {
		fmt.Fprintf(w, "\n%s\n", r.Text)
	}
}
