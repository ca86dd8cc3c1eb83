package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a memory and its images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := c.app.UserID()
			if err != nil {
				return err
			}
			if _, err := c.app.Journal.Load(cmd.Context(), userID); err != nil {
				return fmt.Errorf("failed to load memories: %w", err)
			}
			if err := c.app.Journal.Delete(cmd.Context(), userID, args[0]); err != nil {
				return fmt.Errorf("failed to delete memory: %w", err)
			}
			fmt.Fprintf(c.out, "Memory %s deleted.\n", args[0])
			return nil
		},
	}
}
