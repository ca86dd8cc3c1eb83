package cli

import (
	"fmt"

	"github.com/dmitrijs2005/memojournal/internal/models"
	"github.com/spf13/cobra"
)

func (c *CLI) editCommand() *cobra.Command {
	var f memoryFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a memory",
		Long:  `Change the given fields of a memory. Fields without a flag keep their value. If the memory store refuses the change, the memory is restored.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := c.app.UserID()
			if err != nil {
				return err
			}

			var p models.Patch
			flags := cmd.Flags()
			if flags.Changed("title") {
				p.Title = &f.title
			}
			if flags.Changed("date") {
				d, err := models.ParseDate(f.date)
				if err != nil {
					return err
				}
				p.Date = &d
			}
			if flags.Changed("text") {
				if f.text == "-" {
					if f.text, err = GetMultiline(c.in, "Text", c.out); err != nil {
						return err
					}
				}
				p.Text = &f.text
			}
			if flags.Changed("tag") {
				p.Tags = append([]string{}, f.tags...)
			}
			if flags.Changed("place") {
				p.Location = f.location()
			}

			if _, err := c.app.Journal.Load(cmd.Context(), userID); err != nil {
				return fmt.Errorf("failed to load memories: %w", err)
			}
			rec, err := c.app.Journal.Update(cmd.Context(), userID, args[0], p)
			if err != nil {
				return fmt.Errorf("failed to update memory: %w", err)
			}

			fmt.Fprintln(c.out, "Memory updated.")
			printRecord(c.out, rec)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
