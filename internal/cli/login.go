package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func (c *CLI) loginCommand() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Start a session with a token",
		Long:  `Store a session token for later commands. Without --token the token is read from the terminal without echo.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				var err error
				if token, err = GetSecret("Session token", c.out); err != nil {
					return err
				}
			}
			if token == "" {
				return errors.New("token is required")
			}

			s, err := c.app.Session.SignIn(cmd.Context(), token)
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Fprintf(c.out, "Signed in as %s", s.UserID)
			if !s.ExpiresAt.IsZero() {
				fmt.Fprintf(c.out, " until %s", s.ExpiresAt.Local().Format(time.DateTime))
			}
			fmt.Fprintln(c.out)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "session token")
	return cmd
}

func (c *CLI) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.Session.SignOut(cmd.Context()); err != nil {
				return fmt.Errorf("logout failed: %w", err)
			}
			fmt.Fprintln(c.out, "Signed out.")
			return nil
		},
	}
}
