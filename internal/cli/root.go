package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/dmitrijs2005/memojournal/internal/app"
	"github.com/dmitrijs2005/memojournal/internal/buildinfo"
	"github.com/dmitrijs2005/memojournal/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

// CLI carries what every command needs. The client is built in the root's
// PersistentPreRunE and closed by Run once the command returns.
type CLI struct {
	args    []string
	in      *bufio.Reader
	out     io.Writer
	appOpts []app.Option

	cfg *config.Config
	app *app.App
}

type Option func(*CLI)

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(c *CLI) {
		c.in = bufio.NewReader(in)
		c.out = out
	}
}

// WithAppOptions passes options through to app.New.
func WithAppOptions(opts ...app.Option) Option {
	return func(c *CLI) { c.appOpts = append(c.appOpts, opts...) }
}

// Run executes the command named by args (without the program name).
func Run(ctx context.Context, args []string, opts ...Option) error {
	c := &CLI{args: args, in: bufio.NewReader(os.Stdin), out: os.Stdout}
	for _, o := range opts {
		o(c)
	}
	err := c.rootCommand().ExecuteContext(ctx)
	return multierr.Append(err, c.close())
}

func (c *CLI) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "journal",
		Short:         "Keep a journal of memories in sync with the memory store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			return c.open(cmd.Context())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetArgs(c.args)
	root.SetOut(c.out)
	root.SetIn(c.in)

	// Parsed by package config from the raw args; registered so cobra
	// accepts them.
	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "path to JSON config file")
	pf.StringP("addr", "a", "", "address and port of the memory store")
	pf.StringP("data-dir", "d", "", "data directory")
	pf.IntP("online-interval", "i", 0, "online check interval (in seconds)")
	pf.StringP("sort", "s", "", "sort order: next-occurrence or date")
	pf.StringP("log-level", "l", "", "log level: debug, info, warn, error")

	root.AddCommand(
		c.listCommand(),
		c.addCommand(),
		c.editCommand(),
		c.deleteCommand(),
		c.statusCommand(),
		c.watchCommand(),
		c.loginCommand(),
		c.logoutCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				buildinfo.PrintBuildData(c.out)
			},
		},
	)
	return root
}

func (c *CLI) open(ctx context.Context) error {
	cfg, err := config.Load(c.args)
	if err != nil {
		return err
	}
	a, err := app.New(ctx, cfg, c.appOpts...)
	if err != nil {
		return err
	}
	c.cfg, c.app = cfg, a
	return nil
}

func (c *CLI) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}
