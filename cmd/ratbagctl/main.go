// Command ratbagctl inspects and configures devices served by ratbagd.
//
// Usage:
//
//	ratbagctl <command> [flags]
//
// Paths use the shorthand <sysname>[/p<i>[/r<j>|/b<j>|/l<j>]][/Member], or
// "manager" for the manager object. Full object paths work as well.
//
// Examples:
//
//	# List devices and show one of them
//	ratbagctl list
//	ratbagctl show testdevice0
//
//	# Change the active resolution of profile 0 and apply it
//	ratbagctl set testdevice0/p0/r0/dpi 1600
//	ratbagctl commit testdevice0
//
//	# Load a test device and open a shell on a tcp daemon
//	ratbagctl --address tcp:192.168.1.20:7811 load-test-device mouse.yaml
//	ratbagctl --address tcp:192.168.1.20:7811 shell
//
//	# Find daemons on the local network
//	ratbagctl discover
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/libratbag/ratbag-go/internal/config"
	"github.com/libratbag/ratbag-go/internal/logging"
	"github.com/libratbag/ratbag-go/pkg/interaction"
	"github.com/libratbag/ratbag-go/pkg/transport"
)

var flagKeys = map[string]string{
	"timeout":   "client.timeout",
	"log-level": "logging.level",
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds state shared by every subcommand.
type app struct {
	v          *viper.Viper
	configFile string
	raw        bool
	access     bool
}

// load reads the configuration and builds a logger for ratbagctl itself.
func (a *app) load() (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closer, err := logging.New(cfg.Logging, "ratbagctl")
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, logger, closer, nil
}

// withSession connects to the daemon, runs fn and disconnects.
func (a *app) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	cfg, logger, closer, err := a.load()
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client, err := interaction.Connect(ctx, cfg.Address, transport.ClientConfig{})
	if err != nil {
		return err
	}
	defer client.Close()
	client.SetTimeout(cfg.Client.Timeout)
	if err := client.CheckVersion(ctx); err != nil {
		return describe(err)
	}
	logger.Debug("connected", "address", cfg.Address)

	s := newSession(client, cmd.OutOrStdout(), cmd.InOrStdin())
	s.formatter.Raw = a.raw
	s.formatter.ShowAccess = a.access
	if err := fn(ctx, s); err != nil {
		return describe(err)
	}
	return nil
}

func newRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	cmd := &cobra.Command{
		Use:          "ratbagctl",
		Short:        "Inspect and configure devices served by ratbagd",
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "configuration file (default: search ., ~/.config/ratbag, /etc/ratbag)")
	flags.String("address", "", "daemon address, unix:<path> or tcp:<host:port>")
	flags.Duration("timeout", 0, "request timeout")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&a.raw, "raw", false, "print wire values without translation")
	flags.BoolVar(&a.access, "access", false, "show member access (r, rw, call)")

	cobra.CheckErr(config.BindFlags(a.v, flags, flagKeys))

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List devices",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withSession(cmd, func(ctx context.Context, s *session) error {
					return s.list(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "show [path]",
			Short: "Show an object and everything below it",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSession(cmd, func(ctx context.Context, s *session) error {
					return s.show(ctx, optionalArg(args))
				})
			},
		},
		&cobra.Command{
			Use:   "get <path>",
			Short: "Read a property, or every property of an object",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSession(cmd, func(ctx context.Context, s *session) error {
					return s.get(ctx, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "set <path> <value>",
			Short: "Write a property",
			Long: `Write a property. Values are parsed by member:
  Resolution      800 or 800x1600
  Mapping         none, button:N, special:N, key:N or macro:+30,-30,t100
  Mode            off, solid, cycle, color-wave, breathing or a number
  *Color          ff0000, #ff0000 or 255,0,0
  Disabled        true or false

Changes stay pending until the device is committed.`,
			Args: cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSession(cmd, func(ctx context.Context, s *session) error {
					return s.set(ctx, args[0], strings.Join(args[1:], " "))
				})
			},
		},
		&cobra.Command{
			Use:   "call <path> [arg]",
			Short: "Invoke a method",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSession(cmd, func(ctx context.Context, s *session) error {
					return s.call(ctx, args[0], optionalArg(args[1:]))
				})
			},
		},
		&cobra.Command{
			Use:   "commit <device>",
			Short: "Apply a device's pending changes",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSession(cmd, func(ctx context.Context, s *session) error {
					return s.commit(ctx, args[0])
				})
			},
		},
		&cobra.Command{
			Use:   "load-test-device [file|-]",
			Short: "Load a test device from a YAML or JSON description",
			Long:  "Load a test device from a YAML or JSON description. Use - to read stdin; without an argument the default test device is loaded.",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.withSession(cmd, func(ctx context.Context, s *session) error {
					return s.loadTestDevice(ctx, optionalArg(args))
				})
			},
		},
		&cobra.Command{
			Use:   "reset-test-device",
			Short: "Restore test devices to their loaded state",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withSession(cmd, func(ctx context.Context, s *session) error {
					return s.resetTestDevice(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Remove every test device",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withSession(cmd, func(ctx context.Context, s *session) error {
					return s.reset(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "shell",
			Short: "Start an interactive shell",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.withSession(cmd, func(ctx context.Context, s *session) error {
					return newShell(s, cmd.InOrStdin(), cmd.OutOrStdout()).run(ctx)
				})
			},
		},
		newDiscoverCommand(a),
		newLogCommand(),
	)
	return cmd
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
