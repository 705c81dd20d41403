// Command ratbagd serves the ratbag object API for configurable gaming
// mice.
//
// The daemon registers live devices from a .device database and a list of
// static probes, loads test devices from description files, and answers
// remote Get/Set/Call/GetAll requests on a unix or tcp socket. Commits can
// be journaled to SQLite or a JSON file, and tcp listeners can be
// advertised on mDNS.
//
// Usage:
//
//	ratbagd [flags]
//	ratbagd history [sysname] [flags]
//
// Examples:
//
//	# Serve on the default unix socket
//	ratbagd
//
//	# Serve on tcp, advertise on mDNS and journal commits
//	ratbagd --address tcp:0.0.0.0:7811 --mdns --journal sqlite --journal-path ~/.local/share/ratbagd/journal.db
//
//	# Preload a test device
//	ratbagd --test-device mouse.yaml --log-level debug
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/libratbag/ratbag-go/internal/config"
	"github.com/libratbag/ratbag-go/internal/logging"
)

// flagKeys maps flag names onto configuration keys where they differ.
var flagKeys = map[string]string{
	"journal":      "journal.driver",
	"journal-path": "journal.path",
	"journal-keep": "journal.keep",
	"mdns":         "discovery.enabled",
	"instance":     "discovery.instance",
	"interface":    "discovery.interface",
	"test-device":  "test_devices",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"log-output":   "logging.output",
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:          "ratbagd",
		Short:        "Serve the ratbag device API",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "configuration file (default: search ., ~/.config/ratbag, /etc/ratbag)")
	flags.String("address", "", "listen address, unix:<path> or tcp:<host:port>")
	flags.String("data-dir", "", "directory holding .device files")
	flags.String("journal", "", "commit journal: none, sqlite or file")
	flags.String("journal-path", "", "commit journal location")
	flags.Int("journal-keep", 0, "commits kept per device (0 keeps all)")
	flags.Bool("mdns", false, "advertise tcp listeners on mDNS")
	flags.String("instance", "", "mDNS instance name (default ratbagd@<hostname>)")
	flags.String("interface", "", "network interface to advertise on")
	flags.String("protocol-log", "", "write a protocol log to this file")
	flags.StringSlice("test-device", nil, "load a test device description on startup (repeatable)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: text or json")
	flags.String("log-output", "", "log output: stderr, stdout or a file path")

	cobra.CheckErr(config.BindFlags(v, flags, flagKeys))

	cmd.AddCommand(newHistoryCommand(v, &configFile))
	return cmd
}

// run serves until ctx is done or the process receives SIGINT or SIGTERM.
func run(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	logger, closer, err := logging.New(cfg.Logging, "ratbagd")
	if err != nil {
		return err
	}
	defer closer.Close()

	d, err := newDaemon(cfg, logger, nil)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		d.close()
		return fmt.Errorf("starting daemon: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	if err := d.Stop(); err != nil {
		fmt.Fprintf(stderr, "Error stopping daemon: %v\n", err)
	}
	return nil
}
