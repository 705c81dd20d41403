package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/libratbag/ratbag-go/pkg/discovery"
)

func newDiscoverCommand(a *app) *cobra.Command {
	var (
		wait time.Duration
		all  bool
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Find ratbagd instances on the local network",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, closer, err := a.load()
			if err != nil {
				return err
			}
			defer closer.Close()

			bc := discovery.DefaultBrowserConfig()
			if cfg.Discovery.Timeout > 0 {
				bc.BrowseTimeout = cfg.Discovery.Timeout
			}
			if wait > 0 {
				bc.BrowseTimeout = wait
			}
			bc.Interface = cfg.Discovery.Interface
			bc.Logger = logger
			browser := discovery.NewMDNSBrowser(bc)
			return runDiscover(cmd.Context(), browser, bc.BrowseTimeout, all, cmd.OutOrStdout())
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "how long to browse (default: discovery.timeout)")
	cmd.Flags().BoolVar(&all, "all", false, "include daemons with an incompatible API or protocol version")
	return cmd
}

// runDiscover browses for wait and prints the daemons found as a table.
func runDiscover(ctx context.Context, b discovery.Browser, wait time.Duration, all bool, w io.Writer) error {
	found, err := discovery.FindAll(ctx, b, wait)
	if err != nil {
		return err
	}

	compatible := discovery.FilterCompatible()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INSTANCE\tADDRESS\tAPI\tDEVICES\tNAME")
	shown := 0
	for _, svc := range found {
		if !all && !compatible(svc) {
			continue
		}
		addr := svc.Address()
		if addr == "" {
			addr = svc.Host
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\n", svc.InstanceName, addr, svc.APIVersion, svc.DeviceCount, svc.Name)
		shown++
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if shown == 0 {
		fmt.Fprintln(w, "No daemons found.")
	}
	if hidden := len(found) - shown; hidden > 0 {
		fmt.Fprintf(w, "%d incompatible hidden (use --all)\n", hidden)
	}
	return nil
}
