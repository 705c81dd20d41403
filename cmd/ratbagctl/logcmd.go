package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/libratbag/ratbag-go/cmd/ratbagctl/logview"
)

// newLogCommand returns the commands that read protocol logs written by
// ratbagd --protocol-log. They work on files and need no daemon.
func newLogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "View and analyze protocol log files",
	}

	var viewOpts logview.FilterOptions
	view := &cobra.Command{
		Use:   "view <file.rlog>",
		Short: "Print events in human-readable form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := viewOpts.Filter()
			if err != nil {
				return err
			}
			return logview.RunView(args[0], filter, cmd.OutOrStdout())
		},
	}
	addFilterFlags(view.Flags(), &viewOpts)

	stats := &cobra.Command{
		Use:   "stats <file.rlog>",
		Short: "Show statistics about a log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return logview.RunStats(args[0], cmd.OutOrStdout())
		},
	}

	var (
		exportOpts   logview.FilterOptions
		exportFormat string
		exportOutput string
	)
	export := &cobra.Command{
		Use:   "export <file.rlog>",
		Short: "Export events as JSON lines or CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := exportOpts.Filter()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if exportOutput != "" {
				f, err := os.Create(exportOutput)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return logview.RunExport(args[0], exportFormat, filter, w)
		},
	}
	export.Flags().StringVar(&exportFormat, "format", logview.FormatJSONL, "output format: jsonl or csv")
	export.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	addFilterFlags(export.Flags(), &exportOpts)

	var (
		filterOpts   logview.FilterOptions
		filterOutput string
	)
	filter := &cobra.Command{
		Use:   "filter <file.rlog>",
		Short: "Write matching events to a new log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := filterOpts.Filter()
			if err != nil {
				return err
			}
			n, err := logview.RunFilter(args[0], filterOutput, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Filtered %d events to %s\n", n, filterOutput)
			return nil
		},
	}
	filter.Flags().StringVarP(&filterOutput, "output", "o", "", "output file (required)")
	_ = filter.MarkFlagRequired("output")
	addFilterFlags(filter.Flags(), &filterOpts)

	cmd.AddCommand(view, stats, export, filter)
	return cmd
}

func addFilterFlags(fs *pflag.FlagSet, o *logview.FilterOptions) {
	fs.StringVar(&o.ConnID, "conn-id", "", "only this connection")
	fs.StringVar(&o.Sysname, "device", "", "only events about this device")
	fs.StringVar(&o.PathPrefix, "path", "", "only messages whose object path starts with this prefix")
	fs.BoolVar(&o.ErrorsOnly, "errors", false, "only errors and failed responses")
	fs.StringVar(&o.TimeStart, "since", "", "only events at or after this RFC 3339 time")
	fs.StringVar(&o.TimeEnd, "until", "", "only events before this RFC 3339 time")
	fs.StringVar(&o.Layer, "layer", "", "only this layer: transport, wire or service")
	fs.StringVar(&o.Direction, "direction", "", "only this direction: in or out")
	fs.StringVar(&o.Category, "category", "", "only this category: message, state or error")
}
