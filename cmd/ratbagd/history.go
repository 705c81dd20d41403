package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/libratbag/ratbag-go/internal/config"
	"github.com/libratbag/ratbag-go/pkg/inspect"
	"github.com/libratbag/ratbag-go/pkg/persistence"
)

func newHistoryCommand(v *viper.Viper, configFile *string) *cobra.Command {
	var latest bool

	cmd := &cobra.Command{
		Use:   "history <sysname>",
		Short: "Show the journaled commits of a device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v, *configFile)
			if err != nil {
				return err
			}
			journal, err := openJournal(cfg.Journal)
			if err != nil {
				return err
			}
			if journal == nil {
				return fmt.Errorf("no journal configured (set --journal)")
			}
			defer journal.Close()

			entries, err := journal.Entries(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if latest {
				return printLatest(cmd.OutOrStdout(), entries)
			}
			return printHistory(cmd.OutOrStdout(), entries)
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "show only the last journaled state of each profile")
	return cmd
}

func printHistory(w io.Writer, entries []persistence.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No commits journaled.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCOMMITTED\tPROFILES")
	for _, e := range entries {
		indices := make([]uint32, len(e.Profiles))
		for i, p := range e.Profiles {
			indices[i] = p.Index
		}
		fmt.Fprintf(tw, "%d\t%s\t%v\n", e.ID, e.CommittedAt.Local().Format(time.DateTime), indices)
	}
	return tw.Flush()
}

func printLatest(w io.Writer, entries []persistence.Entry) error {
	latest := persistence.Latest(entries)
	if len(latest) == 0 {
		fmt.Fprintln(w, "No commits journaled.")
		return nil
	}
	indices := make([]uint32, 0, len(latest))
	for i := range latest {
		indices = append(indices, i)
	}
	sort.Slice(indices, func(a, b int) bool { return indices[a] < indices[b] })

	for _, i := range indices {
		p := latest[i]
		fmt.Fprintf(w, "p%d %q active=%t disabled=%t rate=%d\n", p.Index, p.Name, p.IsActive, p.Disabled, p.ReportRate)
		for _, r := range p.Resolutions {
			fmt.Fprintf(w, "  r%d %s active=%t default=%t\n", r.Index, inspect.FormatDPI(r.DPI), r.IsActive, r.IsDefault)
		}
		for _, b := range p.Buttons {
			fmt.Fprintf(w, "  b%d %s\n", b.Index, inspect.FormatMapping(b.Mapping))
		}
		for _, l := range p.Leds {
			fmt.Fprintf(w, "  l%d %s %s brightness=%d\n", l.Index, l.Mode, inspect.FormatColor(l.Color.Triple()), l.Brightness)
		}
	}
	return nil
}
