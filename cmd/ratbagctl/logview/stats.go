package logview

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/libratbag/ratbag-go/pkg/log"
)

// Span is the time between the first and the last event seen.
type Span struct {
	Start, End time.Time
}

func (s *Span) extend(t time.Time) {
	if s.Start.IsZero() || t.Before(s.Start) {
		s.Start = t
	}
	if t.After(s.End) {
		s.End = t
	}
}

func (s Span) Duration() time.Duration { return s.End.Sub(s.Start) }

// Stats summarizes a protocol log.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Connections       map[string]*ConnectionStats
	Devices           map[string]int
	Requests          int
	FailedResponses   int
	Errors            int
	TimeRange         Span
}

type ConnectionStats struct {
	Span
	Events     int
	RemoteAddr string
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     map[log.Layer]int{},
		EventsByCategory:  map[log.Category]int{},
		EventsByDirection: map[log.Direction]int{},
		Connections:       map[string]*ConnectionStats{},
		Devices:           map[string]int{},
	}
}

func (s *Stats) add(ev log.Event) {
	s.TotalEvents++
	s.EventsByLayer[ev.Layer]++
	s.EventsByCategory[ev.Category]++
	s.EventsByDirection[ev.Direction]++
	s.TimeRange.extend(ev.Timestamp)

	if ev.ConnectionID != "" {
		c := s.Connections[ev.ConnectionID]
		if c == nil {
			c = &ConnectionStats{}
			s.Connections[ev.ConnectionID] = c
		}
		c.Events++
		c.extend(ev.Timestamp)
		if c.RemoteAddr == "" {
			c.RemoteAddr = ev.RemoteAddr
		}
	}
	if ev.Sysname != "" {
		s.Devices[ev.Sysname]++
	}

	switch {
	case ev.Message != nil && ev.Message.Type == log.MessageTypeRequest:
		s.Requests++
	case ev.Message != nil && ev.Message.Status != nil && ev.Message.Status.IsError():
		s.FailedResponses++
	case ev.Error != nil:
		s.Errors++
	}
}

// CollectStats reads every event of the log at path.
func CollectStats(path string) (*Stats, error) {
	reader, err := log.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(ev)
	}
}

// RunStats prints a summary of the log file at path.
func RunStats(path string, w io.Writer) error {
	stats, err := CollectStats(path)
	if err != nil {
		return err
	}
	stats.print(w)
	return nil
}

// printCounts prints one line per non-zero count, in key order.
func printCounts[K cmp.Ordered](w io.Writer, title string, counts map[K]int, label func(K) string) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	for _, k := range slices.Sorted(maps.Keys(counts)) {
		if counts[k] > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", label(k)+":", counts[k])
		}
	}
	fmt.Fprintln(w)
}

func str[T fmt.Stringer](v T) string { return v.String() }

func (s *Stats) print(w io.Writer) {
	fmt.Fprint(w, "=== ratbag Protocol Log Statistics ===\n\n")

	if s.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			s.TimeRange.Start.Format(time.RFC3339), s.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n\n", s.TimeRange.Duration().Round(time.Second))
	}

	fmt.Fprintf(w, "Total Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Requests:     %d (%d failed)\n\n", s.Requests, s.FailedResponses)

	printCounts(w, "Events by Layer:", s.EventsByLayer, str[log.Layer])
	printCounts(w, "Events by Category:", s.EventsByCategory, str[log.Category])
	printCounts(w, "Events by Direction:", s.EventsByDirection, str[log.Direction])
	printCounts(w, "Events by Device:", s.Devices, func(name string) string { return name })

	fmt.Fprintf(w, "Connections: %d\n", len(s.Connections))
	ids := slices.SortedFunc(maps.Keys(s.Connections), func(a, b string) int {
		return s.Connections[a].Start.Compare(s.Connections[b].Start)
	})
	if len(ids) > 0 {
		fmt.Fprintln(w)
	}
	for _, id := range ids {
		c := s.Connections[id]
		fmt.Fprintf(w, "  [%s] %d events, duration %s\n",
			shortenConnID(id), c.Events, c.Duration().Round(time.Millisecond))
		if c.RemoteAddr != "" {
			fmt.Fprintf(w, "           Remote: %s\n", c.RemoteAddr)
		}
	}

	if s.Errors > 0 {
		fmt.Fprintf(w, "\nErrors: %d\n", s.Errors)
	}
}
