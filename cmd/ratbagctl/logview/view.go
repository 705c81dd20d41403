// Package logview implements the ratbagctl log commands over protocol log
// files written by ratbagd --protocol-log.
package logview

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/libratbag/ratbag-go/pkg/log"
)

// timeLayout is used for every timestamp printed or exported.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// detail is one indented line below an event header. Lines without a key
// are printed as they are.
type detail struct {
	key, value string
}

// formatEvent prints a header line followed by the event's details and a
// blank separator line.
func formatEvent(w io.Writer, event log.Event) {
	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n",
		event.Timestamp.UTC().Format(timeLayout),
		shortenConnID(event.ConnectionID),
		event.Direction, event.Layer, typeLabel(event))

	var lines []detail
	if event.Sysname != "" {
		lines = append(lines, detail{"Device", event.Sysname})
	}
	lines = append(lines, eventDetails(event)...)
	for _, d := range lines {
		if d.key == "" {
			fmt.Fprintf(w, "  %s\n", d.value)
			continue
		}
		fmt.Fprintf(w, "  %s: %s\n", d.key, d.value)
	}
	fmt.Fprintln(w)
}

func eventDetails(event log.Event) []detail {
	switch {
	case event.Frame != nil:
		return frameDetails(event.Frame)
	case event.Message != nil:
		return messageDetails(event.Message)
	case event.StateChange != nil:
		return stateDetails(event.StateChange)
	case event.Error != nil:
		return errorDetails(event.Error)
	}
	return nil
}

func typeLabel(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Message != nil:
		return event.Message.Type.String()
	case event.StateChange != nil:
		return "State"
	case event.Error != nil:
		return "Error"
	}
	return "Unknown"
}

// shortenConnID keeps the first block of a UUID.
func shortenConnID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func frameDetails(f *log.FrameEvent) []detail {
	out := []detail{{"Size", fmt.Sprintf("%d bytes", f.Size)}}
	if len(f.Data) == 0 {
		return out
	}
	data := hex.EncodeToString(f.Data)
	if f.Truncated {
		data += " (truncated)"
	}
	return append(out, detail{"Data", data})
}

func messageDetails(m *log.MessageEvent) []detail {
	out := []detail{{"MessageID", fmt.Sprint(m.MessageID)}}
	if m.Type == log.MessageTypeRequest {
		if m.Operation != nil {
			out = append(out, detail{"Operation", m.Operation.String()})
		}
		if m.Path != "" {
			target := m.Path
			if m.Member != "" {
				target += "." + m.Member
			}
			out = append(out, detail{"Target", target})
		}
	} else {
		if m.Status != nil {
			out = append(out, detail{"Status", fmt.Sprintf("%s (%d)", m.Status, *m.Status)})
		}
		if m.ProcessingTime != nil {
			out = append(out, detail{"Duration", formatDuration(*m.ProcessingTime)})
		}
	}
	if m.Payload != nil {
		if b, err := json.Marshal(jsonSafe(m.Payload)); err == nil {
			out = append(out, detail{"Payload", string(b)})
		}
	}
	return out
}

func stateDetails(sc *log.StateChangeEvent) []detail {
	transition := "-> " + sc.NewState
	if sc.OldState != "" {
		transition = sc.OldState + " " + transition
	}
	out := []detail{{"Entity", sc.Entity.String()}, {"", transition}}
	if sc.Reason != "" {
		out = append(out, detail{"Reason", sc.Reason})
	}
	return out
}

func errorDetails(e *log.ErrorEventData) []detail {
	out := []detail{{"Layer", e.Layer.String()}, {"Message", e.Message}}
	if e.Code != nil {
		out = append(out, detail{"Code", fmt.Sprint(*e.Code)})
	}
	if e.Context != "" {
		out = append(out, detail{"Context", e.Context})
	}
	return out
}

// formatDuration prints d with three decimals in the largest unit below it.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.3fus", float64(d)/float64(time.Microsecond))
	case d < time.Second:
		return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// jsonSafe rewrites CBOR maps with integer keys into string-keyed maps so
// encoding/json accepts them.
func jsonSafe(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = jsonSafe(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = jsonSafe(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = jsonSafe(val)
		}
		return out
	}
	return v
}

// parseName maps a case-insensitive name back to the enum value whose
// String method produces it.
func parseName[T interface {
	~uint8
	String() string
}](what, s string) (T, error) {
	var valid []string
	for i := 0; i < 8; i++ {
		name := T(i).String()
		if name == "UNKNOWN" {
			continue
		}
		if strings.EqualFold(s, name) {
			return T(i), nil
		}
		valid = append(valid, strings.ToLower(name))
	}
	return 0, fmt.Errorf("invalid %s: %s (must be one of %s)", what, s, strings.Join(valid, ", "))
}

func ParseLayer(s string) (log.Layer, error) { return parseName[log.Layer]("layer", s) }

func ParseDirection(s string) (log.Direction, error) {
	return parseName[log.Direction]("direction", s)
}

func ParseCategory(s string) (log.Category, error) {
	return parseName[log.Category]("category", s)
}

// RunView prints every event of the log at path that matches filter.
func RunView(path string, filter log.Filter, w io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event)
	}
}
