package logview

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/libratbag/ratbag-go/pkg/log"
)

// Export formats.
const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// RunExport writes the events of path matching filter to w in format.
func RunExport(path, format string, filter log.Filter, w io.Writer) error {
	var write func(*log.Reader, io.Writer) error
	switch format {
	case FormatJSONL:
		write = exportJSONL
	case FormatCSV:
		write = exportCSV
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()
	return write(reader, w)
}

// jsonEvent is the JSONL shape of an event. Payloads go through jsonSafe.
type jsonEvent struct {
	Timestamp    string                `json:"timestamp"`
	ConnectionID string                `json:"connection_id,omitempty"`
	Direction    string                `json:"direction"`
	Layer        string                `json:"layer"`
	Category     string                `json:"category"`
	Role         string                `json:"role"`
	RemoteAddr   string                `json:"remote_addr,omitempty"`
	Sysname      string                `json:"sysname,omitempty"`
	Frame        *log.FrameEvent       `json:"frame,omitempty"`
	Message      *jsonMessage          `json:"message,omitempty"`
	StateChange  *log.StateChangeEvent `json:"state_change,omitempty"`
	Error        *log.ErrorEventData   `json:"error,omitempty"`
}

type jsonMessage struct {
	Type           string `json:"type"`
	MessageID      uint32 `json:"message_id"`
	Operation      string `json:"operation,omitempty"`
	Path           string `json:"path,omitempty"`
	Member         string `json:"member,omitempty"`
	Status         string `json:"status,omitempty"`
	Payload        any    `json:"payload,omitempty"`
	ProcessingTime string `json:"processing_time,omitempty"`
}

func toJSON(event log.Event) jsonEvent {
	je := jsonEvent{
		Timestamp:    event.Timestamp.UTC().Format(timeLayout),
		ConnectionID: event.ConnectionID,
		Direction:    event.Direction.String(),
		Layer:        event.Layer.String(),
		Category:     event.Category.String(),
		Role:         event.LocalRole.String(),
		RemoteAddr:   event.RemoteAddr,
		Sysname:      event.Sysname,
		Frame:        event.Frame,
		StateChange:  event.StateChange,
		Error:        event.Error,
	}
	if msg := event.Message; msg != nil {
		jm := &jsonMessage{
			Type:      msg.Type.String(),
			MessageID: msg.MessageID,
			Path:      msg.Path,
			Member:    msg.Member,
			Payload:   jsonSafe(msg.Payload),
		}
		if msg.Operation != nil {
			jm.Operation = msg.Operation.String()
		}
		if msg.Status != nil {
			jm.Status = msg.Status.String()
		}
		if msg.ProcessingTime != nil {
			jm.ProcessingTime = msg.ProcessingTime.String()
		}
		je.Message = jm
	}
	return je
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(toJSON(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

var csvHeader = []string{"timestamp", "connection_id", "direction", "layer", "category", "sysname", "type", "message_id", "target", "status"}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		var msgID, target, status string
		if msg := event.Message; msg != nil {
			msgID = strconv.FormatUint(uint64(msg.MessageID), 10)
			target = msg.Path
			if msg.Member != "" {
				target += "." + msg.Member
			}
			if msg.Status != nil {
				status = msg.Status.String()
			}
		}

		row := []string{
			event.Timestamp.UTC().Format(timeLayout),
			event.ConnectionID,
			event.Direction.String(),
			event.Layer.String(),
			event.Category.String(),
			event.Sysname,
			typeLabel(event),
			msgID,
			target,
			status,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
