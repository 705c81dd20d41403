package log

import (
	"context"
	"log/slog"
)

// SlogAdapter prints protocol events through an operational logger. Error
// events are logged at warn level, everything else at debug.
type SlogAdapter struct {
	logger *slog.Logger
}

func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Log(event Event) {
	level := slog.LevelDebug
	if event.Error != nil {
		level = slog.LevelWarn
	}
	ctx := context.Background()
	if !a.logger.Enabled(ctx, level) {
		return
	}
	a.logger.LogAttrs(ctx, level, "protocol", eventAttrs(event)...)
}

func eventAttrs(ev Event) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("conn_id", ev.ConnectionID),
		slog.String("direction", ev.Direction.String()),
		slog.String("layer", ev.Layer.String()),
		slog.String("category", ev.Category.String()),
	}
	if ev.Sysname != "" {
		attrs = append(attrs, slog.String("sysname", ev.Sysname))
	}

	switch {
	case ev.Frame != nil:
		attrs = append(attrs,
			slog.Int("frame_size", ev.Frame.Size),
			slog.Bool("truncated", ev.Frame.Truncated))
	case ev.Message != nil:
		attrs = messageAttrs(attrs, ev.Message)
	case ev.StateChange != nil:
		sc := ev.StateChange
		attrs = append(attrs,
			slog.String("entity", sc.Entity.String()),
			slog.String("old_state", sc.OldState),
			slog.String("new_state", sc.NewState))
		attrs = appendNonEmpty(attrs, "reason", sc.Reason)
	case ev.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", ev.Error.Layer.String()),
			slog.String("error_msg", ev.Error.Message))
		attrs = appendNonEmpty(attrs, "error_context", ev.Error.Context)
		if ev.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *ev.Error.Code))
		}
	}
	return attrs
}

func messageAttrs(attrs []slog.Attr, m *MessageEvent) []slog.Attr {
	attrs = append(attrs,
		slog.Uint64("msg_id", uint64(m.MessageID)),
		slog.String("msg_type", m.Type.String()))
	if m.Operation != nil {
		attrs = append(attrs, slog.String("operation", m.Operation.String()))
	}
	attrs = appendNonEmpty(attrs, "path", m.Path)
	attrs = appendNonEmpty(attrs, "member", m.Member)
	if m.Status != nil {
		attrs = append(attrs, slog.String("status", m.Status.String()))
	}
	if m.ProcessingTime != nil {
		attrs = append(attrs, slog.Duration("processing_time", *m.ProcessingTime))
	}
	return attrs
}

func appendNonEmpty(attrs []slog.Attr, key, value string) []slog.Attr {
	if value == "" {
		return attrs
	}
	return append(attrs, slog.String(key, value))
}

var _ Logger = (*SlogAdapter)(nil)
