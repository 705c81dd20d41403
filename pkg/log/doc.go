// Package log provides structured protocol logging for the ratbag daemon
// and its clients.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at the transport and wire layers. It is separate
// from operational logging (slog): protocol capture is a machine-readable
// trace of every frame, request and response.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For capture: write to a binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/ratbagd/protocol.rlog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(adapter, fileLogger)
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with the .rlog extension.
// "ratbagctl log" reads, filters and prints them.
package log
