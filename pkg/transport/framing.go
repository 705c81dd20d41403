package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/libratbag/ratbag-go/pkg/log"
)

const (
	// LengthPrefixSize is the size of the big-endian length in front of
	// every message.
	LengthPrefixSize = 4

	// DefaultMaxMessageSize bounds a single message unless configured
	// otherwise.
	DefaultMaxMessageSize = 65536

	// MaxLogFrameDataSize is how much of a frame is copied into a log
	// event. Longer frames are logged truncated.
	MaxLogFrameDataSize = 4096
)

var (
	ErrMessageTooLarge = errors.New("message too large")
	ErrMessageEmpty    = errors.New("message is empty")
	ErrFrameTruncated  = errors.New("frame truncated")
)

// tracer reports frames to a protocol logger. The zero value logs nothing.
type tracer struct {
	logger log.Logger
	connID string
}

func (t *tracer) trace(data []byte, dir log.Direction) {
	if t.logger != nil {
		t.logger.Log(frameEvent(t.connID, data, dir))
	}
}

// FrameWriter writes length-prefixed frames. WriteFrame may be called from
// several goroutines.
type FrameWriter struct {
	tracer
	mu      sync.Mutex
	w       io.Writer
	maxSize uint32
}

// NewFrameWriter returns a writer that refuses messages above maxSize.
// A maxSize of 0 selects DefaultMaxMessageSize.
func NewFrameWriter(w io.Writer, maxSize uint32) *FrameWriter {
	return &FrameWriter{w: w, maxSize: orDefaultSize(maxSize)}
}

func (fw *FrameWriter) WriteFrame(data []byte) error {
	if err := checkSize(uint32(len(data)), fw.maxSize); err != nil {
		return err
	}

	// One write per frame so a reader on a unix socket never observes a
	// bare length prefix.
	frame := make([]byte, LengthPrefixSize+len(data))
	binary.BigEndian.PutUint32(frame, uint32(len(data)))
	copy(frame[LengthPrefixSize:], data)

	fw.mu.Lock()
	_, err := fw.w.Write(frame)
	fw.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	fw.trace(data, log.DirectionOut)
	return nil
}

// FrameReader reads length-prefixed frames. It is not safe for concurrent
// use; each connection has a single read loop.
type FrameReader struct {
	tracer
	r       io.Reader
	maxSize uint32
	prefix  [LengthPrefixSize]byte
}

// NewFrameReader returns a reader that rejects messages above maxSize.
// A maxSize of 0 selects DefaultMaxMessageSize.
func NewFrameReader(r io.Reader, maxSize uint32) *FrameReader {
	return &FrameReader{r: r, maxSize: orDefaultSize(maxSize)}
}

// ReadFrame returns the next message without its length prefix. A clean
// end of stream between frames is reported as io.EOF.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.prefix[:]); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return nil, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	length := binary.BigEndian.Uint32(fr.prefix[:])
	if err := checkSize(length, fr.maxSize); err != nil {
		return nil, err
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(fr.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read payload: %w", err)
	}
	fr.trace(payload, log.DirectionIn)
	return payload, nil
}

// Framer reads and writes frames on one stream.
type Framer struct {
	*FrameReader
	*FrameWriter
}

func NewFramer(rw io.ReadWriter, maxSize uint32) *Framer {
	return &Framer{
		FrameReader: NewFrameReader(rw, maxSize),
		FrameWriter: NewFrameWriter(rw, maxSize),
	}
}

// SetLogger reports every frame in both directions to logger under connID.
// A nil logger disables reporting.
func (f *Framer) SetLogger(logger log.Logger, connID string) {
	f.FrameReader.tracer = tracer{logger: logger, connID: connID}
	f.FrameWriter.tracer = tracer{logger: logger, connID: connID}
}

// FrameSize returns the bytes a payload of payloadSize occupies on the wire.
func FrameSize(payloadSize int) int {
	return LengthPrefixSize + payloadSize
}

func orDefaultSize(n uint32) uint32 {
	if n == 0 {
		return DefaultMaxMessageSize
	}
	return n
}

func checkSize(n, max uint32) error {
	if n == 0 {
		return ErrMessageEmpty
	}
	if n > max {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, n, max)
	}
	return nil
}

func frameEvent(connID string, data []byte, dir log.Direction) log.Event {
	logged, truncated := data, false
	if len(data) > MaxLogFrameDataSize {
		logged, truncated = data[:MaxLogFrameDataSize], true
	}
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Frame: &log.FrameEvent{
			Size:      FrameSize(len(data)),
			Data:      logged,
			Truncated: truncated,
		},
	}
}
