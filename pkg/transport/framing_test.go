package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"testing"

	"github.com/libratbag/ratbag-go/pkg/log"
	"github.com/libratbag/ratbag-go/pkg/wire"
)

// capturingLogger captures log events for testing.
type capturingLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (l *capturingLogger) Log(event log.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *capturingLogger) Events() []log.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]log.Event(nil), l.events...)
}

func lengthPrefix(n uint32) []byte {
	var b [LengthPrefixSize]byte
	binary.BigEndian.PutUint32(b[:], n)
	return b[:]
}

func TestFrameRoundTrip(t *testing.T) {
	req, err := wire.EncodeRequest(&wire.Request{
		MessageID: 1,
		Operation: wire.OpGet,
		Path:      "/org/freedesktop/ratbag1",
		Member:    "Devices",
	})
	if err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}

	payloads := map[string][]byte{
		"request":     req,
		"single byte": {0x42},
		"binary":      {0x00, 0xFF, 0x7F, 0x80},
		"max size":    bytes.Repeat([]byte("y"), DefaultMaxMessageSize),
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			if err := NewFrameWriter(buf, 0).WriteFrame(payload); err != nil {
				t.Fatalf("WriteFrame: %v", err)
			}
			if buf.Len() != FrameSize(len(payload)) {
				t.Errorf("frame size = %d, want %d", buf.Len(), FrameSize(len(payload)))
			}
			got, err := NewFrameReader(buf, 0).ReadFrame()
			if err != nil {
				t.Fatalf("ReadFrame: %v", err)
			}
			if !bytes.Equal(got, payload) {
				t.Error("payload mismatch")
			}
		})
	}
}

func TestFrameErrors(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"eof", nil, io.EOF},
		{"zero length", lengthPrefix(0), ErrMessageEmpty},
		{"too large", lengthPrefix(DefaultMaxMessageSize + 1), ErrMessageTooLarge},
		{"truncated prefix", []byte{0x00, 0x00}, ErrFrameTruncated},
		{"truncated payload", append(lengthPrefix(100), []byte("short")...), ErrFrameTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFrameReader(bytes.NewReader(tt.input), 0).ReadFrame()
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFrameWriterRejects(t *testing.T) {
	w := NewFrameWriter(new(bytes.Buffer), 16)
	if err := w.WriteFrame(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("empty: err = %v", err)
	}
	if err := w.WriteFrame(make([]byte, 17)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("oversize: err = %v", err)
	}
}

func TestFrameSequence(t *testing.T) {
	buf := new(bytes.Buffer)
	w := NewFrameWriter(buf, 0)
	for _, m := range []string{"first", "second", "third"} {
		if err := w.WriteFrame([]byte(m)); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	r := NewFrameReader(buf, 0)
	for _, want := range []string{"first", "second", "third"} {
		got, err := r.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if string(got) != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
	if _, err := r.ReadFrame(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestFramerOverPipe(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	logger := &capturingLogger{}
	left, right := NewFramer(a, 0), NewFramer(b, 0)
	left.SetLogger(logger, "conn-789")
	right.SetLogger(logger, "conn-789")

	done := make(chan error, 1)
	go func() { done <- left.WriteFrame([]byte("test message")) }()

	got, err := right.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if string(got) != "test message" {
		t.Errorf("got %q", got)
	}

	events := logger.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	dirs := map[log.Direction]bool{}
	for _, e := range events {
		if e.ConnectionID != "conn-789" || e.Layer != log.LayerTransport {
			t.Errorf("unexpected event %+v", e)
		}
		dirs[e.Direction] = true
	}
	if !dirs[log.DirectionIn] || !dirs[log.DirectionOut] {
		t.Errorf("expected both directions, got %v", dirs)
	}
}

func TestFrameLogTruncation(t *testing.T) {
	logger := &capturingLogger{}
	w := NewFramer(struct {
		io.Reader
		io.Writer
	}{new(bytes.Buffer), new(bytes.Buffer)}, 0)
	w.SetLogger(logger, "conn-trunc")

	large := bytes.Repeat([]byte("x"), 5000)
	if err := w.WriteFrame(large); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	events := logger.Events()
	if len(events) != 1 || events[0].Frame == nil {
		t.Fatalf("expected one frame event, got %+v", events)
	}
	f := events[0].Frame
	if f.Size != FrameSize(len(large)) {
		t.Errorf("Size = %d, want %d", f.Size, FrameSize(len(large)))
	}
	if len(f.Data) != MaxLogFrameDataSize || !f.Truncated {
		t.Errorf("Data len = %d, Truncated = %v", len(f.Data), f.Truncated)
	}
}

func TestFrameNilLogger(t *testing.T) {
	buf := new(bytes.Buffer)
	f := NewFramer(buf, 0)
	f.SetLogger(nil, "conn-id")
	if err := f.WriteFrame([]byte("hello")); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if _, err := f.ReadFrame(); err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
}

func TestFrameReaderCustomLimit(t *testing.T) {
	buf := new(bytes.Buffer)
	if err := NewFrameWriter(buf, 0).WriteFrame(make([]byte, 32)); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if _, err := NewFrameReader(buf, 16).ReadFrame(); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("err = %v, want ErrMessageTooLarge", err)
	}
}

func BenchmarkFrameWrite(b *testing.B) {
	buf := new(bytes.Buffer)
	writer := NewFrameWriter(buf, 0)
	payload := bytes.Repeat([]byte("x"), 1000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		writer.WriteFrame(payload)
	}
}
