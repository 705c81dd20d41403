package log

import (
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events. Zero-valued fields select everything.
type Filter struct {
	ConnectionID string
	Sysname      string
	Direction    *Direction
	Layer        *Layer
	Category     *Category

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time

	// PathPrefix keeps only wire messages whose object path starts with it.
	PathPrefix string

	// ErrorsOnly keeps error events and responses with a failure status.
	ErrorsOnly bool
}

// Match reports whether ev passes every criterion of f.
func (f *Filter) Match(ev Event) bool {
	switch {
	case f.ConnectionID != "" && ev.ConnectionID != f.ConnectionID,
		f.Sysname != "" && ev.Sysname != f.Sysname,
		f.Direction != nil && ev.Direction != *f.Direction,
		f.Layer != nil && ev.Layer != *f.Layer,
		f.Category != nil && ev.Category != *f.Category,
		f.TimeStart != nil && ev.Timestamp.Before(*f.TimeStart),
		f.TimeEnd != nil && !ev.Timestamp.Before(*f.TimeEnd),
		f.ErrorsOnly && !IsFailure(ev):
		return false
	}
	if f.PathPrefix != "" {
		return ev.Message != nil && strings.HasPrefix(ev.Message.Path, f.PathPrefix)
	}
	return true
}

// IsFailure reports whether ev is an error event or a failed response.
func IsFailure(ev Event) bool {
	if ev.Error != nil {
		return true
	}
	m := ev.Message
	return m != nil && m.Status != nil && m.Status.IsError()
}

// Reader streams events from an .rlog file.
type Reader struct {
	f      *os.File
	dec    *cbor.Decoder
	filter Filter
}

// NewReader opens path and returns every event in it.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path and returns only events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{f: f, dec: NewDecoder(f), filter: filter}, nil
}

// Next returns the next matching event, or io.EOF at the end of the file.
// A file cut off in the middle of an event ends with io.ErrUnexpectedEOF.
func (r *Reader) Next() (Event, error) {
	for {
		var ev Event
		if err := r.dec.Decode(&ev); err != nil {
			return Event{}, err
		}
		if r.filter.Match(ev) {
			return ev, nil
		}
	}
}

// ReadAll returns the remaining matching events. The events read before an
// error are returned with it.
func (r *Reader) ReadAll() ([]Event, error) {
	var out []Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}

func (r *Reader) Close() error {
	return r.f.Close()
}
