package persistence

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/libratbag/ratbag-go/pkg/model"
)

// FileVersion is the current version of the journal file format.
const FileVersion = 1

// DefaultMaxEntries bounds the entries a FileJournal keeps per device.
const DefaultMaxEntries = 64

// journalFile is the on-disk layout of a FileJournal.
type journalFile struct {
	// Version is the file format version.
	Version int `json:"version"`

	// SavedAt is when the file was last written.
	SavedAt time.Time `json:"saved_at"`

	// NextID is the ID the next entry gets.
	NextID int64 `json:"next_id"`

	// Entries holds the journaled commits, oldest first.
	Entries []Entry `json:"entries,omitempty"`
}

// FileJournal stores commits in a single JSON file.
type FileJournal struct {
	mu   sync.Mutex
	path string

	// MaxEntries bounds the entries kept per device. Zero means
	// DefaultMaxEntries.
	MaxEntries int
}

// NewFileJournal creates a journal backed by path. The file is created on
// the first commit.
func NewFileJournal(path string) *FileJournal {
	return &FileJournal{path: path}
}

// Begin stages the entry in memory. The file is only written on Commit.
func (j *FileJournal) Begin(ctx context.Context, cs *model.Changeset) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &fileTx{
		journal: j,
		entry: Entry{
			Sysname:     cs.Device.Sysname,
			CommittedAt: time.Now().UTC(),
			Profiles:    model.CloneProfiles(cs.Profiles),
		},
	}, nil
}

// Entries returns the commits of sysname, oldest first.
func (j *FileJournal) Entries(ctx context.Context, sysname string) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := j.load()
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range f.Entries {
		if e.Sysname == sysname {
			out = append(out, e)
		}
	}
	return out, nil
}

// Clear removes the journal file.
func (j *FileJournal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	err := os.Remove(j.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close is a no-op; the file is not held open.
func (j *FileJournal) Close() error {
	return nil
}

func (j *FileJournal) append(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := j.load()
	if err != nil {
		return err
	}
	if f.NextID == 0 {
		f.NextID = 1
	}
	e.ID = f.NextID
	f.NextID++
	f.Entries = append(f.Entries, e)
	f.Entries = trim(f.Entries, e.Sysname, j.maxEntries())
	return j.save(f)
}

func (j *FileJournal) maxEntries() int {
	if j.MaxEntries > 0 {
		return j.MaxEntries
	}
	return DefaultMaxEntries
}

// load reads the journal file. A missing file is an empty journal.
func (j *FileJournal) load() (*journalFile, error) {
	data, err := os.ReadFile(j.path)
	if os.IsNotExist(err) {
		return &journalFile{Version: FileVersion}, nil
	}
	if err != nil {
		return nil, err
	}

	f := &journalFile{}
	if err := json.Unmarshal(data, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (j *FileJournal) save(f *journalFile) error {
	if err := os.MkdirAll(filepath.Dir(j.path), 0755); err != nil {
		return err
	}

	f.Version = FileVersion
	f.SavedAt = time.Now()

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(j.path, data, 0644)
}

// trim drops the oldest entries of sysname beyond max.
func trim(entries []Entry, sysname string, max int) []Entry {
	n := 0
	for _, e := range entries {
		if e.Sysname == sysname {
			n++
		}
	}
	drop := n - max
	if drop <= 0 {
		return entries
	}
	out := entries[:0]
	for _, e := range entries {
		if e.Sysname == sysname && drop > 0 {
			drop--
			continue
		}
		out = append(out, e)
	}
	return out
}

type fileTx struct {
	journal *FileJournal
	entry   Entry
	done    bool
}

func (t *fileTx) Commit() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	return t.journal.append(t.entry)
}

func (t *fileTx) Rollback() error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	return nil
}
