package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/libratbag/ratbag-go/pkg/model"
)

// ErrTxDone is returned when a transaction is used after Commit or Rollback.
var ErrTxDone = errors.New("journal transaction already finished")

// Entry is one journaled commit.
type Entry struct {
	ID          int64                `json:"id"`
	Sysname     string               `json:"sysname"`
	CommittedAt time.Time            `json:"committed_at"`
	Profiles    []model.ProfileState `json:"profiles"`
}

// Journal records committed changesets.
type Journal interface {
	// Begin stages cs. Nothing is visible until the returned Tx commits.
	Begin(ctx context.Context, cs *model.Changeset) (Tx, error)

	// Entries returns the journaled commits of a device, oldest first.
	Entries(ctx context.Context, sysname string) ([]Entry, error)

	Close() error
}

// Tx is a staged journal entry.
type Tx interface {
	Commit() error
	Rollback() error
}

// Latest folds entries into the last journaled state of each profile.
func Latest(entries []Entry) map[uint32]model.ProfileState {
	out := make(map[uint32]model.ProfileState)
	for _, e := range entries {
		for _, p := range e.Profiles {
			out[p.Index] = p
		}
	}
	return out
}

// Applier journals every changeset before handing it to the next Applier.
type Applier struct {
	journal Journal
	next    model.Applier
	logger  *slog.Logger
}

// NewApplier wraps next. A nil next journals only; a nil logger means
// slog.Default().
func NewApplier(journal Journal, next model.Applier, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{journal: journal, next: next, logger: logger}
}

// Apply stages the journal entry, applies cs, and commits the entry only if
// the apply succeeded. Once next has applied cs the device carries the
// change, so a journal commit failure after that point is logged and the
// apply still succeeds.
func (a *Applier) Apply(ctx context.Context, cs *model.Changeset) error {
	tx, err := a.journal.Begin(ctx, cs)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	if a.next == nil {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		return nil
	}
	if err := a.next.Apply(ctx, cs); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		a.logger.Error("journal commit failed after apply",
			"sysname", cs.Device.Sysname, "profiles", len(cs.Profiles), "error", err)
	}
	return nil
}
