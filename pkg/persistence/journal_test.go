package persistence

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/libratbag/ratbag-go/pkg/model"
	"github.com/libratbag/ratbag-go/pkg/model/mocks"
)

func newDevice(t *testing.T, applier model.Applier) *model.Device {
	t.Helper()
	d, err := model.NewDevice(model.Info{Sysname: "mouse0", Name: "Mouse"}, []model.ProfileState{
		{IsActive: true, ReportRate: 1000, ReportRates: []uint32{500, 1000}},
		{Name: "spare", ReportRate: 1000, ReportRates: []uint32{500, 1000}},
	}, applier)
	require.NoError(t, err)
	return d
}

func journals(t *testing.T) map[string]Journal {
	t.Helper()
	sqlite, err := NewSQLiteJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Journal{
		"SQLite": sqlite,
		"File":   NewFileJournal(filepath.Join(t.TempDir(), "sub", "journal.json")),
	}
}

func TestJournalRecordsCommits(t *testing.T) {
	for name, j := range journals(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			d := newDevice(t, NewApplier(j, nil, nil))

			p1, _ := d.Profile(1)
			require.NoError(t, p1.SetActive())
			require.NoError(t, d.Commit(ctx))

			p0, _ := d.Profile(0)
			require.NoError(t, p0.SetReportRate(500))
			require.NoError(t, d.Commit(ctx))

			entries, err := j.Entries(ctx, "mouse0")
			require.NoError(t, err)
			require.Len(t, entries, 2)
			assert.Less(t, entries[0].ID, entries[1].ID)
			assert.Len(t, entries[0].Profiles, 2)
			assert.Len(t, entries[1].Profiles, 1)
			assert.False(t, entries[0].CommittedAt.IsZero())

			latest := Latest(entries)
			assert.True(t, latest[1].IsActive)
			assert.Equal(t, "spare", latest[1].Name)
			assert.Equal(t, uint32(500), latest[0].ReportRate)

			other, err := j.Entries(ctx, "mouse1")
			require.NoError(t, err)
			assert.Empty(t, other)
		})
	}
}

func TestJournalRollsBackOnApplyFailure(t *testing.T) {
	for name, j := range journals(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			next := mocks.NewMockApplier(t)
			next.EXPECT().Apply(mock.Anything, mock.Anything).Return(errors.New("usb stall")).Once()
			d := newDevice(t, NewApplier(j, next, nil))

			p0, _ := d.Profile(0)
			require.NoError(t, p0.SetReportRate(500))
			err := d.Commit(ctx)
			assert.ErrorIs(t, err, model.ErrCommit)
			assert.True(t, p0.IsDirty())

			entries, err := j.Entries(ctx, "mouse0")
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

// brokenJournal stages entries in an inner journal but fails every commit.
type brokenJournal struct {
	Journal
	err error
}

func (j *brokenJournal) Begin(ctx context.Context, cs *model.Changeset) (Tx, error) {
	tx, err := j.Journal.Begin(ctx, cs)
	if err != nil {
		return nil, err
	}
	return &brokenTx{Tx: tx, err: j.err}, nil
}

type brokenTx struct {
	Tx
	err error
}

func (t *brokenTx) Commit() error {
	_ = t.Tx.Rollback()
	return t.err
}

func TestJournalCommitFailureAfterApply(t *testing.T) {
	ctx := context.Background()
	inner := NewFileJournal(filepath.Join(t.TempDir(), "journal.json"))
	j := &brokenJournal{Journal: inner, err: errors.New("disk full")}

	next := mocks.NewMockApplier(t)
	next.EXPECT().Apply(mock.Anything, mock.Anything).Return(nil).Once()
	d := newDevice(t, NewApplier(j, next, nil))

	p0, _ := d.Profile(0)
	require.NoError(t, p0.SetReportRate(500))
	require.NoError(t, d.Commit(ctx))
	assert.False(t, p0.IsDirty())
	assert.Equal(t, uint32(500), p0.ReportRate())

	entries, err := inner.Entries(ctx, "mouse0")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestJournalOnlyCommitFailure(t *testing.T) {
	j := &brokenJournal{Journal: NewFileJournal(filepath.Join(t.TempDir(), "journal.json")), err: errors.New("disk full")}
	d := newDevice(t, NewApplier(j, nil, nil))

	p0, _ := d.Profile(0)
	require.NoError(t, p0.SetReportRate(500))
	assert.ErrorIs(t, d.Commit(context.Background()), model.ErrCommit)
	assert.True(t, p0.IsDirty())
}

func TestTxFinishedTwice(t *testing.T) {
	for name, j := range journals(t) {
		t.Run(name, func(t *testing.T) {
			tx, err := j.Begin(context.Background(), &model.Changeset{Device: model.Info{Sysname: "mouse0"}})
			require.NoError(t, err)
			require.NoError(t, tx.Rollback())
			assert.ErrorIs(t, tx.Commit(), ErrTxDone)
			assert.ErrorIs(t, tx.Rollback(), ErrTxDone)
		})
	}
}

func TestFileJournalTrims(t *testing.T) {
	ctx := context.Background()
	j := NewFileJournal(filepath.Join(t.TempDir(), "journal.json"))
	j.MaxEntries = 2

	for _, sysname := range []string{"a", "b", "a", "a"} {
		tx, err := j.Begin(ctx, &model.Changeset{Device: model.Info{Sysname: sysname}})
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
	}

	a, err := j.Entries(ctx, "a")
	require.NoError(t, err)
	require.Len(t, a, 2)
	assert.Equal(t, int64(3), a[0].ID)
	assert.Equal(t, int64(4), a[1].ID)

	b, err := j.Entries(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, b, 1)

	require.NoError(t, j.Clear())
	require.NoError(t, j.Clear())
	a, err = j.Entries(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, a)
}

func TestSQLiteJournalPrune(t *testing.T) {
	ctx := context.Background()
	j, err := NewSQLiteJournal(":memory:")
	require.NoError(t, err)
	defer j.Close()

	for i := 0; i < 3; i++ {
		tx, err := j.Begin(ctx, &model.Changeset{
			Device:   model.Info{Sysname: "mouse0"},
			Profiles: []model.ProfileState{{Index: 0, ReportRate: uint32(250 * (i + 1))}},
		})
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
	}

	n, err := j.Prune(ctx, "mouse0", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err := j.Entries(ctx, "mouse0")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint32(750), entries[0].Profiles[0].ReportRate)
}
