package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "nested", "progress.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestOpen_CreatesSchema(t *testing.T) {
	l := openTestLedger(t)

	titles, err := l.Titles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func TestRecordAndGet(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	run, err := l.StartRun(ctx, "studies.csv", "google/gemma-3n-e4b")
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	require.NoError(t, l.Record(ctx, Outcome{RunID: run.ID, Title: "Audit A", IsAudit: true, Domain: "Search"}))
	require.NoError(t, l.Record(ctx, Outcome{RunID: run.ID, Title: "Paper B"}))

	o, ok, err := l.Get(ctx, "Audit A")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, o.IsAudit)
	assert.Equal(t, "Search", o.Domain)
	assert.Equal(t, run.ID, o.RunID)
	assert.False(t, o.RecordedAt.IsZero())

	_, ok, err = l.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := l.Stats(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStats{Processed: 2, Audits: 1}, stats)
}

func TestRecord_ReplacesEarlierOutcome(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	require.NoError(t, l.Record(ctx, Outcome{RunID: "r1", Title: "T", IsAudit: false}))
	require.NoError(t, l.Record(ctx, Outcome{RunID: "r2", Title: "T", IsAudit: true}))

	o, _, err := l.Get(ctx, "T")
	require.NoError(t, err)
	assert.True(t, o.IsAudit)
	assert.Equal(t, "r2", o.RunID)

	titles, err := l.Titles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"T"}, titles)
}

func TestImportTitles(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)

	require.NoError(t, l.Record(ctx, Outcome{RunID: "r1", Title: "kept", IsAudit: true}))

	added, err := l.ImportTitles(ctx, "legacy", []string{"kept", "new one", "new two"})
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	o, _, err := l.Get(ctx, "kept")
	require.NoError(t, err)
	assert.True(t, o.IsAudit, "existing verdicts are not overwritten")

	titles, err := l.Titles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"kept", "new one", "new two"}, titles)
}

func TestReopenKeepsProgress(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.db")

	l, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, l.Record(ctx, Outcome{RunID: "r", Title: "T"}))
	require.NoError(t, l.Close())

	l, err = Open(path)
	require.NoError(t, err)
	defer l.Close()
	titles, err := l.Titles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"T"}, titles)
}

func TestClosedLedger(t *testing.T) {
	ctx := context.Background()
	l := openTestLedger(t)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close(), "second close is a no-op")

	assert.ErrorIs(t, l.Record(ctx, Outcome{Title: "x"}), ErrNotOpen)
	_, err := l.Titles(ctx)
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = l.StartRun(ctx, "", "")
	assert.ErrorIs(t, err, ErrNotOpen)

	var nilLedger *Ledger
	_, err = nilLedger.Stats(ctx, "r")
	assert.ErrorIs(t, err, ErrNotOpen)
}
