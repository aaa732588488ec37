package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/nexconsult/tracuunnt-api/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T) storage.Backend {
	t.Helper()
	b, err := New(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestSQLiteBackend(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	now := time.Now()

	run := &storage.RunRecord{
		ID:        "run-1",
		Site:      "business",
		Command:   "pinpoint",
		Criteria:  "{'taxnum': '0301234567'}",
		Status:    storage.StatusSuccess,
		Attempts:  2,
		Duration:  1500 * time.Millisecond,
		Result:    json.RawMessage(`{"command":"pinpoint","result":null}`),
		CreatedAt: now,
	}
	require.NoError(t, b.Save(ctx, run))

	results, err := b.Query(ctx, storage.Filter{Site: "business"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Command, got.Command)
	assert.Equal(t, run.Criteria, got.Criteria)
	assert.Equal(t, run.Attempts, got.Attempts)
	assert.Equal(t, run.Duration, got.Duration)
	assert.JSONEq(t, string(run.Result), string(got.Result))
	assert.Empty(t, got.Error)
	assert.Equal(t, now.UnixNano(), got.CreatedAt.UnixNano())

	results, err = b.Query(ctx, storage.Filter{Site: "personal"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLiteBackendOrderingAndPaging(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, status := range []string{storage.StatusSuccess, storage.StatusFailed, storage.StatusSuccess} {
		require.NoError(t, b.Save(ctx, &storage.RunRecord{
			ID:        string(rune('a' + i)),
			Site:      "personal",
			Command:   "sweep",
			Criteria:  "{'name': 'x'}",
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := b.Query(ctx, storage.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})

	failed, err := b.Query(ctx, storage.Filter{Status: storage.StatusFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].ID)

	page, err := b.Query(ctx, storage.Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ID)

	tail, err := b.Query(ctx, storage.Filter{Offset: 2})
	require.NoError(t, err)
	require.Len(t, tail, 1)
	assert.Equal(t, "a", tail[0].ID)

	since := base.Add(90 * time.Second)
	recent, err := b.Query(ctx, storage.Filter{Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
