package journal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for a missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.jsonl"))

	entries, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, entries)
}

// TestFileRepository_AppendLoad ensures appended entries come back in order.
func TestFileRepository_AppendLoad(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "incidents.jsonl")
	repo := NewFileRepository(path)

	ts := time.Date(2026, 10, 18, 9, 30, 0, 123000000, time.UTC)
	want := []Entry{
		{Time: ts, Kind: KindAlertSent, Recipient: "+639629248120"},
		{Time: ts.Add(time.Minute), Kind: KindAlertFailed, Recipient: "+639629248120", Detail: "no network"},
		{Time: ts.Add(2 * time.Minute), Kind: KindRecovered},
	}

	for _, e := range want {
		require.NoError(t, repo.Append(ctx, e))
	}

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, len(want))

	for i := range want {
		require.True(t, want[i].Time.Equal(got[i].Time))
		require.Equal(t, want[i].Kind, got[i].Kind)
		require.Equal(t, want[i].Recipient, got[i].Recipient)
		require.Equal(t, want[i].Detail, got[i].Detail)
	}
}

// TestFileRepository_SkipsTornLines ignores a partial last line.
func TestFileRepository_SkipsTornLines(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "incidents.jsonl")
	repo := NewFileRepository(path)

	require.NoError(t, repo.Append(ctx, Entry{Time: time.Now(), Kind: KindCancelled}))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)

	_, err = f.WriteString(`{"time":"2026-`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, KindCancelled, got[0].Kind)
}
