package ctl

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/fall-alarm/internal/repository/journal"
)

func writeJournal(t *testing.T, entries ...journal.Entry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "journal.log")
	repo := journal.NewFileRepository(path)

	for _, e := range entries {
		require.NoError(t, repo.Append(context.Background(), e))
	}

	return path
}

func TestJournal(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	path := writeJournal(t,
		journal.Entry{Time: at, Kind: journal.KindAlertFailed, Recipient: "+15550001111", Detail: "no network"},
		journal.Entry{Time: at.Add(time.Minute), Kind: journal.KindAlertSent, Recipient: "+15550001111"},
		journal.Entry{Time: at.Add(time.Hour), Kind: journal.KindCancelled},
	)

	out := new(bytes.Buffer)
	require.NoError(t, Journal(context.Background(), &Options{ConfigPath: emptySettings(t), JournalFile: path, Out: out}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "alert_failed")
	require.Contains(t, lines[0], "(no network)")
	require.Contains(t, lines[1], "+15550001111")
	require.Contains(t, lines[2], "cancelled")

	out.Reset()
	require.NoError(t, Journal(context.Background(), &Options{JournalFile: path, Limit: 1, Out: out}))
	require.Equal(t, 1, strings.Count(out.String(), "\n"))
	require.Contains(t, out.String(), "cancelled")
}

func TestJournalFromConfig(t *testing.T) {
	t.Parallel()

	path := writeJournal(t, journal.Entry{Time: time.Now(), Kind: journal.KindRecovered})

	settings := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(settings, []byte("journal_file: "+path+"\n"), 0o600))

	out := new(bytes.Buffer)
	require.NoError(t, Journal(context.Background(), &Options{ConfigPath: settings, Out: out}))
	require.Contains(t, out.String(), "recovered")
}

func TestJournalMissing(t *testing.T) {
	t.Parallel()

	out := new(bytes.Buffer)
	err := Journal(context.Background(), &Options{
		JournalFile: filepath.Join(t.TempDir(), "missing.log"),
		Out:         out,
	})
	require.NoError(t, err)
	require.Equal(t, "No incidents recorded\n", out.String())

	err = Journal(context.Background(), &Options{ConfigPath: emptySettings(t), Out: out})
	require.ErrorIs(t, err, errNoJournal)
}
