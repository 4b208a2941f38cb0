package ctl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oshokin/fall-alarm/internal/config"
	"github.com/oshokin/fall-alarm/internal/logger"
	"github.com/oshokin/fall-alarm/internal/repository/journal"
)

var errNoJournal = errors.New("no journal file configured")

// Journal prints the incident journal of the device, oldest first.
// Only the last opts.Limit entries are shown when Limit is positive.
func Journal(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "fall-alarm-ctl")

	path := opts.JournalFile
	if path == "" {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return err
		}

		path = cfg.JournalFile
	}

	if path == "" {
		return errNoJournal
	}

	logger.DebugKV(ctx, "Reading journal", "path", path)

	entries, err := journal.NewFileRepository(path).Load(ctx)
	if errors.Is(err, journal.ErrNotFound) {
		_, _ = fmt.Fprintln(opts.Out, "No incidents recorded")

		return nil
	}

	if err != nil {
		return err
	}

	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[len(entries)-opts.Limit:]
	}

	_, _ = fmt.Fprint(opts.Out, FormatJournal(entries))

	return nil
}

// FormatJournal renders one line per entry.
func FormatJournal(entries []journal.Entry) string {
	if len(entries) == 0 {
		return "No incidents recorded\n"
	}

	var b strings.Builder

	for _, e := range entries {
		_, _ = fmt.Fprintf(&b, "%s  %-12s", formatTime(e.Time), e.Kind)

		if e.Recipient != "" {
			_, _ = fmt.Fprintf(&b, "  %s", e.Recipient)
		}

		if e.Detail != "" {
			_, _ = fmt.Fprintf(&b, "  (%s)", e.Detail)
		}

		b.WriteByte('\n')
	}

	return b.String()
}
