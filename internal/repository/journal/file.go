package journal

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/fall-alarm/internal/config"
)

// Incident kinds.
const (
	KindAlertSent   = "alert_sent"
	KindAlertFailed = "alert_failed"
	KindCancelled   = "cancelled"
	KindRecovered   = "recovered"
	KindCallPlaced  = "call_placed"
	KindCallFailed  = "call_failed"
)

// maxLineSize bounds a single journal line.
const maxLineSize = 64 * 1024

// Entry is one journal record.
type Entry struct {
	// Time is when the incident happened.
	Time time.Time
	// Kind is one of the Kind constants.
	Kind string
	// Recipient is the number involved, if any.
	Recipient string
	// Detail is free text such as an error message.
	Detail string
}

// Repository defines journal operations.
type Repository interface {
	Append(ctx context.Context, entry Entry) error
	Load(ctx context.Context) ([]Entry, error)
}

// ErrNotFound is returned when the journal file does not exist yet.
var ErrNotFound = errors.New("journal not found")

// FileRepository appends entries to a file on disk.
type FileRepository struct {
	// path is the filesystem location of the journal.
	path string
	// mu serializes appends and reads.
	mu sync.Mutex
}

// NewFileRepository creates a repository writing to path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Append writes entry as one line at the end of the journal.
func (r *FileRepository) Append(_ context.Context, entry Entry) error {
	data, err := encode(entry)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, config.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	if _, err = f.Write(append(data, '\n')); err != nil {
		_ = f.Close()

		return fmt.Errorf("write journal: %w", err)
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("close journal: %w", err)
	}

	return nil
}

// Load reads every entry. Torn or foreign lines are skipped.
func (r *FileRepository) Load(_ context.Context) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read journal: %w", err)
	}

	var entries []Entry

	scanner := bufio.NewScanner(bytes.NewReader(contents))
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		entry, err := decode(scanner.Bytes())
		if err != nil {
			continue
		}

		entries = append(entries, entry)
	}

	if err = scanner.Err(); err != nil {
		return entries, fmt.Errorf("scan journal: %w", err)
	}

	return entries, nil
}

func encode(entry Entry) ([]byte, error) {
	msg, err := structpb.NewStruct(map[string]any{
		"time":      entry.Time.UTC().Format(time.RFC3339Nano),
		"kind":      entry.Kind,
		"recipient": entry.Recipient,
		"detail":    entry.Detail,
	})
	if err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}

	data, err := protojson.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode entry: %w", err)
	}

	return data, nil
}

func decode(line []byte) (Entry, error) {
	var msg structpb.Struct
	if err := protojson.Unmarshal(line, &msg); err != nil {
		return Entry{}, fmt.Errorf("decode entry: %w", err)
	}

	fields := msg.GetFields()

	ts, err := time.Parse(time.RFC3339Nano, fields["time"].GetStringValue())
	if err != nil {
		return Entry{}, fmt.Errorf("decode entry time: %w", err)
	}

	return Entry{
		Time:      ts,
		Kind:      fields["kind"].GetStringValue(),
		Recipient: fields["recipient"].GetStringValue(),
		Detail:    fields["detail"].GetStringValue(),
	}, nil
}
