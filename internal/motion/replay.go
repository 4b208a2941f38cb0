package motion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/oshokin/fall-alarm/internal/device"
	"github.com/oshokin/fall-alarm/internal/domain/fall"
)

const columns = 6

// ErrExhausted is returned by Read once a non-looping trace has been consumed.
var ErrExhausted = errors.New("motion trace exhausted")

// Replay is a MotionSource backed by a CSV trace.
// Without loop it decodes one row per Read, so a live pipe works.
// With loop the whole trace is held in memory.
type Replay struct {
	mu      sync.Mutex
	stream  *traceReader
	closer  io.Closer
	samples []fall.Sample
	pos     int
	loop    bool
}

type traceReader struct {
	csv  *csv.Reader
	seen bool
}

func newTraceReader(r io.Reader) *traceReader {
	reader := csv.NewReader(r)
	reader.Comment = '#'
	reader.FieldsPerRecord = columns
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	return &traceReader{csv: reader}
}

// next returns io.EOF at the end of the trace.
func (t *traceReader) next() (fall.Sample, error) {
	for {
		record, err := t.csv.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fall.Sample{}, io.EOF
			}

			return fall.Sample{}, fmt.Errorf("read trace: %w", err)
		}

		first := !t.seen
		t.seen = true

		if first && strings.EqualFold(strings.TrimSpace(record[0]), "ax") {
			continue
		}

		sample, err := parseRecord(record)
		if err != nil {
			line, _ := t.csv.FieldPos(0)

			return fall.Sample{}, fmt.Errorf("line %d: %w", line, err)
		}

		return sample, nil
	}
}

// Parse reads a whole CSV trace.
func Parse(r io.Reader) ([]fall.Sample, error) {
	t := newTraceReader(r)

	var samples []fall.Sample

	for {
		sample, err := t.next()
		if errors.Is(err, io.EOF) {
			return samples, nil
		}

		if err != nil {
			return nil, err
		}

		samples = append(samples, sample)
	}
}

// Open opens the trace at path. Without loop rows are read lazily and the
// caller must Close the replay.
func Open(path string, loop bool) (*Replay, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open trace: %w", err)
	}

	if !loop {
		return NewStream(f), nil
	}

	defer func() {
		_ = f.Close()
	}()

	samples, err := Parse(f)
	if err != nil {
		return nil, err
	}

	return NewReplay(samples, loop), nil
}

// NewStream decodes rows from r as they arrive. If r is an io.Closer, Close closes it.
func NewStream(r io.Reader) *Replay {
	replay := &Replay{stream: newTraceReader(r)}

	if c, ok := r.(io.Closer); ok {
		replay.closer = c
	}

	return replay
}

// NewReplay wraps samples. With loop set the trace restarts after its last sample.
func NewReplay(samples []fall.Sample, loop bool) *Replay {
	return &Replay{
		samples: samples,
		loop:    loop,
	}
}

// Read returns the next sample of the trace.
func (r *Replay) Read(ctx context.Context) (fall.Sample, error) {
	if err := ctx.Err(); err != nil {
		return fall.Sample{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stream != nil {
		sample, err := r.stream.next()
		if errors.Is(err, io.EOF) {
			return fall.Sample{}, fmt.Errorf("%w: %w", device.ErrSensorUnavailable, ErrExhausted)
		}

		if err != nil {
			return fall.Sample{}, fmt.Errorf("%w: %w", device.ErrSensorUnavailable, err)
		}

		return sample, nil
	}

	if r.pos >= len(r.samples) {
		if !r.loop || len(r.samples) == 0 {
			return fall.Sample{}, fmt.Errorf("%w: %w", device.ErrSensorUnavailable, ErrExhausted)
		}

		r.pos = 0
	}

	sample := r.samples[r.pos]
	r.pos++

	return sample, nil
}

// Close releases the underlying file of a streamed trace.
func (r *Replay) Close() error {
	if r.closer == nil {
		return nil
	}

	return r.closer.Close()
}

func parseRecord(record []string) (fall.Sample, error) {
	var values [columns]int16

	for i, field := range record {
		v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 16)
		if err != nil {
			return fall.Sample{}, fmt.Errorf("column %d: %w", i+1, err)
		}

		values[i] = int16(v)
	}

	return fall.Sample{
		AX: values[0], AY: values[1], AZ: values[2],
		GX: values[3], GY: values[4], GZ: values[5],
	}, nil
}
