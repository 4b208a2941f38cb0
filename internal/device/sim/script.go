package sim

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/oshokin/fall-alarm/internal/domain/fall"
)

// Reference samples in ±2g sensor units.
var (
	// Resting is a still wrist with gravity on Z.
	Resting = fall.Sample{AZ: 16384}
	// Weightless is the low-g dip of a free fall.
	Weightless = fall.Sample{AX: 800, AY: -600, AZ: 1500}
	// Impact is the high-g spike of hitting the ground.
	Impact = fall.Sample{AX: 28000, AY: 21000, AZ: 24000}
	// Lying is the wearer motionless on the floor.
	Lying = fall.Sample{AX: 16384}
	// GettingUp is the wearer standing back up with the wrist rotating.
	GettingUp = fall.Sample{AX: 2000, AZ: 16000, GX: 4500, GY: -1200}
)

// Phase repeats Sample for Duration.
type Phase struct {
	Sample   fall.Sample
	Duration time.Duration
}

// Script is a MotionSource that replays phases at a fixed tick period and then
// keeps returning the last sample.
type Script struct {
	mu      sync.Mutex
	samples []fall.Sample
	pos     int
}

// NewScript expands phases into one sample per tick.
func NewScript(tick time.Duration, phases ...Phase) *Script {
	var samples []fall.Sample

	for _, p := range phases {
		n := max(int(p.Duration/tick), 1)
		for range n {
			samples = append(samples, p.Sample)
		}
	}

	if len(samples) == 0 {
		samples = []fall.Sample{Resting}
	}

	return &Script{
		samples: samples,
	}
}

// Read returns the next scripted sample.
func (s *Script) Read(ctx context.Context) (fall.Sample, error) {
	if err := ctx.Err(); err != nil {
		return fall.Sample{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sample := s.samples[s.pos]
	if s.pos < len(s.samples)-1 {
		s.pos++
	}

	return sample, nil
}

// Done reports whether the script reached its last sample.
func (s *Script) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pos == len(s.samples)-1
}

// Len returns the number of scripted ticks.
func (s *Script) Len() int {
	return len(s.samples)
}

// scenarios maps scenario names to their phases given the countdown length.
//
//nolint:gochecknoglobals // Read-only scenario table.
var scenarios = map[string]func(countdown time.Duration) []Phase{
	"idle": func(time.Duration) []Phase {
		return []Phase{{Resting, 3 * time.Second}}
	},
	"bump": func(time.Duration) []Phase {
		return []Phase{
			{Resting, time.Second},
			{Impact, 40 * time.Millisecond},
			{Resting, 2 * time.Second},
		}
	},
	"fall": func(countdown time.Duration) []Phase {
		return []Phase{
			{Resting, time.Second},
			{Weightless, 300 * time.Millisecond},
			{Impact, 40 * time.Millisecond},
			{Lying, countdown + 2*time.Second},
		}
	},
	"fall-recover": func(countdown time.Duration) []Phase {
		return []Phase{
			{Resting, time.Second},
			{Weightless, 300 * time.Millisecond},
			{Impact, 40 * time.Millisecond},
			{Lying, countdown + 2*time.Second},
			{GettingUp, 200 * time.Millisecond},
			{Resting, time.Second},
		}
	},
}

// Scenarios returns the available scenario names.
func Scenarios() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// NewScenario builds the named scenario.
func NewScenario(name string, tick, countdown time.Duration) (*Script, error) {
	build, ok := scenarios[name]
	if !ok {
		return nil, fmt.Errorf("unknown scenario %q, expected one of %v", name, Scenarios())
	}

	return NewScript(tick, build(countdown)...), nil
}
