package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/fall-alarm/internal/domain/fall"
)

// TestModem_Inbox stores messages in the lowest free slot.
func TestModem_Inbox(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewModem(2)

	i, err := m.Deliver("/test")
	require.NoError(t, err)
	require.Equal(t, 1, i)

	i, err = m.Deliver("hello")
	require.NoError(t, err)
	require.Equal(t, 2, i)

	_, err = m.Deliver("overflow")
	require.ErrorIs(t, err, ErrSlotsFull)

	text, ok, err := m.ReadMessageAt(ctx, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "hello", text)

	require.NoError(t, m.DeleteMessageAt(ctx, 1))
	require.Equal(t, []int{2}, m.Inbox())

	_, ok, err = m.ReadMessageAt(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestModemRange_Deliver fills slots from the first polled index.
func TestModemRange_Deliver(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewModemRange(5, 6)

	i, err := m.Deliver("/test")
	require.NoError(t, err)
	require.Equal(t, 5, i)

	i, err = m.Deliver("/test")
	require.NoError(t, err)
	require.Equal(t, 6, i)

	_, err = m.Deliver("overflow")
	require.ErrorIs(t, err, ErrSlotsFull)

	_, ok, err := m.ReadMessageAt(ctx, 1)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, []int{5, 6}, m.Inbox())
}

// TestModem_Outbox records sends and honours injected failures.
func TestModem_Outbox(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewModem(1)
	m.FailNext(1)

	require.Error(t, m.SendText(ctx, "+1", "lost"))
	require.NoError(t, m.SendText(ctx, "+1", "hi"))
	require.NoError(t, m.PlaceCall(ctx, "+1"))

	out := m.Outbox()
	require.Len(t, out, 2)
	require.Equal(t, KindText, out[0].Kind)
	require.Equal(t, "hi", out[0].Body)
	require.Equal(t, KindCall, out[1].Kind)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	require.Error(t, m.SendText(cancelled, "+1", "late"))
}

// TestScript replays phases then sticks to the last sample.
func TestScript(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewScript(10*time.Millisecond,
		Phase{Resting, 20 * time.Millisecond},
		Phase{Impact, time.Millisecond},
	)
	require.Equal(t, 3, s.Len())

	got := make([]fall.Sample, 0, 5)

	for range 5 {
		sample, err := s.Read(ctx)
		require.NoError(t, err)

		got = append(got, sample)
	}

	require.Equal(t, []fall.Sample{Resting, Resting, Impact, Impact, Impact}, got)
	require.True(t, s.Done())
}

// TestScenarios checks the reference samples classify as intended.
func TestScenarios(t *testing.T) {
	t.Parallel()

	th := fall.DefaultThresholds()

	require.True(t, th.IsFreeFall(Weightless.Magnitude()))
	require.True(t, th.IsImpact(Impact.Magnitude()))
	require.False(t, th.IsRecovery(Lying.Magnitude(), Lying))
	require.True(t, th.IsRecovery(GettingUp.Magnitude(), GettingUp))

	require.Equal(t, []string{"bump", "fall", "fall-recover", "idle"}, Scenarios())

	_, err := NewScenario("cartwheel", 20*time.Millisecond, time.Second)
	require.Error(t, err)

	s, err := NewScenario("fall", 20*time.Millisecond, time.Second)
	require.NoError(t, err)
	require.Positive(t, s.Len())
}
