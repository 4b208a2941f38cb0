//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/oshokin/fall-alarm/internal/api/grpc/device"
	"github.com/oshokin/fall-alarm/internal/domain/fall"
)

type stubService struct {
	snap fall.Snapshot
}

func (s *stubService) Snapshot(context.Context) *fall.Snapshot {
	return s.snap.Clone()
}

func (s *stubService) Cancel(context.Context, fall.Actor) (*fall.Snapshot, bool) {
	accepted := s.snap.State == fall.Countdown
	if accepted {
		s.snap.State = fall.Normal
	}

	return s.snap.Clone(), accepted
}

func newBufClient(t *testing.T, svc device.Service) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	device.RegisterDeviceServiceServer(srv, device.NewServer(svc))

	go func() {
		_ = srv.Serve(lis)
	}()

	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	client := NewClient(conn, WithCallTimeout(5*time.Second))
	t.Cleanup(func() { _ = client.Close() })

	return client
}

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestCancel_EmptyActor asserts that an incomplete actor is rejected by the client.
func TestCancel_EmptyActor(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, _, err := c.Cancel(context.Background(), fall.Actor{})
	require.ErrorIs(t, err, errActorRequired)
}

// TestClient_StatusAndCancel drives both calls against an in-memory server.
func TestClient_StatusAndCancel(t *testing.T) {
	t.Parallel()

	svc := &stubService{snap: fall.Snapshot{State: fall.Countdown, Recipient: "+639629248120"}}
	c := newBufClient(t, svc)
	actor := fall.Actor{Hostname: "desk", Username: "nurse"}

	snap, err := c.GetStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, fall.Countdown, snap.State)
	require.Equal(t, "+639629248120", snap.Recipient)

	snap, accepted, err := c.Cancel(context.Background(), actor)
	require.NoError(t, err)
	require.True(t, accepted)
	require.Equal(t, fall.Normal, snap.State)

	_, accepted, err = c.Cancel(context.Background(), actor)
	require.NoError(t, err)
	require.False(t, accepted)
}
