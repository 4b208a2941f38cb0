//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/oshokin/fall-alarm/internal/api/grpc/device"
	"github.com/oshokin/fall-alarm/internal/config"
	"github.com/oshokin/fall-alarm/internal/domain/fall"
)

// Client wraps the DeviceService gRPC client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the device.
	conn *grpc.ClientConn
	// api is the DeviceService client.
	api device.DeviceServiceClient

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errActorRequired is returned when an actor is not provided but is required for the operation.
	errActorRequired = errors.New("actor must be provided")
)

// Dial creates a client of the status service at address.
// The transport is plaintext; the service is meant for localhost or a trusted link.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial device: %w", err)
	}

	return NewClient(conn, opts...), nil
}

// NewClient wraps an existing connection. Close closes conn.
func NewClient(conn *grpc.ClientConn, opts ...Option) *Client {
	client := &Client{
		conn:        conn,
		api:         device.NewDeviceServiceClient(conn),
		callTimeout: config.DefaultStatusTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetStatus retrieves the current device snapshot.
func (c *Client) GetStatus(ctx context.Context) (*fall.Snapshot, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.GetStatus(callCtx, new(emptypb.Empty))
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	snap, err := device.SnapshotFromStruct(resp)
	if err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}

	return snap, nil
}

// Cancel asks the device to stop a running countdown and reports whether it was accepted.
func (c *Client) Cancel(ctx context.Context, actor fall.Actor) (*fall.Snapshot, bool, error) {
	if actor.Hostname == "" || actor.Username == "" {
		return nil, false, errActorRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	resp, err := c.api.Cancel(callCtx, device.ActorToStruct(actor))
	if err != nil {
		return nil, false, fmt.Errorf("cancel countdown: %w", err)
	}

	fields := resp.GetFields()

	snap, err := device.SnapshotFromStruct(fields[device.FieldStatus].GetStructValue())
	if err != nil {
		return nil, false, fmt.Errorf("decode status: %w", err)
	}

	return snap, fields[device.FieldAccepted].GetBoolValue(), nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
