package device

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "fallalarm.v1.DeviceService"

const (
	getStatusMethod = "/" + ServiceName + "/GetStatus"
	cancelMethod    = "/" + ServiceName + "/Cancel"
)

// DeviceServiceServer is the server API of the status service.
//
//nolint:revive // Mirrors generated naming.
type DeviceServiceServer interface {
	// GetStatus returns the last published device snapshot.
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	// Cancel asks the device to stop a running countdown.
	Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// DeviceServiceClient is the client API of the status service.
//
//nolint:revive // Mirrors generated naming.
type DeviceServiceClient interface {
	GetStatus(ctx context.Context, req *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Cancel(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
}

// ServiceDesc describes DeviceService for grpc.Server.
//
//nolint:gochecknoglobals // Service descriptor consumed by grpc.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DeviceServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler:    getStatusHandler,
		},
		{
			MethodName: "Cancel",
			Handler:    cancelHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fallalarm/v1/device.proto",
}

// RegisterDeviceServiceServer registers srv on s.
func RegisterDeviceServiceServer(s grpc.ServiceRegistrar, srv DeviceServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type deviceServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewDeviceServiceClient creates a client over cc.
func NewDeviceServiceClient(cc grpc.ClientConnInterface) DeviceServiceClient {
	return &deviceServiceClient{cc: cc}
}

func (c *deviceServiceClient) GetStatus(
	ctx context.Context,
	req *emptypb.Empty,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getStatusMethod, req, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func (c *deviceServiceClient) Cancel(
	ctx context.Context,
	req *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, cancelMethod, req, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}

func getStatusHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	server, _ := srv.(DeviceServiceServer)
	if interceptor == nil {
		return server.GetStatus(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: getStatusMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		in, _ := req.(*emptypb.Empty)

		return server.GetStatus(ctx, in)
	}

	return interceptor(ctx, in, info, handler)
}

func cancelHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}

	server, _ := srv.(DeviceServiceServer)
	if interceptor == nil {
		return server.Cancel(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: cancelMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		in, _ := req.(*structpb.Struct)

		return server.Cancel(ctx, in)
	}

	return interceptor(ctx, in, info, handler)
}
