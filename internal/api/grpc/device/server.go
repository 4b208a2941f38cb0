package device

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/fall-alarm/internal/domain/fall"
	"github.com/oshokin/fall-alarm/internal/logger"
)

// Service abstracts the device operations the transport layer depends on.
type Service interface {
	Snapshot(ctx context.Context) *fall.Snapshot
	Cancel(ctx context.Context, actor fall.Actor) (*fall.Snapshot, bool)
}

var _ DeviceServiceServer = (*Server)(nil)

// Server implements DeviceServiceServer.
type Server struct {
	// service provides the device operations.
	service Service
}

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetStatus returns the current device snapshot.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	doc, err := SnapshotToStruct(s.service.Snapshot(ctx))
	if err != nil {
		logger.ErrorKV(ctx, "Unable to encode status", "error", err)

		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return doc, nil
}

// Cancel stops a running countdown on behalf of the requesting actor.
func (s *Server) Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	actor, err := ActorFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	snap, accepted := s.service.Cancel(ctx, actor)

	doc, err := SnapshotToStruct(snap)
	if err != nil {
		logger.ErrorKV(ctx, "Unable to encode status", "error", err)

		return nil, status.Error(codes.Internal, "unable to encode status")
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			FieldAccepted: structpb.NewBoolValue(accepted),
			FieldStatus:   structpb.NewStructValue(doc),
		},
	}, nil
}
