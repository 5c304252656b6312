package grpc

import (
	"context"

	"github.com/dmitrijs2005/feedkeeper/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// HouseholdServer is the server API of the feedkeeper.v1.Household service.
// Requests and replies are google.protobuf.Struct messages whose layout is
// defined by package wire.
type HouseholdServer interface {
	Ping(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	CreateHousehold(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	FindHousehold(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	RegisterMember(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpsertRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ChangedSince(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Archive(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// householdServiceDesc registers HouseholdServer without generated stubs.
var householdServiceDesc = grpc.ServiceDesc{
	ServiceName: wire.ServiceName,
	HandlerType: (*HouseholdServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Ping", HouseholdServer.Ping),
		unary("CreateHousehold", HouseholdServer.CreateHousehold),
		unary("FindHousehold", HouseholdServer.FindHousehold),
		unary("RegisterMember", HouseholdServer.RegisterMember),
		unary("UpsertRecord", HouseholdServer.UpsertRecord),
		unary("ChangedSince", HouseholdServer.ChangedSince),
		unary("Archive", HouseholdServer.Archive),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "feedkeeper/v1/household.proto",
}

// RegisterHouseholdServer attaches srv to s.
func RegisterHouseholdServer(s grpc.ServiceRegistrar, srv HouseholdServer) {
	s.RegisterService(&householdServiceDesc, srv)
}

// unary builds the method descriptor that decodes a Req, runs the
// interceptor chain and dispatches to call.
func unary[Req any, PReq interface {
	*Req
	proto.Message
}, Resp proto.Message](name string, call func(HouseholdServer, context.Context, PReq) (Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + wire.ServiceName + "/" + name

	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(HouseholdServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(HouseholdServer), ctx, req.(PReq))
			})
		},
	}
}
