package grpc

import (
	"context"

	"github.com/dmitrijs2005/feedkeeper/internal/wire"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

func (s *GRPCServer) Ping(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) CreateHousehold(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := wire.String(req, "household_id")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if err := s.households.CreateHousehold(ctx, id); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) FindHousehold(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := wire.String(req, "household_id")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	if _, err := s.households.FindHousehold(ctx, id); err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) RegisterMember(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	hh, err := wire.String(req, "household_id")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	device, err := wire.String(req, "device_id")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	id, err := s.households.RegisterMember(ctx, hh, device)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	s.logger.Info(ctx, "member registered", "household", hh, "device", device, "member", id)
	return wire.Strings(map[string]string{"member_id": id}), nil
}

func (s *GRPCServer) UpsertRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	r, err := wire.DecodeRecord(req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	applied, err := s.households.UpsertRecord(ctx, r)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"applied": structpb.NewBoolValue(applied),
	}}, nil
}

func (s *GRPCServer) ChangedSince(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	q, err := wire.DecodeQuery(req)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	recs, err := s.households.ChangedSince(ctx, q)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp, err := wire.EncodeRecords(recs)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return resp, nil
}

func (s *GRPCServer) Archive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	hh, err := wire.String(req, "household_id")
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	link, err := s.households.Archive(ctx, hh)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	resp, err := wire.EncodeArchiveLink(link)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return resp, nil
}
