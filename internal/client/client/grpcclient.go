package client

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/wire"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// GRPCClient implements Gateway over the feedkeeper.v1.Household service.
// It is constructed once at startup and shared by every component that
// talks to the server.
type GRPCClient struct {
	conn   grpc.ClientConnInterface
	closer io.Closer

	mu       sync.RWMutex
	deviceID string
}

var _ Gateway = (*GRPCClient)(nil)

// NewGRPCClient dials endpoint lazily; no network traffic happens until the
// first call.
func NewGRPCClient(endpoint string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{}
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.deviceIDInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc client: %w", err)
	}
	c.conn = conn
	c.closer = conn
	return c, nil
}

// SetDeviceID sets the device id sent with every call.
func (c *GRPCClient) SetDeviceID(id string) {
	c.mu.Lock()
	c.deviceID = id
	c.mu.Unlock()
}

func (c *GRPCClient) currentDeviceID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceID
}

func withDeviceID(ctx context.Context, id string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.DeviceIDHeaderName, id)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) deviceIDInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if id := c.currentDeviceID(); id != "" {
		ctx = withDeviceID(ctx, id)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

func (c *GRPCClient) invoke(ctx context.Context, method string, req, reply any) error {
	return mapError(c.conn.Invoke(ctx, method, req, reply))
}

func (c *GRPCClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	return c.invoke(ctx, wire.MethodPing, &emptypb.Empty{}, &emptypb.Empty{})
}

func (c *GRPCClient) UpsertEntity(ctx context.Context, r wire.Record) (bool, error) {
	req, err := wire.EncodeRecord(r)
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrInvalidRecord, err)
	}
	resp := &structpb.Struct{}
	if err := c.invoke(ctx, wire.MethodUpsertRecord, req, resp); err != nil {
		return false, err
	}
	applied, err := wire.Bool(resp, "applied")
	if err != nil {
		return false, fmt.Errorf("%w: %v", common.ErrPartialRecordFailure, err)
	}
	return applied, nil
}

func (c *GRPCClient) QueryChangedSince(ctx context.Context, kind, householdID string, since int64) ([]wire.Record, error) {
	req, err := wire.EncodeQuery(wire.ChangedSinceQuery{Kind: kind, HouseholdID: householdID, Since: since})
	if err != nil {
		return nil, err
	}
	resp := &structpb.Struct{}
	if err := c.invoke(ctx, wire.MethodChangedSince, req, resp); err != nil {
		return nil, err
	}
	recs, err := wire.DecodeRecords(resp)
	if err != nil {
		// recs still holds every item that decoded
		return recs, fmt.Errorf("%w: %w", common.ErrInvalidRecord, err)
	}
	return recs, nil
}

func (c *GRPCClient) CreateHousehold(ctx context.Context, householdID string) error {
	req := wire.Strings(map[string]string{"household_id": householdID})
	return c.invoke(ctx, wire.MethodCreateHousehold, req, &emptypb.Empty{})
}

func (c *GRPCClient) FindHousehold(ctx context.Context, householdID string) error {
	req := wire.Strings(map[string]string{"household_id": householdID})
	return c.invoke(ctx, wire.MethodFindHousehold, req, &emptypb.Empty{})
}

func (c *GRPCClient) RegisterMember(ctx context.Context, householdID, deviceID string) (string, error) {
	req := wire.Strings(map[string]string{"household_id": householdID, "device_id": deviceID})
	resp := &structpb.Struct{}
	if err := c.invoke(ctx, wire.MethodRegisterMember, req, resp); err != nil {
		return "", err
	}
	id, err := wire.String(resp, "member_id")
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrPartialRecordFailure, err)
	}
	return id, nil
}

func (c *GRPCClient) ArchiveHousehold(ctx context.Context, householdID string) (wire.ArchiveLink, error) {
	req := wire.Strings(map[string]string{"household_id": householdID})
	resp := &structpb.Struct{}
	if err := c.invoke(ctx, wire.MethodArchive, req, resp); err != nil {
		return wire.ArchiveLink{}, err
	}
	link, err := wire.DecodeArchiveLink(resp)
	if err != nil {
		return wire.ArchiveLink{}, fmt.Errorf("%w: %v", common.ErrPartialRecordFailure, err)
	}
	return link, nil
}
