package client

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/wire"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// fakeConn records the last call and answers with a canned reply.
type fakeConn struct {
	grpc.ClientConnInterface

	method string
	req    any

	reply proto.Message
	err   error
}

func (f *fakeConn) Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error {
	f.method = method
	f.req = args
	if f.err != nil {
		return f.err
	}
	if f.reply != nil {
		proto.Merge(reply.(proto.Message), f.reply)
	}
	return nil
}

func newTestClient(f *fakeConn) *GRPCClient {
	return &GRPCClient{conn: f}
}

func TestUpsertEntity_SendsEnvelope(t *testing.T) {
	f := &fakeConn{reply: &structpb.Struct{Fields: map[string]*structpb.Value{"applied": structpb.NewBoolValue(true)}}}
	c := newTestClient(f)

	rec := wire.Record{Kind: common.KindFeed, ExternalID: "f_1", HouseholdID: "hh", UpdatedAt: 10, Fields: map[string]any{"type": "water"}}
	applied, err := c.UpsertEntity(context.Background(), rec)
	require.NoError(t, err)
	require.True(t, applied)
	require.Equal(t, wire.MethodUpsertRecord, f.method)

	sent, err := wire.DecodeRecord(f.req.(*structpb.Struct))
	require.NoError(t, err)
	require.Equal(t, rec, sent)
}

func TestQueryChangedSince_DecodesBatch(t *testing.T) {
	recs := []wire.Record{
		{Kind: common.KindBaby, ExternalID: "b_1", HouseholdID: "hh", UpdatedAt: 5, Fields: map[string]any{"name": "Ava"}},
	}
	reply, err := wire.EncodeRecords(recs)
	require.NoError(t, err)
	f := &fakeConn{reply: reply}

	got, err := newTestClient(f).QueryChangedSince(context.Background(), common.KindBaby, "hh", 3)
	require.NoError(t, err)
	require.Equal(t, recs, got)

	q, err := wire.DecodeQuery(f.req.(*structpb.Struct))
	require.NoError(t, err)
	require.Equal(t, wire.ChangedSinceQuery{Kind: common.KindBaby, HouseholdID: "hh", Since: 3}, q)
}

func TestQueryChangedSince_KeepsDecodableRecords(t *testing.T) {
	good := wire.Record{Kind: common.KindBaby, ExternalID: "b_1", HouseholdID: "hh", UpdatedAt: 5, Fields: map[string]any{"name": "Ava"}}
	reply, err := wire.EncodeRecords([]wire.Record{good})
	require.NoError(t, err)
	list := reply.Fields["records"].GetListValue()
	list.Values = append(list.Values, structpb.NewStringValue("garbage"))

	got, err := newTestClient(&fakeConn{reply: reply}).QueryChangedSince(context.Background(), common.KindBaby, "hh", 0)
	require.ErrorIs(t, err, common.ErrInvalidRecord)
	var skipped *wire.SkippedRecords
	require.ErrorAs(t, err, &skipped)
	require.Len(t, skipped.Errs, 1)
	require.Equal(t, []wire.Record{good}, got)
}

func TestRegisterMemberAndArchive(t *testing.T) {
	f := &fakeConn{reply: wire.Strings(map[string]string{"member_id": "mem_1"})}
	id, err := newTestClient(f).RegisterMember(context.Background(), "hh", "dev_1")
	require.NoError(t, err)
	require.Equal(t, "mem_1", id)
	require.Equal(t, wire.MethodRegisterMember, f.method)

	link, err := wire.EncodeArchiveLink(wire.ArchiveLink{URL: "https://x", Key: "k", ExpiresAt: 1})
	require.NoError(t, err)
	f = &fakeConn{reply: link}
	got, err := newTestClient(f).ArchiveHousehold(context.Background(), "hh")
	require.NoError(t, err)
	require.Equal(t, "https://x", got.URL)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		code codes.Code
		want error
	}{
		{codes.Unavailable, common.ErrRemoteUnavailable},
		{codes.DeadlineExceeded, common.ErrRemoteUnavailable},
		{codes.NotFound, common.ErrNotFound},
		{codes.PermissionDenied, common.ErrHouseholdMismatch},
		{codes.InvalidArgument, common.ErrInvalidRecord},
		{codes.Internal, common.ErrPartialRecordFailure},
		{codes.Canceled, context.Canceled},
	}
	for _, tc := range cases {
		t.Run(tc.code.String(), func(t *testing.T) {
			f := &fakeConn{err: status.Error(tc.code, "boom")}
			err := newTestClient(f).FindHousehold(context.Background(), "hh")
			require.ErrorIs(t, err, tc.want)
		})
	}

	require.NoError(t, mapError(nil))
	require.ErrorIs(t, mapError(errors.New("plain")), common.ErrRemoteUnavailable)
}

func TestPingAndCreate(t *testing.T) {
	f := &fakeConn{}
	c := newTestClient(f)
	require.NoError(t, c.Ping(context.Background()))
	require.Equal(t, wire.MethodPing, f.method)

	require.NoError(t, c.CreateHousehold(context.Background(), "hh_1"))
	hh, err := wire.String(f.req.(*structpb.Struct), "household_id")
	require.NoError(t, err)
	require.Equal(t, "hh_1", hh)
}

func TestDeviceIDInterceptor(t *testing.T) {
	c := &GRPCClient{}

	var got []string
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		md, _ := metadata.FromOutgoingContext(ctx)
		got = md.Get(common.DeviceIDHeaderName)
		return nil
	}

	require.NoError(t, c.deviceIDInterceptor(context.Background(), wire.MethodPing, nil, nil, nil, invoker))
	require.Empty(t, got)

	c.SetDeviceID("dev_42")
	ctx := metadata.AppendToOutgoingContext(context.Background(), common.DeviceIDHeaderName, "stale")
	require.NoError(t, c.deviceIDInterceptor(ctx, wire.MethodPing, nil, nil, nil, invoker))
	require.Equal(t, []string{"dev_42"}, got)
}

func TestNewGRPCClient_CloseWithoutTraffic(t *testing.T) {
	c, err := NewGRPCClient("passthrough:///localhost:0")
	require.NoError(t, err)
	require.NoError(t, c.Close())

	require.NoError(t, (&GRPCClient{}).Close())
}
