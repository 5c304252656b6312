package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/logging"
	"github.com/dmitrijs2005/feedkeeper/internal/server/models"
	"github.com/dmitrijs2005/feedkeeper/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// fakeHouseholds answers with canned values and remembers the last input.
type fakeHouseholds struct {
	err error

	gotID     string
	gotDevice string
	gotRecord wire.Record
	gotQuery  wire.ChangedSinceQuery

	applied bool
	changed []wire.Record
	link    wire.ArchiveLink
}

func (f *fakeHouseholds) CreateHousehold(_ context.Context, id string) error {
	f.gotID = id
	return f.err
}

func (f *fakeHouseholds) FindHousehold(_ context.Context, id string) (*models.Household, error) {
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	return &models.Household{ID: id}, nil
}

func (f *fakeHouseholds) RegisterMember(_ context.Context, hh, device string) (string, error) {
	f.gotID, f.gotDevice = hh, device
	return "mem_" + device, f.err
}

func (f *fakeHouseholds) UpsertRecord(_ context.Context, r wire.Record) (bool, error) {
	f.gotRecord = r
	return f.applied, f.err
}

func (f *fakeHouseholds) ChangedSince(_ context.Context, q wire.ChangedSinceQuery) ([]wire.Record, error) {
	f.gotQuery = q
	return f.changed, f.err
}

func (f *fakeHouseholds) Archive(_ context.Context, hh string) (wire.ArchiveLink, error) {
	f.gotID = hh
	return f.link, f.err
}

func newTestServer(f *fakeHouseholds) *GRPCServer {
	return NewGRPCServer("", logging.Nop(), f, nil)
}

func hhReq(id string) *structpb.Struct {
	return wire.Strings(map[string]string{"household_id": id})
}

func TestPing(t *testing.T) {
	resp, err := newTestServer(&fakeHouseholds{}).Ping(context.Background(), &emptypb.Empty{})
	require.NoError(t, err)
	assert.NotNil(t, resp)
}

func TestCreateAndFindHousehold(t *testing.T) {
	f := &fakeHouseholds{}
	s := newTestServer(f)
	ctx := context.Background()

	_, err := s.CreateHousehold(ctx, hhReq("hh_1"))
	require.NoError(t, err)
	assert.Equal(t, "hh_1", f.gotID)

	_, err = s.FindHousehold(ctx, hhReq("hh_2"))
	require.NoError(t, err)
	assert.Equal(t, "hh_2", f.gotID)

	_, err = s.CreateHousehold(ctx, &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	f.err = common.ErrNotFound
	_, err = s.FindHousehold(ctx, hhReq("hh_3"))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestRegisterMember(t *testing.T) {
	f := &fakeHouseholds{}
	s := newTestServer(f)

	resp, err := s.RegisterMember(context.Background(), wire.Strings(map[string]string{"household_id": "hh_1", "device_id": "dev_1"}))
	require.NoError(t, err)
	id, err := wire.String(resp, "member_id")
	require.NoError(t, err)
	assert.Equal(t, "mem_dev_1", id)
	assert.Equal(t, "dev_1", f.gotDevice)

	_, err = s.RegisterMember(context.Background(), hhReq("hh_1"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestUpsertRecord(t *testing.T) {
	f := &fakeHouseholds{applied: true}
	s := newTestServer(f)

	rec := wire.Record{Kind: common.KindFeed, ExternalID: "f_1", HouseholdID: "hh_1", UpdatedAt: 7, Fields: map[string]any{"type": "water"}}
	req, err := wire.EncodeRecord(rec)
	require.NoError(t, err)

	resp, err := s.UpsertRecord(context.Background(), req)
	require.NoError(t, err)
	applied, err := wire.Bool(resp, "applied")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, rec, f.gotRecord)

	_, err = s.UpsertRecord(context.Background(), &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestChangedSinceAndArchive(t *testing.T) {
	f := &fakeHouseholds{
		changed: []wire.Record{{Kind: common.KindBaby, ExternalID: "b_1", HouseholdID: "hh_1", UpdatedAt: 3, Fields: map[string]any{"name": "Ava"}}},
		link:    wire.ArchiveLink{URL: "https://x", Key: "k", ExpiresAt: 99},
	}
	s := newTestServer(f)

	req, err := wire.EncodeQuery(wire.ChangedSinceQuery{Kind: common.KindBaby, HouseholdID: "hh_1", Since: 2})
	require.NoError(t, err)
	resp, err := s.ChangedSince(context.Background(), req)
	require.NoError(t, err)
	got, err := wire.DecodeRecords(resp)
	require.NoError(t, err)
	assert.Equal(t, f.changed, got)
	assert.Equal(t, int64(2), f.gotQuery.Since)

	resp, err = s.Archive(context.Background(), hhReq("hh_1"))
	require.NoError(t, err)
	link, err := wire.DecodeArchiveLink(resp)
	require.NoError(t, err)
	assert.Equal(t, f.link, link)
}

func TestToStatus(t *testing.T) {
	s := newTestServer(&fakeHouseholds{})
	ctx := context.Background()

	cases := []struct {
		err  error
		code codes.Code
	}{
		{common.ErrNotFound, codes.NotFound},
		{common.ErrHouseholdMismatch, codes.PermissionDenied},
		{common.ErrInvalidRecord, codes.InvalidArgument},
		{common.ErrUnknownKind, codes.InvalidArgument},
		{context.Canceled, codes.Canceled},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("db down"), codes.Internal},
	}
	for _, tc := range cases {
		err := s.toStatus(ctx, tc.err)
		assert.Equal(t, tc.code, status.Code(err), tc.err.Error())
	}
	require.NoError(t, s.toStatus(ctx, nil))

	st, _ := status.FromError(s.toStatus(ctx, errors.New("password=hunter2")))
	assert.Equal(t, "internal error", st.Message())
}
