package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/server/models"
	"github.com/dmitrijs2005/feedkeeper/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type s3Calls struct {
	region       string
	baseEndpoint string
	pathStyle    bool
	putBucket    string
	putKey       string
	putBody      []byte
	getKey       string
}

// stubS3 replaces every S3 seam for the duration of the test.
func stubS3(t *testing.T, putErr, presignErr error) *s3Calls {
	t.Helper()
	origLoad, origNew, origPre, origPut, origGet := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient, putObject, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient, putObject, presignGetObject = origLoad, origNew, origPre, origPut, origGet
	})

	calls := &s3Calls{}
	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		calls.region = lo.Region
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		var o s3.Options
		for _, fn := range optFns {
			fn(&o)
		}
		calls.baseEndpoint = aws.ToString(o.BaseEndpoint)
		calls.pathStyle = o.UsePathStyle
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		if putErr != nil {
			return nil, putErr
		}
		calls.putBucket = aws.ToString(in.Bucket)
		calls.putKey = aws.ToString(in.Key)
		b, err := io.ReadAll(in.Body)
		require.NoError(t, err)
		calls.putBody = b
		return &s3.PutObjectOutput{}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if presignErr != nil {
			return nil, presignErr
		}
		var po s3.PresignOptions
		for _, fn := range optFns {
			fn(&po)
		}
		require.Equal(t, 10*time.Minute, po.Expires)
		calls.getKey = aws.ToString(in.Key)
		return &v4.PresignedHTTPRequest{URL: "https://s3.example/" + calls.getKey + "?sig=1"}, nil
	}
	return calls
}

func seedHousehold(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.svc.CreateHousehold(ctx, "hh_1"))

	f.expectTx(true)
	_, err := f.svc.RegisterMember(ctx, "hh_1", "dev_1")
	require.NoError(t, err)

	for _, r := range []wire.Record{
		{Kind: common.KindBaby, ExternalID: "b_1", HouseholdID: "hh_1", UpdatedAt: 10, Fields: map[string]any{"name": "Ava"}},
		{Kind: common.KindFeed, ExternalID: "f_1", HouseholdID: "hh_1", UpdatedAt: 20, Deleted: true},
	} {
		f.expectTx(true)
		_, err := f.svc.UpsertRecord(ctx, r)
		require.NoError(t, err)
	}
}

func TestArchive_UploadsSnapshotAndPresigns(t *testing.T) {
	f := newFixture(t)
	seedHousehold(t, f)
	calls := stubS3(t, nil, nil)

	exported := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return exported }

	f.expectTx(true)
	link, err := f.svc.Archive(context.Background(), "hh_1")
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", calls.region)
	assert.Equal(t, "http://127.0.0.1:9000", calls.baseEndpoint)
	assert.True(t, calls.pathStyle)
	assert.Equal(t, "bucket", calls.putBucket)
	assert.True(t, strings.HasPrefix(calls.putKey, "archives/hh_1/2025/06/01/"), calls.putKey)
	assert.Equal(t, calls.putKey, calls.getKey)

	assert.Equal(t, calls.putKey, link.Key)
	assert.Equal(t, "https://s3.example/"+calls.putKey+"?sig=1", link.URL)
	assert.Equal(t, exported.Add(10*time.Minute).UnixMilli(), link.ExpiresAt)

	var doc Archive
	require.NoError(t, json.Unmarshal(calls.putBody, &doc))
	assert.Equal(t, "hh_1", doc.HouseholdID)
	require.Len(t, doc.Members, 1)
	assert.Equal(t, "dev_1", doc.Members[0].DeviceID)
	require.Len(t, doc.Records, 2)
	assert.Equal(t, "baby", doc.Records[0].Kind)
	assert.JSONEq(t, `{"name":"Ava"}`, string(doc.Records[0].Fields))
	assert.True(t, doc.Records[1].Deleted, "tombstones are archived")

	entry := f.store.archives[link.Key]
	require.NotNil(t, entry)
	assert.Equal(t, models.ArchiveCompleted, entry.UploadStatus)
	assert.Equal(t, 2, entry.RecordCount)
}

func TestArchive_Errors(t *testing.T) {
	t.Run("unknown household", func(t *testing.T) {
		f := newFixture(t)
		stubS3(t, nil, nil)
		f.expectTx(false)
		_, err := f.svc.Archive(context.Background(), "hh_missing")
		require.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("list fails", func(t *testing.T) {
		f := newFixture(t)
		seedHousehold(t, f)
		stubS3(t, nil, nil)
		boom := errors.New("boom")
		f.store.listErr = boom
		f.expectTx(false)
		_, err := f.svc.Archive(context.Background(), "hh_1")
		require.ErrorIs(t, err, boom)
	})

	t.Run("upload fails", func(t *testing.T) {
		f := newFixture(t)
		seedHousehold(t, f)
		boom := errors.New("s3 down")
		stubS3(t, boom, nil)
		f.expectTx(true)
		_, err := f.svc.Archive(context.Background(), "hh_1")
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "upload archive")
		require.Len(t, f.store.archives, 1)
		for _, a := range f.store.archives {
			assert.Equal(t, models.ArchivePending, a.UploadStatus)
		}
	})

	t.Run("ledger fails", func(t *testing.T) {
		f := newFixture(t)
		seedHousehold(t, f)
		calls := stubS3(t, nil, nil)
		boom := errors.New("ledger down")
		f.store.archiveErr = boom
		f.expectTx(true)
		_, err := f.svc.Archive(context.Background(), "hh_1")
		require.ErrorIs(t, err, boom)
		assert.Empty(t, calls.putKey, "nothing uploaded without a ledger row")
	})

	t.Run("presign fails", func(t *testing.T) {
		f := newFixture(t)
		seedHousehold(t, f)
		boom := errors.New("no signer")
		stubS3(t, nil, boom)
		f.expectTx(true)
		_, err := f.svc.Archive(context.Background(), "hh_1")
		require.ErrorIs(t, err, boom)
	})

	t.Run("aws config fails", func(t *testing.T) {
		f := newFixture(t)
		seedHousehold(t, f)
		stubS3(t, nil, nil)
		boom := errors.New("bad config")
		loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			return aws.Config{}, boom
		}
		f.expectTx(true)
		_, err := f.svc.Archive(context.Background(), "hh_1")
		require.ErrorIs(t, err, boom)
	})
}

func TestArchiveStorageKey(t *testing.T) {
	at := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	k1 := ArchiveStorageKey("hh_1", at)
	k2 := ArchiveStorageKey("hh_1", at)
	assert.True(t, strings.HasPrefix(k1, "archives/hh_1/2025/02/03/"))
	assert.True(t, strings.HasSuffix(k1, ".json"))
	assert.NotEqual(t, k1, k2)
}
