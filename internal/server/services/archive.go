package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/feedkeeper/internal/dbx"
	"github.com/dmitrijs2005/feedkeeper/internal/server/models"
	"github.com/dmitrijs2005/feedkeeper/internal/wire"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

const defaultArchiveLinkTTL = 15 * time.Minute

// Archive is the JSON document written for a household export.
type Archive struct {
	HouseholdID string          `json:"household_id"`
	CreatedAt   time.Time       `json:"created_at"`
	ExportedAt  time.Time       `json:"exported_at"`
	Members     []ArchiveMember `json:"members"`
	Records     []ArchiveRecord `json:"records"`
}

type ArchiveMember struct {
	ID        string    `json:"id"`
	DeviceID  string    `json:"device_id"`
	CreatedAt time.Time `json:"created_at"`
}

type ArchiveRecord struct {
	Kind       string          `json:"kind"`
	ExternalID string          `json:"external_id"`
	UpdatedAt  int64           `json:"updated_at"`
	Deleted    bool            `json:"deleted"`
	Fields     json.RawMessage `json:"fields"`
}

// ArchiveStorageKey returns the object key of a new export of householdID.
func ArchiveStorageKey(householdID string, at time.Time) string {
	return fmt.Sprintf("archives/%s/%d/%02d/%02d/%v.json", householdID, at.Year(), at.Month(), at.Day(), uuid.New())
}

func (s *HouseholdService) getS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Archive snapshots every record of the household, tombstones included,
// into object storage and returns a presigned download link.
func (s *HouseholdService) Archive(ctx context.Context, householdID string) (link wire.ArchiveLink, err error) {
	defer func() { s.metrics.Archive(err == nil) }()

	doc, err := s.snapshot(ctx, householdID)
	if err != nil {
		return wire.ArchiveLink{}, err
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return wire.ArchiveLink{}, fmt.Errorf("encode archive: %w", err)
	}

	client, err := s.getS3Client(ctx)
	if err != nil {
		return wire.ArchiveLink{}, fmt.Errorf("s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	key := ArchiveStorageKey(householdID, doc.ExportedAt)

	ledger := s.repomanager.Archives(s.db)
	err = ledger.Create(ctx, &models.ArchiveObject{
		StorageKey:  key,
		HouseholdID: householdID,
		RecordCount: len(doc.Records),
	})
	if err != nil {
		return wire.ArchiveLink{}, fmt.Errorf("record archive: %w", err)
	}

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return wire.ArchiveLink{}, fmt.Errorf("upload archive: %w", err)
	}
	if err := ledger.MarkUploaded(ctx, key); err != nil {
		return wire.ArchiveLink{}, fmt.Errorf("record archive: %w", err)
	}

	ttl := s.config.ArchiveLinkTTL
	if ttl <= 0 {
		ttl = defaultArchiveLinkTTL
	}
	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return wire.ArchiveLink{}, fmt.Errorf("presign archive: %w", err)
	}

	s.logger.Info(ctx, "household archived", "household", householdID, "key", key, "records", len(doc.Records))
	return wire.ArchiveLink{URL: req.URL, Key: key, ExpiresAt: doc.ExportedAt.Add(ttl).UnixMilli()}, nil
}

// snapshot reads the household in one transaction so members and records
// are consistent with each other.
func (s *HouseholdService) snapshot(ctx context.Context, householdID string) (*Archive, error) {
	var (
		hh   *models.Household
		mems []*models.Member
		recs []*models.Record
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		if hh, err = s.repomanager.Households(tx).Get(ctx, householdID); err != nil {
			return err
		}
		if mems, err = s.repomanager.Members(tx).ListByHousehold(ctx, householdID); err != nil {
			return err
		}
		recs, err = s.repomanager.Records(tx).ListHousehold(ctx, householdID)
		return err
	})
	if err != nil {
		return nil, err
	}

	doc := &Archive{
		HouseholdID: hh.ID,
		CreatedAt:   hh.CreatedAt,
		ExportedAt:  s.now().UTC(),
		Members:     make([]ArchiveMember, 0, len(mems)),
		Records:     make([]ArchiveRecord, 0, len(recs)),
	}
	for _, m := range mems {
		doc.Members = append(doc.Members, ArchiveMember{ID: m.ID, DeviceID: m.DeviceID, CreatedAt: m.CreatedAt})
	}
	for _, r := range recs {
		fields := json.RawMessage(r.Fields)
		if len(fields) == 0 {
			fields = json.RawMessage("{}")
		}
		doc.Records = append(doc.Records, ArchiveRecord{
			Kind:       r.Kind,
			ExternalID: r.ExternalID,
			UpdatedAt:  r.UpdatedAt,
			Deleted:    r.Deleted,
			Fields:     fields,
		})
	}
	return doc, nil
}
