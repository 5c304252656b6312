// Package services implements the household server's use cases on top of
// the repositories: household and member registration, the last-write-wins
// record store, and archive export to S3.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"github.com/dmitrijs2005/feedkeeper/internal/dbx"
	"github.com/dmitrijs2005/feedkeeper/internal/idgen"
	"github.com/dmitrijs2005/feedkeeper/internal/logging"
	sc "github.com/dmitrijs2005/feedkeeper/internal/server/config"
	"github.com/dmitrijs2005/feedkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/feedkeeper/internal/server/models"
	"github.com/dmitrijs2005/feedkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/feedkeeper/internal/wire"
)

type HouseholdService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	metrics     *metrics.Metrics
	logger      logging.Logger
	now         func() time.Time
}

func NewHouseholdService(db *sql.DB, repomanager repomanager.RepositoryManager, config *sc.Config, m *metrics.Metrics, l logging.Logger) *HouseholdService {
	return &HouseholdService{
		db:          db,
		repomanager: repomanager,
		config:      config,
		metrics:     m,
		logger:      l.With("module", "household_service"),
		now:         time.Now,
	}
}

// CreateHousehold registers id. Creating an existing household is not an
// error, so a device can retry after a lost reply.
func (s *HouseholdService) CreateHousehold(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty household id", common.ErrInvalidRecord)
	}
	created, err := s.repomanager.Households(s.db).Create(ctx, id)
	if err != nil {
		return err
	}
	if created {
		s.metrics.HouseholdCreated()
		s.logger.Info(ctx, "household created", "household", id)
	}
	return nil
}

// FindHousehold returns common.ErrNotFound for an unknown id.
func (s *HouseholdService) FindHousehold(ctx context.Context, id string) (*models.Household, error) {
	if id == "" {
		return nil, common.ErrNotFound
	}
	return s.repomanager.Households(s.db).Get(ctx, id)
}

// RegisterMember adds deviceID to the household and returns its member id.
// Registering the same device again returns the id it already has.
func (s *HouseholdService) RegisterMember(ctx context.Context, householdID, deviceID string) (string, error) {
	if deviceID == "" {
		return "", fmt.Errorf("%w: empty device id", common.ErrInvalidRecord)
	}

	var member *models.Member
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Households(tx).Get(ctx, householdID); err != nil {
			return err
		}
		var err error
		member, err = s.repomanager.Members(tx).Register(ctx, &models.Member{
			ID:          idgen.New(idgen.PrefixMember),
			HouseholdID: householdID,
			DeviceID:    deviceID,
		})
		return err
	})
	if err != nil {
		return "", err
	}

	s.metrics.MemberRegistered()
	return member.ID, nil
}

// UpsertRecord stores r unless the server already holds a copy at least as
// new. applied reports whether r replaced the stored copy. A record whose
// external id is already held by another household is rejected with
// common.ErrHouseholdMismatch.
func (s *HouseholdService) UpsertRecord(ctx context.Context, r wire.Record) (bool, error) {
	if err := r.Validate(); err != nil {
		s.metrics.Upsert(r.Kind, metrics.ResultRejected)
		return false, err
	}
	fields, err := encodeFields(r.Fields)
	if err != nil {
		s.metrics.Upsert(r.Kind, metrics.ResultRejected)
		return false, err
	}

	var applied bool
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Households(tx).Get(ctx, r.HouseholdID); err != nil {
			return err
		}

		recs := s.repomanager.Records(tx)
		owner, err := recs.Owner(ctx, r.Kind, r.ExternalID)
		switch {
		case errors.Is(err, common.ErrNotFound):
		case err != nil:
			return err
		case owner != r.HouseholdID:
			return fmt.Errorf("%w: %s %s", common.ErrHouseholdMismatch, r.Kind, r.ExternalID)
		}

		applied, err = recs.Upsert(ctx, &models.Record{
			Kind:        r.Kind,
			ExternalID:  r.ExternalID,
			HouseholdID: r.HouseholdID,
			UpdatedAt:   r.UpdatedAt,
			Deleted:     r.Deleted,
			Fields:      fields,
		})
		return err
	})
	if err != nil {
		s.metrics.Upsert(r.Kind, metrics.ResultRejected)
		return false, err
	}

	if applied {
		s.metrics.Upsert(r.Kind, metrics.ResultApplied)
	} else {
		s.metrics.Upsert(r.Kind, metrics.ResultStale)
		s.logger.Debug(ctx, "kept newer stored copy", "kind", r.Kind, "id", r.ExternalID, "updated_at", r.UpdatedAt)
	}
	return applied, nil
}

// ChangedSince returns the household's records of q.Kind stamped after
// q.Since, oldest first.
func (s *HouseholdService) ChangedSince(ctx context.Context, q wire.ChangedSinceQuery) ([]wire.Record, error) {
	if !common.ValidKind(q.Kind) {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownKind, q.Kind)
	}
	if q.HouseholdID == "" {
		return nil, fmt.Errorf("%w: empty household id", common.ErrInvalidRecord)
	}

	rows, err := s.repomanager.Records(s.db).ChangedSince(ctx, q.Kind, q.HouseholdID, q.Since)
	if err != nil {
		return nil, err
	}

	out := make([]wire.Record, 0, len(rows))
	for _, row := range rows {
		r, err := toWire(row)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	s.metrics.Pulled(q.Kind, len(out))
	return out, nil
}

func encodeFields(f map[string]any) ([]byte, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("%w: fields: %v", common.ErrInvalidRecord, err)
	}
	return b, nil
}

func toWire(row *models.Record) (wire.Record, error) {
	r := wire.Record{
		Kind:        row.Kind,
		ExternalID:  row.ExternalID,
		HouseholdID: row.HouseholdID,
		UpdatedAt:   row.UpdatedAt,
		Deleted:     row.Deleted,
		Fields:      map[string]any{},
	}
	if len(row.Fields) > 0 {
		if err := json.Unmarshal(row.Fields, &r.Fields); err != nil {
			return r, fmt.Errorf("decode %s %s fields: %w", row.Kind, row.ExternalID, err)
		}
	}
	return r, nil
}
