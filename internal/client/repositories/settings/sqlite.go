package settings

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
	"github.com/dmitrijs2005/feedkeeper/internal/client/repositories"
	"github.com/dmitrijs2005/feedkeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context) (models.Settings, error) {
	q := `SELECT active_baby_id, theme, household_id, device_id, last_sync_at, feed_reminder_enabled, feed_reminder_minutes
		FROM app_settings WHERE id = 1`
	var s models.Settings
	var baby, hh, dev sql.NullString
	var theme string
	err := r.db.QueryRowContext(ctx, q).Scan(&baby, &theme, &hh, &dev, &s.LastSyncAt, &s.FeedReminderEnabled, &s.FeedReminderMinutes)
	if err != nil {
		return models.Settings{}, fmt.Errorf("failed to read settings: %w", err)
	}
	s.ActiveBabyID = repositories.StringOrEmpty(baby)
	s.HouseholdID = repositories.StringOrEmpty(hh)
	s.DeviceID = repositories.StringOrEmpty(dev)
	s.Theme = models.Theme(theme)
	return s, nil
}

func (r *SQLiteRepository) set(ctx context.Context, column string, value any) error {
	res, err := r.db.ExecContext(ctx, `UPDATE app_settings SET `+column+` = ? WHERE id = 1`, value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	n, err := dbx.Affected(res)
	if err != nil {
		return err
	}
	if n != 1 {
		return fmt.Errorf("settings row missing: %d rows affected", n)
	}
	return nil
}

func (r *SQLiteRepository) SetDeviceID(ctx context.Context, id string) error {
	return r.set(ctx, "device_id", repositories.NullString(id))
}

func (r *SQLiteRepository) SetHouseholdID(ctx context.Context, id string) error {
	return r.set(ctx, "household_id", repositories.NullString(id))
}

func (r *SQLiteRepository) SetLastSyncAt(ctx context.Context, ts int64) error {
	return r.set(ctx, "last_sync_at", ts)
}

func (r *SQLiteRepository) SetActiveBaby(ctx context.Context, externalID string) error {
	return r.set(ctx, "active_baby_id", repositories.NullString(externalID))
}

func (r *SQLiteRepository) SetTheme(ctx context.Context, theme models.Theme) error {
	if theme != models.ThemeLight && theme != models.ThemeDark {
		return fmt.Errorf("unknown theme %q", theme)
	}
	return r.set(ctx, "theme", string(theme))
}

func (r *SQLiteRepository) SetReminder(ctx context.Context, enabled bool, minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("reminder interval must be positive, got %d", minutes)
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE app_settings SET feed_reminder_enabled = ?, feed_reminder_minutes = ? WHERE id = 1`, enabled, minutes)
	if err != nil {
		return fmt.Errorf("failed to set reminder: %w", err)
	}
	return nil
}
