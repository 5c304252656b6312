package cli

import (
	"context"
	"errors"
	"strconv"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
	"github.com/dmitrijs2005/feedkeeper/internal/common"
)

func (a *App) Household(ctx context.Context, args []string) error {
	if len(args) == 0 {
		id, err := a.households.HouseholdID(ctx)
		if err != nil {
			return err
		}
		if id == "" {
			a.printf("Not in a household. Use 'household create' or 'household join <code>'.\n")
			return nil
		}
		a.printf("Household: %s\n", id)
		return nil
	}

	switch args[0] {
	case "create":
		id, err := a.households.CreateHousehold(ctx)
		if err != nil {
			return err
		}
		a.printf("Created household %s. Share this code to invite others.\n", id)
	case "join":
		code, err := oneArg(args[1:], "household join <code>")
		if err != nil {
			return err
		}
		if err := a.households.JoinHousehold(ctx, code); err != nil {
			return err
		}
		a.printf("Joined household %s\n", code)
	default:
		return usage("household [create | join <code>]")
	}
	a.scheduler.Trigger()
	return nil
}

// Sync runs a pass now. With a server configured, a device that is not in
// a household yet gets a new one first.
func (a *App) Sync(ctx context.Context) error {
	if a.gateway != nil {
		_, err := a.households.EnsureHousehold(ctx)
		if err != nil && !errors.Is(err, common.ErrRemoteUnavailable) {
			return err
		}
	}
	res, err := a.scheduler.SyncNow(ctx)
	if err != nil {
		return err
	}
	if res.Skipped != models.SkipNone {
		a.printf("Sync skipped: %s\n", res.Skipped)
		return nil
	}
	a.printf("Pushed %d, pulled %d, failed %d\n", res.Pushed, res.Pulled, res.Failed)
	return nil
}

func (a *App) Status(ctx context.Context) error {
	st := a.scheduler.Status()
	a.printf("Mode: %s\nSync: %s\n", a.mode(), st.State)
	if !st.LastRunAt.IsZero() {
		a.printf("Last run: %s\n", st.LastRunAt.In(a.loc).Format("2006-01-02 15:04:05"))
	}
	if st.LastError != nil {
		a.printf("Last error: %v\n", st.LastError)
	}
	s, err := a.records.Settings().Get(ctx)
	if err != nil {
		return err
	}
	if s.HouseholdID != "" {
		a.printf("Household: %s\n", s.HouseholdID)
	}
	a.printf("Device: %s\n", s.DeviceID)
	return nil
}

func (a *App) Reminder(ctx context.Context, args []string) error {
	const u = "reminder <on [minutes] | off>"
	if len(args) == 0 {
		return usage(u)
	}
	st, err := a.records.Settings().Get(ctx)
	if err != nil {
		return err
	}
	minutes := st.FeedReminderMinutes
	switch args[0] {
	case "on":
		if len(args) > 1 {
			if minutes, err = strconv.Atoi(args[1]); err != nil || minutes <= 0 {
				return usage(u)
			}
		}
		return a.records.Settings().SetReminder(ctx, true, minutes)
	case "off":
		return a.records.Settings().SetReminder(ctx, false, minutes)
	}
	return usage(u)
}

func (a *App) Theme(ctx context.Context, args []string) error {
	theme, err := oneArg(args, "theme <light|dark>")
	if err != nil {
		return err
	}
	return a.records.Settings().SetTheme(ctx, models.Theme(theme))
}
