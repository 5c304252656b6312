package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
)

func (a *App) AddStash(ctx context.Context) error {
	babyID, err := a.activeBaby(ctx)
	if err != nil {
		return err
	}
	s, err := a.ask("Volume (ml, or e.g. 4oz)")
	if err != nil {
		return err
	}
	vol, err := ParseAmountMl(s)
	if err != nil {
		return err
	}
	if vol == nil {
		return fmt.Errorf("volume is required")
	}
	days, err := a.ask("Expires in days (optional)")
	if err != nil {
		return err
	}
	d, err := ParseOptionalInt(days)
	if err != nil {
		return err
	}
	notes, err := a.ask("Notes (optional)")
	if err != nil {
		return err
	}

	it := models.StashItem{BabyID: babyID, VolumeMl: *vol, Notes: optionalText(notes)}
	if d != nil {
		exp := time.Now().Add(time.Duration(*d) * 24 * time.Hour).UnixMilli()
		it.ExpiresAt = &exp
	}
	it, err = a.records.CreateStash(ctx, it)
	if err != nil {
		return err
	}
	a.printf("Stored %.0f ml (%s)\n", it.VolumeMl, it.ExternalID)
	return nil
}

func (a *App) Stash(ctx context.Context) error {
	babyID, err := a.activeBaby(ctx)
	if err != nil {
		return err
	}
	list, err := a.records.ListStash(ctx, models.StashFilter{BabyID: babyID, Status: models.StashStored})
	if err != nil {
		return err
	}
	var total float64
	for _, it := range list {
		exp := ""
		if it.ExpiresAt != nil {
			exp = "expires " + time.UnixMilli(*it.ExpiresAt).In(a.loc).Format(time.DateOnly)
		}
		a.printf("%s  %s  %6.0f ml  %s\n", it.ExternalID,
			time.UnixMilli(it.CreatedAt).In(a.loc).Format(time.DateOnly), it.VolumeMl, exp)
		total += it.VolumeMl
	}
	a.printf("%d items, %.0f ml stored\n", len(list), total)
	return nil
}

func (a *App) StashStatus(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("stashstatus <stash id> <stored|consumed|discarded>")
	}
	st := models.StashStatus(args[1])
	if !st.Valid() {
		return usage("stashstatus <stash id> <stored|consumed|discarded>")
	}
	_, err := a.records.UpdateStashStatus(ctx, args[0], st)
	return err
}

func (a *App) DeleteStash(ctx context.Context, args []string) error {
	id, err := oneArg(args, "delstash <stash id>")
	if err != nil {
		return err
	}
	return a.records.DeleteStash(ctx, id)
}
