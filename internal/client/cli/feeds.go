package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
	"github.com/dmitrijs2005/feedkeeper/internal/client/services"
)

const defaultFeedsShown = 20

func (a *App) AddFeed(ctx context.Context) error {
	babyID, err := a.activeBaby(ctx)
	if err != nil {
		return err
	}

	kind, err := a.ask("Enter type (breastmilk, formula, water, solid, pump)")
	if err != nil {
		return err
	}
	f := models.Feed{BabyID: babyID, Type: models.FeedType(strings.ToLower(kind))}
	if !f.Type.Valid() {
		return fmt.Errorf("unknown feed type %q", kind)
	}

	switch f.Type {
	case models.FeedBreastmilk:
		err = a.askSession(&f)
	case models.FeedFormula, models.FeedWater:
		err = a.askAmount(&f)
	case models.FeedPump:
		if err = a.askAmount(&f); err == nil {
			err = a.askSession(&f)
		}
	case models.FeedSolid:
		err = a.askSolid(&f)
	}
	if err != nil {
		return err
	}

	notes, err := a.ask("Notes (optional)")
	if err != nil {
		return err
	}
	f.Notes = optionalText(notes)

	f, err = a.records.CreateFeed(ctx, f)
	if err != nil {
		return err
	}
	a.printf("Logged %s (%s)\n", f.Type, f.ExternalID)
	return nil
}

func (a *App) askAmount(f *models.Feed) error {
	s, err := a.ask("Amount (ml, or e.g. 4oz)")
	if err != nil {
		return err
	}
	f.QuantityMl, err = ParseAmountMl(s)
	return err
}

func (a *App) askSession(f *models.Feed) error {
	s, err := a.ask("Duration in minutes (optional)")
	if err != nil {
		return err
	}
	if f.DurationMin, err = ParseOptionalInt(s); err != nil {
		return err
	}
	side, err := a.ask("Side (left, right, both, optional)")
	if err != nil || side == "" {
		return err
	}
	sd := models.Side(strings.ToLower(side))
	f.Side = &sd
	return nil
}

func (a *App) askSolid(f *models.Feed) error {
	name, err := a.ask("Food")
	if err != nil {
		return err
	}
	f.FoodName = optionalText(name)
	grams, err := a.ask("Amount in grams (optional)")
	if err != nil {
		return err
	}
	f.FoodAmountGrams, err = ParseOptionalFloat(grams)
	return err
}

func (a *App) Feeds(ctx context.Context, args []string) error {
	babyID, err := a.activeBaby(ctx)
	if err != nil {
		return err
	}
	limit := defaultFeedsShown
	if len(args) > 0 {
		if limit, err = strconv.Atoi(args[0]); err != nil || limit <= 0 {
			return usage("feeds [count]")
		}
	}
	list, err := a.records.RecentFeeds(ctx, babyID, limit)
	if err != nil {
		return err
	}
	for _, f := range list {
		a.printf("%s  %s  %-10s %s\n", f.ExternalID,
			time.UnixMilli(f.CreatedAt).In(a.loc).Format("2006-01-02 15:04"), f.Type, describeFeed(f))
	}
	return nil
}

func describeFeed(f models.Feed) string {
	var parts []string
	if f.QuantityMl != nil {
		parts = append(parts, fmt.Sprintf("%.0f ml (%.1f oz)", *f.QuantityMl, services.MlToOz(*f.QuantityMl)))
	}
	if f.DurationMin != nil {
		parts = append(parts, fmt.Sprintf("%d min", *f.DurationMin))
	}
	if f.Side != nil {
		parts = append(parts, string(*f.Side))
	}
	if f.FoodName != nil {
		parts = append(parts, *f.FoodName)
	}
	if f.FoodAmountGrams != nil {
		parts = append(parts, fmt.Sprintf("%.0f g", *f.FoodAmountGrams))
	}
	if f.Notes != nil {
		parts = append(parts, "\""+*f.Notes+"\"")
	}
	return strings.Join(parts, ", ")
}

func (a *App) DeleteFeed(ctx context.Context, args []string) error {
	id, err := oneArg(args, "delfeed <feed id>")
	if err != nil {
		return err
	}
	return a.records.DeleteFeed(ctx, id)
}
