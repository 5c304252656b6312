package cli

import (
	"context"
	"strconv"
)

func (a *App) Stats(ctx context.Context, args []string) error {
	babyID, err := a.activeBaby(ctx)
	if err != nil {
		return err
	}
	days := 7
	if len(args) > 0 {
		if days, err = strconv.Atoi(args[0]); err != nil || days <= 0 {
			return usage("stats [days]")
		}
	}

	totals, err := a.stats.DailyTotals(ctx, babyID, days, a.loc)
	if err != nil {
		return err
	}
	a.printf("%-10s  %9s  %8s  %8s  %8s  %6s\n", "date", "breast", "formula", "water", "pumped", "solids")
	for _, d := range totals {
		a.printf("%-10s  %3dx %3dm  %5.0fml  %5.0fml  %5.0fml  %3dx\n",
			d.DateKey, d.BreastmilkSessions, d.BreastmilkMinutes, d.FormulaMl, d.WaterMl, d.PumpedMl, d.SolidsCount)
	}

	due, ok, err := a.stats.NextReminder(ctx, babyID)
	if err != nil {
		return err
	}
	if ok {
		a.printf("Next feed due %s\n", due.In(a.loc).Format("2006-01-02 15:04"))
	}
	return nil
}
