package services

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/dmitrijs2005/feedkeeper/internal/client/models"
	"github.com/dmitrijs2005/feedkeeper/internal/timex"
)

const mlPerOz = 29.5735

// MlToOz converts millilitres to fluid ounces rounded to one decimal.
func MlToOz(ml float64) float64 {
	return math.Round(ml/mlPerOz*10) / 10
}

// OzToMl converts fluid ounces to whole millilitres.
func OzToMl(oz float64) float64 {
	return math.Round(oz * mlPerOz)
}

// DayTotals aggregates one calendar day of feeds.
type DayTotals struct {
	DateKey            string // yyyy-MM-dd in the caller's location
	BreastmilkSessions int
	BreastmilkMinutes  int64
	FormulaMl          float64
	WaterMl            float64
	PumpedMl           float64
	SolidsCount        int
	SolidsGrams        float64
}

type StatsService struct {
	records *RecordService
	clock   timex.Clock
}

func NewStatsService(records *RecordService, clock timex.Clock) *StatsService {
	return &StatsService{records: records, clock: clock}
}

// DailyTotals summarizes a baby's feeds over the last days calendar days
// (today included), keyed by date in loc and sorted by date. Days without
// feeds are omitted.
func (s *StatsService) DailyTotals(ctx context.Context, babyID string, days int, loc *time.Location) ([]DayTotals, error) {
	if days <= 0 {
		days = 7
	}
	if loc == nil {
		loc = time.Local
	}
	now := timex.FromMs(s.clock.NowMs()).In(loc)
	y, m, d := now.Date()
	endOfDay := time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
	start := time.Date(y, m, d-(days-1), 0, 0, 0, 0, loc)

	feeds, err := s.records.FeedsBetween(ctx, babyID, start.UnixMilli(), endOfDay.UnixMilli())
	if err != nil {
		return nil, err
	}
	return aggregate(feeds, loc), nil
}

func aggregate(feeds []models.Feed, loc *time.Location) []DayTotals {
	byDay := make(map[string]*DayTotals)
	for _, f := range feeds {
		key := timex.FromMs(f.CreatedAt).In(loc).Format(time.DateOnly)
		agg, ok := byDay[key]
		if !ok {
			agg = &DayTotals{DateKey: key}
			byDay[key] = agg
		}
		switch f.Type {
		case models.FeedBreastmilk:
			agg.BreastmilkSessions++
			if f.DurationMin != nil {
				agg.BreastmilkMinutes += *f.DurationMin
			}
		case models.FeedFormula:
			agg.FormulaMl += value(f.QuantityMl)
		case models.FeedWater:
			agg.WaterMl += value(f.QuantityMl)
		case models.FeedPump:
			agg.PumpedMl += value(f.QuantityMl)
		case models.FeedSolid:
			agg.SolidsCount++
			agg.SolidsGrams += value(f.FoodAmountGrams)
		}
	}

	out := make([]DayTotals, 0, len(byDay))
	for _, v := range byDay {
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateKey < out[j].DateKey })
	return out
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// NextReminder returns when the next feed reminder is due for babyID: the
// latest feed time plus the configured interval. ok is false when reminders
// are disabled or the baby has no feeds yet. Pump sessions do not count as
// feeds.
func (s *StatsService) NextReminder(ctx context.Context, babyID string) (due time.Time, ok bool, err error) {
	st, err := s.records.Settings().Get(ctx)
	if err != nil {
		return time.Time{}, false, err
	}
	if !st.FeedReminderEnabled {
		return time.Time{}, false, nil
	}
	minutes := st.FeedReminderMinutes
	if minutes <= 0 {
		minutes = models.DefaultFeedReminderMinutes
	}

	recent, err := s.records.RecentFeeds(ctx, babyID, 10)
	if err != nil {
		return time.Time{}, false, err
	}
	for _, f := range recent {
		if f.Type == models.FeedPump {
			continue
		}
		return timex.FromMs(f.CreatedAt).Add(time.Duration(minutes) * time.Minute), true, nil
	}
	return time.Time{}, false, nil
}
