package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-contest-bot/internal/repo"
)

// Stats is the dashboard summary.
type Stats struct {
	Totals      repo.LedgerTotals `json:"totals"`
	TopCities   []repo.CityCount  `json:"top_cities"`
	ClaimsByDay []repo.DayCount   `json:"claims_by_day"`
}

// StatsService aggregates ledger statistics.
type StatsService struct {
	DB *gorm.DB

	// TopCities caps the city breakdown.
	TopCities int
	// Days is the trailing window for the per-day series.
	Days int
	// Now is overridable in tests.
	Now func() time.Time
}

// NewStatsService returns a service with a top-10 city list over 30 days.
func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{DB: db, TopCities: 10, Days: 30, Now: time.Now}
}

// Summary computes totals, the top cities and claims per day.
func (s *StatsService) Summary(ctx context.Context) (*Stats, error) {
	tr := otel.Tracer("services/StatsService")
	ctx, span := tr.Start(ctx, "Summary",
		trace.WithAttributes(attribute.Int("stats.days", s.Days)),
	)
	defer span.End()

	totals, err := repo.Totals(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	cities, err := repo.TopCities(ctx, s.DB, s.TopCities)
	if err != nil {
		return nil, err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	days := s.Days
	if days <= 0 {
		days = 30
	}
	since := now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))
	perDay, err := repo.ClaimsPerDay(ctx, s.DB, since)
	if err != nil {
		return nil, err
	}
	if cities == nil {
		cities = []repo.CityCount{}
	}
	if perDay == nil {
		perDay = []repo.DayCount{}
	}
	return &Stats{Totals: totals, TopCities: cities, ClaimsByDay: perDay}, nil
}
