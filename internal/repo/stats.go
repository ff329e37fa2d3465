// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides aggregate queries for the admin API:
// ledger totals, per-city and per-day breakdowns, and the metadata used for
// conditional (ETag) responses.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-contest-bot/internal/domain"
)

// LedgerTotals summarizes the code ledger.
type LedgerTotals struct {
	Total   int64 `json:"total"`
	Active  int64 `json:"active"`
	Claimed int64 `json:"claimed"`
	Winners int64 `json:"winners"`
}

// CityCount is the number of registrations for one city.
type CityCount struct {
	City  string `json:"city"`
	Count int64  `json:"count"`
}

// DayCount is the number of claims on one UTC day (YYYY-MM-DD).
type DayCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

// Totals returns ledger-wide counts by status and winner flag.
func Totals(ctx context.Context, db *gorm.DB) (LedgerTotals, error) {
	var out LedgerTotals
	q := db.WithContext(ctx)
	if err := q.Model(&domain.Code{}).Count(&out.Total).Error; err != nil {
		return out, err
	}
	if err := q.Model(&domain.Code{}).Where("status = ?", domain.CodeStatusActive).Count(&out.Active).Error; err != nil {
		return out, err
	}
	if err := q.Model(&domain.Code{}).Where("status = ?", domain.CodeStatusInactive).Count(&out.Claimed).Error; err != nil {
		return out, err
	}
	if err := q.Model(&domain.Code{}).Where("is_winner = ?", true).Count(&out.Winners).Error; err != nil {
		return out, err
	}
	return out, nil
}

// TopCities returns the cities with the most registrations.
func TopCities(ctx context.Context, db *gorm.DB, limit int) ([]CityCount, error) {
	var out []CityCount
	err := db.WithContext(ctx).
		Model(&domain.Code{}).
		Select("city, COUNT(*) AS count").
		Where("status = ? AND city IS NOT NULL AND city <> ''", domain.CodeStatusInactive).
		Group("city").
		Order("count DESC, city ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

// ClaimsPerDay buckets claims made since the given instant by UTC day.
// Bucketing happens in Go so the query stays portable across SQLite and Postgres.
func ClaimsPerDay(ctx context.Context, db *gorm.DB, since time.Time) ([]DayCount, error) {
	var stamps []time.Time
	if err := db.WithContext(ctx).
		Model(&domain.Code{}).
		Where("status = ? AND created_at >= ?", domain.CodeStatusInactive, since.UTC()).
		Order("created_at asc").
		Pluck("created_at", &stamps).Error; err != nil {
		return nil, err
	}
	out := make([]DayCount, 0, 32)
	for _, ts := range stamps {
		day := ts.UTC().Format("2006-01-02")
		if n := len(out); n > 0 && out[n-1].Day == day {
			out[n-1].Count++
			continue
		}
		out = append(out, DayCount{Day: day, Count: 1})
	}
	return out, nil
}

// RegistrationsStats returns the number of completed registrations (for the
// optional city filter) and the most recent claim time, or nil if none.
func RegistrationsStats(ctx context.Context, db *gorm.DB, city string) (count int64, latest *time.Time, err error) {
	q := claimedScope(db.WithContext(ctx), city)
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest created_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		CreatedAt time.Time
	}
	if err = claimedScope(db.WithContext(ctx), city).
		Select("created_at").
		Order("created_at DESC").
		Limit(1).
		Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.CreatedAt, nil
}
