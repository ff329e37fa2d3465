// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the code ledger: the lookups and the
// conditional claim used by the conversation engine, plus the queries behind
// the admin API.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
//
// Error semantics:
//   - Missing rows surface as ErrNotFound (alias of gorm.ErrRecordNotFound).
//   - A claim that matches no active row is NOT an error: ClaimCode returns
//     (false, nil). Only storage failures are returned as errors.
package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-contest-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// Registrant carries the fields written onto a code when it is claimed.
type Registrant struct {
	Phone string
	Name  string
	Email string
	City  string
}

// NormalizeCode canonicalizes a user-typed code for storage and lookup.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeEmail canonicalizes an email for storage and uniqueness checks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// FindActiveCode returns the active row for code, or ErrNotFound when the
// code does not exist or was already claimed.
func FindActiveCode(ctx context.Context, db *gorm.DB, code string) (*domain.Code, error) {
	var c domain.Code
	err := db.WithContext(ctx).
		Where("status = ? AND code = ?", domain.CodeStatusActive, NormalizeCode(code)).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ClaimCode binds code to the registrant with one conditional UPDATE. It
// reports true iff exactly one active row switched to inactive; a missing or
// already-claimed code yields (false, nil). The id subquery keeps the update
// to a single row even if the seed data holds duplicate active codes.
func ClaimCode(ctx context.Context, db *gorm.DB, code string, r Registrant, now time.Time) (bool, error) {
	code = NormalizeCode(code)
	tx := db.WithContext(ctx)
	one := tx.Session(&gorm.Session{NewDB: true}).
		Model(&domain.Code{}).
		Select("id").
		Where("code = ? AND status = ?", code, domain.CodeStatusActive).
		Limit(1)

	res := tx.Model(&domain.Code{}).
		Where("id = (?) AND status = ?", one, domain.CodeStatusActive).
		Updates(map[string]any{
			"phone_number": r.Phone,
			"name":         r.Name,
			"email":        NormalizeEmail(r.Email),
			"city":         r.City,
			"status":       domain.CodeStatusInactive,
			"created_at":   now.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// IsEmailClaimed reports whether a completed registration already uses email.
// Only inactive rows count: in-progress conversations keep the email in the
// session store, never in the ledger.
func IsEmailClaimed(ctx context.Context, db *gorm.DB, email string) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Code{}).
		Where("status = ? AND email = ?", domain.CodeStatusInactive, NormalizeEmail(email)).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

// CreateCodes seeds active codes, skipping blanks and codes that already
// exist in any status. It returns the number of rows inserted.
func CreateCodes(ctx context.Context, db *gorm.DB, codes []string) (int64, error) {
	var inserted int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seen := make(map[string]struct{}, len(codes))
		for _, raw := range codes {
			code := NormalizeCode(raw)
			if code == "" {
				continue
			}
			if _, dup := seen[code]; dup {
				continue
			}
			seen[code] = struct{}{}

			var n int64
			if err := tx.Model(&domain.Code{}).Where("code = ?", code).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				continue
			}
			row := &domain.Code{
				Code:   code,
				CodeID: uuid.NewString(),
				Status: domain.CodeStatusActive,
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	return inserted, err
}

// GetCode fetches a code row by its token regardless of status.
func GetCode(ctx context.Context, db *gorm.DB, code string) (*domain.Code, error) {
	var c domain.Code
	if err := db.WithContext(ctx).Where("code = ?", NormalizeCode(code)).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// claimedScope filters inactive rows, optionally by city (case-insensitive).
func claimedScope(db *gorm.DB, city string) *gorm.DB {
	q := db.Model(&domain.Code{}).Where("status = ?", domain.CodeStatusInactive)
	if c := strings.TrimSpace(city); c != "" {
		q = q.Where("LOWER(city) = ?", strings.ToLower(c))
	}
	return q
}

// CountClaimed returns the number of completed registrations.
func CountClaimed(ctx context.Context, db *gorm.DB, city string) (int64, error) {
	var total int64
	err := claimedScope(db.WithContext(ctx), city).Count(&total).Error
	return total, err
}

// ListClaimedPage returns completed registrations, most recent claim first.
func ListClaimedPage(ctx context.Context, db *gorm.DB, city string, offset, limit int) ([]domain.Code, error) {
	var out []domain.Code
	err := claimedScope(db.WithContext(ctx), city).
		Order("created_at desc, id desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListWinners returns every code currently flagged as a winner.
func ListWinners(ctx context.Context, db *gorm.DB) ([]domain.Code, error) {
	var out []domain.Code
	err := db.WithContext(ctx).
		Where("is_winner = ?", true).
		Order("created_at asc, id asc").
		Find(&out).Error
	return out, err
}

// DrawWinners flags up to n random claimed non-winner codes as winners and
// returns them. Selection and update run in one transaction.
func DrawWinners(ctx context.Context, db *gorm.DB, n int) ([]domain.Code, error) {
	var picked []domain.Code
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uint
		if err := tx.Model(&domain.Code{}).
			Where("status = ? AND is_winner = ?", domain.CodeStatusInactive, false).
			Order("RANDOM()").
			Limit(n).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Model(&domain.Code{}).
			Where("id IN ?", ids).
			Update("is_winner", true).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Order("id asc").Find(&picked).Error
	})
	if err != nil {
		return nil, err
	}
	return picked, nil
}

// ResetWinners clears the winner flag on every code and returns how many
// rows changed.
func ResetWinners(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Code{}).
		Where("is_winner = ?", true).
		Update("is_winner", false)
	return res.RowsAffected, res.Error
}
