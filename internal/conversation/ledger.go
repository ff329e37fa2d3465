package conversation

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-contest-bot/internal/repo"
)

// GormLedger implements Ledger on the relational code table.
type GormLedger struct {
	DB  *gorm.DB
	Now func() time.Time
}

// NewGormLedger returns a ledger using wall-clock claim times.
func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{DB: db, Now: time.Now}
}

// IsEmailClaimed implements Ledger.
func (l *GormLedger) IsEmailClaimed(ctx context.Context, email string) (bool, error) {
	return repo.IsEmailClaimed(ctx, l.DB, email)
}

// IsCodeActive implements Ledger.
func (l *GormLedger) IsCodeActive(ctx context.Context, code string) (bool, error) {
	_, err := repo.FindActiveCode(ctx, l.DB, code)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ClaimCode implements Ledger.
func (l *GormLedger) ClaimCode(ctx context.Context, code string, r repo.Registrant) (bool, error) {
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	return repo.ClaimCode(ctx, l.DB, code, r, now())
}
