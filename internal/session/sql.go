package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-contest-bot/internal/domain"
)

// SQLStore keeps sessions in the relational store, one row per key with an
// explicit expiry column. Expired rows read as absent and are purged lazily.
type SQLStore struct {
	DB *gorm.DB
	// TTL applied to rows created by SetFields before Expire is called.
	TTL time.Duration
	// Now is overridable in tests.
	Now func() time.Time
}

// NewSQLStore returns a store with the given default TTL.
func NewSQLStore(db *gorm.DB, ttl time.Duration) *SQLStore {
	return &SQLStore{DB: db, TTL: ttl, Now: time.Now}
}

func (s *SQLStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *SQLStore) load(tx *gorm.DB, key string) (*domain.SessionRecord, map[string]string, error) {
	var rec domain.SessionRecord
	err := tx.Where("key = ? AND expires_at > ?", key, s.now()).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, map[string]string{}, nil
	}
	if err != nil {
		return nil, nil, err
	}
	fields := map[string]string{}
	if rec.Fields != "" {
		if err := json.Unmarshal([]byte(rec.Fields), &fields); err != nil {
			return nil, nil, err
		}
	}
	return &rec, fields, nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, key string) (map[string]string, error) {
	_, fields, err := s.load(s.DB.WithContext(ctx), key)
	return fields, err
}

// SetFields implements Store. The merge runs in a transaction; a row that
// expired is replaced rather than merged into.
func (s *SQLStore) SetFields(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, cur, err := s.load(tx, key)
		if err != nil {
			return err
		}
		for k, v := range fields {
			cur[k] = v
		}
		raw, err := json.Marshal(cur)
		if err != nil {
			return err
		}
		now := s.now()
		expires := now.Add(s.TTL)
		if rec != nil {
			expires = rec.ExpiresAt
		}
		row := domain.SessionRecord{Key: key, Fields: string(raw), ExpiresAt: expires, UpdatedAt: now}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"fields", "expires_at", "updated_at"}),
		}).Create(&row).Error
	})
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	return s.DB.WithContext(ctx).Where("key = ?", key).Delete(&domain.SessionRecord{}).Error
}

// Expire implements Store.
func (s *SQLStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	now := s.now()
	return s.DB.WithContext(ctx).
		Model(&domain.SessionRecord{}).
		Where("key = ? AND expires_at > ?", key, now).
		Updates(map[string]any{"expires_at": now.Add(ttl), "updated_at": now}).Error
}

// Purge deletes expired rows and returns how many were removed.
func (s *SQLStore) Purge(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&domain.SessionRecord{})
	return res.RowsAffected, res.Error
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
