// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency scopes.
const (
	// ScopeInbound keys records by the messaging provider's message id.
	ScopeInbound = "inbound"
	// ScopeWinnerDraw keys records by the admin Idempotency-Key header.
	ScopeWinnerDraw = "winner_draw"
)

// Idempotency records that an operation identified by (scope, key) already
// ran, so a redelivered webhook or a retried admin request does not repeat
// its side effects. Records are only honored until ExpiresAt.
type Idempotency struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	Scope     string    `gorm:"type:varchar(32);not null;uniqueIndex:ux_scope_key,priority:1"`
	Key       string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_scope_key,priority:2"`
	Result    string    `gorm:"type:text;not null;default:''"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
