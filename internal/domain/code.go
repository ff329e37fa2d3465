// Package domain defines the persistence models for contest codes and the
// conversation state shared by the session store and the engine. The GORM
// types form the relational data layer of the registration bot.
package domain

import "time"

// Code status values. A code starts active and becomes inactive exactly once,
// when a registrant claims it.
const (
	CodeStatusActive   = "active"
	CodeStatusInactive = "inactive"
)

// Code represents one contest entry code. Rows are seeded out-of-band and
// carry the registrant's fields once claimed.
//
// Fields:
//   - ID: surrogate primary key.
//   - Code: short alphanumeric token typed by users (indexed).
//   - CodeID: durable external reference, unique.
//   - Status: "active" or "inactive" (enforced by DB constraint).
//   - PhoneNumber/Name/Email/City: registrant data, set by the claim.
//   - CreatedAt: claim timestamp; nil while the code is unclaimed.
//   - IsWinner: flipped by the admin winner draw.
type Code struct {
	ID          uint       `json:"-"                      gorm:"primaryKey"`
	Code        string     `json:"code"                   gorm:"type:varchar(32);not null;index:idx_codes_code_status,priority:1"`
	CodeID      string     `json:"code_id"                gorm:"type:varchar(64);not null;uniqueIndex"`
	Status      string     `json:"status"                 gorm:"type:varchar(16);not null;default:'active';index:idx_codes_code_status,priority:2;check:status IN ('active','inactive')"`
	PhoneNumber *string    `json:"phone_number,omitempty" gorm:"type:varchar(32)"`
	Name        *string    `json:"name,omitempty"         gorm:"type:varchar(255)"`
	Email       *string    `json:"email,omitempty"        gorm:"type:varchar(255);index"`
	City        *string    `json:"city,omitempty"         gorm:"type:varchar(128);index"`
	CreatedAt   *time.Time `json:"created_at,omitempty"   gorm:"autoCreateTime:false;index"`
	IsWinner    bool       `json:"is_winner"              gorm:"not null;default:false;index"`
}

// TableName returns the database table name for Code.
func (Code) TableName() string { return "codes" }

// Claimed reports whether the code has been redeemed.
func (c Code) Claimed() bool { return c.Status == CodeStatusInactive }
