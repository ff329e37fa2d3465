package domain

import "time"

// Step is the position of a user inside the registration conversation.
// The zero value means there is no conversation in progress.
type Step string

const (
	StepNone     Step = ""
	StepAskName  Step = "ASK_NAME"
	StepAskEmail Step = "ASK_EMAIL"
	StepAskCity  Step = "ASK_CITY"
	StepAskCode  Step = "ASK_CODE"
)

// ParseStep maps a stored step value to a Step. Unknown values yield
// (StepNone, false) so callers treat them like a missing session.
func ParseStep(s string) (Step, bool) {
	switch st := Step(s); st {
	case StepAskName, StepAskEmail, StepAskCity, StepAskCode:
		return st, true
	default:
		return StepNone, false
	}
}

// Session is the conversation state of one channel address. Fields are
// populated one step at a time; an empty string means "not captured yet".
type Session struct {
	Step    Step
	Address string
	Name    string
	Email   string
	City    string
	Code    string
}

// SessionRecord is the row layout used when sessions live in the relational
// store instead of Redis. Fields holds the JSON-encoded field map.
type SessionRecord struct {
	Key       string    `gorm:"type:varchar(191);primaryKey"`
	Fields    string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}

// TableName implements the GORM tabler interface.
func (SessionRecord) TableName() string { return "sessions" }
