package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-contest-bot/internal/conversation"
	"github.com/tbourn/go-contest-bot/internal/domain"
	"github.com/tbourn/go-contest-bot/internal/services"
)

//
// Service contracts (context-aware)
//

// Engine runs one inbound message through the registration flow.
type Engine interface {
	Handle(ctx context.Context, in conversation.InboundMessage) (conversation.Outcome, error)
}

// IdempotencyStore records completed operations by (scope, key).
type IdempotencyStore interface {
	// Remember records (scope, key) and reports whether it was new. A pair
	// that is already recorded and not expired yields false.
	Remember(ctx context.Context, scope, key string) (bool, error)
}

// StatsService aggregates ledger statistics.
type StatsService interface {
	Summary(ctx context.Context) (*services.Stats, error)
}

// RegistrationService lists completed registrations.
type RegistrationService interface {
	ListPage(ctx context.Context, city string, page, pageSize int) ([]domain.Code, int64, error)
	// Version returns the count and latest claim time used for the ETag.
	Version(ctx context.Context, city string) (int64, *time.Time, error)
}

// WinnerService draws, lists, resets and notifies winners.
type WinnerService interface {
	Draw(ctx context.Context, n int) ([]domain.Code, error)
	List(ctx context.Context) ([]domain.Code, error)
	Reset(ctx context.Context) (int64, error)
	Notify(ctx context.Context) (*services.NotifyReport, error)
}

// CodeService seeds contest codes.
type CodeService interface {
	Import(ctx context.Context, codes []string) (*services.ImportResult, error)
}

// Pinger is a dependency the health probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck names a Pinger in the health report.
type HealthCheck struct {
	Name   string
	Pinger Pinger
}

//
// Handler wiring
//

// Deps are the collaborators of Handlers. Admin services may be nil when only
// the webhook is mounted.
type Deps struct {
	Engine        Engine
	Idempotency   IdempotencyStore
	Stats         StatsService
	Registrations RegistrationService
	Winners       WinnerService
	Codes         CodeService
	Checks        []HealthCheck

	// VerifyToken is the shared secret of the webhook GET handshake.
	VerifyToken string
	// ProcessTimeout bounds engine work for one inbound message.
	ProcessTimeout time.Duration
}

// Handlers groups the webhook, admin and health endpoints.
type Handlers struct {
	d Deps
}

// New constructs Handlers. ProcessTimeout defaults to 30s.
func New(d Deps) *Handlers {
	if d.ProcessTimeout <= 0 {
		d.ProcessTimeout = 30 * time.Second
	}
	return &Handlers{d: d}
}
