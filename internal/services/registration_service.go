package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-contest-bot/internal/domain"
	"github.com/tbourn/go-contest-bot/internal/repo"
)

// RegistrationService lists completed registrations.
type RegistrationService struct {
	DB *gorm.DB
}

// ListPage returns one page of claimed codes, newest first, optionally
// filtered by city, with the total count.
func (s *RegistrationService) ListPage(ctx context.Context, city string, page, pageSize int) ([]domain.Code, int64, error) {
	tr := otel.Tracer("services/RegistrationService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("filter.city", city),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountClaimed(ctx, s.DB, city)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Code{}, 0, nil
	}
	items, err := repo.ListClaimedPage(ctx, s.DB, city, offset, pageSize)
	return items, total, err
}

// Version returns the registration count and most recent claim time for a
// city filter; handlers derive cache validators from it.
func (s *RegistrationService) Version(ctx context.Context, city string) (int64, *time.Time, error) {
	return repo.RegistrationsStats(ctx, s.DB, city)
}
