package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-contest-bot/internal/repo"
)

// CodeService seeds contest codes.
type CodeService struct {
	DB *gorm.DB
	// MaxBatch caps codes per import request.
	MaxBatch int
}

// ImportResult reports an import.
type ImportResult struct {
	Received int   `json:"received"`
	Inserted int64 `json:"inserted"`
	Skipped  int64 `json:"skipped"`
}

// Import inserts new active codes. Blank, repeated and already-known codes
// are skipped.
func (s *CodeService) Import(ctx context.Context, codes []string) (*ImportResult, error) {
	tr := otel.Tracer("services/CodeService")
	ctx, span := tr.Start(ctx, "Import", trace.WithAttributes(attribute.Int("codes.received", len(codes))))
	defer span.End()

	usable := 0
	for _, c := range codes {
		if strings.TrimSpace(c) != "" {
			usable++
		}
	}
	if usable == 0 {
		return nil, ErrNoCodes
	}
	if s.MaxBatch > 0 && len(codes) > s.MaxBatch {
		return nil, ErrTooManyCodes
	}
	n, err := repo.CreateCodes(ctx, s.DB, codes)
	if err != nil {
		return nil, err
	}
	return &ImportResult{Received: len(codes), Inserted: n, Skipped: int64(len(codes)) - n}, nil
}
