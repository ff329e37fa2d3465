package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-contest-bot/internal/domain"
	"github.com/tbourn/go-contest-bot/internal/notify"
	"github.com/tbourn/go-contest-bot/internal/repo"
)

// WinnerService selects, lists, resets and notifies winners.
type WinnerService struct {
	DB       *gorm.DB
	Mailer   notify.Mailer
	Notifier notify.Notifier

	// MaxDraw caps the number of winners per draw.
	MaxDraw int
	// Message is the WhatsApp text sent to winners; {name} and {code} are
	// replaced.
	Message string
}

// DefaultWinnerMessage is the WhatsApp text sent to winners.
const DefaultWinnerMessage = "Congratulations {name}! Your code {code} has been drawn as a winner. Check your email for details."

// NotifyReport summarizes a notification run.
type NotifyReport struct {
	Winners  int      `json:"winners"`
	Emailed  int      `json:"emailed"`
	Messaged int      `json:"messaged"`
	Failed   []string `json:"failed"`
}

// Draw flags up to n random registrations as winners.
func (s *WinnerService) Draw(ctx context.Context, n int) ([]domain.Code, error) {
	tr := otel.Tracer("services/WinnerService")
	ctx, span := tr.Start(ctx, "Draw", trace.WithAttributes(attribute.Int("winners.requested", n)))
	defer span.End()

	if n < 1 || (s.MaxDraw > 0 && n > s.MaxDraw) {
		return nil, ErrInvalidWinnerCount
	}
	total, err := repo.CountClaimed(ctx, s.DB, "")
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, ErrNoRegistrations
	}
	picked, err := repo.DrawWinners(ctx, s.DB, n)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("winners.drawn", len(picked)))
	return picked, nil
}

// List returns the current winners.
func (s *WinnerService) List(ctx context.Context) ([]domain.Code, error) {
	out, err := repo.ListWinners(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Code{}
	}
	return out, nil
}

// Reset clears every winner flag and reports how many were cleared.
func (s *WinnerService) Reset(ctx context.Context) (int64, error) {
	tr := otel.Tracer("services/WinnerService")
	ctx, span := tr.Start(ctx, "Reset")
	defer span.End()
	return repo.ResetWinners(ctx, s.DB)
}

// Notify emails and messages every current winner. Individual failures are
// collected in the report rather than aborting the run.
func (s *WinnerService) Notify(ctx context.Context) (*NotifyReport, error) {
	tr := otel.Tracer("services/WinnerService")
	ctx, span := tr.Start(ctx, "Notify")
	defer span.End()

	winners, err := repo.ListWinners(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if len(winners) == 0 {
		return nil, ErrNoWinners
	}

	rep := &NotifyReport{Winners: len(winners), Failed: []string{}}
	for _, c := range winners {
		w := notify.Winner{Code: c.Code, Name: deref(c.Name), Email: deref(c.Email), City: deref(c.City)}
		var errs []error

		if s.Mailer != nil && w.Email != "" {
			if err := s.Mailer.SendWinner(ctx, w); err != nil {
				errs = append(errs, fmt.Errorf("email: %w", err))
			} else {
				rep.Emailed++
			}
		}
		if phone := deref(c.PhoneNumber); s.Notifier != nil && phone != "" {
			if err := s.Notifier.Send(ctx, phone, s.winnerText(w)); err != nil {
				errs = append(errs, fmt.Errorf("message: %w", err))
			} else {
				rep.Messaged++
			}
		}
		if len(errs) > 0 {
			log.Ctx(ctx).Warn().Err(errors.Join(errs...)).Str("code", c.Code).Msg("winner notification failed")
			rep.Failed = append(rep.Failed, c.Code)
		}
	}
	span.SetAttributes(
		attribute.Int("winners.emailed", rep.Emailed),
		attribute.Int("winners.messaged", rep.Messaged),
		attribute.Int("winners.failed", len(rep.Failed)),
	)
	return rep, nil
}

func (s *WinnerService) winnerText(w notify.Winner) string {
	msg := s.Message
	if strings.TrimSpace(msg) == "" {
		msg = DefaultWinnerMessage
	}
	name := w.Name
	if first, _, ok := strings.Cut(name, " "); ok {
		name = first
	}
	return strings.NewReplacer("{name}", name, "{code}", w.Code).Replace(msg)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
