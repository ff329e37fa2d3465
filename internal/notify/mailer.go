package notify

import (
	"context"
	"fmt"
	"html"

	"github.com/resendlabs/resend-go"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-contest-bot/internal/utils"
)

// SendFunc submits one email to the provider.
type SendFunc func(params *resend.SendEmailRequest) error

// Winner is the data a winner email is rendered from.
type Winner struct {
	Name  string
	Email string
	Code  string
	City  string
}

// Mailer sends winner announcements by email.
type Mailer interface {
	SendWinner(ctx context.Context, w Winner) error
}

// ResendMailer is the Resend implementation of Mailer.
type ResendMailer struct {
	Send        SendFunc
	FromEmail   string
	FromName    string
	ContestName string
}

// NewResendMailer builds a mailer from an API key.
func NewResendMailer(apiKey, fromEmail, fromName, contest string) *ResendMailer {
	client := resend.NewClient(apiKey)
	return &ResendMailer{
		Send: func(p *resend.SendEmailRequest) error {
			_, err := client.Emails.Send(p)
			return err
		},
		FromEmail:   fromEmail,
		FromName:    fromName,
		ContestName: contest,
	}
}

// SendWinner implements Mailer.
func (m *ResendMailer) SendWinner(ctx context.Context, w Winner) error {
	if w.Email == "" {
		return fmt.Errorf("%w: winner %s has no email", ErrSendFailed, w.Code)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", m.FromName, m.FromEmail),
		To:      []string{w.Email},
		Subject: fmt.Sprintf("You won the %s!", m.ContestName),
		Html:    winnerHTML(m.ContestName, w),
	}
	if err := m.Send(params); err != nil {
		return fmt.Errorf("%w: resend: %v", ErrSendFailed, err)
	}
	log.Ctx(ctx).Debug().Str("to", utils.MaskEmail(w.Email)).Str("code", w.Code).Msg("winner email sent")
	return nil
}

func winnerHTML(contest string, w Winner) string {
	name := w.Name
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf(
		"<p>Hi %s,</p><p>Congratulations! Your entry <strong>%s</strong> was drawn as a winner of the %s.</p>"+
			"<p>We will contact you shortly with details on how to collect your prize.</p>",
		html.EscapeString(name), html.EscapeString(w.Code), html.EscapeString(contest),
	)
}

// LogMailer logs winner emails instead of sending them.
type LogMailer struct{}

// SendWinner implements Mailer.
func (LogMailer) SendWinner(ctx context.Context, w Winner) error {
	log.Ctx(ctx).Info().Str("to", utils.MaskEmail(w.Email)).Str("code", w.Code).Msg("winner email (log mailer)")
	return nil
}
