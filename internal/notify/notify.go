// Package notify delivers outbound messages to contest participants.
//
// Notifier is the conversational channel (one text reply per inbound
// message). Mailer sends transactional email to winners.
package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-contest-bot/internal/utils"
)

// Notifier sends a text message to a channel address.
type Notifier interface {
	Send(ctx context.Context, address, text string) error
}

// ErrSendFailed wraps provider-side delivery failures.
var ErrSendFailed = errors.New("notify: send failed")

// LogNotifier writes messages to the log instead of delivering them. It is
// used when no provider credentials are configured.
type LogNotifier struct{}

// Send implements Notifier.
func (LogNotifier) Send(ctx context.Context, address, text string) error {
	log.Ctx(ctx).Info().
		Str("to", utils.MaskTail(address, 4)).
		Str("text", text).
		Msg("outbound message (log notifier)")
	return nil
}
