// Webhook HTTP handlers.
//
// This file exposes the messaging provider's callback endpoints:
//   - GET  /webhook   (subscription handshake)
//   - POST /webhook   (inbound events)
//
// Inbound events are always acknowledged with 200: malformed payloads and
// per-message failures are logged, never surfaced to the provider, because a
// non-2xx answer only triggers redelivery of the same event.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-contest-bot/internal/conversation"
	"github.com/tbourn/go-contest-bot/internal/domain"
	"github.com/tbourn/go-contest-bot/internal/http/middleware"
	"github.com/tbourn/go-contest-bot/internal/utils"
)

//
// DTOs
//

// WebhookEvent is the provider's callback envelope.
type WebhookEvent struct {
	Object string         `json:"object" example:"whatsapp_business_account"`
	Entry  []WebhookEntry `json:"entry"`
}

// WebhookEntry groups changes for one business account.
type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

// WebhookChange is one change notification.
type WebhookChange struct {
	Field string       `json:"field" example:"messages"`
	Value WebhookValue `json:"value"`
}

// WebhookValue carries the messages of a change. Status-only changes have no
// messages.
type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product" example:"whatsapp"`
	Messages         []WebhookMessage `json:"messages"`
}

// WebhookMessage is one inbound user message.
type WebhookMessage struct {
	From        string              `json:"from" example:"911234567"`
	ID          string              `json:"id" example:"wamid.HBgLOTE"`
	Timestamp   string              `json:"timestamp" example:"1700000000"`
	Type        string              `json:"type" example:"text"`
	Text        *WebhookText        `json:"text,omitempty"`
	Button      *WebhookButton      `json:"button,omitempty"`
	Interactive *WebhookInteractive `json:"interactive,omitempty"`
}

// WebhookText is the body of a text message.
type WebhookText struct {
	Body string `json:"body" example:"John Doe"`
}

// WebhookButton is a quick-reply button press.
type WebhookButton struct {
	Text    string `json:"text"`
	Payload string `json:"payload"`
}

// WebhookInteractive is a reply to an interactive list or button message.
type WebhookInteractive struct {
	Type        string        `json:"type"`
	ButtonReply *WebhookReply `json:"button_reply,omitempty"`
	ListReply   *WebhookReply `json:"list_reply,omitempty"`
}

// WebhookReply is the chosen option of an interactive message.
type WebhookReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// WebhookAck summarizes what was done with a delivery.
type WebhookAck struct {
	Status     string `json:"status" example:"ok"`
	Processed  int    `json:"processed"`
	Duplicates int    `json:"duplicates"`
	Failed     int    `json:"failed"`
}

//
// Helpers
//

// text returns the user-visible text of m, or "" for media messages.
func (m WebhookMessage) text() string {
	switch {
	case m.Text != nil:
		return m.Text.Body
	case m.Button != nil:
		return m.Button.Text
	case m.Interactive != nil && m.Interactive.ButtonReply != nil:
		return m.Interactive.ButtonReply.Title
	case m.Interactive != nil && m.Interactive.ListReply != nil:
		return m.Interactive.ListReply.Title
	}
	return ""
}

// messages flattens every message of the event in delivery order.
func (e WebhookEvent) messages() []WebhookMessage {
	var out []WebhookMessage
	for _, en := range e.Entry {
		for _, ch := range en.Changes {
			out = append(out, ch.Value.Messages...)
		}
	}
	return out
}

// normalizeAddress turns a provider sender id into "+<digits>". Separators
// are dropped; an id without digits yields "".
func normalizeAddress(from string) string {
	var b strings.Builder
	b.WriteByte('+')
	for _, r := range from {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 1 {
		return ""
	}
	return b.String()
}

//
// Handlers
//

// VerifyWebhook godoc
// @ID          verifyWebhook
// @Summary     Webhook subscription handshake
// @Description Echoes hub.challenge when hub.mode is "subscribe" and hub.verify_token matches the configured secret.
// @Tags        Webhook
// @Produce     plain
//
// @Param       hub.mode          query  string  true  "Subscription mode"  example(subscribe)
// @Param       hub.verify_token  query  string  true  "Shared verify token"
// @Param       hub.challenge     query  string  true  "Challenge to echo"  example(1158201444)
//
// @Success     200  {string}  string                  "The challenge"
// @Failure     403  {object}  handlers.ErrorResponse  "Verification failed"
// @Router      /webhook [get]
func (h *Handlers) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if h.d.VerifyToken == "" || mode != "subscribe" || token != h.d.VerifyToken {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

// ReceiveWebhook godoc
// @ID          receiveWebhook
// @Summary     Receive inbound messages
// @Description Runs each inbound message through the registration flow. Always answers 200; malformed payloads are ignored and replayed message ids are skipped.
// @Tags        Webhook
// @Accept      json
// @Produce     json
//
// @Param       X-Hub-Signature-256  header  string                 false  "sha256 HMAC of the body (required when an app secret is configured)"
// @Param       body                 body    handlers.WebhookEvent  true   "Provider event"
//
// @Success     200  {object}  handlers.WebhookAck
// @Failure     403  {object}  handlers.ErrorResponse  "Invalid signature"
// @Router      /webhook [post]
func (h *Handlers) ReceiveWebhook(c *gin.Context) {
	lg := middleware.LoggerFrom(c)

	var ev WebhookEvent
	if err := c.ShouldBindJSON(&ev); err != nil {
		lg.Warn().Err(err).Msg("ignoring malformed webhook payload")
		ok(c, http.StatusOK, WebhookAck{Status: "ignored"})
		return
	}
	msgs := ev.messages()
	if len(msgs) == 0 {
		ok(c, http.StatusOK, WebhookAck{Status: "ignored"})
		return
	}

	// The provider may drop the connection while we talk to slow
	// dependencies; finish the work regardless. Each message gets its own
	// deadline so a slow one cannot starve the rest of the batch.
	base := context.WithoutCancel(c.Request.Context())

	ack := WebhookAck{Status: "ok"}
	for _, m := range msgs {
		from := normalizeAddress(m.From)
		if from == "" {
			lg.Warn().Str("message_id", m.ID).Msg("ignoring message without sender")
			continue
		}

		ctx, cancel := context.WithTimeout(base, h.d.ProcessTimeout)
		if m.ID != "" && h.d.Idempotency != nil {
			first, err := h.d.Idempotency.Remember(ctx, domain.ScopeInbound, m.ID)
			if err != nil {
				lg.Warn().Err(err).Str("message_id", m.ID).Msg("dedup unavailable, processing anyway")
			} else if !first {
				cancel()
				ack.Duplicates++
				continue
			}
		}

		_, err := h.d.Engine.Handle(ctx, conversation.InboundMessage{ID: m.ID, From: from, Text: m.text()})
		cancel()
		switch {
		case err == nil:
			ack.Processed++
		case errors.Is(err, conversation.ErrDependency):
			ack.Failed++
			lg.Error().Err(err).Str("from", utils.MaskTail(from, 4)).Msg("inbound message failed")
		case errors.Is(err, conversation.ErrNotifyFailed), errors.Is(err, conversation.ErrSessionNotCleared):
			// State was applied; only the reply or the cleanup was lost.
			ack.Processed++
			lg.Warn().Err(err).Str("from", utils.MaskTail(from, 4)).Msg("message applied with errors")
		default:
			ack.Failed++
			lg.Error().Err(err).Str("from", utils.MaskTail(from, 4)).Msg("inbound message failed")
		}
	}
	ok(c, http.StatusOK, ack)
}
