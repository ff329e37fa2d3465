// Package conversation implements the registration state machine.
//
// Each inbound message is handled independently: the engine loads the
// sender's session, asks the extractor to validate the text for the current
// step, applies the step's side effect (email uniqueness check or code
// claim), persists the new state and sends exactly one reply.
//
//	(none) -> ASK_NAME -> ASK_EMAIL -> ASK_CITY -> ASK_CODE -> (done)
//
// State is always written before the reply is sent, so a failed send never
// causes a step's side effect to run twice. The code claim is the only
// cross-request invariant and is enforced by the ledger's conditional
// update, not by locking here.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-contest-bot/internal/domain"
	"github.com/tbourn/go-contest-bot/internal/extractor"
	"github.com/tbourn/go-contest-bot/internal/notify"
	"github.com/tbourn/go-contest-bot/internal/repo"
	"github.com/tbourn/go-contest-bot/internal/session"
	"github.com/tbourn/go-contest-bot/internal/utils"
)

// InboundMessage is one text message received from a channel address.
type InboundMessage struct {
	ID   string
	From string
	Text string
}

// Result names the branch the engine took for a message.
type Result string

const (
	ResultWelcome     Result = "welcome"
	ResultAdvanced    Result = "advanced"
	ResultInvalid     Result = "invalid"
	ResultEmailTaken  Result = "email_taken"
	ResultInvalidCode Result = "invalid_code"
	ResultRegistered  Result = "registered"
	ResultFailed      Result = "failed"
)

// Outcome describes how a message was handled.
type Outcome struct {
	From      domain.Step
	To        domain.Step
	Result    Result
	Reply     string
	Delivered bool
}

// Sessions is the session persistence the engine needs.
type Sessions interface {
	Load(ctx context.Context, address string) (domain.Session, bool, error)
	Start(ctx context.Context, address string, step domain.Step) error
	Advance(ctx context.Context, address string, step domain.Step, field, value string) error
	Clear(ctx context.Context, address string) error
}

// Ledger is the code store the engine needs.
type Ledger interface {
	IsEmailClaimed(ctx context.Context, email string) (bool, error)
	IsCodeActive(ctx context.Context, code string) (bool, error)
	ClaimCode(ctx context.Context, code string, r repo.Registrant) (bool, error)
}

// Engine drives the registration conversation.
type Engine struct {
	Sessions  Sessions
	Ledger    Ledger
	Extractor extractor.Extractor
	Notifier  notify.Notifier
	Messages  Messages

	ContestName string
	TermsURL    string

	// CallTimeout bounds every store, extractor and notifier call.
	// Zero disables the per-call bound.
	CallTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithMessages overrides reply templates; blank entries keep defaults.
func WithMessages(m Messages) Option {
	return func(e *Engine) { e.Messages = m.withDefaults() }
}

// WithContest sets the contest name and terms link used in replies.
func WithContest(name, termsURL string) Option {
	return func(e *Engine) {
		e.ContestName = name
		e.TermsURL = termsURL
	}
}

// WithCallTimeout bounds each dependency call.
func WithCallTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.CallTimeout = d
		}
	}
}

// New builds an Engine with default messages and a 10s call timeout.
func New(s Sessions, l Ledger, x extractor.Extractor, n notify.Notifier, opts ...Option) *Engine {
	e := &Engine{
		Sessions:    s,
		Ledger:      l,
		Extractor:   x,
		Notifier:    n,
		Messages:    DefaultMessages(),
		ContestName: "contest",
		CallTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// CallsPerTurn is the most dependency calls one message can make: load,
// extract, email recheck, code lookup, claim, clear and reply.
const CallsPerTurn = 7

// Handle processes one inbound message. The returned error is non-nil when
// a dependency failed or the reply was not delivered; in both cases the
// Outcome still reflects the state that was persisted.
func (e *Engine) Handle(ctx context.Context, in InboundMessage) (Outcome, error) {
	if strings.TrimSpace(in.From) == "" {
		return Outcome{}, ErrNoSender
	}

	tr := otel.Tracer("conversation/Engine")
	ctx, span := tr.Start(ctx, "Handle",
		trace.WithAttributes(attribute.String("message.id", in.ID)),
	)
	defer span.End()

	lg := log.Ctx(ctx).With().
		Str("message_id", in.ID).
		Str("from", utils.MaskTail(in.From, 4)).
		Logger()
	ctx = lg.WithContext(ctx)

	out, err := e.handle(ctx, in)

	transitions.WithLabelValues(stepLabel(string(out.From)), stepLabel(string(out.To))).Inc()
	span.SetAttributes(
		attribute.String("step.from", stepLabel(string(out.From))),
		attribute.String("step.to", stepLabel(string(out.To))),
		attribute.String("result", string(out.Result)),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	zerolog.Ctx(ctx).Debug().
		Str("from_step", stepLabel(string(out.From))).
		Str("to_step", stepLabel(string(out.To))).
		Str("result", string(out.Result)).
		Msg("message handled")
	return out, err
}

func (e *Engine) handle(ctx context.Context, in InboundMessage) (Outcome, error) {
	sess, ok, err := e.load(ctx, in.From)
	if err != nil {
		return e.fail(ctx, in.From, domain.StepNone, "load session", err)
	}
	if !ok {
		return e.welcome(ctx, in.From)
	}
	if sess.Address == "" {
		sess.Address = in.From
	}

	switch sess.Step {
	case domain.StepAskName:
		return e.capture(ctx, sess, in.Text, domain.StepAskEmail, session.FieldName)
	case domain.StepAskEmail:
		return e.email(ctx, sess, in.Text)
	case domain.StepAskCity:
		return e.capture(ctx, sess, in.Text, domain.StepAskCode, session.FieldCity)
	case domain.StepAskCode:
		return e.code(ctx, sess, in.Text)
	default:
		// Load only reports known steps; treat anything else as a new conversation.
		return e.welcome(ctx, in.From)
	}
}

// welcome starts a fresh session. The text of the first message is not
// validated.
func (e *Engine) welcome(ctx context.Context, address string) (Outcome, error) {
	cctx, cancel := e.call(ctx)
	err := e.Sessions.Start(cctx, address, domain.StepAskName)
	cancel()
	if err != nil {
		return e.fail(ctx, address, domain.StepNone, "start session", err)
	}
	out := Outcome{From: domain.StepNone, To: domain.StepAskName, Result: ResultWelcome}
	return e.reply(ctx, address, render(e.Messages.Welcome, e.vars(domain.Session{}, "")), out)
}

// capture handles steps whose reply is always authored by the extractor.
func (e *Engine) capture(ctx context.Context, sess domain.Session, text string, next domain.Step, field string) (Outcome, error) {
	v, err := e.extract(ctx, sess, text)
	if err != nil {
		return e.fail(ctx, sess.Address, sess.Step, "extract", err)
	}
	if !v.Valid {
		return e.reply(ctx, sess.Address, v.Message, Outcome{From: sess.Step, To: sess.Step, Result: ResultInvalid})
	}

	cctx, cancel := e.call(ctx)
	err = e.Sessions.Advance(cctx, sess.Address, next, field, v.Value)
	cancel()
	if err != nil {
		return e.fail(ctx, sess.Address, sess.Step, "advance session", err)
	}
	return e.reply(ctx, sess.Address, v.Message, Outcome{From: sess.Step, To: next, Result: ResultAdvanced})
}

func (e *Engine) email(ctx context.Context, sess domain.Session, text string) (Outcome, error) {
	v, err := e.extract(ctx, sess, text)
	if err != nil {
		return e.fail(ctx, sess.Address, sess.Step, "extract", err)
	}
	if !v.Valid {
		return e.reply(ctx, sess.Address, v.Message, Outcome{From: sess.Step, To: sess.Step, Result: ResultInvalid})
	}
	email := repo.NormalizeEmail(v.Value)

	cctx, cancel := e.call(ctx)
	taken, err := e.Ledger.IsEmailClaimed(cctx, email)
	cancel()
	if err != nil {
		return e.fail(ctx, sess.Address, sess.Step, "check email", err)
	}
	if taken {
		return e.reply(ctx, sess.Address, render(e.Messages.EmailTaken, e.vars(sess, "")),
			Outcome{From: sess.Step, To: sess.Step, Result: ResultEmailTaken})
	}

	cctx, cancel = e.call(ctx)
	err = e.Sessions.Advance(cctx, sess.Address, domain.StepAskCity, session.FieldEmail, email)
	cancel()
	if err != nil {
		return e.fail(ctx, sess.Address, sess.Step, "advance session", err)
	}
	return e.reply(ctx, sess.Address, render(e.Messages.AskCity, e.vars(sess, "")),
		Outcome{From: sess.Step, To: domain.StepAskCity, Result: ResultAdvanced})
}

func (e *Engine) code(ctx context.Context, sess domain.Session, text string) (Outcome, error) {
	v, err := e.extract(ctx, sess, text)
	if err != nil {
		return e.fail(ctx, sess.Address, sess.Step, "extract", err)
	}
	if !v.Valid {
		return e.reply(ctx, sess.Address, v.Message, Outcome{From: sess.Step, To: sess.Step, Result: ResultInvalid})
	}
	code := repo.NormalizeCode(v.Value)
	invalid := Outcome{From: sess.Step, To: sess.Step, Result: ResultInvalidCode}

	// The email may have been bound since ASK_EMAIL, by a concurrent
	// registrant or by this session's own claim when its clear failed.
	cctx, cancel := e.call(ctx)
	taken, err := e.Ledger.IsEmailClaimed(cctx, sess.Email)
	cancel()
	if err != nil {
		return e.fail(ctx, sess.Address, sess.Step, "recheck email", err)
	}
	if taken {
		claims.WithLabelValues("rejected").Inc()
		out := Outcome{From: sess.Step, To: domain.StepNone, Result: ResultEmailTaken}
		clearErr := e.clear(ctx, sess.Address, "")
		if clearErr != nil {
			out.To = sess.Step
		}
		out, err = e.reply(ctx, sess.Address, render(e.Messages.AlreadyRegistered, e.vars(sess, "")), out)
		return out, errors.Join(clearErr, err)
	}

	cctx, cancel = e.call(ctx)
	active, err := e.Ledger.IsCodeActive(cctx, code)
	cancel()
	if err != nil {
		claims.WithLabelValues("error").Inc()
		return e.fail(ctx, sess.Address, sess.Step, "lookup code", err)
	}
	if !active {
		claims.WithLabelValues("rejected").Inc()
		return e.reply(ctx, sess.Address, render(e.Messages.InvalidCode, e.vars(sess, code)), invalid)
	}

	cctx, cancel = e.call(ctx)
	ok, err := e.Ledger.ClaimCode(cctx, code, repo.Registrant{
		Phone: sess.Address,
		Name:  sess.Name,
		Email: sess.Email,
		City:  sess.City,
	})
	cancel()
	if err != nil {
		claims.WithLabelValues("error").Inc()
		return e.fail(ctx, sess.Address, sess.Step, "claim code", err)
	}
	if !ok {
		// lost a race with another claimant between lookup and update
		claims.WithLabelValues("rejected").Inc()
		return e.reply(ctx, sess.Address, render(e.Messages.InvalidCode, e.vars(sess, code)), invalid)
	}
	claims.WithLabelValues("claimed").Inc()

	// The claim is committed: finish the turn even if the inbound deadline
	// has passed. A session that survives here is stopped by the email recheck.
	ctx = context.WithoutCancel(ctx)
	out := Outcome{From: sess.Step, To: domain.StepNone, Result: ResultRegistered}
	clearErr := e.clear(ctx, sess.Address, code)
	if clearErr != nil {
		out.To = sess.Step
	}
	out, err = e.reply(ctx, sess.Address, render(e.Messages.Success, e.vars(sess, code)), out)
	return out, errors.Join(clearErr, err)
}

// clear ends the conversation of address after its email was bound to a code.
func (e *Engine) clear(ctx context.Context, address, code string) error {
	cctx, cancel := e.call(ctx)
	defer cancel()
	if err := e.Sessions.Clear(cctx, address); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("code", code).Msg("registration complete but session not cleared")
		return fmt.Errorf("%w: %w", ErrSessionNotCleared, err)
	}
	return nil
}

func (e *Engine) load(ctx context.Context, address string) (domain.Session, bool, error) {
	cctx, cancel := e.call(ctx)
	defer cancel()
	return e.Sessions.Load(cctx, address)
}

func (e *Engine) extract(ctx context.Context, sess domain.Session, text string) (extractor.Verdict, error) {
	cctx, cancel := e.call(ctx)
	defer cancel()
	v, err := e.Extractor.Extract(cctx, extractor.Request{Text: text, Step: sess.Step, Session: sess})
	if err != nil {
		return v, err
	}
	v.Value = strings.TrimSpace(v.Value)
	if v.Valid && v.Value == "" {
		return v, extractor.ErrBadResponse
	}
	return v, nil
}

// reply sends text and records delivery on out.
func (e *Engine) reply(ctx context.Context, address, text string, out Outcome) (Outcome, error) {
	out.Reply = text
	cctx, cancel := e.call(ctx)
	err := e.Notifier.Send(cctx, address, text)
	cancel()
	if err != nil {
		outbound.WithLabelValues("failed").Inc()
		zerolog.Ctx(ctx).Warn().Err(err).Str("result", string(out.Result)).Msg("reply not delivered")
		return out, fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}
	outbound.WithLabelValues("sent").Inc()
	out.Delivered = true
	return out, nil
}

// fail tells the user to retry and reports a dependency error. The session
// is left at step.
func (e *Engine) fail(ctx context.Context, address string, step domain.Step, op string, cause error) (Outcome, error) {
	zerolog.Ctx(ctx).Error().Err(cause).Str("op", op).Str("step", stepLabel(string(step))).Msg("dependency failure")
	depErr := fmt.Errorf("%w: %s: %w", ErrDependency, op, cause)

	// The turn's deadline may be what failed; the retry notice still goes out.
	out, err := e.reply(context.WithoutCancel(ctx), address, e.Messages.TechnicalIssue, Outcome{From: step, To: step, Result: ResultFailed})
	if err != nil {
		return out, errors.Join(depErr, err)
	}
	return out, depErr
}

func (e *Engine) call(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.CallTimeout)
}

func (e *Engine) vars(s domain.Session, code string) vars {
	name := s.Name
	if first, _, ok := strings.Cut(name, " "); ok {
		name = first
	}
	return vars{Name: name, Contest: e.ContestName, Terms: e.TermsURL, Code: code}
}
