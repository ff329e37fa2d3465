package session

import (
	"context"
	"time"

	"github.com/tbourn/go-contest-bot/internal/domain"
)

// Field names used inside a session hash.
const (
	FieldStep    = "step"
	FieldAddress = "address"
	FieldName    = "name"
	FieldEmail   = "email"
	FieldCity    = "city"
	FieldCode    = "code"
)

// DefaultTTL is the inactivity window after which a conversation is dropped.
const DefaultTTL = 30 * time.Minute

// DefaultPrefix namespaces session keys in shared stores.
const DefaultPrefix = "session:"

type ttlWriter interface {
	SetFieldsWithTTL(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error
}

// Sessions reads and writes typed sessions on top of a Store.
//
// Every write re-arms the key's TTL, so the inactivity window is measured
// from the last message that changed the session.
type Sessions struct {
	Store  Store
	TTL    time.Duration
	Prefix string
}

// NewSessions returns a Sessions with defaults applied for zero values.
func NewSessions(store Store, ttl time.Duration, prefix string) *Sessions {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Sessions{Store: store, TTL: ttl, Prefix: prefix}
}

// Key derives the store key for a channel address.
func (s *Sessions) Key(address string) string {
	return s.Prefix + address
}

// Load returns the session for address. The boolean is false when there is
// no session, including when the stored step is missing or unrecognised.
func (s *Sessions) Load(ctx context.Context, address string) (domain.Session, bool, error) {
	m, err := s.Store.Get(ctx, s.Key(address))
	if err != nil {
		return domain.Session{}, false, err
	}
	step, ok := domain.ParseStep(m[FieldStep])
	if !ok {
		return domain.Session{}, false, nil
	}
	sess := domain.Session{
		Step:    step,
		Address: m[FieldAddress],
		Name:    m[FieldName],
		Email:   m[FieldEmail],
		City:    m[FieldCity],
		Code:    m[FieldCode],
	}
	if sess.Address == "" {
		sess.Address = address
	}
	return sess, true, nil
}

// Start writes a fresh session at the given step, replacing anything left
// under the key.
func (s *Sessions) Start(ctx context.Context, address string, step domain.Step) error {
	key := s.Key(address)
	if err := s.Store.Delete(ctx, key); err != nil {
		return err
	}
	return s.write(ctx, key, map[string]string{
		FieldStep:    string(step),
		FieldAddress: address,
	})
}

// Advance moves the session to step and stores one captured field.
// field may be empty to change only the step.
func (s *Sessions) Advance(ctx context.Context, address string, step domain.Step, field, value string) error {
	fields := map[string]string{FieldStep: string(step)}
	if field != "" {
		fields[field] = value
	}
	return s.write(ctx, s.Key(address), fields)
}

// Clear removes the session.
func (s *Sessions) Clear(ctx context.Context, address string) error {
	return s.Store.Delete(ctx, s.Key(address))
}

func (s *Sessions) write(ctx context.Context, key string, fields map[string]string) error {
	if w, ok := s.Store.(ttlWriter); ok {
		return w.SetFieldsWithTTL(ctx, key, fields, s.TTL)
	}
	if err := s.Store.SetFields(ctx, key, fields); err != nil {
		return err
	}
	return s.Store.Expire(ctx, key, s.TTL)
}

// Ping reports the health of the underlying store when it supports it.
func (s *Sessions) Ping(ctx context.Context) error {
	if p, ok := s.Store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
