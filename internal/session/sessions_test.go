package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tbourn/go-contest-bot/internal/domain"
)

func TestSessions_LoadMissing(t *testing.T) {
	s := NewSessions(NewMemoryStore(), 0, "")
	if s.TTL != DefaultTTL || s.Prefix != DefaultPrefix {
		t.Fatalf("defaults not applied: %+v", s)
	}
	_, ok, err := s.Load(context.Background(), "+1")
	if err != nil || ok {
		t.Fatalf("want no session, ok=%v err=%v", ok, err)
	}
}

func TestSessions_UnknownStepIsNoSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := NewSessions(store, time.Minute, "p:")
	_ = store.SetFields(ctx, "p:+1", map[string]string{FieldStep: "BOGUS", FieldName: "x"})

	_, ok, err := s.Load(ctx, "+1")
	if err != nil || ok {
		t.Fatalf("unknown step should read as no session")
	}
}

func TestSessions_StartAdvanceClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := NewSessions(store, time.Minute, "p:")

	// leftovers from an older conversation are dropped on Start
	_ = store.SetFields(ctx, "p:+1", map[string]string{FieldName: "old"})

	if err := s.Start(ctx, "+1", domain.StepAskName); err != nil {
		t.Fatal(err)
	}
	if err := s.Advance(ctx, "+1", domain.StepAskEmail, FieldName, "John Doe"); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.Load(ctx, "+1")
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	want := domain.Session{Step: domain.StepAskEmail, Address: "+1", Name: "John Doe"}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}

	if err := s.Clear(ctx, "+1"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.Load(ctx, "+1"); ok {
		t.Fatalf("session should be gone")
	}
}

func TestSessions_EveryWriteRearmsTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.Now = func() time.Time { return now }
	s := NewSessions(store, 30*time.Minute, "")

	_ = s.Start(ctx, "+1", domain.StepAskName)
	now = now.Add(20 * time.Minute)
	_ = s.Advance(ctx, "+1", domain.StepAskEmail, FieldName, "Jane")
	now = now.Add(20 * time.Minute)

	if _, ok, _ := s.Load(ctx, "+1"); !ok {
		t.Fatalf("write should have re-armed the TTL")
	}
	now = now.Add(11 * time.Minute)
	if _, ok, _ := s.Load(ctx, "+1"); ok {
		t.Fatalf("session should have expired")
	}
}

func TestSessions_RedisUsesTransactionalTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewSessions(NewRedisStore(client), 30*time.Minute, "session:")

	if err := s.Start(ctx, "+911234567", domain.StepAskName); err != nil {
		t.Fatal(err)
	}
	if mr.TTL("session:+911234567") != 30*time.Minute {
		t.Fatalf("ttl = %v", mr.TTL("session:+911234567"))
	}
	if mr.HGet("session:+911234567", FieldStep) != string(domain.StepAskName) {
		t.Fatalf("step not written")
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

type failingStore struct{ Store }

func (failingStore) Get(context.Context, string) (map[string]string, error) {
	return nil, errors.New("boom")
}

func TestSessions_LoadError(t *testing.T) {
	s := NewSessions(failingStore{NewMemoryStore()}, time.Minute, "")
	if _, _, err := s.Load(context.Background(), "+1"); err == nil {
		t.Fatalf("want error")
	}
}
