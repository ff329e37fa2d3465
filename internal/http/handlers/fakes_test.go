package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/tbourn/go-contest-bot/internal/conversation"
	"github.com/tbourn/go-contest-bot/internal/domain"
	"github.com/tbourn/go-contest-bot/internal/services"
)

type fakeEngine struct {
	mu   sync.Mutex
	seen []conversation.InboundMessage
	errs map[string]error // by sender
}

func (f *fakeEngine) Handle(ctx context.Context, in conversation.InboundMessage) (conversation.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ctx.Err() != nil {
		return conversation.Outcome{}, ctx.Err()
	}
	f.seen = append(f.seen, in)
	return conversation.Outcome{}, f.errs[in.From]
}

type fakeIdem struct {
	mu   sync.Mutex
	keys map[string]bool
	err  error
}

func (f *fakeIdem) Remember(_ context.Context, scope, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.keys == nil {
		f.keys = map[string]bool{}
	}
	k := scope + "|" + key
	if f.keys[k] {
		return false, nil
	}
	f.keys[k] = true
	return true, nil
}

type fakeStats struct {
	st  *services.Stats
	err error
}

func (f fakeStats) Summary(context.Context) (*services.Stats, error) { return f.st, f.err }

type fakeRegistrations struct {
	items   []domain.Code
	total   int64
	latest  *time.Time
	err     error
	gotCity string
	gotPage [2]int
}

func (f *fakeRegistrations) ListPage(_ context.Context, city string, page, pageSize int) ([]domain.Code, int64, error) {
	f.gotCity, f.gotPage = city, [2]int{page, pageSize}
	return f.items, f.total, f.err
}

func (f *fakeRegistrations) Version(context.Context, string) (int64, *time.Time, error) {
	return f.total, f.latest, nil
}

type fakeWinners struct {
	current  []domain.Code
	drawErr  error
	draws    int
	reset    int64
	report   *services.NotifyReport
	notifErr error
}

func (f *fakeWinners) Draw(_ context.Context, n int) ([]domain.Code, error) {
	if f.drawErr != nil {
		return nil, f.drawErr
	}
	f.draws++
	out := make([]domain.Code, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Code{Code: "W" + string(rune('A'+i)), IsWinner: true})
	}
	f.current = append(f.current, out...)
	return out, nil
}

func (f *fakeWinners) List(context.Context) ([]domain.Code, error) { return f.current, nil }

func (f *fakeWinners) Reset(context.Context) (int64, error) { return f.reset, nil }

func (f *fakeWinners) Notify(context.Context) (*services.NotifyReport, error) {
	return f.report, f.notifErr
}

type fakeCodes struct {
	got []string
	err error
}

func (f *fakeCodes) Import(_ context.Context, codes []string) (*services.ImportResult, error) {
	f.got = codes
	if f.err != nil {
		return nil, f.err
	}
	return &services.ImportResult{Received: len(codes), Inserted: int64(len(codes))}, nil
}

type pingFunc func(context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

func contextWithCancel(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithCancel(r.Context())
}
