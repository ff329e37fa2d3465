// Package mocks provides testify mocks for the conversation engine's
// collaborators.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tbourn/go-contest-bot/internal/domain"
	"github.com/tbourn/go-contest-bot/internal/extractor"
	"github.com/tbourn/go-contest-bot/internal/repo"
)

// MockSessions is a mock implementation of conversation.Sessions
type MockSessions struct {
	mock.Mock
}

func (m *MockSessions) Load(ctx context.Context, address string) (domain.Session, bool, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(domain.Session), args.Bool(1), args.Error(2)
}

func (m *MockSessions) Start(ctx context.Context, address string, step domain.Step) error {
	args := m.Called(ctx, address, step)
	return args.Error(0)
}

func (m *MockSessions) Advance(ctx context.Context, address string, step domain.Step, field, value string) error {
	args := m.Called(ctx, address, step, field, value)
	return args.Error(0)
}

func (m *MockSessions) Clear(ctx context.Context, address string) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

// MockLedger is a mock implementation of conversation.Ledger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) IsEmailClaimed(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) IsCodeActive(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) ClaimCode(ctx context.Context, code string, r repo.Registrant) (bool, error) {
	args := m.Called(ctx, code, r)
	return args.Bool(0), args.Error(1)
}

// MockExtractor is a mock implementation of extractor.Extractor
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, req extractor.Request) (extractor.Verdict, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(extractor.Verdict), args.Error(1)
}

// MockNotifier is a mock implementation of notify.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, address, text string) error {
	args := m.Called(ctx, address, text)
	return args.Error(0)
}
