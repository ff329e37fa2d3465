// Package extractor turns free-form user text into validated registration
// fields.
//
// An Extractor receives the raw text, the conversation step it answers, and
// a snapshot of the session so far, and returns a Verdict: the reply to show
// the user, whether the input was acceptable, and the cleaned value.
//
// Implementations:
//   - LLM: hosted chat-completion model in JSON mode (github.com/sashabaranov/go-openai)
//   - Rules: deterministic format checks, usable offline and in tests
//   - Resilient: wraps a primary with a fallback and never returns an error
package extractor

import (
	"context"
	"errors"

	"github.com/tbourn/go-contest-bot/internal/domain"
)

// Request is the input to an extraction.
type Request struct {
	Text    string
	Step    domain.Step
	Session domain.Session
}

// Verdict is the result of an extraction. Value is the cleaned field
// content and is only meaningful when Valid is true.
type Verdict struct {
	Message string `json:"message"`
	Valid   bool   `json:"is_valid"`
	Value   string `json:"value"`
}

// Extractor validates and extracts one field from user text.
type Extractor interface {
	Extract(ctx context.Context, req Request) (Verdict, error)
}

// ErrBadResponse is returned when the model reply cannot be used.
var ErrBadResponse = errors.New("extractor: unusable response")

// ErrUnsupportedStep is returned for steps that take no user input.
var ErrUnsupportedStep = errors.New("extractor: step takes no input")

// DefaultRetryMessage is shown when extraction fails for technical reasons.
const DefaultRetryMessage = "Sorry, I couldn't process that right now. Please send your answer again."
