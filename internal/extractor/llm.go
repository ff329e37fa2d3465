package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tbourn/go-contest-bot/internal/domain"
)

// ChatCompleter is the subset of the OpenAI client used by LLM.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLM extracts fields with a chat-completion model constrained to JSON.
type LLM struct {
	Client      ChatCompleter
	Model       string
	ContestName string
}

// NewLLM builds an LLM extractor against an OpenAI-compatible endpoint.
// An empty baseURL keeps the client default.
func NewLLM(apiKey, baseURL, model, contest string) *LLM {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &LLM{Client: openai.NewClientWithConfig(cfg), Model: model, ContestName: contest}
}

var stepInstructions = map[domain.Step]string{
	domain.StepAskName: "The user should send their full name. Extract the name only, properly capitalised. " +
		"Reject numbers, emails, greetings without a name, and obvious nonsense. " +
		"If valid, thank them by first name and ask for their email address. If invalid, ask again politely.",
	domain.StepAskEmail: "The user should send their email address. Extract the address only, lower-cased. " +
		"Reject anything that is not a syntactically valid email. If invalid, explain and ask again.",
	domain.StepAskCity: "The user should send the city they live in. Extract the city name only, in its common spelling. " +
		"Reject text that is not a real city. If valid, acknowledge it and ask for the contest code printed on their entry. " +
		"If invalid, ask again.",
	domain.StepAskCode: "The user should send their contest code. Extract the code only: letters and digits, upper-cased, no spaces. " +
		"If the text has no plausible code, ask again.",
}

const systemPrompt = `You validate answers in a WhatsApp registration chat for %q.
%s
Reply with a JSON object and nothing else:
{"message": string (reply to send the user, short and friendly), "is_valid": boolean, "value": string (extracted value, empty if invalid)}`

// Extract implements Extractor. Transport failures and unusable replies
// are returned as errors; callers usually wrap LLM in Resilient.
func (l *LLM) Extract(ctx context.Context, req Request) (Verdict, error) {
	instr, ok := stepInstructions[req.Step]
	if !ok {
		return Verdict{}, ErrUnsupportedStep
	}
	snap, err := json.Marshal(map[string]string{
		"name":  req.Session.Name,
		"email": req.Session.Email,
		"city":  req.Session.City,
	})
	if err != nil {
		return Verdict{}, err
	}
	resp, err := l.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.Model,
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fmt.Sprintf(systemPrompt, l.ContestName, instr)},
			{Role: openai.ChatMessageRoleSystem, Content: "Collected so far: " + string(snap)},
			{Role: openai.ChatMessageRoleUser, Content: req.Text},
		},
	})
	if err != nil {
		return Verdict{}, err
	}
	if len(resp.Choices) == 0 {
		return Verdict{}, fmt.Errorf("%w: no choices", ErrBadResponse)
	}
	return parseVerdict(resp.Choices[0].Message.Content)
}

func parseVerdict(raw string) (Verdict, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var v Verdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	v.Message = strings.TrimSpace(v.Message)
	v.Value = strings.TrimSpace(v.Value)
	if v.Message == "" {
		return Verdict{}, fmt.Errorf("%w: empty message", ErrBadResponse)
	}
	if v.Valid && v.Value == "" {
		return Verdict{}, fmt.Errorf("%w: valid verdict without value", ErrBadResponse)
	}
	if !v.Valid {
		v.Value = ""
	}
	return v, nil
}
