package conversation

import "strings"

// Messages are the replies the engine authors itself. The extractor writes
// every other reply. Templates may use {name}, {contest}, {terms} and {code}.
type Messages struct {
	Welcome           string
	AskCity           string
	EmailTaken        string
	AlreadyRegistered string
	InvalidCode       string
	Success           string
	TechnicalIssue    string
}

// DefaultMessages returns the built-in English catalogue.
func DefaultMessages() Messages {
	return Messages{
		Welcome: "Welcome to the {contest}! To enter, we need a few details. " +
			"By continuing you accept the terms and conditions: {terms}\n\nWhat is your full name?",
		AskCity:    "Thanks! Which city do you live in?",
		EmailTaken: "This email address is already registered. Please use a different email.",
		AlreadyRegistered: "This email address already has a code registered for the {contest}. " +
			"Send us a new message to start another registration.",
		InvalidCode:    "Sorry, this code is invalid or has already been used. Please check it and try again.",
		Success:        "Congratulations {name}! Your code {code} is registered for the {contest}. Good luck!",
		TechnicalIssue: "We're having a technical issue right now. Please send your last message again in a moment.",
	}
}

// withDefaults fills blank entries from DefaultMessages.
func (m Messages) withDefaults() Messages {
	d := DefaultMessages()
	fill := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}
	fill(&m.Welcome, d.Welcome)
	fill(&m.AskCity, d.AskCity)
	fill(&m.EmailTaken, d.EmailTaken)
	fill(&m.AlreadyRegistered, d.AlreadyRegistered)
	fill(&m.InvalidCode, d.InvalidCode)
	fill(&m.Success, d.Success)
	fill(&m.TechnicalIssue, d.TechnicalIssue)
	return m
}

type vars struct {
	Name, Contest, Terms, Code string
}

func render(tmpl string, v vars) string {
	return strings.NewReplacer(
		"{name}", v.Name,
		"{contest}", v.Contest,
		"{terms}", v.Terms,
		"{code}", v.Code,
	).Replace(tmpl)
}
