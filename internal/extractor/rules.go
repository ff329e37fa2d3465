package extractor

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-contest-bot/internal/domain"
)

// RuleMessages are the replies produced by Rules. %s verbs receive the
// extracted value.
type RuleMessages struct {
	NameValid    string
	NameInvalid  string
	EmailValid   string
	EmailInvalid string
	CityValid    string
	CityInvalid  string
	CodeValid    string
	CodeInvalid  string
}

// DefaultRuleMessages returns the built-in English replies.
func DefaultRuleMessages() RuleMessages {
	return RuleMessages{
		NameValid:    "Thanks, %s! What is your email address?",
		NameInvalid:  "Please send your full name using letters only.",
		EmailValid:   "Got it: %s.",
		EmailInvalid: "That doesn't look like a valid email address. Please try again.",
		CityValid:    "Great, %s it is! Now send the code printed on your entry.",
		CityInvalid:  "Please tell us which city you live in.",
		CodeValid:    "Checking code %s...",
		CodeInvalid:  "Please send your contest code (letters and numbers only).",
	}
}

// Rules is a deterministic Extractor built on format checks. A nil
// Gazetteer accepts any letters-only city; otherwise cities must resolve.
type Rules struct {
	Gazetteer *Gazetteer
	Messages  RuleMessages
	Locale    language.Tag

	NameMaxRunes int
	CodeMinLen   int
	CodeMaxLen   int
}

// NewRules returns Rules with default messages and limits.
func NewRules(g *Gazetteer) *Rules {
	return &Rules{
		Gazetteer:    g,
		Messages:     DefaultRuleMessages(),
		Locale:       language.Und,
		NameMaxRunes: 60,
		CodeMinLen:   4,
		CodeMaxLen:   16,
	}
}

// Extract implements Extractor.
func (r *Rules) Extract(_ context.Context, req Request) (Verdict, error) {
	text := strings.TrimSpace(collapseSpaces(req.Text))
	switch req.Step {
	case domain.StepAskName:
		if v, ok := r.name(text); ok {
			return Verdict{Message: r.msg(r.Messages.NameValid, v), Valid: true, Value: v}, nil
		}
		return Verdict{Message: r.Messages.NameInvalid}, nil
	case domain.StepAskEmail:
		if v, ok := email(text); ok {
			return Verdict{Message: r.msg(r.Messages.EmailValid, v), Valid: true, Value: v}, nil
		}
		return Verdict{Message: r.Messages.EmailInvalid}, nil
	case domain.StepAskCity:
		if v, ok := r.city(text); ok {
			return Verdict{Message: r.msg(r.Messages.CityValid, v), Valid: true, Value: v}, nil
		}
		return Verdict{Message: r.Messages.CityInvalid}, nil
	case domain.StepAskCode:
		if v, ok := r.code(text); ok {
			return Verdict{Message: r.msg(r.Messages.CodeValid, v), Valid: true, Value: v}, nil
		}
		return Verdict{Message: r.Messages.CodeInvalid}, nil
	default:
		return Verdict{}, ErrUnsupportedStep
	}
}

func (r *Rules) msg(format, v string) string {
	if strings.Contains(format, "%s") {
		return fmt.Sprintf(format, v)
	}
	return format
}

var namePrefixRE = regexp.MustCompile(`(?i)^(my name is|my name's|name is|name:|i am|i'm|im|this is|it's|it is)\s+`)

func (r *Rules) name(text string) (string, bool) {
	text = strings.TrimSpace(namePrefixRE.ReplaceAllString(text, ""))
	text = strings.TrimRight(text, ".!")
	if text == "" {
		return "", false
	}
	if r.NameMaxRunes > 0 && utf8.RuneCountInString(text) > r.NameMaxRunes {
		return "", false
	}
	letters := 0
	for _, c := range text {
		switch {
		case unicode.IsLetter(c):
			letters++
		case c == ' ' || c == '\'' || c == '-' || c == '.':
		default:
			return "", false
		}
	}
	if letters < 2 {
		return "", false
	}
	return cases.Title(r.Locale).String(text), true
}

var emailRE = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9\-]+(\.[A-Za-z0-9\-]+)*\.[A-Za-z]{2,}`)

func email(text string) (string, bool) {
	m := emailRE.FindAllString(text, -1)
	if len(m) != 1 {
		return "", false
	}
	e := strings.ToLower(m[0])
	if strings.Contains(e, "..") || strings.HasPrefix(e, ".") {
		return "", false
	}
	return e, true
}

func (r *Rules) city(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	if r.Gazetteer.Len() > 0 {
		return r.Gazetteer.Resolve(text)
	}
	toks := tokenize(text, defaultGazConfig().stopwords)
	if len(toks) == 0 {
		return "", false
	}
	// keep the original word order, minus filler words
	var kept []string
	for _, w := range strings.Fields(text) {
		lw := strings.ToLower(strings.Trim(w, ".,!"))
		if _, ok := toks[lw]; ok {
			kept = append(kept, strings.Trim(w, ".,!"))
		}
	}
	for _, w := range kept {
		for _, c := range w {
			if !unicode.IsLetter(c) && c != '-' && c != '\'' {
				return "", false
			}
		}
	}
	if len(kept) == 0 {
		return "", false
	}
	return cases.Title(r.Locale).String(strings.Join(kept, " ")), true
}

var codeTokenRE = regexp.MustCompile(`[A-Za-z0-9]+`)

func (r *Rules) code(text string) (string, bool) {
	toks := codeTokenRE.FindAllString(text, -1)
	fits := func(s string) bool {
		n := len(s)
		return n >= r.CodeMinLen && (r.CodeMaxLen <= 0 || n <= r.CodeMaxLen)
	}
	// a sole token is taken as-is; otherwise prefer one carrying a digit
	if len(toks) == 1 && fits(toks[0]) {
		return strings.ToUpper(toks[0]), true
	}
	for _, t := range toks {
		if fits(t) && strings.IndexFunc(t, unicode.IsDigit) >= 0 {
			return strings.ToUpper(t), true
		}
	}
	return "", false
}
