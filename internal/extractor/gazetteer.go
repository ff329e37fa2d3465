package extractor

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Gazetteer resolves free-form city mentions to canonical city names.
//
// Matching uses Jaccard similarity between the token set of the query and
// each known name: score = |Q ∩ N| / |Q ∪ N|. The gazetteer is read-only
// after construction and safe for concurrent use.
type Gazetteer struct {
	cfg   gazConfig
	names []gazEntry
}

// Match is a ranked gazetteer hit.
type Match struct {
	Name  string
	Score float64
}

// GazOption configures a Gazetteer.
type GazOption func(*gazConfig)

type gazConfig struct {
	stopwords map[string]struct{}
	minScore  float64
}

func defaultGazConfig() gazConfig {
	return gazConfig{
		stopwords: toSet(defaultCityStopwords),
		minScore:  0.5,
	}
}

// Filler words people wrap a city name in ("I live in ...", "my city is ...").
var defaultCityStopwords = []string{
	"i", "im", "am", "live", "living", "in", "at", "from", "my", "city", "is",
	"the", "it", "its", "town", "near", "based", "stay", "we", "are",
}

// WithStopwords replaces the filler words ignored during matching.
func WithStopwords(words []string) GazOption {
	return func(c *gazConfig) {
		if m := toSet(words); len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMinScore sets the similarity a match needs to be accepted.
func WithMinScore(s float64) GazOption {
	return func(c *gazConfig) {
		if s > 0 && s <= 1 {
			c.minScore = s
		}
	}
}

type gazEntry struct {
	name   string
	tokens map[string]struct{}
}

// NewGazetteer builds a gazetteer from canonical names. Blank and duplicate
// names are skipped.
func NewGazetteer(names []string, opts ...GazOption) *Gazetteer {
	cfg := defaultGazConfig()
	for _, o := range opts {
		o(&cfg)
	}
	g := &Gazetteer{cfg: cfg}
	seen := map[string]struct{}{}
	for _, raw := range names {
		n := strings.TrimSpace(collapseSpaces(raw))
		if n == "" {
			continue
		}
		k := strings.ToLower(n)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		// names are tokenized without stopwords so "The Hague" keeps both tokens
		toks := tokenize(n, nil)
		if len(toks) == 0 {
			continue
		}
		g.names = append(g.names, gazEntry{name: n, tokens: toks})
	}
	return g
}

// LoadGazetteer reads one city per line from path. Markdown table rows are
// accepted; the first non-empty cell of each row is used and separator rows
// are skipped. Lines starting with '#' are comments.
func LoadGazetteer(path string, opts ...GazOption) (*Gazetteer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadGazetteer(f, opts...)
}

// ReadGazetteer is LoadGazetteer over an io.Reader.
func ReadGazetteer(r io.Reader, opts ...GazOption) (*Gazetteer, error) {
	var names []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") {
			if cell := firstTableCell(line); cell != "" {
				names = append(names, cell)
			}
			continue
		}
		names = append(names, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return NewGazetteer(names, opts...), nil
}

func firstTableCell(line string) string {
	for _, c := range strings.Split(strings.Trim(line, "|"), "|") {
		cell := strings.TrimSpace(c)
		if cell == "" {
			continue
		}
		tmp := strings.NewReplacer(":", "", "-", "").Replace(cell)
		if strings.TrimSpace(tmp) == "" {
			return "" // separator row
		}
		if strings.EqualFold(cell, "city") {
			return "" // header row
		}
		return cell
	}
	return ""
}

// Len reports the number of known names.
func (g *Gazetteer) Len() int {
	if g == nil {
		return 0
	}
	return len(g.names)
}

// TopK returns up to k best matches, highest score first. Ties are broken
// by shorter name, then lexically, so results are deterministic.
func (g *Gazetteer) TopK(q string, k int) []Match {
	if g.Len() == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, g.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	var buf []Match
	for _, e := range g.names {
		over := overlap(qTokens, e.tokens)
		if over == 0 {
			continue
		}
		union := float64(len(qTokens) + len(e.tokens) - over)
		buf = append(buf, Match{Name: e.name, Score: float64(over) / union})
	}
	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].Score != buf[b].Score {
			return buf[a].Score > buf[b].Score
		}
		if len(buf[a].Name) != len(buf[b].Name) {
			return len(buf[a].Name) < len(buf[b].Name)
		}
		return buf[a].Name < buf[b].Name
	})
	if k > len(buf) {
		k = len(buf)
	}
	return buf[:k]
}

// Resolve returns the canonical name for q when the best match clears the
// minimum score.
func (g *Gazetteer) Resolve(q string) (string, bool) {
	top := g.TopK(q, 1)
	if len(top) == 0 || top[0].Score < g.cfg.minScore {
		return "", false
	}
	return top[0].Name, true
}

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(strings.ToLower(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; skip {
			continue
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func toSet(words []string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			m[w] = struct{}{}
		}
	}
	return m
}

var spacesRE = regexp.MustCompile(`\s+`)

func collapseSpaces(s string) string {
	return spacesRE.ReplaceAllString(s, " ")
}
