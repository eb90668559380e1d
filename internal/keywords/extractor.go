// Package keywords extracts the top candidate keywords from unstructured
// text. The heuristic tokenises on alphabetic words, strips possessives,
// removes a fixed stop-word list and a curated list of common verbs, then
// scores the remaining tokens by frequency with small boosts for
// capitalisation (proper-noun signal) and length. Results are deterministic:
// identical input always yields the identical ordered output, and ties are
// broken by the position of a token's first occurrence, never by map
// iteration order.
package keywords

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"then": {}, "else": {}, "when": {}, "while": {}, "for": {}, "on": {},
	"in": {}, "to": {}, "of": {}, "by": {}, "with": {}, "as": {}, "at": {},
	"from": {}, "that": {}, "this": {}, "these": {}, "those": {}, "it": {},
	"its": {}, "be": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"been": {}, "being": {}, "am": {}, "i": {}, "you": {}, "he": {},
	"she": {}, "they": {}, "them": {}, "we": {}, "us": {}, "our": {},
	"your": {}, "his": {}, "her": {}, "their": {}, "my": {}, "mine": {},
	"yours": {}, "ours": {}, "theirs": {}, "do": {}, "does": {}, "did": {},
	"done": {}, "have": {}, "has": {}, "had": {}, "having": {}, "will": {},
	"would": {}, "can": {}, "could": {}, "should": {}, "shall": {},
	"may": {}, "might": {}, "must": {}, "not": {}, "no": {}, "yes": {},
	"so": {}, "than": {}, "too": {}, "very": {}, "there": {}, "here": {},
	"what": {}, "which": {}, "who": {}, "whom": {}, "whose": {}, "how": {},
	"why": {}, "where": {}, "into": {}, "over": {}, "under": {},
	"again": {}, "further": {}, "once": {}, "about": {}, "both": {},
	"between": {}, "out": {}, "up": {}, "down": {}, "off": {}, "above": {},
	"below": {}, "because": {}, "until": {}, "after": {}, "before": {},
	"during": {}, "each": {}, "few": {}, "more": {}, "most": {},
	"other": {}, "some": {}, "such": {}, "only": {}, "own": {}, "same": {},
	"s": {}, "t": {}, "d": {}, "ll": {}, "m": {}, "o": {}, "re": {},
	"ve": {}, "y": {}, "don": {}, "shouldn": {}, "now": {},
}

// commonVerbs filters verbs that dominate technical prose but make poor
// keywords.
var commonVerbs = map[string]struct{}{
	"use": {}, "build": {}, "create": {}, "make": {}, "run": {},
	"scale": {}, "deploy": {}, "call": {}, "send": {}, "fetch": {},
	"return": {}, "process": {}, "analyze": {}, "extract": {},
	"store": {}, "search": {}, "handle": {}, "test": {},
	"containerize": {}, "support": {}, "add": {}, "include": {},
	"design": {}, "choose": {}, "implement": {}, "prefer": {},
	"focus": {}, "integrate": {}, "accept": {}, "provide": {},
	"generate": {}, "score": {}, "classify": {}, "view": {},
}

var wordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z\-']+`)

// Params holds the extractor's tuning constants. The boost weights are
// heuristic, not derived from a principled model; treat them as
// configuration. The defaults keep frequency dominant while letting
// capitalisation and length break ties between equally frequent tokens.
type Params struct {
	// TopK is the maximum number of keywords returned.
	TopK int
	// MinTokenLength discards tokens shorter than this many characters.
	// All-uppercase occurrences ("AI", "ML") are exempt: acronyms carry
	// signal that the length filter would otherwise throw away.
	MinTokenLength int
	// CapitalBoost is added when a token's first occurrence in the text
	// begins with an uppercase letter.
	CapitalBoost float64
	// LengthBoost is a flat increment added once for tokens of at least
	// LengthBaseline characters; it does not grow with further length.
	LengthBoost    float64
	LengthBaseline int
}

// DefaultParams returns the standard heuristic constants.
func DefaultParams() Params {
	return Params{
		TopK:           3,
		MinTokenLength: 3,
		CapitalBoost:   0.25,
		LengthBoost:    0.10,
		LengthBaseline: 7,
	}
}

// Candidate is a distinct normalised token with its composite score.
type Candidate struct {
	// Term is the lowercased token.
	Term string
	// Score is frequency plus capitalisation and length boosts.
	Score float64
	// Frequency is the occurrence count within the input text.
	Frequency int
	// FirstPos is the position (among surviving tokens) of the term's
	// first occurrence; it is the deterministic tie-breaker.
	FirstPos int
	// Capitalized reports whether the first occurrence began uppercase.
	Capitalized bool
}

// Extractor computes keyword candidates from raw text. It holds only
// immutable configuration and is safe for concurrent use.
type Extractor struct {
	params Params
}

// New creates an Extractor, substituting defaults for zero-valued params.
func New(params Params) *Extractor {
	defaults := DefaultParams()
	if params.TopK <= 0 {
		params.TopK = defaults.TopK
	}
	if params.MinTokenLength <= 0 {
		params.MinTokenLength = defaults.MinTokenLength
	}
	if params.CapitalBoost <= 0 {
		params.CapitalBoost = defaults.CapitalBoost
	}
	if params.LengthBoost <= 0 {
		params.LengthBoost = defaults.LengthBoost
	}
	if params.LengthBaseline <= 0 {
		params.LengthBaseline = defaults.LengthBaseline
	}
	return &Extractor{params: params}
}

// Extract returns up to TopK lowercase keywords ordered by descending score,
// ties broken by earliest first occurrence. It never fails: empty input,
// whitespace-only input, and input with no surviving tokens all yield an
// empty result.
func (e *Extractor) Extract(text string) []string {
	candidates := e.Candidates(text)
	if len(candidates) == 0 {
		return nil
	}
	top := candidates
	if len(top) > e.params.TopK {
		top = top[:e.params.TopK]
	}
	terms := make([]string, len(top))
	for i, c := range top {
		terms[i] = c.Term
	}
	return terms
}

// Candidates returns every distinct surviving token with its score, ordered
// by descending score then ascending first-occurrence position.
func (e *Extractor) Candidates(text string) []Candidate {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	type tally struct {
		frequency   int
		firstPos    int
		capitalized bool
	}

	counts := make(map[string]*tally)
	order := make([]string, 0, 16)
	pos := 0
	for _, raw := range wordPattern.FindAllString(text, -1) {
		term := normalizeToken(raw)
		if term == "" {
			continue
		}
		if len(term) < e.params.MinTokenLength && !isAcronym(raw) {
			continue
		}
		if _, isStop := stopWords[term]; isStop {
			continue
		}
		if _, isVerb := commonVerbs[term]; isVerb {
			continue
		}
		t, seen := counts[term]
		if !seen {
			first, _ := utf8.DecodeRuneInString(raw)
			counts[term] = &tally{
				frequency:   1,
				firstPos:    pos,
				capitalized: unicode.IsUpper(first),
			}
			order = append(order, term)
		} else {
			t.frequency++
		}
		pos++
	}
	if len(order) == 0 {
		return nil
	}

	candidates := make([]Candidate, 0, len(order))
	for _, term := range order {
		t := counts[term]
		score := float64(t.frequency)
		if t.capitalized {
			score += e.params.CapitalBoost
		}
		if len(term) >= e.params.LengthBaseline {
			score += e.params.LengthBoost
		}
		candidates = append(candidates, Candidate{
			Term:        term,
			Score:       score,
			Frequency:   t.frequency,
			FirstPos:    t.firstPos,
			Capitalized: t.capitalized,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].FirstPos < candidates[j].FirstPos
	})
	return candidates
}

// isAcronym reports whether a raw token is written entirely in uppercase
// letters, e.g. "AI" or "GPU". Such tokens skip the minimum-length filter.
func isAcronym(raw string) bool {
	if utf8.RuneCountInString(raw) < 2 {
		return false
	}
	for _, r := range raw {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// normalizeToken lowercases a raw token and strips trailing apostrophes and
// a possessive 's suffix.
func normalizeToken(raw string) string {
	term := strings.ToLower(raw)
	term = strings.TrimRight(term, "'")
	term = strings.TrimSuffix(term, "'s")
	return term
}
