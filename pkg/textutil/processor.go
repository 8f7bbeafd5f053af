package textutil

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Processor normalizes and expands search text. All methods are safe for
// concurrent use; the processor holds only immutable lookup tables.
type Processor struct {
	stopWords       map[string]struct{}
	gamingStopWords map[string]struct{}
	synonyms        map[string][]string
	reverseSynonyms map[string]string
}

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRe = regexp.MustCompile(`\s+`)
	punctRe      = regexp.MustCompile(`[^\w\s\-_'".]`)
	normPunctRe  = regexp.MustCompile(`[^\w\s\-_]`)
)

// English stop words that add no signal to map/guide queries.
var defaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "for", "from",
	"has", "have", "how", "i", "in", "is", "it", "its", "of", "on", "or",
	"that", "the", "this", "to", "was", "were", "what", "when", "where",
	"which", "who", "will", "with", "you", "your",
}

// Domain terms so common in the catalog that they behave like stop words.
var gamingStopWords = []string{
	"game", "map", "level", "area", "location", "place", "item", "object",
}

var gamingSynonyms = map[string][]string{
	"treasure": {"chest", "loot", "reward"},
	"enemy":    {"monster", "mob", "creature"},
	"npc":      {"character", "person", "villager"},
	"weapon":   {"sword", "gun", "blade", "staff"},
	"armor":    {"shield", "protection", "gear"},
	"potion":   {"elixir", "brew", "medicine"},
	"quest":    {"mission", "task", "objective"},
	"boss":     {"final boss", "end boss", "big boss"},
}

// NewProcessor creates a text processor with the built-in vocabulary
func NewProcessor() *Processor {
	p := &Processor{
		stopWords:       make(map[string]struct{}, len(defaultStopWords)),
		gamingStopWords: make(map[string]struct{}, len(gamingStopWords)),
		synonyms:        gamingSynonyms,
		reverseSynonyms: make(map[string]string),
	}
	for _, w := range defaultStopWords {
		p.stopWords[w] = struct{}{}
	}
	for _, w := range gamingStopWords {
		p.gamingStopWords[w] = struct{}{}
	}
	for key, syns := range gamingSynonyms {
		for _, s := range syns {
			p.reverseSynonyms[s] = key
		}
	}
	return p
}

// ProcessSearchQuery cleans a raw query and expands domain synonyms for
// index matching. An empty result means the query carried no searchable text.
func (p *Processor) ProcessSearchQuery(query string) string {
	if query == "" {
		return ""
	}
	return strings.TrimSpace(p.ExpandSynonyms(p.CleanText(query)))
}

// NormalizeQuery canonicalizes a query for analytics counters and cache
// grouping: lowercase, collapsed whitespace, punctuation and stop words
// removed.
func (p *Processor) NormalizeQuery(query string) string {
	if query == "" {
		return ""
	}

	normalized := strings.ToLower(strings.TrimSpace(query))
	normalized = whitespaceRe.ReplaceAllString(normalized, " ")
	normalized = normPunctRe.ReplaceAllString(normalized, "")

	tokens := strings.Fields(normalized)
	kept := tokens[:0]
	for _, tok := range tokens {
		if _, stop := p.stopWords[tok]; stop {
			continue
		}
		if _, stop := p.gamingStopWords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// CleanText lowercases text and strips HTML and noisy punctuation
func (p *Processor) CleanText(text string) string {
	if text == "" {
		return ""
	}
	cleaned := strings.ToLower(text)
	cleaned = htmlTagRe.ReplaceAllString(cleaned, "")
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	cleaned = punctRe.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))
}

// ExpandSynonyms appends known synonyms after each matching token, in both
// directions (key -> synonyms, synonym -> key).
func (p *Processor) ExpandSynonyms(text string) string {
	words := strings.Fields(text)
	expanded := make([]string, 0, len(words))

	for _, word := range words {
		expanded = append(expanded, word)
		if syns, ok := p.synonyms[word]; ok {
			expanded = append(expanded, syns...)
		}
		if key, ok := p.reverseSynonyms[word]; ok {
			expanded = append(expanded, key)
		}
	}
	return strings.Join(expanded, " ")
}

// ExtractKeywords returns up to max deduplicated, stop-word-free tokens
// longer than two characters, in first-seen order.
func (p *Processor) ExtractKeywords(text string, max int) []string {
	if text == "" {
		return nil
	}

	seen := make(map[string]struct{})
	keywords := []string{}
	for _, tok := range strings.Fields(p.CleanText(text)) {
		if len(tok) <= 2 || !isAlpha(tok) {
			continue
		}
		if _, stop := p.stopWords[tok]; stop {
			continue
		}
		if _, stop := p.gamingStopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
		if len(keywords) == max {
			break
		}
	}
	return keywords
}

// QuerySuggestions ranks candidate queries by similarity to the input and
// returns up to max alternatives above the 0.6 similarity threshold,
// excluding exact matches. Similarity is the better of normalized edit
// distance and token-set Jaccard.
func (p *Processor) QuerySuggestions(query string, candidates []string, max int) []string {
	if query == "" || len(candidates) == 0 {
		return nil
	}

	const threshold = 0.6
	queryLower := strings.ToLower(query)
	queryTokens := tokenSet(queryLower)

	type scored struct {
		text  string
		score float64
	}

	seen := make(map[string]struct{})
	ranked := []scored{}
	for _, candidate := range candidates {
		candidateLower := strings.ToLower(candidate)
		if candidateLower == queryLower {
			continue
		}
		if _, dup := seen[candidateLower]; dup {
			continue
		}
		seen[candidateLower] = struct{}{}

		sim := editSimilarity(queryLower, candidateLower)
		if j := jaccard(queryTokens, tokenSet(candidateLower)); j > sim {
			sim = j
		}
		if sim > threshold {
			ranked = append(ranked, scored{text: candidate, score: sim})
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	if len(ranked) > max {
		ranked = ranked[:max]
	}
	out := make([]string, len(ranked))
	for i, s := range ranked {
		out[i] = s.text
	}
	return out
}

func editSimilarity(a, b string) float64 {
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1.0
	}
	return 1.0 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}
	return set
}

func isAlpha(s string) bool {
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}
