package tickets

import (
	"sort"
	"strings"
)

// ReviewThreshold is the confidence below which a match must be confirmed by
// a person before it drives a stock operation.
const ReviewThreshold = 0.6

// Catalog maps canonical product ids to the phrases vendors print for them.
type Catalog map[string][]string

// DefaultCatalog lists the yard's stocked materials.
func DefaultCatalog() Catalog {
	return Catalog{
		"masonry-sand":  {"masonry sand", "mason sand", "masonry sand #2"},
		"concrete-sand": {"concrete sand", "washed concrete sand"},
		"fill-sand":     {"fill sand", "bank sand", "select fill"},
		"limestone-3/4": {"3/4 limestone", "limestone 3/4", "3/4 crushed limestone", "3/4 rock"},
		"limestone-1.5": {"1.5 limestone", "1 1/2 limestone", "limestone 1.5"},
		"flex-base":     {"flex base", "road base", "crushed limestone base"},
		"qm-1/4-minus":  {"qm-1/4 minus", "qm 1/4 minus", "1/4 minus", "quarry mix"},
		"pea-gravel":    {"pea gravel", "3/8 pea gravel"},
		"river-rock":    {"river rock", "washed river rock"},
		"topsoil":       {"topsoil", "top soil", "screened topsoil"},
	}
}

// Match is the outcome of resolving a material name.
type Match struct {
	ProductID   string
	Alias       string
	Confidence  float64
	NeedsReview bool
}

type aliasEntry struct {
	productID string
	alias     string
	words     []string
}

// Matcher resolves free-text material names against a Catalog.
type Matcher struct {
	productIDs map[string]struct{}
	entries    []aliasEntry
}

func NewMatcher(catalog Catalog) *Matcher {
	m := &Matcher{productIDs: make(map[string]struct{}, len(catalog))}
	ids := make([]string, 0, len(catalog))
	for id := range catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		m.productIDs[normalize(id)] = struct{}{}
		for _, alias := range catalog[id] {
			a := normalize(alias)
			if a == "" {
				continue
			}
			m.entries = append(m.entries, aliasEntry{productID: id, alias: a, words: words(a)})
		}
	}
	return m
}

// Match scores every alias and keeps the best one. Ties go to the shorter
// alias, then the lexicographically smaller product id.
func (m *Matcher) Match(material string) Match {
	input := normalize(material)
	if input == "" {
		return Match{NeedsReview: true}
	}
	if _, ok := m.productIDs[input]; ok {
		return Match{ProductID: input, Alias: input, Confidence: 1}
	}

	inputWords := words(input)
	var best *aliasEntry
	bestScore := 0.0
	for i := range m.entries {
		entry := &m.entries[i]
		score := containmentScore(entry.alias, input)
		if overlap := wordOverlapScore(entry.words, inputWords); overlap > score {
			score = overlap
		}
		if score <= 0 {
			continue
		}
		if best == nil || better(score, entry, bestScore, best) {
			best = entry
			bestScore = score
		}
	}

	if best == nil {
		return Match{NeedsReview: true}
	}
	return Match{
		ProductID:   best.productID,
		Alias:       best.alias,
		Confidence:  bestScore,
		NeedsReview: bestScore < ReviewThreshold,
	}
}

func better(score float64, candidate *aliasEntry, bestScore float64, best *aliasEntry) bool {
	if score != bestScore {
		return score > bestScore
	}
	if len(candidate.alias) != len(best.alias) {
		return len(candidate.alias) < len(best.alias)
	}
	return candidate.productID < best.productID
}

func containmentScore(alias, input string) float64 {
	if !strings.Contains(input, alias) && !strings.Contains(alias, input) {
		return 0
	}
	longest := len(alias)
	if len(input) > longest {
		longest = len(input)
	}
	return float64(len(alias)) / float64(longest)
}

func wordOverlapScore(aliasWords, inputWords []string) float64 {
	if len(aliasWords) == 0 || len(inputWords) == 0 {
		return 0
	}
	matched := 0
	for _, aw := range aliasWords {
		for _, iw := range inputWords {
			if wordsMatch(aw, iw) {
				matched++
				break
			}
		}
	}
	return float64(matched) / float64(len(aliasWords))
}

// minFuzzyWordLen keeps fragments like "1" or "#2" from matching inside
// unrelated tokens.
const minFuzzyWordLen = 3

func wordsMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < minFuzzyWordLen || len(b) < minFuzzyWordLen {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '(' || r == ')'
	})
}
