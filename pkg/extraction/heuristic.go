package extraction

import (
	"regexp"
	"sort"
	"strings"

	"github.com/loomware/memstate/pkg/claim"
	"github.com/loomware/memstate/pkg/memory"
)

const maxMemoryTextLen = 2000

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	nonWordRe    = regexp.MustCompile(`[^a-z0-9_]+`)

	trivialRe = regexp.MustCompile(`(?i)^(?:(?:hi|hello|hey|thanks|thank you|ok|okay|yes|no|sure|bye|goodbye)[\s,.!?]*)+$`)

	nameRe     = regexp.MustCompile(`(?i)my name is\s+([^.!?\n]+)`)
	livesInRe  = regexp.MustCompile(`(?i)i live in\s+([^.!?\n]+)`)
	worksAtRe  = regexp.MustCompile(`(?i)i work at\s+([^.!?\n]+)`)
	favoriteRe = regexp.MustCompile(`(?i)my favorite\s+([a-z ]+?)\s+is\s+([^.!?\n]+)`)
	likesRe    = regexp.MustCompile(`(?i)i like\s+([^.!?\n]+)`)
)

type heuristicPattern struct {
	re         *regexp.Regexp
	predicate  func(match []string) string
	value      func(match []string) string
	claimType  claim.Type
	confidence float64
}

var heuristicPatterns = []heuristicPattern{
	{
		re:         nameRe,
		predicate:  func(m []string) string { return "name" },
		value:      func(m []string) string { return m[1] },
		claimType:  claim.TypeFact,
		confidence: 0.9,
	},
	{
		re:         livesInRe,
		predicate:  func(m []string) string { return "lives_in" },
		value:      func(m []string) string { return m[1] },
		claimType:  claim.TypeFact,
		confidence: 0.85,
	},
	{
		re:         worksAtRe,
		predicate:  func(m []string) string { return "works_at" },
		value:      func(m []string) string { return m[1] },
		claimType:  claim.TypeFact,
		confidence: 0.85,
	},
	{
		re:         favoriteRe,
		predicate:  func(m []string) string { return "favorite_" + alphabetizeWords(m[1]) },
		value:      func(m []string) string { return m[2] },
		claimType:  claim.TypePreference,
		confidence: 0.85,
	},
	{
		re:         likesRe,
		predicate:  func(m []string) string { return "likes" },
		value:      func(m []string) string { return m[1] },
		claimType:  claim.TypePreference,
		confidence: 0.70,
	},
}

// Heuristic implements the deterministic, pattern-based extraction variant.
type Heuristic struct{}

// NewHeuristic returns a Heuristic extractor.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Extract runs the heuristic variant over req.Text.
func (h *Heuristic) Extract(req Request) Result {
	text := normalizeText(req.Text)
	if text == "" {
		return Result{Memories: []ExtractedMemory{}}
	}

	if !req.Force && isTrivial(text) {
		return Result{Memories: []ExtractedMemory{}}
	}

	claims := deriveClaims(text)

	kind := memory.KindNote
	if len(claims) > 0 {
		kind = memory.KindFact
	}

	mem := ExtractedMemory{
		Text:       truncate(text, maxMemoryTextLen),
		Kind:       kind,
		Importance: memory.DefaultImportance,
		Confidence: memory.DefaultConfidence,
		IsTemporal: false,
		Visibility: memory.DefaultVisibility,
		Tags:       []string{},
		Claims:     claims,
	}

	return Result{Memories: []ExtractedMemory{mem}}
}

func isTrivial(text string) bool {
	return len(text) < 40 && trivialRe.MatchString(text)
}

func deriveClaims(text string) []ExtractedClaim {
	claims := make([]ExtractedClaim, 0, len(heuristicPatterns))
	seen := make(map[string]bool)

	for _, p := range heuristicPatterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		predicate := normalizePredicate(p.predicate(m))
		value := strings.TrimSpace(p.value(m))
		if predicate == "" || value == "" {
			continue
		}
		key := predicate + "\x00" + strings.ToLower(value)
		if seen[key] {
			continue
		}
		seen[key] = true
		claims = append(claims, ExtractedClaim{
			Predicate:   predicate,
			ObjectValue: value,
			ClaimType:   string(p.claimType),
			Confidence:  p.confidence,
		})
	}

	return claims
}

// normalizePredicate lowercases, strips non-alphanumeric/underscore
// characters, and collapses whitespace to underscores.
func normalizePredicate(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = whitespaceRe.ReplaceAllString(s, "_")
	s = nonWordRe.ReplaceAllString(s, "")
	return s
}

// alphabetizeWords lowercases s, splits it on whitespace, sorts the tokens,
// and joins them with underscores (spec.md §4.C: favorite-phrase predicates
// alphabetize the Y tokens so "favorite ice cream" and "favorite cream ice"
// collapse to the same slot).
func alphabetizeWords(s string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	for i, w := range words {
		words[i] = nonWordRe.ReplaceAllString(w, "")
	}
	sort.Strings(words)
	return strings.Join(words, "_")
}

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	return whitespaceRe.ReplaceAllString(s, " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
