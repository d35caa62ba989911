package storage

import (
	"strings"
)

// StopWords is the fixed set of low-information tokens dropped during
// query tokenization (spec.md §4.A).
var StopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "does": true, "for": true,
	"from": true, "how": true, "i": true, "in": true, "is": true, "it": true,
	"me": true, "my": true, "of": true, "on": true, "or": true, "our": true,
	"personal": true, "preference": true, "preferences": true, "the": true,
	"to": true, "user": true, "users": true, "what": true, "where": true,
	"who": true, "why": true, "you": true, "your": true,
}

// Tokenize lowercases q, strips non-alphanumerics, splits on whitespace,
// drops tokens shorter than 2 characters or in StopWords, dedupes, and
// keeps the first 10 (spec.md §4.A "Tokenization").
func Tokenize(q string) []string {
	lower := strings.ToLower(q)
	var b strings.Builder
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	seen := make(map[string]bool)
	var out []string
	for _, tok := range strings.Fields(b.String()) {
		if len(tok) < 2 || StopWords[tok] || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
		if len(out) == 10 {
			break
		}
	}
	return out
}

// LexicalBonus returns the substring-match bonus spec.md §4.A defines:
// 20 if the whole (trimmed, lowercased) query is a substring of text, 16
// if any token from tokens is a substring, else 0.
func LexicalBonus(query string, text string, tokens []string) float64 {
	lowerText := strings.ToLower(text)
	q := strings.ToLower(strings.TrimSpace(query))
	if q != "" && strings.Contains(lowerText, q) {
		return 20
	}
	for _, tok := range tokens {
		if strings.Contains(lowerText, tok) {
			return 16
		}
	}
	return 0
}

// WholeQueryMatch reports whether the trimmed, lowercased query is a
// substring of text.
func WholeQueryMatch(query, text string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), q)
}

// AnyTokenMatch reports whether any token is a substring of text.
func AnyTokenMatch(text string, tokens []string) bool {
	lowerText := strings.ToLower(text)
	for _, tok := range tokens {
		if strings.Contains(lowerText, tok) {
			return true
		}
	}
	return false
}

// FusionScore computes spec.md §4.A's weighted fusion score:
// 0.60·similarity + 0.25·importance + 0.15·confidence·100 + lexicalBonus.
func FusionScore(similarity float64, importance int, confidence float64, lexicalBonus float64) float64 {
	return 0.60*similarity + 0.25*float64(importance) + 0.15*confidence*100 + lexicalBonus
}

// NoEmbeddingScore computes the degraded ranking spec.md §4.A uses when no
// embedding is present: 0.25·importance + 0.15·confidence·100.
func NoEmbeddingScore(importance int, confidence float64) float64 {
	return 0.25*float64(importance) + 0.15*confidence*100
}

// CosineSimilarity100 converts a pgvector cosine *distance* (1 - cosine
// similarity, as returned by the `<=>` operator) into the 0..100 raw
// similarity score spec.md §4.A scores memories on.
func CosineSimilarity100(distance float64) float64 {
	return (1 - distance) * 100
}
