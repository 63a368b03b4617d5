package search

import (
	"fmt"
	"strings"

	"github.com/vaultlens/vaultlens/internal/index"
)

// maxSynonymVariants bounds how many synonym-augmented queries the
// expander emits on top of the original.
const maxSynonymVariants = 3

// synonymTable maps query tokens to related terms. Entries bridge
// Korean and English so a query in one language can reach notes written
// in the other.
var synonymTable = map[string][]string{
	"test":        {"testing", "tdd", "테스트"},
	"testing":     {"test", "tdd"},
	"tdd":         {"test driven development"},
	"driven":      {"주도"},
	"development": {"dev", "개발"},
	"refactor":    {"refactoring", "rewrite"},
	"refactoring": {"refactor", "cleanup"},
	"note":        {"notes"},
	"notes":       {"note"},
	"search":      {"retrieval", "query", "검색"},
	"vault":       {"notes", "knowledge base"},

	"테스트": {"test", "testing"},
	"주도":  {"driven"},
	"개발":  {"development", "dev"},
	"검색":  {"search"},
	"노트":  {"note"},
}

// Expander derives extra query strings from a raw query. It is a pure
// function of its input: no model calls, no I/O, and it never fails.
type Expander struct{}

// NewExpander creates an expander.
func NewExpander() *Expander {
	return &Expander{}
}

// Expand returns an ordered list of query strings starting with the
// original, followed by a bounded number of synonym-augmented variants,
// followed by at most one hypothetical-document rewriting. Duplicates
// are removed preserving first occurrence.
func (e *Expander) Expand(query string, includeSynonyms, includeHypothetical bool) []string {
	out := []string{query}
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return out
	}

	if includeSynonyms {
		out = append(out, e.synonymVariants(trimmed)...)
	}
	if includeHypothetical {
		out = append(out, hypotheticalDocument(trimmed))
	}

	return dedupeStrings(out)
}

// synonymVariants appends one synonym to the query per variant, walking
// the query tokens in order until the variant budget is spent.
func (e *Expander) synonymVariants(query string) []string {
	var variants []string
	seen := make(map[string]bool)

	for _, token := range index.Tokenize(query) {
		for _, syn := range synonymTable[token] {
			if len(variants) >= maxSynonymVariants {
				return variants
			}
			if seen[syn] || strings.Contains(strings.ToLower(query), syn) {
				continue
			}
			seen[syn] = true
			variants = append(variants, query+" "+syn)
		}
	}
	return variants
}

// hypotheticalDocument rewrites the query as a longer descriptive
// passage so that dense retrieval compares document-shaped text against
// document-shaped text.
func hypotheticalDocument(query string) string {
	return fmt.Sprintf(
		"This note explains %s in detail. It covers the main concepts of %s, practical examples, and common pitfalls.",
		query, query)
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
