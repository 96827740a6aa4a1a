// Package index derives per-crate search structures from a built item
// graph: one search entry per public item, scored by a deterministic fuzzy
// matcher. Exact path lookup stays on the graph itself; this package only
// answers approximate queries.
package index

import (
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/cratedex/cratedex/internal/graph"
	"github.com/cratedex/cratedex/internal/markdown"
)

// DefaultLimit caps result counts when the caller does not.
const DefaultLimit = 20

// Entry is the searchable projection of one public item.
type Entry struct {
	ID       graph.ItemID
	Path     string
	Segments int
	Kind     graph.Kind
	Summary  string

	// haystack is the normalized searchable text: path tokens, kind name,
	// first sentence of docs, lower-cased and space-joined.
	haystack string
	// compact is the path with all separators removed, so "vecpush" can
	// match "vec::Vec::push".
	compact string
}

// Match is one ranked search result.
type Match struct {
	Path    string
	Kind    graph.Kind
	Score   float64
	Summary string
}

// Index holds the search entries for one crate.
type Index struct {
	entries []Entry
}

// Build derives the search entry list from a graph. One entry per public
// item at every depth.
func Build(g *graph.Graph) *Index {
	ix := &Index{entries: make([]Entry, 0, g.Len())}
	g.Walk(func(it graph.Item) {
		if !it.Public {
			return
		}
		path := it.PathString()
		summary := markdown.FirstSentence(it.Docs)
		ix.entries = append(ix.entries, Entry{
			ID:       it.ID,
			Path:     path,
			Segments: len(it.Path),
			Kind:     it.Kind,
			Summary:  summary,
			haystack: normalize(path, string(it.Kind), summary),
			compact:  compact(path),
		})
	})
	return ix
}

// Len returns the number of search entries.
func (ix *Index) Len() int { return len(ix.entries) }

// Search ranks entries against the query. An empty query returns no
// matches. Ties are broken by path segment count, then lexical path order,
// so results are reproducible across runs.
func (ix *Index) Search(query string, limit int) []Match {
	matches := ix.Collect(query)
	rank(matches)
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Collect returns unranked scored matches, for callers merging entries
// across several crates before ranking.
func (ix *Index) Collect(query string) []Match {
	raw := strings.ToLower(strings.TrimSpace(query))
	comp := compact(query)
	if comp == "" {
		return nil
	}

	var matches []Match
	for i := range ix.entries {
		e := &ix.entries[i]
		score, ok := scoreEntry(e, raw, comp)
		if !ok {
			continue
		}
		matches = append(matches, Match{
			Path:    e.Path,
			Kind:    e.Kind,
			Score:   score,
			Summary: e.Summary,
		})
	}
	return matches
}

// Rank orders merged matches by score, then path length, then lexical
// path, and truncates to limit.
func Rank(matches []Match, limit int) []Match {
	rank(matches)
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func rank(matches []Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		li, lj := strings.Count(matches[i].Path, "::"), strings.Count(matches[j].Path, "::")
		if li != lj {
			return li < lj
		}
		return matches[i].Path < matches[j].Path
	})
}

// scoreEntry scores one entry in three tiers. Substring hits always
// outrank subsequence hits, which always outrank edit-distance hits, so a
// query that literally appears in a path ranks at or above entries that
// merely share scattered characters.
func scoreEntry(e *Entry, raw, comp string) (float64, bool) {
	// Tier 1: literal substring of the compact path or the normalized text.
	if strings.Contains(e.compact, comp) || strings.Contains(e.haystack, raw) {
		coverage := float64(len(comp)) / float64(len(e.compact))
		if coverage > 1 {
			coverage = 1
		}
		return 0.9 + 0.1*coverage, true
	}

	// Tier 2: in-order subsequence of the compact path, scored by how
	// tight the matched span is.
	if span, ok := subsequenceSpan(comp, e.compact); ok {
		density := float64(len(comp)) / float64(span)
		return 0.4 + 0.4*density, true
	}

	// Tier 3: edit distance against the compact path, for typos.
	maxLen := len(comp)
	if len(e.compact) > maxLen {
		maxLen = len(e.compact)
	}
	if maxLen == 0 {
		return 0, false
	}
	dist := levenshtein.ComputeDistance(comp, e.compact)
	sim := 1 - float64(dist)/float64(maxLen)
	if sim < 0.5 {
		return 0, false
	}
	return 0.4 * sim, true
}

// subsequenceSpan reports whether needle occurs as an in-order subsequence
// of haystack, and the length of the greedy first-match window.
func subsequenceSpan(needle, haystack string) (int, bool) {
	if needle == "" || len(needle) > len(haystack) {
		return 0, false
	}
	start := -1
	j := 0
	for i := 0; i < len(haystack) && j < len(needle); i++ {
		if haystack[i] == needle[j] {
			if start < 0 {
				start = i
			}
			j++
			if j == len(needle) {
				return i - start + 1, true
			}
		}
	}
	return 0, false
}

// normalize lower-cases and tokenizes text into the entry haystack. Path
// separators, underscores, and camelCase boundaries all split tokens.
func normalize(path, kind, summary string) string {
	tokens := tokenize(path)
	tokens = append(tokens, kind)
	if summary != "" {
		tokens = append(tokens, strings.ToLower(summary))
	}
	return strings.Join(tokens, " ")
}

// tokenize splits a path on "::", "_", "-", and lower-to-upper camelCase
// boundaries, lower-casing every token.
func tokenize(path string) []string {
	var tokens []string
	for _, segment := range strings.Split(path, "::") {
		var cur strings.Builder
		flush := func() {
			if cur.Len() > 0 {
				tokens = append(tokens, strings.ToLower(cur.String()))
				cur.Reset()
			}
		}
		prevLower := false
		for _, r := range segment {
			switch {
			case r == '_' || r == '-':
				flush()
			case unicode.IsUpper(r) && prevLower:
				flush()
				cur.WriteRune(r)
			default:
				cur.WriteRune(r)
			}
			prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
		}
		flush()
	}
	return tokens
}

// compact lower-cases and strips every non-alphanumeric rune.
func compact(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
