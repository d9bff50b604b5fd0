// Package resultset implements the scored document sets produced while
// evaluating a boolean query. A ResultSet maps document identifiers (URLs)
// to integer relevance scores and is never mutated once built: And, Or and
// Minus each return a fresh set.
package resultset

import (
	"context"
	"fmt"
	"sort"
)

// PostingStore resolves a single term to its posting list. An unknown term
// yields an empty map and a nil error.
type PostingStore interface {
	Lookup(ctx context.Context, term string) (map[string]int, error)
}

// CombineFunc merges the scores of a document matched by both operands.
type CombineFunc func(a, b int) int

// Sum is the default CombineFunc.
func Sum(a, b int) int {
	return a + b
}

// Entry is a ranked (document, score) pair.
type Entry struct {
	DocID string `json:"doc_id"`
	Score int    `json:"score"`
}

type ResultSet struct {
	scores  map[string]int
	combine CombineFunc
}

// New wraps a document→score mapping. The mapping is copied; a nil mapping
// gives an empty set. Negative scores are clamped to zero.
func New(m map[string]int) *ResultSet {
	scores := make(map[string]int, len(m))
	for docID, score := range m {
		if score < 0 {
			score = 0
		}
		scores[docID] = score
	}
	return &ResultSet{scores: scores, combine: Sum}
}

// Empty returns a set with no matches.
func Empty() *ResultSet {
	return New(nil)
}

// Search looks up term in store and wraps the posting list. Store errors are
// returned as-is so callers can tell a failed lookup from a term with no
// matches.
func Search(ctx context.Context, term string, store PostingStore) (*ResultSet, error) {
	postings, err := store.Lookup(ctx, term)
	if err != nil {
		return nil, fmt.Errorf("looking up term %q: %w", term, err)
	}
	return New(postings), nil
}

// WithCombine returns a copy of rs whose combinators merge shared documents
// with fn. A nil fn restores Sum.
func (rs *ResultSet) WithCombine(fn CombineFunc) *ResultSet {
	if fn == nil {
		fn = Sum
	}
	out := rs.clone()
	out.combine = fn
	return out
}

// Relevance returns the score of docID, or 0 when the set does not contain it.
func (rs *ResultSet) Relevance(docID string) int {
	return rs.scores[docID]
}

func (rs *ResultSet) Contains(docID string) bool {
	_, ok := rs.scores[docID]
	return ok
}

func (rs *ResultSet) Len() int {
	return len(rs.scores)
}

// Scores returns a copy of the underlying mapping.
func (rs *ResultSet) Scores() map[string]int {
	return rs.clone().scores
}

// DocIDs returns the document identifiers in lexical order.
func (rs *ResultSet) DocIDs() []string {
	ids := make([]string, 0, len(rs.scores))
	for docID := range rs.scores {
		ids = append(ids, docID)
	}
	sort.Strings(ids)
	return ids
}

// Or returns the union of rs and other. Documents present in only one
// operand keep that operand's score.
func (rs *ResultSet) Or(other *ResultSet) *ResultSet {
	out := rs.clone()
	for docID, score := range other.scores {
		if existing, ok := out.scores[docID]; ok {
			out.scores[docID] = out.combine(existing, score)
			continue
		}
		out.scores[docID] = score
	}
	return out
}

// And returns the documents present in both rs and other with combined
// scores.
func (rs *ResultSet) And(other *ResultSet) *ResultSet {
	small, large := rs.scores, other.scores
	swapped := false
	if len(large) < len(small) {
		small, large = large, small
		swapped = true
	}
	combine := rs.combiner()
	out := &ResultSet{scores: make(map[string]int, len(small)), combine: combine}
	for docID, score := range small {
		otherScore, ok := large[docID]
		if !ok {
			continue
		}
		if swapped {
			out.scores[docID] = combine(otherScore, score)
		} else {
			out.scores[docID] = combine(score, otherScore)
		}
	}
	return out
}

// Minus returns the documents of rs that do not appear in other, with their
// original scores.
func (rs *ResultSet) Minus(other *ResultSet) *ResultSet {
	out := rs.clone()
	for docID := range other.scores {
		delete(out.scores, docID)
	}
	return out
}

// Sort returns every entry ordered by ascending score. Equal scores are
// ordered by DocID.
func (rs *ResultSet) Sort() []Entry {
	entries := make([]Entry, 0, len(rs.scores))
	for docID, score := range rs.scores {
		entries = append(entries, Entry{DocID: docID, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score < entries[j].Score
		}
		return entries[i].DocID < entries[j].DocID
	})
	return entries
}

// Reverse returns entries in the opposite order, for most-relevant-first
// presentation. The input slice is left untouched.
func Reverse(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

func (rs *ResultSet) clone() *ResultSet {
	scores := make(map[string]int, len(rs.scores))
	for docID, score := range rs.scores {
		scores[docID] = score
	}
	return &ResultSet{scores: scores, combine: rs.combiner()}
}

func (rs *ResultSet) combiner() CombineFunc {
	if rs.combine == nil {
		return Sum
	}
	return rs.combine
}
