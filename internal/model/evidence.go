package model

import "strings"

// EvidenceItem is one ranked retrieval result for a snippet's claim.
// Rank is 1-based and strictly increases as Score decreases.
type EvidenceItem struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
	DocID   string  `json:"doc_id"`
	Rank    int     `json:"rank"`
}

// MatchedSnippet pairs a classified snippet with its retrieved evidence.
// An empty Evidence slice is a valid state, not an error.
type MatchedSnippet struct {
	Snippet
	Evidence []EvidenceItem `json:"evidence"`
}

// HasEvidence reports whether any evidence item has non-blank content.
func (m MatchedSnippet) HasEvidence() bool {
	for _, ev := range m.Evidence {
		if strings.TrimSpace(ev.Content) != "" {
			return true
		}
	}
	return false
}
