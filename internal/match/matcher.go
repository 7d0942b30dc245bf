// Package match retrieves supporting evidence for classified snippets
// from a knowledge base.
package match

import (
	"context"
	"fmt"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/claimlens/claimlens/internal/model"
)

// Retriever answers similarity queries against a knowledge base.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]model.EvidenceItem, error)
}

// Stats summarizes a matching run.
type Stats struct {
	Snippets     int
	WithEvidence int
	CacheHits    int
}

// Matcher issues one retrieval query per snippet. Duplicate snippet
// text within a run is served from an in-process memo so repeated
// boilerplate sentences cost a single query.
type Matcher struct {
	retriever Retriever
	topK      int
	memo      *gocache.Cache
	logger    *zap.Logger

	showProgress bool
}

// NewMatcher creates a matcher querying topK evidence items per snippet.
func NewMatcher(retriever Retriever, topK int, logger *zap.Logger) *Matcher {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{
		retriever: retriever,
		topK:      topK,
		memo:      gocache.New(30*time.Minute, 10*time.Minute),
		logger:    logger,
	}
}

// SetShowProgress enables a terminal progress bar during Match.
func (m *Matcher) SetShowProgress(v bool) { m.showProgress = v }

// Match retrieves evidence for every snippet in every section. A snippet
// with no retrievable evidence is kept with an empty evidence list; only
// retrieval errors abort the run.
func (m *Matcher) Match(ctx context.Context, sections map[string][]model.Snippet) (map[string][]model.MatchedSnippet, Stats, error) {
	var stats Stats

	names := make([]string, 0, len(sections))
	total := 0
	for name, snips := range sections {
		names = append(names, name)
		total += len(snips)
	}
	sort.Strings(names)
	stats.Snippets = total

	var bar *progressbar.ProgressBar
	if m.showProgress {
		bar = progressbar.Default(int64(total), "matching")
	}

	out := make(map[string][]model.MatchedSnippet, len(sections))
	for _, name := range names {
		matched := make([]model.MatchedSnippet, 0, len(sections[name]))
		for _, snip := range sections[name] {
			items, hit, err := m.retrieve(ctx, snip.Text)
			if err != nil {
				return nil, stats, fmt.Errorf("retrieve evidence for section %q snippet %d: %w", name, snip.Index, err)
			}
			if hit {
				stats.CacheHits++
			}

			ms := model.MatchedSnippet{Snippet: snip, Evidence: items}
			if ms.HasEvidence() {
				stats.WithEvidence++
			}
			matched = append(matched, ms)

			if bar != nil {
				_ = bar.Add(1)
			}
		}
		out[name] = matched
	}

	m.logger.Info("evidence matching complete",
		zap.Int("snippets", stats.Snippets),
		zap.Int("with_evidence", stats.WithEvidence),
		zap.Int("cache_hits", stats.CacheHits))
	return out, stats, nil
}

func (m *Matcher) retrieve(ctx context.Context, text string) ([]model.EvidenceItem, bool, error) {
	if v, ok := m.memo.Get(text); ok {
		return v.([]model.EvidenceItem), true, nil
	}
	items, err := m.retriever.Query(ctx, text, m.topK)
	if err != nil {
		return nil, false, err
	}
	if items == nil {
		items = []model.EvidenceItem{}
	}
	m.memo.Set(text, items, gocache.DefaultExpiration)
	return items, false, nil
}
