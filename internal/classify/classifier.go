// Package classify turns report sentences into classified snippets via
// batched calls to the classification API.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/claimlens/claimlens/internal/llm"
	"github.com/claimlens/claimlens/internal/model"
	"github.com/claimlens/claimlens/internal/worker"
)

const systemPrompt = `Classify each of the following sentences from a financial analyst report along FOUR dimensions plus an information source:

1. claim_type (choose exactly one):
   - fact: verifiable statement about something that happened or holds now
   - forecast: forward-looking projection or guidance
   - hypothesis: analyst reasoning, synthesis, or speculation
   - other: everything which is not part of the other categories

2. subject_scope (choose exactly one):
   - company: the covered company itself
   - industry: competitors, suppliers, or sector developments
   - macro: economy-wide context such as rates, FX, or inflation
   - other: everything else

3. sentence_type (choose exactly one):
   - quantitative: includes numbers, percentages, growth rates, EPS, margins, or price targets
   - qualitative: descriptive statements, management assessments, strategic opinions

4. content_relevance (choose exactly one):
   - company_relevant: checkable against the company's own disclosures
   - context_only: background that cannot be checked against disclosures
   - other: everything else

5. source (choose exactly one): "text" if the sentence reads as running prose, "table" if it reads as a row or cell lifted from a table.

For every label also provide a confidence score from 0.0 to 1.0.

Return only valid JSON in the format:
{"results": [{"claim_type":"fact","subject_scope":"company","sentence_type":"quantitative","content_relevance":"company_relevant","source":"text","claim_type_confidence":0.9,"subject_scope_confidence":0.9,"sentence_type_confidence":0.8,"content_relevance_confidence":0.8,"source_confidence":0.9}, ...]}

Do not rewrite or repeat the sentences. Only return the labels and confidence scores, one result object per sentence, in input order.`

// prediction mirrors one element of the model's results array. Pointers keep
// "score absent" distinguishable from zero.
type prediction struct {
	ClaimType                  string   `json:"claim_type"`
	SubjectScope               string   `json:"subject_scope"`
	SentenceType               string   `json:"sentence_type"`
	ContentRelevance           string   `json:"content_relevance"`
	Source                     string   `json:"source"`
	ClaimTypeConfidence        *float64 `json:"claim_type_confidence"`
	SubjectScopeConfidence     *float64 `json:"subject_scope_confidence"`
	SentenceTypeConfidence     *float64 `json:"sentence_type_confidence"`
	ContentRelevanceConfidence *float64 `json:"content_relevance_confidence"`
	SourceConfidence           *float64 `json:"source_confidence"`
}

// Stats summarizes one classification run for the stage metadata.
type Stats struct {
	Sections       int
	Sentences      int
	Snippets       int
	DroppedBatches int
	ByClaimType    map[string]int
}

// Classifier batches sentences across all sections and dispatches them
// through the worker pool in a single invocation.
type Classifier struct {
	chat      llm.ChatClient
	pool      *worker.Pool
	model     string
	batchSize int
	logger    *zap.Logger
}

// New creates a classifier. batchSize <= 0 falls back to 10.
func New(chat llm.ChatClient, pool *worker.Pool, modelName string, batchSize int, logger *zap.Logger) *Classifier {
	if batchSize <= 0 {
		batchSize = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{
		chat:      chat,
		pool:      pool,
		model:     modelName,
		batchSize: batchSize,
		logger:    logger,
	}
}

// batchRef ties a submitted batch back to its section and position so results
// reassemble deterministically whatever order batches complete in.
type batchRef struct {
	section   string
	batchIdx  int
	sentences []string
}

// Classify classifies every sentence in sections. Blank sentences are dropped
// silently. All batches across all sections go to the pool in one invocation;
// a permanently failed batch contributes zero snippets. The returned error is
// non-nil only when the pool is configured to abort instead of failing open.
func (c *Classifier) Classify(ctx context.Context, sections map[string][]string) (map[string][]model.Snippet, Stats, error) {
	stats := Stats{Sections: len(sections), ByClaimType: make(map[string]int)}

	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	var refs []batchRef
	for _, name := range names {
		var kept []string
		for _, s := range sections[name] {
			if t := strings.TrimSpace(s); t != "" {
				kept = append(kept, t)
			}
		}
		stats.Sentences += len(kept)
		for i, batch := range Chunk(kept, c.batchSize) {
			refs = append(refs, batchRef{section: name, batchIdx: i, sentences: batch})
		}
	}

	jobs := make([]worker.Job, len(refs))
	for i := range refs {
		sentences := refs[i].sentences
		jobs[i] = worker.JobFunc(func(ctx context.Context) (any, error) {
			return c.classifyBatch(ctx, sentences)
		})
	}

	c.logger.Info("classifying sentences",
		zap.Int("sections", stats.Sections),
		zap.Int("sentences", stats.Sentences),
		zap.Int("batches", len(jobs)))

	outcomes, err := c.pool.Run(ctx, jobs)
	if err != nil {
		return nil, stats, fmt.Errorf("classification pool: %w", err)
	}

	classified := make(map[string][]model.Snippet, len(sections))
	for _, name := range names {
		classified[name] = []model.Snippet{}
	}

	// Outcomes arrive indexed by submission order, and refs were appended in
	// ascending batch index per section, so appending in outcome order keeps
	// within-section ordering deterministic.
	for _, out := range outcomes {
		ref := refs[out.Index]
		if out.Class != worker.ClassOK {
			stats.DroppedBatches++
			continue
		}
		preds, _ := out.Value.([]prediction)
		for j, sentence := range ref.sentences {
			idx := len(classified[ref.section])
			snip := snippetFrom(sentence, ref.section, idx, preds, j)
			classified[ref.section] = append(classified[ref.section], snip)
			stats.Snippets++
			stats.ByClaimType[string(snip.ClaimType)]++
		}
	}

	c.logger.Info("classification complete",
		zap.Int("snippets", stats.Snippets),
		zap.Int("dropped_batches", stats.DroppedBatches))

	return classified, stats, nil
}

// classifyBatch issues one API call for a batch of sentences. API errors are
// returned for retry classification; an unparsable response is a data-shape
// problem, not a failure — it degrades to fallback labels.
func (c *Classifier) classifyBatch(ctx context.Context, sentences []string) ([]prediction, error) {
	payload, err := json.Marshal(sentences)
	if err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}

	raw, err := c.chat.Complete(ctx, llm.ChatRequest{
		Model:  c.model,
		System: systemPrompt,
		User:   "Sentences:\n" + string(payload),
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Results []prediction `json:"results"`
	}
	if err := llm.ExtractJSON(raw, &parsed); err != nil {
		c.logger.Warn("unparsable classification response, using fallback labels", zap.Error(err))
		return nil, nil
	}
	return parsed.Results, nil
}

// snippetFrom builds a snippet from the j-th prediction, falling back to the
// explicit "other" labels and the default confidence when the prediction is
// missing or incomplete.
func snippetFrom(sentence, section string, index int, preds []prediction, j int) model.Snippet {
	if j >= len(preds) {
		return model.UnclassifiedSnippet(sentence, section, index)
	}
	p := preds[j]
	return model.Snippet{
		Text:                       sentence,
		Section:                    section,
		Index:                      index,
		ClaimType:                  model.ParseClaimType(p.ClaimType),
		SubjectScope:               model.ParseSubjectScope(p.SubjectScope),
		SentenceType:               model.ParseSentenceType(p.SentenceType),
		ContentRelevance:           model.ParseContentRelevance(p.ContentRelevance),
		Source:                     model.ParseInfoSource(p.Source),
		ClaimTypeConfidence:        confidence(p.ClaimTypeConfidence),
		SubjectScopeConfidence:     confidence(p.SubjectScopeConfidence),
		SentenceTypeConfidence:     confidence(p.SentenceTypeConfidence),
		ContentRelevanceConfidence: confidence(p.ContentRelevanceConfidence),
		SourceConfidence:           confidence(p.SourceConfidence),
	}
}

func confidence(v *float64) float64 {
	if v == nil || *v < 0 || *v > 1 {
		return model.DefaultConfidence
	}
	return *v
}
