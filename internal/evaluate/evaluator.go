// Package evaluate scores matched snippets against their retrieved evidence.
package evaluate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/claimlens/claimlens/internal/llm"
	"github.com/claimlens/claimlens/internal/model"
	"github.com/claimlens/claimlens/internal/worker"
)

const systemPrompt = `You are a rigorous fact-checking assistant. You are given a claim from an
analyst report and evidence passages retrieved from a knowledge base of
company filings.

Judge how well the evidence supports the claim and respond with a JSON object:
{
  "evaluation": one of "Supported", "Partially Supported", "Not Supported", "Contradicted",
  "support_score": a number in [-1.0, 1.0],
  "reason": a short explanation citing the evidence
}

Scoring: 1.0 means the evidence fully confirms the claim, 0.0 means the
evidence is unrelated, -1.0 means the evidence directly contradicts the
claim. Use "Contradicted" together with -1.0 only when the evidence states
the opposite of the claim. Base the judgment only on the evidence given.`

const deltaPrompt = `You are a rigorous fact-checking assistant. A claim was judged Partially
Supported by the evidence below. Describe concisely which part of the claim
the evidence confirms and which part it does not cover. Answer in plain
prose, two sentences at most.`

// deltaUnavailable is recorded when the follow-up analysis call fails;
// a partial verdict must never be lost to a best-effort extra.
const deltaUnavailable = "Delta analysis unavailable."

type verdict struct {
	Evaluation   string  `json:"evaluation"`
	SupportScore float64 `json:"support_score"`
	Reason       string  `json:"reason"`
}

// Stats summarizes an evaluation run.
type Stats struct {
	Snippets   int
	NoEvidence int
	Dropped    int
	ByLabel    map[model.EvaluationLabel]int
}

// Evaluator turns matched snippets into terminal evaluations. Snippets with
// evidence are scored one LLM call each, dispatched through the worker pool;
// snippets without evidence are labeled locally and never reach the API.
type Evaluator struct {
	chat   llm.ChatClient
	pool   *worker.Pool
	model  string
	logger *zap.Logger
}

// NewEvaluator creates an evaluator using the given chat model.
func NewEvaluator(chat llm.ChatClient, pool *worker.Pool, modelName string, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{chat: chat, pool: pool, model: modelName, logger: logger}
}

// Evaluate scores every matched snippet and returns evaluations grouped by
// section. Permanently failed snippets come back as Unknown with the failure
// in the reason; only an aborted pool run returns an error.
func (e *Evaluator) Evaluate(ctx context.Context, sections map[string][]model.MatchedSnippet) (map[string][]model.Evaluation, Stats, error) {
	stats := Stats{ByLabel: make(map[model.EvaluationLabel]int)}

	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	// One job per snippet that has evidence; evidence-free snippets are
	// resolved inline.
	type ref struct {
		section string
		pos     int
	}
	var (
		jobs []worker.Job
		refs []ref
	)
	out := make(map[string][]model.Evaluation, len(sections))
	for _, name := range names {
		matched := sections[name]
		evals := make([]model.Evaluation, len(matched))
		for i, ms := range matched {
			stats.Snippets++
			if !ms.HasEvidence() {
				evals[i] = noEvidenceEvaluation(ms)
				stats.NoEvidence++
				continue
			}
			ms := ms
			jobs = append(jobs, worker.JobFunc(func(ctx context.Context) (any, error) {
				return e.evaluateOne(ctx, ms)
			}))
			refs = append(refs, ref{section: name, pos: i})
		}
		out[name] = evals
	}

	outcomes, err := e.pool.Run(ctx, jobs)
	if err != nil {
		return nil, stats, fmt.Errorf("evaluation pool: %w", err)
	}

	for i, oc := range outcomes {
		r := refs[i]
		if oc.Class != worker.ClassOK {
			stats.Dropped++
			out[r.section][r.pos] = unknownEvaluation(sections[r.section][r.pos], oc.Err)
			continue
		}
		out[r.section][r.pos] = oc.Value.(model.Evaluation)
	}

	for _, evals := range out {
		for _, ev := range evals {
			stats.ByLabel[ev.Evaluation]++
		}
	}

	e.logger.Info("evaluation complete",
		zap.Int("snippets", stats.Snippets),
		zap.Int("no_evidence", stats.NoEvidence),
		zap.Int("dropped", stats.Dropped))
	return out, stats, nil
}

// evaluateOne scores a single snippet. API errors are returned raw so the
// pool can classify and retry them; a malformed response is settled locally
// as Unknown since retrying cannot mend the model's output shape.
func (e *Evaluator) evaluateOne(ctx context.Context, ms model.MatchedSnippet) (model.Evaluation, error) {
	user := fmt.Sprintf("Claim:\n%s\n\nEvidence:\n%s", ms.Text, evidenceBlock(ms.Evidence))

	raw, err := e.chat.Complete(ctx, llm.ChatRequest{
		Model:    e.model,
		System:   systemPrompt,
		User:     user,
		JSONMode: true,
	})
	if err != nil {
		return model.Evaluation{}, err
	}

	var v verdict
	if err := llm.ExtractJSON(raw, &v); err != nil {
		e.logger.Warn("unparsable evaluation response",
			zap.String("section", ms.Snippet.Section),
			zap.Int("index", ms.Snippet.Index),
			zap.Error(err))
		return unknownEvaluation(ms, fmt.Errorf("unparsable response: %w", err)), nil
	}

	label := model.ParseEvaluationLabel(strings.TrimSpace(v.Evaluation))
	score := clampScore(v.SupportScore)
	if score >= model.SupportedScoreFloor {
		label = model.Supported
	}
	if label == model.Contradicted {
		score = model.ContradictedScore
	}

	ev := model.Evaluation{
		Snippet:      ms.Snippet,
		Evidence:     evidenceContents(ms.Evidence),
		Evaluation:   label,
		SupportScore: score,
		Reason:       strings.TrimSpace(v.Reason),
	}

	if label == model.PartiallySupported {
		ev.DeltaAnalysis = e.deltaAnalysis(ctx, ms, user)
	}
	return ev, nil
}

// deltaAnalysis makes the follow-up call for Partially Supported verdicts.
// It is best effort: any failure yields the placeholder, never an error.
func (e *Evaluator) deltaAnalysis(ctx context.Context, ms model.MatchedSnippet, user string) string {
	raw, err := e.chat.Complete(ctx, llm.ChatRequest{
		Model:  e.model,
		System: deltaPrompt,
		User:   user,
	})
	if err != nil || strings.TrimSpace(raw) == "" {
		e.logger.Warn("delta analysis failed",
			zap.String("section", ms.Snippet.Section),
			zap.Int("index", ms.Snippet.Index),
			zap.Error(err))
		return deltaUnavailable
	}
	return strings.TrimSpace(raw)
}

func noEvidenceEvaluation(ms model.MatchedSnippet) model.Evaluation {
	return model.Evaluation{
		Snippet:      ms.Snippet,
		Evidence:     []string{},
		Evaluation:   model.NoEvidence,
		SupportScore: 0.0,
		Reason:       "No evidence was retrieved from the knowledge base.",
	}
}

func unknownEvaluation(ms model.MatchedSnippet, cause error) model.Evaluation {
	reason := "Evaluation failed."
	if cause != nil {
		reason = fmt.Sprintf("Evaluation failed: %v", cause)
	}
	return model.Evaluation{
		Snippet:      ms.Snippet,
		Evidence:     evidenceContents(ms.Evidence),
		Evaluation:   model.Unknown,
		SupportScore: 0.0,
		Reason:       reason,
	}
}

// clampScore bounds a raw score to the documented [-1.0, 1.0] range.
func clampScore(v float64) float64 {
	if v < -1.0 {
		return -1.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}

func evidenceContents(items []model.EvidenceItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Content)
	}
	return out
}

func evidenceBlock(items []model.EvidenceItem) string {
	if len(items) == 0 {
		return "(none)"
	}
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, strings.TrimSpace(it.Content))
	}
	return b.String()
}
