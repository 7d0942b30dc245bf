// Package pipeline drives the five verification stages in order, with
// every stage boundary checkpointed for resumability.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/claimlens/claimlens/internal/checkpoint"
	"github.com/claimlens/claimlens/internal/classify"
	"github.com/claimlens/claimlens/internal/evaluate"
	"github.com/claimlens/claimlens/internal/extract"
	"github.com/claimlens/claimlens/internal/match"
	"github.com/claimlens/claimlens/internal/model"
	"github.com/claimlens/claimlens/internal/report"
)

// Classifier, Matcher, and Evaluator are the stage collaborators. The
// orchestrator owns sequencing and checkpointing, never their internals.
type Classifier interface {
	Classify(ctx context.Context, sections map[string][]string) (map[string][]model.Snippet, classify.Stats, error)
}

type Matcher interface {
	Match(ctx context.Context, sections map[string][]model.Snippet) (map[string][]model.MatchedSnippet, match.Stats, error)
}

type Evaluator interface {
	Evaluate(ctx context.Context, sections map[string][]model.MatchedSnippet) (map[string][]model.Evaluation, evaluate.Stats, error)
}

// Extractor produces sections from the report path. Wired to extract.FromFile
// in production; injectable for tests.
type Extractor func(path string) (extract.Sections, error)

// Orchestrator runs a report through extraction, classification, matching,
// evaluation, and analysis. Each stage checks for an existing checkpoint
// before computing; checkpoint I/O errors abort the run.
type Orchestrator struct {
	cfg        *model.Config
	store      checkpoint.Store
	extractor  Extractor
	classifier Classifier
	matcher    Matcher
	evaluator  Evaluator
	logger     *zap.Logger

	// now is injectable so metadata timestamps are stable in tests.
	now func() time.Time
}

// New creates an orchestrator. A nil extractor defaults to extract.FromFile.
func New(cfg *model.Config, store checkpoint.Store, extractor Extractor, cl Classifier, m Matcher, ev Evaluator, logger *zap.Logger) *Orchestrator {
	if extractor == nil {
		extractor = extract.FromFile
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		cfg:        cfg,
		store:      store,
		extractor:  extractor,
		classifier: cl,
		matcher:    m,
		evaluator:  ev,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes all stages for reportID, reusing any existing checkpoints when
// caching is enabled, and returns the final statistics.
func (o *Orchestrator) Run(ctx context.Context, reportID string) (report.Statistics, error) {
	sections, err := o.runExtract(reportID)
	if err != nil {
		return report.Statistics{}, err
	}
	return o.runFrom(ctx, reportID, checkpoint.StageExtracted, sections)
}

// Resume continues a previous run from the artifact saved at fromStage. The
// checkpoint must exist regardless of the caching switch; resuming from
// nothing is a configuration error.
func (o *Orchestrator) Resume(ctx context.Context, reportID string, fromStage checkpoint.Stage) (report.Statistics, error) {
	if !fromStage.Valid() || fromStage == checkpoint.StageExtracted {
		return report.Statistics{}, fmt.Errorf("cannot resume from stage %q", fromStage)
	}
	if !o.store.Has(reportID, fromStage) {
		return report.Statistics{}, fmt.Errorf("no %s checkpoint for report %s", fromStage, reportID)
	}

	switch fromStage {
	case checkpoint.StageClassified:
		var snippets map[string][]model.Snippet
		if err := o.store.Load(reportID, fromStage, &snippets); err != nil {
			return report.Statistics{}, fmt.Errorf("load %s checkpoint: %w", fromStage, err)
		}
		return o.runFrom(ctx, reportID, fromStage, snippets)
	case checkpoint.StageMatched:
		var matched map[string][]model.MatchedSnippet
		if err := o.store.Load(reportID, fromStage, &matched); err != nil {
			return report.Statistics{}, fmt.Errorf("load %s checkpoint: %w", fromStage, err)
		}
		return o.runFrom(ctx, reportID, fromStage, matched)
	default: // StageEvaluated
		var evals map[string][]model.Evaluation
		if err := o.store.Load(reportID, fromStage, &evals); err != nil {
			return report.Statistics{}, fmt.Errorf("load %s checkpoint: %w", fromStage, err)
		}
		return o.runFrom(ctx, reportID, fromStage, evals)
	}
}

// runFrom advances the state machine from the stage whose artifact is in
// hand through analysis.
func (o *Orchestrator) runFrom(ctx context.Context, reportID string, done checkpoint.Stage, artifact any) (report.Statistics, error) {
	var (
		snippets map[string][]model.Snippet
		matched  map[string][]model.MatchedSnippet
		evals    map[string][]model.Evaluation
		err      error
	)

	switch done {
	case checkpoint.StageExtracted:
		snippets, err = o.runClassify(ctx, reportID, artifact.(extract.Sections))
		if err != nil {
			return report.Statistics{}, err
		}
		fallthrough
	case checkpoint.StageClassified:
		if snippets == nil {
			snippets = artifact.(map[string][]model.Snippet)
		}
		matched, err = o.runMatch(ctx, reportID, snippets)
		if err != nil {
			return report.Statistics{}, err
		}
		fallthrough
	case checkpoint.StageMatched:
		if matched == nil {
			matched = artifact.(map[string][]model.MatchedSnippet)
		}
		evals, err = o.runEvaluate(ctx, reportID, matched)
		if err != nil {
			return report.Statistics{}, err
		}
		fallthrough
	case checkpoint.StageEvaluated:
		if evals == nil {
			evals = artifact.(map[string][]model.Evaluation)
		}
	}

	return o.runAnalyze(reportID, evals)
}

func (o *Orchestrator) runExtract(reportID string) (extract.Sections, error) {
	stage := checkpoint.StageExtracted
	if o.cached(reportID, stage) {
		var sections extract.Sections
		if err := o.store.Load(reportID, stage, &sections); err != nil {
			return nil, fmt.Errorf("load %s checkpoint: %w", stage, err)
		}
		o.logger.Info("reusing checkpoint", zap.String("report", reportID), zap.String("stage", string(stage)))
		return sections, nil
	}

	sections, err := o.extractor(o.cfg.Paths.Report)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	if len(sections) == 0 {
		return nil, fmt.Errorf("no sections extracted from %s", o.cfg.Paths.Report)
	}

	sentences := 0
	for _, s := range sections {
		sentences += len(s)
	}
	meta := o.metadata(reportID, stage, "")
	meta.Counts = map[string]int{"sections": len(sections), "sentences": sentences}
	if err := o.store.Save(reportID, stage, sections, meta); err != nil {
		return nil, fmt.Errorf("save %s checkpoint: %w", stage, err)
	}
	return sections, nil
}

func (o *Orchestrator) runClassify(ctx context.Context, reportID string, sections extract.Sections) (map[string][]model.Snippet, error) {
	stage := checkpoint.StageClassified
	if o.cached(reportID, stage) {
		var snippets map[string][]model.Snippet
		if err := o.store.Load(reportID, stage, &snippets); err != nil {
			return nil, fmt.Errorf("load %s checkpoint: %w", stage, err)
		}
		o.logger.Info("reusing checkpoint", zap.String("report", reportID), zap.String("stage", string(stage)))
		return snippets, nil
	}

	snippets, stats, err := o.classifier.Classify(ctx, sections)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	meta := o.metadata(reportID, stage, o.cfg.LLM.ClassificationModel)
	meta.Counts = map[string]int{
		"sections":        stats.Sections,
		"sentences":       stats.Sentences,
		"snippets":        stats.Snippets,
		"dropped_batches": stats.DroppedBatches,
	}
	meta.Distributions = map[string]map[string]int{"claim_type": stats.ByClaimType}
	if err := o.store.Save(reportID, stage, snippets, meta); err != nil {
		return nil, fmt.Errorf("save %s checkpoint: %w", stage, err)
	}
	return snippets, nil
}

func (o *Orchestrator) runMatch(ctx context.Context, reportID string, snippets map[string][]model.Snippet) (map[string][]model.MatchedSnippet, error) {
	stage := checkpoint.StageMatched
	if o.cached(reportID, stage) {
		var matched map[string][]model.MatchedSnippet
		if err := o.store.Load(reportID, stage, &matched); err != nil {
			return nil, fmt.Errorf("load %s checkpoint: %w", stage, err)
		}
		o.logger.Info("reusing checkpoint", zap.String("report", reportID), zap.String("stage", string(stage)))
		return matched, nil
	}

	matched, stats, err := o.matcher.Match(ctx, snippets)
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}

	meta := o.metadata(reportID, stage, o.cfg.LLM.EmbeddingModel)
	meta.Counts = map[string]int{
		"snippets":      stats.Snippets,
		"with_evidence": stats.WithEvidence,
		"cache_hits":    stats.CacheHits,
	}
	if err := o.store.Save(reportID, stage, matched, meta); err != nil {
		return nil, fmt.Errorf("save %s checkpoint: %w", stage, err)
	}
	return matched, nil
}

func (o *Orchestrator) runEvaluate(ctx context.Context, reportID string, matched map[string][]model.MatchedSnippet) (map[string][]model.Evaluation, error) {
	stage := checkpoint.StageEvaluated
	if o.cached(reportID, stage) {
		var evals map[string][]model.Evaluation
		if err := o.store.Load(reportID, stage, &evals); err != nil {
			return nil, fmt.Errorf("load %s checkpoint: %w", stage, err)
		}
		o.logger.Info("reusing checkpoint", zap.String("report", reportID), zap.String("stage", string(stage)))
		return evals, nil
	}

	evals, stats, err := o.evaluator.Evaluate(ctx, matched)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	byLabel := make(map[string]int, len(stats.ByLabel))
	for label, n := range stats.ByLabel {
		byLabel[string(label)] = n
	}
	meta := o.metadata(reportID, stage, o.cfg.LLM.EvaluationModel)
	meta.Counts = map[string]int{
		"snippets":    stats.Snippets,
		"no_evidence": stats.NoEvidence,
		"dropped":     stats.Dropped,
	}
	meta.Distributions = map[string]map[string]int{"evaluation": byLabel}
	if err := o.store.Save(reportID, stage, evals, meta); err != nil {
		return nil, fmt.Errorf("save %s checkpoint: %w", stage, err)
	}
	return evals, nil
}

func (o *Orchestrator) runAnalyze(reportID string, evals map[string][]model.Evaluation) (report.Statistics, error) {
	stats := report.Analyze(reportID, evals)
	dir := filepath.Join(o.cfg.Paths.OutputDir, reportID)
	if err := report.WriteArtifacts(dir, stats); err != nil {
		return report.Statistics{}, fmt.Errorf("analyze: %w", err)
	}
	o.logger.Info("analysis written",
		zap.String("report", reportID),
		zap.String("dir", dir),
		zap.Int("snippets", stats.TotalSnippets))
	return stats, nil
}

// cached reports whether a stage's checkpoint should be reused.
func (o *Orchestrator) cached(reportID string, stage checkpoint.Stage) bool {
	return o.cfg.Pipeline.CacheEnabled && o.store.Has(reportID, stage)
}

func (o *Orchestrator) metadata(reportID string, stage checkpoint.Stage, modelID string) checkpoint.Metadata {
	return checkpoint.Metadata{
		ReportID:  reportID,
		Stage:     string(stage),
		CreatedAt: o.now(),
		Model:     modelID,
	}
}
