package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/claimlens/claimlens/internal/checkpoint"
	"github.com/claimlens/claimlens/internal/classify"
	"github.com/claimlens/claimlens/internal/evaluate"
	"github.com/claimlens/claimlens/internal/kb"
	"github.com/claimlens/claimlens/internal/llm"
	"github.com/claimlens/claimlens/internal/match"
	"github.com/claimlens/claimlens/internal/model"
	"github.com/claimlens/claimlens/internal/pipeline"
	"github.com/claimlens/claimlens/internal/report"
	"github.com/claimlens/claimlens/internal/worker"
)

var (
	resumeFrom string
	noCache    bool
	kbID       string
	failOpen   bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <report>",
	Short: "Run the full claim verification pipeline over a report",
	Long: `Analyze runs a report through extraction, classification, evidence
retrieval, evaluation, and statistical reporting.

The report argument is the extractor's markdown output or a JSON map of
section name to text. Stage outputs are checkpointed under the configured
checkpoint directory; re-running reuses them unless --no-cache is given.

Example:
  claimlens analyze report.md
  claimlens analyze report.md --checkpoint matched
  claimlens analyze report.json --no-cache --kb acme_2025`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&resumeFrom, "checkpoint", "", "resume from a stage checkpoint (classified|matched|evaluated)")
	analyzeCmd.Flags().BoolVar(&noCache, "no-cache", false, "ignore existing checkpoints (results are still saved)")
	analyzeCmd.Flags().StringVar(&kbID, "kb", "", "knowledge base id (overrides config)")
	analyzeCmd.Flags().BoolVar(&failOpen, "fail-open", true, "degrade failed batches to empty output instead of aborting")
}

// applyAnalyzeFlags layers command-line flags over the loaded
// configuration. Only flags the user actually set override the file.
func applyAnalyzeFlags(flags *pflag.FlagSet, cfg *model.Config) {
	if flags.Changed("no-cache") {
		cfg.Pipeline.CacheEnabled = !noCache
	}
	if flags.Changed("fail-open") {
		cfg.Pipeline.FailOpen = failOpen
	}
	if flags.Changed("kb") && kbID != "" {
		cfg.KB.ID = kbID
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	reportPath := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Paths.Report = reportPath
	applyAnalyzeFlags(cmd.Flags(), cfg)
	if err := cfg.Validate(true); err != nil {
		return err
	}
	if _, err := os.Stat(reportPath); err != nil {
		return fmt.Errorf("report not found: %s", reportPath)
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	// LLM clients
	chat, err := llm.NewChatClient(cfg)
	if err != nil {
		return err
	}
	embedder, err := llm.NewEmbedder(cfg)
	if err != nil {
		return err
	}

	// Knowledge base
	store, err := kb.NewStore(ctx, kb.StoreConfig{
		ConnString: cfg.KB.DatabaseURL,
		KBID:       cfg.KB.ID,
		TableName:  cfg.KB.TableName,
		VectorDim:  cfg.KB.VectorDim,
	}, embedder, logger)
	if err != nil {
		return fmt.Errorf("connect knowledge base: %w", err)
	}
	defer store.Close()

	// Shared worker pool
	limiter := worker.NewLimiter(cfg.Pipeline.RequestsPerSecond, cfg.Pipeline.Burst)
	pool := worker.NewPool(worker.Config{
		MaxWorkers: cfg.Pipeline.MaxWorkers,
		MaxRetries: cfg.Pipeline.MaxRetries,
		RetryDelay: cfg.Pipeline.RetryDelay,
		FailOpen:   cfg.Pipeline.FailOpen,
	}, limiter, logger)

	classifier := classify.New(chat, pool, cfg.LLM.ClassificationModel, cfg.Pipeline.BatchSize, logger)
	matcher := match.NewMatcher(store, cfg.KB.TopK, logger)
	matcher.SetShowProgress(!cfg.Verbose)
	evaluator := evaluate.NewEvaluator(chat, pool, cfg.LLM.EvaluationModel, logger)

	checkpoints := checkpoint.NewFSStore(cfg.Paths.CheckpointDir)
	orch := pipeline.New(cfg, checkpoints, nil, classifier, matcher, evaluator, logger)

	reportID := reportIDFromPath(reportPath)

	var stats report.Statistics
	if resumeFrom != "" {
		stage := checkpoint.Stage(resumeFrom)
		if !stage.Valid() || stage == checkpoint.StageExtracted {
			return fmt.Errorf("invalid --checkpoint value %q (use classified, matched, or evaluated)", resumeFrom)
		}
		stats, err = orch.Resume(ctx, reportID, stage)
	} else {
		stats, err = orch.Run(ctx, reportID)
	}
	if err != nil {
		return err
	}

	report.PrintSummary(stats)
	return nil
}

// reportIDFromPath derives the checkpoint key from the report file name.
func reportIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
