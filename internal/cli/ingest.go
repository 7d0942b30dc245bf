package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/claimlens/claimlens/internal/kb"
	"github.com/claimlens/claimlens/internal/llm"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Build the knowledge base from a directory of company documents",
	Long: `Ingest chunks every .txt and .md file in the given directory, embeds the
chunks, and upserts them into the knowledge base. Without an argument the
configured company data directory is used.

Re-ingesting a document replaces its previous chunks.

Example:
  claimlens ingest company_data/
  claimlens ingest filings/ --kb acme_2025`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&kbID, "kb", "", "knowledge base id (overrides config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if kbID != "" {
		cfg.KB.ID = kbID
	}
	if err := cfg.Validate(true); err != nil {
		return err
	}

	dir := cfg.Paths.CompanyDataDir
	if len(args) == 1 {
		dir = args[0]
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	embedder, err := llm.NewEmbedder(cfg)
	if err != nil {
		return err
	}

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

	chunker := kb.NewChunker(cfg.KB.ChunkSize, cfg.KB.ChunkOverlap)
	ingestor := kb.NewIngestor(store, chunker, logger)

	docIDs, err := ingestor.IngestDirectory(ctx, dir, !cfg.Verbose)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d documents into knowledge base %q\n", len(docIDs), cfg.KB.ID)
	return nil
}
