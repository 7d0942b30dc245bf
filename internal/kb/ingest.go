package kb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// Ingestor populates the knowledge base from a directory of company
// documents.
type Ingestor struct {
	store   *Store
	chunker *Chunker
	logger  *zap.Logger
}

// NewIngestor creates an ingestor.
func NewIngestor(store *Store, chunker *Chunker, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{store: store, chunker: chunker, logger: logger}
}

// IngestDirectory reads every .txt and .md file under dir (non-recursive),
// chunks it, and adds it to the store. Returns the document ids added.
func (in *Ingestor) IngestDirectory(ctx context.Context, dir string, showProgress bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read company data dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".md":
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .txt or .md documents in %s", dir)
	}

	var bar *progressbar.ProgressBar
	if showProgress {
		bar = progressbar.Default(int64(len(files)), "ingesting")
	}

	var docIDs []string
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return docIDs, fmt.Errorf("read document %s: %w", name, err)
		}

		docID := strings.TrimSuffix(name, filepath.Ext(name))
		chunks := in.chunker.Chunk(string(data))
		if len(chunks) == 0 {
			in.logger.Warn("skipping empty document", zap.String("doc_id", docID))
			continue
		}

		if err := in.store.AddDocument(ctx, docID, chunks); err != nil {
			return docIDs, err
		}
		docIDs = append(docIDs, docID)

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	in.logger.Info("knowledge base populated", zap.Int("documents", len(docIDs)))
	return docIDs, nil
}
