// Package kb is the knowledge base of company disclosures: pgvector-backed
// storage and similarity retrieval over embedded document chunks.
package kb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/claimlens/claimlens/internal/llm"
	"github.com/claimlens/claimlens/internal/model"
)

// StoreConfig configures the pgvector store.
type StoreConfig struct {
	ConnString string
	KBID       string
	TableName  string
	VectorDim  int
}

// Store holds embedded chunks in Postgres with the pgvector extension and
// serves ranked similarity queries. It implements match.Retriever.
type Store struct {
	cfg      StoreConfig
	pool     *pgxpool.Pool
	embedder llm.Embedder
	logger   *zap.Logger
}

// NewStore connects to Postgres and ensures the schema exists.
func NewStore(ctx context.Context, cfg StoreConfig, embedder llm.Embedder, logger *zap.Logger) (*Store, error) {
	if cfg.TableName == "" {
		cfg.TableName = "kb_chunks"
	}
	if cfg.VectorDim <= 0 {
		cfg.VectorDim = 1536
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := pgxpool.New(ctx, cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	s := &Store{cfg: cfg, pool: pool, embedder: embedder, logger: logger}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			kb_id TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d)
		)`, s.cfg.TableName, s.cfg.VectorDim)
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`, s.cfg.TableName, s.cfg.TableName)
	if _, err := s.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	return nil
}

// AddDocument embeds the chunks of one document and upserts them.
func (s *Store) AddDocument(ctx context.Context, docID string, chunks []string) error {
	if len(chunks) == 0 {
		return nil
	}

	vectors, err := s.embedder.Embed(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embed document %s: %w", docID, err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed document %s: got %d vectors for %d chunks", docID, len(vectors), len(chunks))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, kb_id, doc_id, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`, s.cfg.TableName)

	for i, chunk := range chunks {
		id := fmt.Sprintf("%s:%s:%d", s.cfg.KBID, docID, i)
		if _, err := tx.Exec(ctx, stmt, id, s.cfg.KBID, docID, i, chunk, pgvector.NewVector(vectors[i])); err != nil {
			return fmt.Errorf("insert chunk %d of %s: %w", i, docID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("document added to knowledge base",
		zap.String("doc_id", docID), zap.Int("chunks", len(chunks)))
	return nil
}

// Query embeds the query text and returns up to topK evidence items ranked by
// cosine similarity, rank 1 first. An empty result is valid.
func (s *Store) Query(ctx context.Context, text string, topK int) ([]model.EvidenceItem, error) {
	if topK <= 0 {
		topK = 5
	}

	vectors, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT doc_id, content, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE kb_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3`, s.cfg.TableName)

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(vectors[0]), s.cfg.KBID, topK)
	if err != nil {
		return nil, fmt.Errorf("query knowledge base: %w", err)
	}
	defer rows.Close()

	var items []model.EvidenceItem
	for rows.Next() {
		var item model.EvidenceItem
		if err := rows.Scan(&item.DocID, &item.Content, &item.Score); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		item.Rank = len(items) + 1
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return items, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
