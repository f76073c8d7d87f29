package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"policy-rag/internal/config"
	"policy-rag/internal/embedding"
	"policy-rag/internal/models"
)

type Document struct {
	bun.BaseModel `bun:"table:policy_chunks,alias:d"`
	ID            string          `bun:"id,pk"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,notnull,type:vector"`
	PageNumber    int             `bun:"page_number,notnull"`
	PhysicalPage  int             `bun:"physical_page,notnull"`
	PageSource    string          `bun:"page_source,notnull"`
	ChunkID       int             `bun:"chunk_id,notnull"`
	DocumentType  string          `bun:"document_type,notnull"`
	Distance      float64         `bun:"distance,scanonly"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens the database with pgdriver, or with lib/pq when the
// driver is "postgres"
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database dsn is required")
	}
	if cfg.Driver == "postgres" {
		return sql.Open("postgres", cfg.DSN)
	}

	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("creating vector extension: %w", err)
	}
	_, err := db.NewCreateTable().Model((*Document)(nil)).IfNotExists().Exec(ctx)
	return err
}

// drop table policy_chunks
func DropDocuments(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*Document)(nil)).IfExists().Exec(ctx)
	return err
}

// Store keeps policy chunks in Postgres and searches them with pgvector
type Store struct {
	db         *bun.DB
	embedder   embedding.QueryEmbedder
	vectorSize int
}

func NewStore(db *bun.DB, embedder embedding.QueryEmbedder, vectorSize int) *Store {
	return &Store{db: db, embedder: embedder, vectorSize: vectorSize}
}

// AddChunks embeds and upserts chunks keyed by their chunk id
func (s *Store) AddChunks(ctx context.Context, chunks []models.Chunk) error {
	docs := make([]Document, 0, len(chunks))
	for _, ch := range chunks {
		if ch.Content == "" {
			continue
		}
		vec, err := s.embed(ctx, ch.Content)
		if err != nil {
			return err
		}
		docs = append(docs, Document{
			ID:           fmt.Sprintf("%s%d", models.ChunkIDPrefix, ch.ChunkID),
			Content:      ch.Content,
			Embedding:    vec,
			PageNumber:   ch.PageNumber,
			PhysicalPage: ch.PhysicalPage,
			PageSource:   string(ch.Method),
			ChunkID:      ch.ChunkID,
			DocumentType: models.DocumentType,
		})
	}
	return StoreDocuments(ctx, s.db, docs)
}

// Query returns up to nResults chunks ordered by cosine distance
func (s *Store) Query(ctx context.Context, text string, nResults int) ([]models.DocumentChunk, error) {
	if nResults <= 0 {
		return []models.DocumentChunk{}, nil
	}
	vec, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	docs, err := SearchDocuments(ctx, s.db, vec, nResults)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}

	chunks := make([]models.DocumentChunk, 0, len(docs))
	for _, d := range docs {
		chunks = append(chunks, d.ToDocumentChunk())
	}
	return chunks, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.db.NewSelect().Model((*Document)(nil)).Count(ctx)
}

func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	v, err := s.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	if s.vectorSize > 0 && len(v) != s.vectorSize {
		return pgvector.Vector{}, fmt.Errorf("embedding has %d dimensions, expected %d", len(v), s.vectorSize)
	}
	return pgvector.NewVector(v), nil
}

func StoreDocuments(ctx context.Context, db *bun.DB, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	_, err := upsertQuery(db, &docs).Exec(ctx)
	return err
}

func SearchDocuments(ctx context.Context, db *bun.DB, queryEmbedding pgvector.Vector, limit int) ([]Document, error) {
	var docs []Document
	err := searchQuery(db, &docs, queryEmbedding, limit).Scan(ctx)
	return docs, err
}

func upsertQuery(db *bun.DB, docs *[]Document) *bun.InsertQuery {
	return db.NewInsert().
		Model(docs).
		On("CONFLICT (id) DO UPDATE").
		Set("content = EXCLUDED.content").
		Set("embedding = EXCLUDED.embedding").
		Set("page_number = EXCLUDED.page_number").
		Set("physical_page = EXCLUDED.physical_page").
		Set("page_source = EXCLUDED.page_source").
		Set("chunk_id = EXCLUDED.chunk_id")
}

func searchQuery(db *bun.DB, docs *[]Document, queryEmbedding pgvector.Vector, limit int) *bun.SelectQuery {
	return db.NewSelect().
		Model(docs).
		Column("id", "content", "page_number", "physical_page", "page_source", "chunk_id").
		ColumnExpr("d.embedding <=> ? AS distance", queryEmbedding).
		OrderExpr("d.embedding <=> ?", queryEmbedding).
		Limit(limit)
}

// ToDocumentChunk converts cosine distance to similarity
func (d Document) ToDocumentChunk() models.DocumentChunk {
	page := d.PageNumber
	method := models.ExtractionMethod(d.PageSource)
	if method == "" {
		method = models.MethodPDFMetadata
	}
	return models.DocumentChunk{
		ID:         d.ID,
		Text:       d.Content,
		PageNumber: &page,
		Method:     method,
		Similarity: float32(1 - d.Distance),
	}
}
