package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"policy-rag/internal/models"
)

// VectorDBManager encapsulates the chromem-go database operations
type VectorDBManager struct {
	db             *chromem.DB
	collection     *chromem.Collection
	collectionName string
	dbPath         string
	compress       bool
	encryptionKey  string
	filePath       string
}

const (
	compress = false
)

// NewVectorDBManager opens a persistent database under dbPath, or an
// in-memory one
func NewVectorDBManager(dbPath, collectionName string, inMemory bool, encryptionKey string) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return &VectorDBManager{
		db:             db,
		collectionName: collectionName,
		dbPath:         dbPath,
		compress:       compress,
		encryptionKey:  encryptionKey,
		filePath:       filepath.Join(dbPath, collectionName+".chromem"),
	}, nil
}

// GetOrCreateCollection opens the collection, embedding text with embed
func (m *VectorDBManager) GetOrCreateCollection(embed chromem.EmbeddingFunc) (*chromem.Collection, error) {
	c, err := m.db.GetOrCreateCollection(m.collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	m.collection = c
	return c, nil
}

func (m *VectorDBManager) Count() int {
	if m.collection == nil {
		return 0
	}
	return m.collection.Count()
}

// AddChunks upserts parsed chunks. IDs are derived from ChunkID so
// re-ingesting the same document replaces the previous chunks.
func (m *VectorDBManager) AddChunks(ctx context.Context, chunks []models.Chunk) error {
	docs := make([]chromem.Document, 0, len(chunks))
	for _, ch := range chunks {
		if ch.Content == "" {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:       fmt.Sprintf("%s%d", models.ChunkIDPrefix, ch.ChunkID),
			Content:  ch.Content,
			Metadata: CreateMetadata(ch),
		})
	}
	return m.CreateDocs(ctx, docs)
}

// add multiple documents
func (m *VectorDBManager) CreateDocs(ctx context.Context, documents []chromem.Document) error {
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	if len(documents) == 0 {
		return nil
	}
	err := m.collection.AddDocuments(ctx, documents, runtime.NumCPU())
	if err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	return nil
}

// Query returns up to nResults chunks most similar to text, best first
func (m *VectorDBManager) Query(ctx context.Context, text string, nResults int) ([]models.DocumentChunk, error) {
	if m.collection == nil {
		return nil, fmt.Errorf("collection is required")
	}
	// chromem rejects nResults larger than the collection
	n := min(nResults, m.collection.Count())
	if n <= 0 {
		return []models.DocumentChunk{}, nil
	}

	results, err := m.SearchWithQueryOptions(ctx, chromem.QueryOptions{
		QueryText: text,
		NResults:  n,
	})
	if err != nil {
		return nil, err
	}

	chunks := make([]models.DocumentChunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, ToDocumentChunk(r))
	}
	return chunks, nil
}

// SearchWithQueryOptions performs a similarity search
func (m *VectorDBManager) SearchWithQueryOptions(ctx context.Context, opts chromem.QueryOptions) ([]chromem.Result, error) {
	// exit if query or embedding is not provided
	if opts.QueryText == "" && opts.QueryEmbedding == nil {
		return nil, fmt.Errorf("either query or embedding must be provided")
	}

	results, err := m.collection.QueryWithOptions(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}
	return results, nil
}

// delete collection
func (m *VectorDBManager) DeleteCollection() error {
	err := m.db.DeleteCollection(m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	m.collection = nil
	return nil
}

// Export writes the collection to an encrypted file next to the database
func (m *VectorDBManager) Export() error {
	if m.encryptionKey == "" {
		return fmt.Errorf("encryption key is required")
	}
	if m.collection == nil {
		return fmt.Errorf("collection is required")
	}
	if m.dbPath == "" {
		return fmt.Errorf("db path is required")
	}

	log.Debug().
		Str("collection", m.collectionName).
		Str("file", m.filePath).
		Bool("compress", m.compress).
		Msg("Exporting collection")

	err := m.db.ExportToFile(m.filePath, m.compress, m.encryptionKey, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import loads a previously exported collection. Call GetOrCreateCollection
// afterwards to attach the embedding function.
func (m *VectorDBManager) Import() error {
	err := m.db.ImportFromFile(m.filePath, m.encryptionKey, m.collectionName)
	if err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	return nil
}

// CreateMetadata flattens chunk metadata into chromem's string map
func CreateMetadata(ch models.Chunk) map[string]string {
	return map[string]string{
		models.MetaPage:         strconv.Itoa(ch.PageNumber),
		models.MetaPhysicalPage: strconv.Itoa(ch.PhysicalPage),
		models.MetaPageSource:   string(ch.Method),
		models.MetaChunkID:      strconv.Itoa(ch.ChunkID),
		models.MetaDocumentType: models.DocumentType,
	}
}

// ToDocumentChunk reads a search result back into a DocumentChunk. When the
// extracted page is missing the physical page is used.
func ToDocumentChunk(r chromem.Result) models.DocumentChunk {
	dc := models.DocumentChunk{
		ID:         r.ID,
		Text:       r.Content,
		Method:     models.ExtractionMethod(r.Metadata[models.MetaPageSource]),
		Similarity: r.Similarity,
	}
	if p, err := strconv.Atoi(r.Metadata[models.MetaPage]); err == nil {
		dc.PageNumber = &p
	} else if p, err := strconv.Atoi(r.Metadata[models.MetaPhysicalPage]); err == nil {
		dc.PageNumber = &p
		dc.Method = models.MethodPDFMetadata
	}
	if dc.Method == "" && dc.PageNumber != nil {
		dc.Method = models.MethodPDFMetadata
	}
	return dc
}
