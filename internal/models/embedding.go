package models

// ExtractionMethod records where a chunk's page number came from
type ExtractionMethod string

const (
	// MethodFooter means the printed page number was read from the page footer
	MethodFooter ExtractionMethod = "footer"
	// MethodPDFMetadata means the physical page index was used instead
	MethodPDFMetadata ExtractionMethod = "pdf_metadata"
)

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	Content      string
	PageNumber   int
	PhysicalPage int
	Method       ExtractionMethod
	ChunkID      int
}

// DocumentChunk is a chunk as returned by a similarity search.
// PageNumber is nil when the store has no page metadata for the chunk.
type DocumentChunk struct {
	ID         string
	Text       string
	PageNumber *int
	Method     ExtractionMethod
	Similarity float32
}

type PromptResponse struct {
	Query   string
	Source  string
	Content string
	Chunks  []DocumentChunk
}
