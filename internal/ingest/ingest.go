// Package ingest loads the policy PDF into a vector store.
package ingest

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"policy-rag/internal/models"
)

// Parser produces labelled chunks from a document on disk
type Parser interface {
	ParsePDF(filePath string) ([]models.Chunk, error)
}

// Store accepts chunks; re-adding a chunk id replaces it
type Store interface {
	AddChunks(ctx context.Context, chunks []models.Chunk) error
}

// PageCount is the number of chunks attributed to one page and method
type PageCount struct {
	Page   int
	Method models.ExtractionMethod
	Chunks int
}

// Run parses pdfPath and upserts the chunks. It returns the per-page summary.
func Run(ctx context.Context, p Parser, store Store, pdfPath string) ([]PageCount, error) {
	chunks, err := p.ParsePDF(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pdfPath, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("no text found in %s", pdfPath)
	}
	log.Info().Int("chunks", len(chunks)).Msg("Created text chunks")

	if err := store.AddChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("storing chunks: %w", err)
	}
	log.Info().Int("chunks", len(chunks)).Msg("Added chunks to vector store")

	summary := Summarize(chunks)
	for _, pc := range summary {
		log.Info().Int("page", pc.Page).Str("method", string(pc.Method)).Int("chunks", pc.Chunks).Msg("Page extraction summary")
	}
	return summary, nil
}

// Summarize counts chunks per page and method, ordered by page
func Summarize(chunks []models.Chunk) []PageCount {
	type key struct {
		page   int
		method models.ExtractionMethod
	}
	counts := make(map[key]int)
	for _, ch := range chunks {
		counts[key{ch.PageNumber, ch.Method}]++
	}

	out := make([]PageCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, PageCount{Page: k.page, Method: k.method, Chunks: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Page != out[j].Page {
			return out[i].Page < out[j].Page
		}
		return out[i].Method < out[j].Method
	})
	return out
}
