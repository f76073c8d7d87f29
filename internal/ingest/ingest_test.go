package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-rag/internal/models"
)

type fakeParser struct {
	chunks []models.Chunk
	err    error
}

func (f fakeParser) ParsePDF(string) ([]models.Chunk, error) {
	return f.chunks, f.err
}

type fakeStore struct {
	added []models.Chunk
	err   error
}

func (f *fakeStore) AddChunks(ctx context.Context, chunks []models.Chunk) error {
	f.added = append(f.added, chunks...)
	return f.err
}

func sample() []models.Chunk {
	return []models.Chunk{
		{Content: "a", PageNumber: 9, Method: models.MethodFooter, ChunkID: 0},
		{Content: "b", PageNumber: 9, Method: models.MethodFooter, ChunkID: 1},
		{Content: "c", PageNumber: 5, Method: models.MethodPDFMetadata, ChunkID: 2},
		{Content: "d", PageNumber: 5, Method: models.MethodFooter, ChunkID: 3},
	}
}

func TestRun(t *testing.T) {
	store := &fakeStore{}

	summary, err := Run(context.Background(), fakeParser{chunks: sample()}, store, "policy.pdf")
	require.NoError(t, err)

	assert.Len(t, store.added, 4)
	assert.Equal(t, []PageCount{
		{Page: 5, Method: models.MethodFooter, Chunks: 1},
		{Page: 5, Method: models.MethodPDFMetadata, Chunks: 1},
		{Page: 9, Method: models.MethodFooter, Chunks: 2},
	}, summary)
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := Run(ctx, fakeParser{err: errors.New("bad pdf")}, &fakeStore{}, "policy.pdf")
	assert.ErrorContains(t, err, "bad pdf")

	_, err = Run(ctx, fakeParser{}, &fakeStore{}, "policy.pdf")
	assert.ErrorContains(t, err, "no text found")

	_, err = Run(ctx, fakeParser{chunks: sample()}, &fakeStore{err: errors.New("disk full")}, "policy.pdf")
	assert.ErrorContains(t, err, "disk full")
}
