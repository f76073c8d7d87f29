package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"policy-rag/internal/chromemdb"
	"policy-rag/internal/config"
	"policy-rag/internal/db"
	"policy-rag/internal/embedding"
	"policy-rag/internal/helper"
	"policy-rag/internal/models"
)

// vectorStore is what the commands need from either backend
type vectorStore interface {
	Query(ctx context.Context, text string, nResults int) ([]models.DocumentChunk, error)
	AddChunks(ctx context.Context, chunks []models.Chunk) error
}

type openedStore struct {
	vectorStore
	count func(ctx context.Context) (int, error)
	// persist runs after ingestion
	persist func() error
	close   func() error
}

func openStore(ctx context.Context, cfg *config.Config, reset bool) (*openedStore, error) {
	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("initializing embedder: %w", err)
	}

	switch cfg.RAG.VectorStore {
	case config.VectorStorePGVector:
		sqldb, err := db.ConnectDB(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		bunDB := db.NewDB(sqldb, cfg.Database.Debug)
		if reset {
			if err := db.DropDocuments(ctx, bunDB); err != nil {
				bunDB.Close()
				return nil, fmt.Errorf("clearing documents: %w", err)
			}
		}
		if err := db.InitDB(ctx, bunDB); err != nil {
			bunDB.Close()
			return nil, fmt.Errorf("initializing database: %w", err)
		}
		store := db.NewStore(bunDB, embedder, cfg.Database.VectorSize)
		return &openedStore{
			vectorStore: store,
			count:       store.Count,
			persist:     func() error { return nil },
			close:       bunDB.Close,
		}, nil

	default:
		r := cfg.RAG
		if err := helper.CreateFolder(r.DBPath); err != nil {
			return nil, err
		}
		m, err := chromemdb.NewVectorDBManager(r.DBPath, r.CollectionName, r.InMemory, r.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("creating vector database manager: %w", err)
		}
		if r.InMemory && r.EncryptionKey != "" && !reset {
			if err := m.Import(); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Msg("Could not import exported collection")
			}
		}
		if reset {
			if err := m.DeleteCollection(); err != nil {
				return nil, err
			}
		}
		if _, err := m.GetOrCreateCollection(embedding.ChromemFunc(embedder)); err != nil {
			return nil, err
		}
		persist := func() error { return nil }
		if r.InMemory && r.EncryptionKey != "" {
			persist = m.Export
		}
		return &openedStore{
			vectorStore: m,
			count:       func(context.Context) (int, error) { return m.Count(), nil },
			persist:     persist,
			close:       func() error { return nil },
		}, nil
	}
}
