package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"policy-rag/internal/config"
	"policy-rag/internal/memory"
	"policy-rag/internal/models"
	"policy-rag/internal/prompt"
)

var (
	ErrRetrieval  = errors.New("retrieval failed")
	ErrGeneration = errors.New("generation failed")
)

// Retriever finds the chunks most similar to a query, best first
type Retriever interface {
	Query(ctx context.Context, text string, nResults int) ([]models.DocumentChunk, error)
}

// Generator answers an assembled prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type RAG struct {
	retriever       Retriever
	generator       Generator
	instructions    string
	nResults        int
	recentTurns     int
	maxPromptTokens int
	tokens          *prompt.TokenCounter
}

func NewRAG(retriever Retriever, generator Generator, cfg *config.Config) *RAG {
	r := &RAG{
		retriever:    retriever,
		generator:    generator,
		instructions: prompt.DefaultInstructions,
		nResults:     3,
		recentTurns:  memory.DefaultRecent,
	}
	if cfg != nil {
		if cfg.RAG.NResults > 0 {
			r.nResults = cfg.RAG.NResults
		}
		if cfg.RAG.RecentTurns > 0 {
			r.recentTurns = cfg.RAG.RecentTurns
		}
		r.maxPromptTokens = cfg.RAG.MaxPromptTokens
	}

	tc, err := prompt.NewTokenCounter()
	if err != nil {
		log.Warn().Err(err).Msg("Token counting disabled")
	} else {
		r.tokens = tc
	}
	return r
}

// Query answers one question. The turn is appended to window only when both
// retrieval and generation succeed.
func (r *RAG) Query(ctx context.Context, window *memory.Window, question string) (*models.PromptResponse, error) {
	chunks, err := r.retriever.Query(ctx, question, r.nResults)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}
	log.Debug().Int("chunks", len(chunks)).Msg("Retrieved document chunks")

	text := prompt.Render(prompt.Context{
		Instructions: r.instructions,
		History:      window.Recent(r.recentTurns),
		Chunks:       chunks,
		Question:     question,
	})
	r.checkSize(text)

	answer, err := r.generator.Generate(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if strings.TrimSpace(answer) == "" {
		return nil, fmt.Errorf("%w: empty answer", ErrGeneration)
	}

	window.Append(question, answer)

	return &models.PromptResponse{
		Query:   question,
		Source:  prompt.Sources(chunks),
		Content: answer,
		Chunks:  chunks,
	}, nil
}

func (r *RAG) checkSize(text string) {
	if r.tokens == nil {
		return
	}
	n := r.tokens.Count(text)
	if r.maxPromptTokens > 0 && n > r.maxPromptTokens {
		log.Warn().Int("prompt_tokens", n).Int("max_prompt_tokens", r.maxPromptTokens).Msg("Prompt exceeds token budget")
		return
	}
	log.Debug().Int("prompt_tokens", n).Msg("Prompt assembled")
}
