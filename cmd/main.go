package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"policy-rag/internal/chat"
	"policy-rag/internal/config"
	"policy-rag/internal/helper"
	"policy-rag/internal/ingest"
	"policy-rag/internal/llmservice"
	"policy-rag/internal/memory"
	"policy-rag/internal/parser"
	"policy-rag/internal/rag"
)

const configFilePath = "./configs/config.yaml"

var (
	configPath string
	debug      bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "policy-rag",
		Short:         "Question answering over a financial policy PDF",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", configFilePath, "Path to the config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	root.AddCommand(newIngestCmd(), newChatCmd(), newAskCmd())
	return root
}

// loadConfig reads the config and sets up logging from it
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg.LogLevel)
	log.Debug().Str("path", configPath).Str("store", cfg.RAG.VectorStore).Msg("Loaded config")
	return cfg, nil
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Caller().Logger()
}

func newIngestCmd() *cobra.Command {
	var (
		filePath string
		dryRun   bool
		reset    bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Parse the policy PDF and store its chunks in the vector store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if filePath == "" {
				filePath = cfg.RAG.PDFPath
			}

			p, err := parser.New(&cfg.RAG)
			if err != nil {
				return err
			}

			if dryRun {
				chunks, err := p.ParsePDF(filePath)
				if err != nil {
					return err
				}
				helper.PrettyPrint(os.Stdout, chunks)
				for _, pc := range ingest.Summarize(chunks) {
					log.Info().Int("page", pc.Page).Str("method", string(pc.Method)).Int("chunks", pc.Chunks).Msg("Page")
				}
				return nil
			}

			if err := cfg.ValidateStore(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx, cfg, reset)
			if err != nil {
				return err
			}
			defer store.close()

			if _, err := ingest.Run(ctx, p, store, filePath); err != nil {
				return err
			}
			if err := store.persist(); err != nil {
				return fmt.Errorf("exporting collection: %w", err)
			}

			n, err := store.count(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Stored %d chunks from %s\n", n, filePath)
			return nil
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "Path to the policy PDF (defaults to rag.pdf_path)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse and print chunks without storing them")
	cmd.Flags().BoolVar(&reset, "reset", false, "Remove existing chunks before storing")
	return cmd
}

// newPipeline validates the config and wires the store, generator and RAG.
// The store must already hold chunks.
func newPipeline(ctx context.Context, cfg *config.Config) (*rag.RAG, func() error, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	store, err := openStore(ctx, cfg, false)
	if err != nil {
		return nil, nil, err
	}

	n, err := store.count(ctx)
	if err != nil {
		store.close()
		return nil, nil, err
	}
	if n == 0 {
		store.close()
		return nil, nil, errors.New("vector store is empty, run ingest first")
	}
	log.Info().Int("chunks", n).Str("store", cfg.RAG.VectorStore).Msg("Vector store ready")

	generator, err := llmservice.NewGenerator(&cfg.InferenceLLM)
	if err != nil {
		store.close()
		return nil, nil, fmt.Errorf("initializing LLM: %w", err)
	}

	return rag.NewRAG(store, generator, cfg), store.close, nil
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation about the policy document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// SIGINT keeps its default behaviour here: a pending stdin read
			// cannot observe a cancelled context.
			ctx := cmd.Context()

			r, closeStore, err := newPipeline(ctx, cfg)
			if errors.Is(err, config.ErrConfigurationMissing) {
				log.Fatal().Err(err).Msg("Cannot start chat")
			}
			if err != nil {
				return err
			}
			defer closeStore()

			window := memory.NewWindow(cfg.RAG.MaxHistory)
			return chat.NewSession(r, window, os.Stdin, os.Stdout).Run(ctx)
		},
	}
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and exit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			r, closeStore, err := newPipeline(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			query := strings.Join(args, " ")
			response, err := r.Query(ctx, memory.NewWindow(cfg.RAG.MaxHistory), query)
			if err != nil {
				return err
			}

			log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
			fmt.Printf("%s\n\n", query)

			log.Info().Msg("Source: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
			fmt.Printf("%s\n\n", response.Source)

			log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
			fmt.Printf("%s\n\n", response.Content)
			return nil
		},
	}
}
