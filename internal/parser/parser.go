package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/textsplitter"

	"policy-rag/internal/config"
	"policy-rag/internal/footer"
	"policy-rag/internal/models"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// Parser turns the policy PDF into chunks labelled with page numbers
type Parser struct {
	pageOffset int
	extractor  *footer.Extractor
	splitter   textsplitter.TextSplitter
}

// New builds a parser from the RAG section of the config. A nil config uses
// the default chunking and the Budget Paper footer.
func New(cfg *config.RAGConfig) (*Parser, error) {
	if cfg == nil {
		cfg = &config.RAGConfig{}
	}
	chunkSize, chunkOverlap := cfg.ChunkSize, cfg.ChunkOverlap
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap <= 0 || chunkOverlap >= chunkSize {
		chunkOverlap = min(defaultChunkOverlap, chunkSize/2)
	}

	patterns := cfg.FooterPatterns
	if len(patterns) == 0 {
		patterns = models.FooterPatterns
	}
	opts := []footer.Option{footer.WithMaxPage(cfg.MaxPage)}
	if cfg.TailWindow != nil {
		opts = append(opts, footer.WithTailWindow(*cfg.TailWindow))
	}
	extractor, err := footer.New(patterns, opts...)
	if err != nil {
		return nil, err
	}

	return &Parser{
		pageOffset: cfg.PageOffset,
		extractor:  extractor,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(chunkSize),
			textsplitter.WithChunkOverlap(chunkOverlap),
		),
	}, nil
}

// ParsePDF reads the plain text of every page and chunks it
func (p *Parser) ParsePDF(filePath string) ([]models.Chunk, error) {
	if ext := strings.ToLower(filepath.Ext(filePath)); ext != ".pdf" {
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("reading pdf %s: %w", filePath, err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("reading text of page %d: %w", i, err)
		}
		pages = append(pages, pageText)
	}
	log.Info().Int("pages", numPages).Str("file", filePath).Msg("Loaded policy document")

	return p.ChunkPages(pages)
}

// ChunkPages splits each page and labels its chunks with the page number
// recovered from that page's footer. pages[0] is physical page 1.
func (p *Parser) ChunkPages(pages []string) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for i, text := range pages {
		physical := i + 1
		if strings.TrimSpace(text) == "" {
			continue
		}

		res := p.extractor.Extract(text, physical+p.pageOffset)
		if res.Method == models.MethodFooter {
			log.Debug().Int("physical_page", physical).Int("page", res.PageNumber).Msg("Found page number in footer")
		} else {
			log.Debug().Int("physical_page", physical).Int("page", res.PageNumber).Msg("No usable footer, using PDF page index")
		}

		parts, err := p.splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("splitting page %d: %w", physical, err)
		}
		for _, part := range parts {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			chunks = append(chunks, models.Chunk{
				Content:      part,
				PageNumber:   res.PageNumber,
				PhysicalPage: physical,
				Method:       res.Method,
				ChunkID:      len(chunks),
			})
		}
	}
	return chunks, nil
}
