// Package prompt renders the text sent to the language model for one turn.
package prompt

import (
	"fmt"
	"strings"

	"policy-rag/internal/memory"
	"policy-rag/internal/models"
)

const DefaultInstructions = `You are a helpful financial policy assistant. You answer questions about financial policies, budgets, debt, infrastructure, and related topics based on the provided financial policy document.

IMPORTANT GUIDELINES:
1. Only use information from the provided document excerpts below
2. Do not use your general knowledge about finance or policies
3. If the information is not in the provided excerpts, say "I don't have that information in the policy document"
4. Reference page numbers when available
5. Consider the conversation history to provide contextual responses
6. Be precise and cite specific sections when possible`

const (
	HistoryHeader  = "Recent conversation history:"
	DocumentHeader = "Relevant information from the financial policy document:"
	NoContent      = "No relevant content was found in the policy document for this question."
	closing        = "Please provide a clear, helpful answer based on the financial policy document provided above."
)

// Context is everything the model sees for one turn
type Context struct {
	Instructions string
	History      []memory.Turn
	Chunks       []models.DocumentChunk
	Question     string
}

// Render lays out instructions, history, excerpts and the question in that
// order. The output depends only on c.
func Render(c Context) string {
	var sb strings.Builder

	sb.WriteString(strings.TrimSpace(c.Instructions))
	sb.WriteString("\n\n")

	if len(c.History) > 0 {
		sb.WriteString(HistoryHeader + "\n")
		for i, t := range c.History {
			fmt.Fprintf(&sb, "%d. User: %s\n", i+1, t.Question)
			fmt.Fprintf(&sb, "   Assistant: %s\n", t.Answer)
		}
		sb.WriteString("\n")
	}

	sb.WriteString(DocumentHeader + "\n")
	if len(c.Chunks) == 0 {
		sb.WriteString(NoContent + "\n")
	}
	for i, ch := range c.Chunks {
		fmt.Fprintf(&sb, "\n--- Excerpt %d (%s) ---\n%s\n", i+1, Citation(ch), strings.TrimSpace(ch.Text))
	}

	fmt.Fprintf(&sb, "\nCurrent question: %s\n\n%s\n", c.Question, closing)
	return sb.String()
}

// Citation labels a chunk with its page and how that page was found
func Citation(ch models.DocumentChunk) string {
	page := "unknown"
	if ch.PageNumber != nil {
		page = fmt.Sprintf("%d", *ch.PageNumber)
	}
	switch ch.Method {
	case models.MethodFooter:
		return fmt.Sprintf("Page %s, printed page from footer", page)
	case models.MethodPDFMetadata:
		return fmt.Sprintf("Page %s, PDF page index", page)
	default:
		return fmt.Sprintf("Page %s", page)
	}
}

// Sources lists the distinct cited pages in retrieval order, e.g.
// "Page 9 (footer), Page 7 (pdf_metadata)".
func Sources(chunks []models.DocumentChunk) string {
	var parts []string
	seen := make(map[string]bool)
	for _, ch := range chunks {
		if ch.PageNumber == nil {
			continue
		}
		s := fmt.Sprintf("Page %d", *ch.PageNumber)
		if ch.Method != "" {
			s += fmt.Sprintf(" (%s)", ch.Method)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
