// Package chat runs the interactive question loop over the policy document.
package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"policy-rag/internal/helper"
	"policy-rag/internal/memory"
	"policy-rag/internal/models"
)

const (
	rule           = "------------------------------------------------------------"
	answerPreview  = 100
	questionPrompt = "\nYour question: "
	// maxLineBytes bounds one input line; longer lines are rejected and skipped
	maxLineBytes = 1 << 20
)

var errLineTooLong = errors.New("input line too long")

const helpText = `
FINANCIAL POLICY CHATBOT HELP

This chatbot answers questions about the financial policy document.

EXAMPLE QUESTIONS:
  - What is the total budget for this year?
  - What are the main debt obligations?
  - How much is allocated for infrastructure?
  - What about education funding?

COMMANDS:
  help             Show this help message
  history          Show recent conversation
  reset            Forget the conversation so far
  export <file>    Save the conversation as an HTML transcript
  exit, quit, bye  End the conversation
`

// Asker answers one question using and updating the session's window
type Asker interface {
	Query(ctx context.Context, window *memory.Window, question string) (*models.PromptResponse, error)
}

// Session is one user's conversation. It owns its window; sessions never
// share one.
type Session struct {
	asker  Asker
	window *memory.Window
	in     *bufio.Reader
	out    io.Writer
	logger zerolog.Logger
}

func NewSession(asker Asker, window *memory.Window, in io.Reader, out io.Writer) *Session {
	id, err := helper.GenerateUUID()
	if err != nil {
		id = "unknown"
	}
	return &Session{
		asker:  asker,
		window: window,
		in:     bufio.NewReaderSize(in, maxLineBytes),
		out:    out,
		logger: log.With().Str("session", id).Logger(),
	}
}

// Run reads questions until exit, end of input or ctx is done
func (s *Session) Run(ctx context.Context) error {
	s.printf("\n%s\nFINANCIAL POLICY CHATBOT\n%s\n", strings.Repeat("=", len(rule)), strings.Repeat("=", len(rule)))
	s.printf("Ask me anything about the financial policy document!\n")
	s.printf("Type 'help' for guidance, 'history' for recent chat, or 'exit' to quit.\n%s\n", rule)

	for {
		if ctx.Err() != nil {
			s.printf("\nGoodbye!\n")
			return nil
		}
		s.printf(questionPrompt)
		line, err := s.readLine()
		if errors.Is(err, errLineTooLong) {
			s.printf("\nError: question is longer than %d bytes\n", maxLineBytes)
			continue
		}
		if err != nil {
			s.printf("\nGoodbye!\n")
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if quit := s.Handle(ctx, line); quit {
			return nil
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// maxLineBytes is consumed and reported as errLineTooLong.
func (s *Session) readLine() (string, error) {
	line, isPrefix, err := s.in.ReadLine()
	if err != nil {
		return "", err
	}
	if !isPrefix {
		return string(line), nil
	}
	for isPrefix && err == nil {
		_, isPrefix, err = s.in.ReadLine()
	}
	return "", errLineTooLong
}

// Handle processes one input line and reports whether the session should end
func (s *Session) Handle(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	cmd, arg, _ := strings.Cut(input, " ")
	switch strings.ToLower(cmd) {
	case "exit", "quit", "bye":
		if arg == "" {
			s.printf("\nThank you for using the Financial Policy Chatbot!\n")
			return true
		}
	case "help":
		if arg == "" {
			s.printf("%s", helpText)
			return false
		}
	case "history":
		if arg == "" {
			s.showHistory()
			return false
		}
	case "reset", "clear":
		if arg == "" {
			s.window.Clear()
			s.printf("Conversation history cleared.\n")
			return false
		}
	case "export":
		s.export(strings.TrimSpace(arg))
		return false
	}

	s.ask(ctx, input)
	return false
}

func (s *Session) ask(ctx context.Context, question string) {
	s.printf("\nSearching policy document...\n")
	resp, err := s.asker.Query(ctx, s.window, question)
	if err != nil {
		s.logger.Debug().Err(err).Str("question", question).Msg("Turn failed")
		s.printf("\nError: %v\n", err)
		return
	}
	s.logger.Debug().Str("question", question).Str("source", resp.Source).Int("turns", s.window.Len()).Msg("Answered")

	s.printf("\nResponse:\n%s\n\nSources: %s\n%s\n", resp.Content, resp.Source, rule)
}

func (s *Session) showHistory() {
	turns := s.window.All()
	if len(turns) == 0 {
		s.printf("No conversation history yet.\n")
		return
	}

	s.printf("\nRECENT CONVERSATION HISTORY:\n%s\n", strings.Repeat("=", 50))
	for i, t := range turns {
		s.printf("\n%d. User: %s\n", i+1, t.Question)
		s.printf("   Bot: %s\n", truncate(t.Answer, answerPreview))
	}
	s.printf("%s\n", strings.Repeat("=", 50))
}

func (s *Session) export(path string) {
	if path == "" {
		s.printf("Usage: export <file.html>\n")
		return
	}
	if err := ExportHTML(s.window.All(), path); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("Export failed")
		s.printf("Error: %v\n", err)
		return
	}
	s.printf("Conversation exported to %s\n", path)
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
