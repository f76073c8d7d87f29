package chat

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-rag/internal/memory"
	"policy-rag/internal/models"
)

// fakeAsker mimics the turn pipeline: it appends only on success
type fakeAsker struct {
	err       error
	questions []string
}

func (f *fakeAsker) Query(ctx context.Context, window *memory.Window, question string) (*models.PromptResponse, error) {
	f.questions = append(f.questions, question)
	if f.err != nil {
		return nil, f.err
	}
	answer := "Answer to " + question
	window.Append(question, answer)
	return &models.PromptResponse{Query: question, Content: answer, Source: "Page 8 (footer)"}, nil
}

func run(t *testing.T, asker Asker, window *memory.Window, input string) string {
	t.Helper()
	var out bytes.Buffer
	s := NewSession(asker, window, strings.NewReader(input), &out)
	require.NoError(t, s.Run(context.Background()))
	return out.String()
}

func TestRun_QuestionsAndExit(t *testing.T) {
	asker := &fakeAsker{}
	window := memory.NewWindow(10)

	out := run(t, asker, window, "What's the infrastructure budget?\n\nWhat about education?\nexit\nnever asked\n")

	assert.Equal(t, []string{"What's the infrastructure budget?", "What about education?"}, asker.questions)
	assert.Equal(t, 2, window.Len())
	assert.Contains(t, out, "Response:\nAnswer to What's the infrastructure budget?")
	assert.Contains(t, out, "Sources: Page 8 (footer)")
	assert.Contains(t, out, "Thank you for using the Financial Policy Chatbot!")
}

func TestRun_EndOfInput(t *testing.T) {
	out := run(t, &fakeAsker{}, memory.NewWindow(10), "")
	assert.Contains(t, out, "Goodbye!")
}

func TestRun_CancelledContext(t *testing.T) {
	asker := &fakeAsker{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	s := NewSession(asker, memory.NewWindow(10), strings.NewReader("question\n"), &out)
	require.NoError(t, s.Run(ctx))
	assert.Empty(t, asker.questions)
}

func TestRun_LongQuestions(t *testing.T) {
	asker := &fakeAsker{}
	long := strings.Repeat("a", 100*1024)
	tooLong := strings.Repeat("b", maxLineBytes+10)

	out := run(t, asker, memory.NewWindow(10), long+"\n"+tooLong+"\nWhat about education?\r\nquit\n")

	assert.Equal(t, []string{long, "What about education?"}, asker.questions)
	assert.Contains(t, out, "Error: question is longer than")
	assert.Contains(t, out, "Thank you for using the Financial Policy Chatbot!")
}

func TestRun_LastLineWithoutNewline(t *testing.T) {
	asker := &fakeAsker{}
	out := run(t, asker, memory.NewWindow(10), "What about debt?")

	assert.Equal(t, []string{"What about debt?"}, asker.questions)
	assert.Contains(t, out, "Goodbye!")
}

func TestHandle_ExitAliases(t *testing.T) {
	for _, cmd := range []string{"exit", "quit", "bye", "  QUIT  "} {
		s := NewSession(&fakeAsker{}, memory.NewWindow(10), strings.NewReader(""), &bytes.Buffer{})
		assert.True(t, s.Handle(context.Background(), cmd), cmd)
	}
}

func TestHandle_FailureKeepsWindowAndContinues(t *testing.T) {
	asker := &fakeAsker{err: errors.New("generation failed: rate limited")}
	window := memory.NewWindow(10)
	window.Append("earlier", "answer")

	out := run(t, asker, window, "What about debt?\nhistory\nquit\n")

	assert.Contains(t, out, "Error: generation failed: rate limited")
	assert.Equal(t, 1, window.Len())
	assert.Contains(t, out, "1. User: earlier")
}

func TestHandle_Help(t *testing.T) {
	asker := &fakeAsker{}
	out := run(t, asker, memory.NewWindow(10), "help\nHELP\nquit\n")

	assert.Equal(t, 2, strings.Count(out, "FINANCIAL POLICY CHATBOT HELP"))
	assert.Empty(t, asker.questions)
}

func TestHandle_CommandWordsInQuestions(t *testing.T) {
	asker := &fakeAsker{}
	run(t, asker, memory.NewWindow(10), "help me understand net debt\nhistory of capital spending?\nquit\n")

	assert.Equal(t, []string{"help me understand net debt", "history of capital spending?"}, asker.questions)
}

func TestHandle_History(t *testing.T) {
	window := memory.NewWindow(10)
	out := run(t, &fakeAsker{}, window, "history\nquit\n")
	assert.Contains(t, out, "No conversation history yet.")

	window.Append("What's the infrastructure budget?", strings.Repeat("x", 150))
	out = run(t, &fakeAsker{}, window, "history\nquit\n")
	assert.Contains(t, out, "1. User: What's the infrastructure budget?")
	assert.Contains(t, out, "   Bot: "+strings.Repeat("x", 100)+"...")
}

func TestHandle_Reset(t *testing.T) {
	window := memory.NewWindow(10)
	window.Append("q", "a")

	out := run(t, &fakeAsker{}, window, "reset\nquit\n")
	assert.Contains(t, out, "Conversation history cleared.")
	assert.Equal(t, 0, window.Len())
}

func TestHandle_Export(t *testing.T) {
	window := memory.NewWindow(10)
	window.Append("What's the infrastructure budget?", "**$2.1 billion** (page 8)")
	path := filepath.Join(t.TempDir(), "chat.html")

	out := run(t, &fakeAsker{}, window, "export "+path+"\nexport\nquit\n")
	assert.Contains(t, out, "Conversation exported to "+path)
	assert.Contains(t, out, "Usage: export <file.html>")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<strong>$2.1 billion</strong>")
	assert.Contains(t, string(data), "What's the infrastructure budget?")
}

func TestTranscript(t *testing.T) {
	assert.Contains(t, Transcript(nil), "_No conversation yet._")

	md := Transcript([]memory.Turn{{Question: "q1", Answer: "a1"}, {Question: "q2", Answer: "a2"}})
	assert.Contains(t, md, "## 1. q1\n\na1\n")
	assert.Contains(t, md, "## 2. q2\n\na2\n")
}

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML("# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<table>")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, "éé...", truncate("ééé", 2))
}
