package chat

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"policy-rag/internal/memory"
)

// Transcript renders the turns as markdown. Answers are model output and are
// usually markdown already.
func Transcript(turns []memory.Turn) string {
	var sb strings.Builder
	sb.WriteString("# Financial Policy Chatbot transcript\n")
	if len(turns) == 0 {
		sb.WriteString("\n_No conversation yet._\n")
	}
	for i, t := range turns {
		fmt.Fprintf(&sb, "\n## %d. %s\n\n%s\n", i+1, strings.TrimSpace(t.Question), strings.TrimSpace(t.Answer))
	}
	return sb.String()
}

// RenderHTML converts markdown to an HTML fragment
func RenderHTML(markdown string) (string, error) {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExportHTML writes the transcript to path as a standalone HTML page
func ExportHTML(turns []memory.Turn, path string) error {
	body, err := RenderHTML(Transcript(turns))
	if err != nil {
		return fmt.Errorf("rendering transcript: %w", err)
	}
	page := "<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"><title>Financial Policy Chatbot transcript</title></head>\n<body>\n" +
		body + "</body>\n</html>\n"
	if err := os.WriteFile(path, []byte(page), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
