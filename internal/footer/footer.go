// Package footer recovers a document's printed page number from the footer
// text of a PDF page.
package footer

import (
	"fmt"
	"regexp"
	"strconv"

	"policy-rag/internal/models"
)

const (
	DefaultTailWindow = 400
	DefaultMaxPage    = 2000
)

// Result is the page number chosen for one physical page
type Result struct {
	PageNumber int
	Method     models.ExtractionMethod
}

// Extractor holds compiled footer patterns. It has no mutable state and is
// safe to share.
type Extractor struct {
	patterns   []*regexp.Regexp
	tailWindow int
	maxPage    int
}

type Option func(*Extractor)

// WithTailWindow limits the search to the last n characters of the page.
// Zero searches the whole page.
func WithTailWindow(n int) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.tailWindow = n
		}
	}
}

// WithMaxPage sets the largest page number accepted from a footer
func WithMaxPage(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxPage = n
		}
	}
}

// New compiles the footer patterns. Each pattern must have exactly one
// capture group holding the page number.
func New(patterns []string, opts ...Option) (*Extractor, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("at least one footer pattern is required")
	}

	e := &Extractor{
		tailWindow: DefaultTailWindow,
		maxPage:    DefaultMaxPage,
	}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid footer pattern %q: %w", p, err)
		}
		if re.NumSubexp() != 1 {
			return nil, fmt.Errorf("footer pattern %q must have exactly one capture group, has %d", p, re.NumSubexp())
		}
		e.patterns = append(e.patterns, re)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Default returns an extractor for the Budget Paper footer
func Default() *Extractor {
	e, err := New(models.FooterPatterns)
	if err != nil {
		panic(err)
	}
	return e
}

// Extract returns the printed page number when the footer yields exactly one
// plausible candidate, and falls back to physicalIndex otherwise.
func (e *Extractor) Extract(pageText string, physicalIndex int) Result {
	fallback := Result{PageNumber: physicalIndex, Method: models.MethodPDFMetadata}

	tail := tailOf(pageText, e.tailWindow)
	for _, re := range e.patterns {
		matches := re.FindAllStringSubmatch(tail, -1)
		if len(matches) == 0 {
			continue
		}

		// first pattern that matches decides
		page, ok := e.singleCandidate(matches)
		if !ok {
			return fallback
		}
		return Result{PageNumber: page, Method: models.MethodFooter}
	}
	return fallback
}

func (e *Extractor) singleCandidate(matches [][]string) (int, bool) {
	seen := make(map[int]struct{})
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > e.maxPage {
			return 0, false
		}
		seen[n] = struct{}{}
	}
	if len(seen) != 1 {
		return 0, false
	}
	for n := range seen {
		return n, true
	}
	return 0, false
}

// tailOf returns the last n runes of s
func tailOf(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
