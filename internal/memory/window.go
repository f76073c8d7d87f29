// Package memory keeps the short conversation history of one chat session.
package memory

const (
	DefaultMaxLen = 10
	DefaultRecent = 5
)

// Turn is one question and the answer given to it
type Turn struct {
	Question string
	Answer   string
}

// Window is a bounded FIFO of turns. The oldest turn is evicted first.
// A Window belongs to a single session and is not safe for concurrent use.
type Window struct {
	turns  []Turn
	maxLen int
}

// NewWindow creates an empty window holding at most maxLen turns
func NewWindow(maxLen int) *Window {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &Window{
		turns:  make([]Turn, 0, maxLen),
		maxLen: maxLen,
	}
}

// Append adds a turn at the tail and trims the head to MaxLen
func (w *Window) Append(question, answer string) {
	w.turns = append(w.turns, Turn{Question: question, Answer: answer})
	if over := len(w.turns) - w.maxLen; over > 0 {
		// shift down so the backing array stays bounded
		n := copy(w.turns, w.turns[over:])
		clear(w.turns[n:])
		w.turns = w.turns[:n]
	}
}

// Recent returns the last k turns, oldest first
func (w *Window) Recent(k int) []Turn {
	if k <= 0 {
		return []Turn{}
	}
	if k > len(w.turns) {
		k = len(w.turns)
	}
	out := make([]Turn, k)
	copy(out, w.turns[len(w.turns)-k:])
	return out
}

// All returns every retained turn, oldest first
func (w *Window) All() []Turn {
	return w.Recent(len(w.turns))
}

func (w *Window) Clear() {
	clear(w.turns)
	w.turns = w.turns[:0]
}

func (w *Window) Len() int {
	return len(w.turns)
}

func (w *Window) MaxLen() int {
	return w.maxLen
}
