package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turn(i int) Turn {
	return Turn{Question: fmt.Sprintf("q%d", i), Answer: fmt.Sprintf("a%d", i)}
}

func fill(w *Window, n int) {
	for i := 1; i <= n; i++ {
		t := turn(i)
		w.Append(t.Question, t.Answer)
	}
}

func TestNewWindow_Defaults(t *testing.T) {
	w := NewWindow(0)
	assert.Equal(t, DefaultMaxLen, w.MaxLen())
	assert.Equal(t, 0, w.Len())

	w = NewWindow(-3)
	assert.Equal(t, DefaultMaxLen, w.MaxLen())

	w = NewWindow(4)
	assert.Equal(t, 4, w.MaxLen())
}

func TestWindow_AppendNeverExceedsMaxLen(t *testing.T) {
	w := NewWindow(3)
	for i := 1; i <= 20; i++ {
		w.Append(turn(i).Question, turn(i).Answer)
		require.LessOrEqual(t, w.Len(), 3)

		// retained turns are exactly the last min(i, 3) appended, in order
		want := make([]Turn, 0, 3)
		for j := max(1, i-2); j <= i; j++ {
			want = append(want, turn(j))
		}
		require.Equal(t, want, w.All())
	}
}

func TestWindow_Recent(t *testing.T) {
	w := NewWindow(10)
	fill(w, 7)

	assert.Equal(t, []Turn{turn(3), turn(4), turn(5), turn(6), turn(7)}, w.Recent(5))
	assert.Equal(t, []Turn{turn(7)}, w.Recent(1))
	assert.Len(t, w.Recent(7), 7)
}

func TestWindow_RecentLargerThanLen(t *testing.T) {
	w := NewWindow(10)
	fill(w, 2)

	assert.Equal(t, []Turn{turn(1), turn(2)}, w.Recent(5))
}

func TestWindow_RecentZeroAndNegative(t *testing.T) {
	w := NewWindow(10)
	fill(w, 3)

	assert.Empty(t, w.Recent(0))
	assert.NotNil(t, w.Recent(0))
	assert.Empty(t, w.Recent(-1))
}

func TestWindow_RecentIsACopy(t *testing.T) {
	w := NewWindow(10)
	fill(w, 2)

	got := w.Recent(2)
	got[0].Answer = "changed"

	assert.Equal(t, "a1", w.Recent(2)[0].Answer)
	assert.Equal(t, 2, w.Len())
}

func TestWindow_Clear(t *testing.T) {
	w := NewWindow(3)
	fill(w, 5)

	w.Clear()
	assert.Equal(t, 0, w.Len())
	assert.Empty(t, w.Recent(5))

	w.Append("again", "yes")
	assert.Equal(t, []Turn{{Question: "again", Answer: "yes"}}, w.All())
}

func TestWindow_EmptyRecent(t *testing.T) {
	w := NewWindow(10)
	assert.Empty(t, w.Recent(DefaultRecent))
}
