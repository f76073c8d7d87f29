package footer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"policy-rag/internal/models"
)

const body = "Net debt is projected to fall over the forward estimates as the " +
	"capital program is funded from operating surpluses.\n"

func TestExtract(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		index      int
		wantPage   int
		wantMethod models.ExtractionMethod
	}{
		{
			name:       "full footer",
			text:       body + "2005-06 Budget Paper No. 3  9  Financial Policy",
			index:      4,
			wantPage:   9,
			wantMethod: models.MethodFooter,
		},
		{
			name:       "footer without fiscal year",
			text:       body + "Budget Paper No. 3 12 Financial Policy Statement",
			index:      7,
			wantPage:   12,
			wantMethod: models.MethodFooter,
		},
		{
			name:       "lower case footer",
			text:       body + "2005-06 budget paper no. 3 15 financial policy",
			index:      1,
			wantPage:   15,
			wantMethod: models.MethodFooter,
		},
		{
			name:       "repeated footer with same number",
			text:       "Budget Paper No. 3 9 Financial Policy\n" + body + "Budget Paper No. 3 9 Financial Policy",
			index:      2,
			wantPage:   9,
			wantMethod: models.MethodFooter,
		},
		{
			name:       "no footer",
			text:       body,
			index:      3,
			wantPage:   3,
			wantMethod: models.MethodPDFMetadata,
		},
		{
			name:       "empty page",
			text:       "",
			index:      1,
			wantPage:   1,
			wantMethod: models.MethodPDFMetadata,
		},
		{
			name:       "two different candidates",
			text:       "Budget Paper No. 3 9 Financial Policy\nBudget Paper No. 3 10 Financial Policy",
			index:      5,
			wantPage:   5,
			wantMethod: models.MethodPDFMetadata,
		},
		{
			name:       "zero page number",
			text:       body + "Budget Paper No. 3 0 Financial Policy",
			index:      6,
			wantPage:   6,
			wantMethod: models.MethodPDFMetadata,
		},
		{
			name:       "footer without printed page",
			text:       body + "2005-06 Budget Paper No. 3 Financial Policy Statement",
			index:      6,
			wantPage:   6,
			wantMethod: models.MethodPDFMetadata,
		},
		{
			name:       "footer without fiscal year or printed page",
			text:       body + "Budget Paper No. 3 Financial Policy Statement",
			index:      11,
			wantPage:   11,
			wantMethod: models.MethodPDFMetadata,
		},
		{
			name:       "absurdly large page number",
			text:       body + "Budget Paper No. 3 99999 Financial Policy",
			index:      6,
			wantPage:   6,
			wantMethod: models.MethodPDFMetadata,
		},
		{
			name:       "page number overflows int",
			text:       body + "Budget Paper No. 3 999999999999999999999999 Financial Policy",
			index:      8,
			wantPage:   8,
			wantMethod: models.MethodPDFMetadata,
		},
	}

	e := Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text, tt.index)
			assert.Equal(t, tt.wantPage, got.PageNumber)
			assert.Equal(t, tt.wantMethod, got.Method)
		})
	}
}

func TestExtract_Deterministic(t *testing.T) {
	e := Default()
	text := body + "2005-06 Budget Paper No. 3  9  Financial Policy"

	first := e.Extract(text, 4)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Extract(text, 4))
	}

	miss := e.Extract(body, 4)
	assert.Equal(t, miss, e.Extract(body, 4))
}

func TestExtract_TailWindow(t *testing.T) {
	text := "2005-06 Budget Paper No. 3 9 Financial Policy\n" + strings.Repeat("x", 1000)

	got := Default().Extract(text, 2)
	assert.Equal(t, Result{PageNumber: 2, Method: models.MethodPDFMetadata}, got)

	whole, err := New(models.FooterPatterns, WithTailWindow(0))
	require.NoError(t, err)
	got = whole.Extract(text, 2)
	assert.Equal(t, Result{PageNumber: 9, Method: models.MethodFooter}, got)
}

func TestExtract_MaxPage(t *testing.T) {
	e, err := New(models.FooterPatterns, WithMaxPage(50))
	require.NoError(t, err)

	got := e.Extract(body+"Budget Paper No. 3 51 Financial Policy", 3)
	assert.Equal(t, models.MethodPDFMetadata, got.Method)

	got = e.Extract(body+"Budget Paper No. 3 50 Financial Policy", 3)
	assert.Equal(t, Result{PageNumber: 50, Method: models.MethodFooter}, got)
}

func TestExtract_CustomPattern(t *testing.T) {
	e, err := New([]string{`Page\s+(\w+)\s+of\s+\d+\s*$`})
	require.NoError(t, err)

	got := e.Extract(body+"Page 14 of 40", 10)
	assert.Equal(t, Result{PageNumber: 14, Method: models.MethodFooter}, got)

	// roman numerals are not page numbers we can cite
	got = e.Extract(body+"Page ix of 40", 10)
	assert.Equal(t, Result{PageNumber: 10, Method: models.MethodPDFMetadata}, got)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New([]string{`Budget (`})
	assert.Error(t, err)

	_, err = New([]string{`Budget Paper \d+`})
	assert.ErrorContains(t, err, "exactly one capture group")

	_, err = New([]string{`(Budget) Paper (\d+)`})
	assert.ErrorContains(t, err, "exactly one capture group")
}

func TestTailOf(t *testing.T) {
	assert.Equal(t, "abc", tailOf("abc", 0))
	assert.Equal(t, "abc", tailOf("abc", 5))
	assert.Equal(t, "bc", tailOf("abc", 2))
	assert.Equal(t, "éü", tailOf("aéü", 2))
}
