package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCitation(t *testing.T) {
	assert.Equal(t, "\n\n**Sources:** pto.md", Citation("pto.md"))
	assert.Equal(t, "\n\n**Sources:** a.md; b.md", Citation("a.md", "b.md"))
}

func TestSplitSources(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		text    string
		sources []string
	}{
		{
			name:    "single source",
			raw:     "PTO accrues monthly.\n\n**Sources:** policies/Policy Document 1.pdf",
			text:    "PTO accrues monthly.",
			sources: []string{"policies/Policy Document 1.pdf"},
		},
		{
			name:    "multiple sources",
			raw:     "Answer.\n\n**Sources:** a.md; b.md;  ; c.md",
			text:    "Answer.",
			sources: []string{"a.md", "b.md", "c.md"},
		},
		{
			name: "no footer",
			raw:  "  " + RefusalMessage + " ",
			text: RefusalMessage,
		},
		{
			name: "empty footer",
			raw:  "Answer.\n\n**Sources:** ",
			text: "Answer.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, sources := SplitSources(tt.raw)
			assert.Equal(t, tt.text, text)
			assert.Equal(t, tt.sources, sources)
		})
	}

	t.Run("round trip with Citation", func(t *testing.T) {
		text, sources := SplitSources("Body" + Citation("x.md", "y.md"))
		assert.Equal(t, "Body", text)
		assert.Equal(t, []string{"x.md", "y.md"}, sources)
	})
}
