package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/poiesic/policyqa/ai/mock"
	"github.com/poiesic/policyqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewComposer_RequiresGenerator(t *testing.T) {
	_, err := NewComposer(nil, nil)
	assert.ErrorIs(t, err, ErrGeneratorRequired)
}

func TestComposer_Prompt(t *testing.T) {
	c, err := NewComposer(mock.NewMockGenerator("x"), nil)
	require.NoError(t, err)

	t.Run("long context uses answer template", func(t *testing.T) {
		passage := strings.Repeat("a", 101)
		prompt, err := c.Prompt("Q?", passage, 500)
		require.NoError(t, err)

		assert.Contains(t, prompt, "Do not use outside knowledge.")
		assert.NotContains(t, prompt, GuardrailRefusal)
		assert.Contains(t, prompt, "Limit your output length to 500 tokens.")
		assert.Contains(t, prompt, "--- CONTEXT ---\n"+passage+"\n---")
		assert.Contains(t, prompt, "--- QUESTION ---\nQ?\n")
	})

	t.Run("context at threshold uses guardrail template", func(t *testing.T) {
		prompt, err := c.Prompt("Q?", strings.Repeat("a", 100), 500)
		require.NoError(t, err)

		assert.Contains(t, prompt, `you MUST respond with "`+GuardrailRefusal+`"`)
		assert.NotContains(t, prompt, "Do not use outside knowledge.")
	})

	t.Run("empty context uses guardrail template", func(t *testing.T) {
		prompt, err := c.Prompt("Q?", "", 250)
		require.NoError(t, err)

		assert.Contains(t, prompt, GuardrailRefusal)
		assert.Contains(t, prompt, "Limit your output length to 250 tokens.")
	})

	t.Run("threshold counts characters not bytes", func(t *testing.T) {
		prompt, err := c.Prompt("Q?", strings.Repeat("é", 100), 500)
		require.NoError(t, err)
		assert.Contains(t, prompt, GuardrailRefusal)
	})

	t.Run("passage text is not escaped", func(t *testing.T) {
		prompt, err := c.Prompt("Is <b> & \"quoted\" ok?", "", 500)
		require.NoError(t, err)
		assert.Contains(t, prompt, "Is <b> & \"quoted\" ok?")
	})
}

func TestComposer_Compose(t *testing.T) {
	ctx := context.Background()
	sel := core.Selection{
		Candidate: core.Candidate{Content: "PTO accrues at 1.5 days per month.", SourceID: "pto.md"},
		SourceID:  "pto.md",
	}

	t.Run("appends citation footer", func(t *testing.T) {
		gen := mock.NewMockGenerator("You accrue 1.5 days per month.")
		c, err := NewComposer(gen, nil)
		require.NoError(t, err)

		got, err := c.Compose(ctx, "How much PTO?", sel, 500)
		require.NoError(t, err)
		assert.Equal(t, "You accrue 1.5 days per month.\n\n**Sources:** pto.md", got)
		assert.Equal(t, 1, gen.CallCount())
		assert.Contains(t, gen.LastPrompt(), sel.Candidate.Content)
	})

	t.Run("generation failure is a dependency error", func(t *testing.T) {
		boom := errors.New("model offline")
		gen := mock.NewMockGenerator("")
		gen.GenerateFunc = func(context.Context, string) (string, error) { return "", boom }
		c, err := NewComposer(gen, nil)
		require.NoError(t, err)

		_, err = c.Compose(ctx, "How much PTO?", sel, 500)
		assert.ErrorIs(t, err, ErrDependencyUnavailable)
		assert.ErrorIs(t, err, ErrGenerationFailed)
		assert.ErrorIs(t, err, boom)
	})
}
