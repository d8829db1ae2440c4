package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	completion string
	err        error
	prompt     string
	jsonMode   bool
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}
	f.jsonMode = opts.JSONMode
	for _, m := range messages {
		for _, p := range m.Parts {
			if text, ok := p.(llms.TextContent); ok {
				f.prompt += text.Text
			}
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.completion}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestSuggestDecodesCompletion(t *testing.T) {
	t.Parallel()

	model := &fakeModel{completion: `{
		"executive_summary": "Add depth.",
		"suggested_title": "Handmade Leather Boots | Example",
		"suggested_description": "Shop boots.",
		"content_gap": ["sizing guide", "care tips"]
	}`}
	g := New(model, 0, nil)

	got := g.Suggest(context.Background(), Input{
		Keyword:     "leather boots",
		PageText:    strings.Repeat("a", 3000),
		Competitors: []string{"https://c1.com", "https://c2.com"},
	})

	require.Empty(t, got.Error)
	require.Equal(t, "Add depth.", got.ExecutiveSummary)
	require.Equal(t, "Handmade Leather Boots | Example", got.SuggestedTitle)
	require.Equal(t, "Shop boots.", got.SuggestedDescription)
	require.Equal(t, []string{"sizing guide", "care tips"}, got.ContentGap)

	require.True(t, model.jsonMode)
	require.Contains(t, model.prompt, `"leather boots"`)
	require.Contains(t, model.prompt, "https://c1.com, https://c2.com")
	require.Contains(t, model.prompt, strings.Repeat("a", MaxContentChars)+`"`)
	require.NotContains(t, model.prompt, strings.Repeat("a", MaxContentChars+1))
	require.Contains(t, model.prompt, "first 2000 characters")
	for _, placeholder := range []string{"{keyword}", "{max_chars}", "{content}", "{competitors}"} {
		require.NotContains(t, model.prompt, placeholder)
	}
}

func TestSuggestNotConfigured(t *testing.T) {
	t.Parallel()

	g, err := NewOpenAI(Config{}, nil)
	require.NoError(t, err)
	require.False(t, g.Configured())
	require.Equal(t, Suggestions{Error: ErrMsgNotConfigured}, g.Suggest(context.Background(), Input{Keyword: "x"}))

	var nilGen *Generator
	require.False(t, nilGen.Configured())
}

func TestSuggestFailuresBecomeErrorBlock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		model *fakeModel
	}{
		{name: "model error", model: &fakeModel{err: errors.New("429 rate limited")}},
		{name: "not json", model: &fakeModel{completion: "Sure! Here are some ideas"}},
		{name: "unexpected keys", model: &fakeModel{completion: `{"resumen": "hola"}`}},
		{name: "bad content gap", model: &fakeModel{completion: `{"executive_summary":"x","content_gap":42}`}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := New(tc.model, 0, nil).Suggest(context.Background(), Input{Keyword: "k"})
			require.Equal(t, Suggestions{Error: ErrMsgFailed}, got)
		})
	}
}

func TestDecodeAcceptsFencedSingleGap(t *testing.T) {
	t.Parallel()

	got, err := decode("```json\n{\"executive_summary\":\"s\",\"content_gap\":\"faq section\"}\n```")
	require.NoError(t, err)
	require.Equal(t, []string{"faq section"}, got.ContentGap)
}

func TestTruncateCountsRunes(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ñañ", truncate("ñañaña", 3))
	require.Equal(t, "abc", truncate("abc", 10))
}
