// Package suggest asks a language model for copywriting suggestions based on
// the audited page and its SERP competitors.
package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/prompts"
	"go.uber.org/zap"
)

// MaxContentChars bounds how much page text goes into the prompt.
const MaxContentChars = 2000

// User-facing failure messages.
const (
	ErrMsgNotConfigured = "LLM API key not configured"
	ErrMsgFailed        = "could not generate AI suggestions"
)

const promptTemplate = `Act as an SEO expert and copywriter. Analyze the following information:
- Main keyword: "{keyword}"
- Page content (first {max_chars} characters): "{content}"
- Main competitor URLs: {competitors}

Answer with a JSON object with exactly these keys:
1. "executive_summary": a short paragraph (2-3 sentences) with the main diagnosis and the single most important recommendation.
2. "suggested_title": an attractive SEO title of 50-60 characters.
3. "suggested_description": a meta description of 150-160 characters that invites the click.
4. "content_gap": a list of 2-3 specific topics or questions the competitors probably cover that the page should add.`

// Input is what the model is told about the audit.
type Input struct {
	Keyword     string
	PageText    string
	Competitors []string
}

// Suggestions is the suggestions section of an audit report. Error is set
// instead of the other fields when no suggestion could be produced.
type Suggestions struct {
	ExecutiveSummary     string   `json:"executive_summary,omitempty"`
	SuggestedTitle       string   `json:"suggested_title,omitempty"`
	SuggestedDescription string   `json:"suggested_description,omitempty"`
	ContentGap           []string `json:"content_gap,omitempty"`
	Error                string   `json:"error,omitempty"`
}

// Config configures the OpenAI backed generator.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Generator produces Suggestions. The zero value reports itself as not
// configured.
type Generator struct {
	model    llms.Model
	template prompts.PromptTemplate
	timeout  time.Duration
	logger   *zap.Logger
}

// New wraps an existing model. model may be nil.
func New(model llms.Model, timeout time.Duration, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Generator{
		model:    model,
		template: prompts.PromptTemplate{
			Template:       promptTemplate,
			InputVariables: []string{"keyword", "max_chars", "content", "competitors"},
			TemplateFormat: prompts.TemplateFormatFString,
		},
		timeout:  timeout,
		logger:   logger,
	}
}

// NewOpenAI builds a Generator on the OpenAI chat API. Without an API key the
// generator is returned unconfigured rather than failing.
func NewOpenAI(cfg Config, logger *zap.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return New(nil, cfg.Timeout, logger), nil
	}
	opts := []openai.Option{openai.WithToken(cfg.APIKey)}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init openai client: %w", err)
	}
	return New(model, cfg.Timeout, logger), nil
}

// Configured reports whether a model is wired in.
func (g *Generator) Configured() bool {
	return g != nil && g.model != nil
}

// Suggest asks the model once. Failures are logged and reported through
// Suggestions.Error.
func (g *Generator) Suggest(ctx context.Context, in Input) Suggestions {
	if !g.Configured() {
		return Suggestions{Error: ErrMsgNotConfigured}
	}
	out, err := g.generate(ctx, in)
	if err != nil {
		g.logger.Warn("suggestion generation failed", zap.String("keyword", in.Keyword), zap.Error(err))
		return Suggestions{Error: ErrMsgFailed}
	}
	return out
}

func (g *Generator) generate(ctx context.Context, in Input) (Suggestions, error) {
	prompt, err := g.template.Format(map[string]any{
		"keyword":     in.Keyword,
		"max_chars":   strconv.Itoa(MaxContentChars),
		"content":     truncate(in.PageText, MaxContentChars),
		"competitors": strings.Join(in.Competitors, ", "),
	})
	if err != nil {
		return Suggestions{}, fmt.Errorf("format prompt: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	completion, err := llms.GenerateFromSinglePrompt(ctx, g.model, prompt, llms.WithJSONMode())
	if err != nil {
		return Suggestions{}, fmt.Errorf("generate: %w", err)
	}
	return decode(completion)
}

type rawSuggestions struct {
	ExecutiveSummary     string          `json:"executive_summary"`
	SuggestedTitle       string          `json:"suggested_title"`
	SuggestedDescription string          `json:"suggested_description"`
	ContentGap           json.RawMessage `json:"content_gap"`
}

func decode(completion string) (Suggestions, error) {
	completion = strings.TrimSpace(completion)
	completion = strings.TrimPrefix(completion, "```json")
	completion = strings.TrimPrefix(completion, "```")
	completion = strings.TrimSuffix(completion, "```")

	var raw rawSuggestions
	if err := json.Unmarshal([]byte(completion), &raw); err != nil {
		return Suggestions{}, fmt.Errorf("decode completion: %w", err)
	}
	gap, err := decodeGap(raw.ContentGap)
	if err != nil {
		return Suggestions{}, err
	}
	out := Suggestions{
		ExecutiveSummary:     raw.ExecutiveSummary,
		SuggestedTitle:       raw.SuggestedTitle,
		SuggestedDescription: raw.SuggestedDescription,
		ContentGap:           gap,
	}
	if out.ExecutiveSummary == "" && out.SuggestedTitle == "" && out.SuggestedDescription == "" && len(out.ContentGap) == 0 {
		return Suggestions{}, errors.New("completion has none of the expected keys")
	}
	return out, nil
}

// decodeGap accepts either a list of strings or a single string.
func decodeGap(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("decode content_gap: %w", err)
	}
	if single == "" {
		return nil, nil
	}
	return []string{single}, nil
}

// truncate keeps the first n characters of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
