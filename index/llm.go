package index

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Default Gemini models, overridable through LLMConfig.
const (
	defaultGenModel   = "gemini-3-flash-preview"
	defaultEmbedModel = "gemini-embedding-001"
	defaultLLMTimeout = 30 * time.Second
)

// LLMClient talks to the Gemini API for chunk embeddings and skill
// summaries. A nil *LLMClient is valid and reports itself unconfigured.
type LLMClient struct {
	client         *genai.Client
	model          string
	embeddingModel string
	thinking       string
	timeout        time.Duration
}

// LLMConfig configures the LLM client.
type LLMConfig struct {
	APIKey         string
	Model          string
	EmbeddingModel string
	Thinking       string // NONE, LOW, NORMAL, HIGH
	Timeout        time.Duration
}

// DefaultLLMConfig returns the default LLM configuration. The API key
// is read from GEMINI_API_KEY, falling back to GOOGLE_GEMINI_API_KEY.
func DefaultLLMConfig() LLMConfig {
	key := os.Getenv("GEMINI_API_KEY")
	if key == "" {
		key = os.Getenv("GOOGLE_GEMINI_API_KEY")
	}

	return LLMConfig{
		APIKey:         key,
		Model:          defaultGenModel,
		EmbeddingModel: defaultEmbedModel,
		Thinking:       "LOW",
		Timeout:        defaultLLMTimeout,
	}
}

// fillDefaults replaces zero fields so callers can pass a sparse config.
func (cfg *LLMConfig) fillDefaults() {
	if cfg.Model == "" {
		cfg.Model = defaultGenModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = defaultEmbedModel
	}
	if cfg.Thinking == "" {
		cfg.Thinking = "LOW"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultLLMTimeout
	}
}

// NewLLMClient builds a Gemini-backed client, or nil when no API key is
// configured. A nil client disables semantic features without failing
// the caller.
func NewLLMClient(cfg LLMConfig) *LLMClient {
	if cfg.APIKey == "" {
		return nil
	}
	cfg.fillDefaults()

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  cfg.APIKey,
	})
	if err != nil {
		return nil
	}

	return &LLMClient{
		client:         client,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		thinking:       cfg.Thinking,
		timeout:        cfg.Timeout,
	}
}

// thinkingLevels maps config names onto the SDK enum.
var thinkingLevels = map[string]genai.ThinkingLevel{
	"NONE":   genai.ThinkingLevelMinimal,
	"LOW":    genai.ThinkingLevelLow,
	"NORMAL": genai.ThinkingLevelMedium,
	"HIGH":   genai.ThinkingLevelHigh,
}

func thinkingLevel(level string) genai.ThinkingLevel {
	if lvl, ok := thinkingLevels[strings.ToUpper(level)]; ok {
		return lvl
	}
	return genai.ThinkingLevelLow
}

// Embed returns the embedding vector for one text. The signature
// matches chromem's EmbeddingFunc so an LLMClient plugs straight into
// a collection.
func (c *LLMClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if !c.IsConfigured() {
		return nil, fmt.Errorf("LLM client not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.client.Models.EmbedContent(ctx, c.embeddingModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if res == nil || len(res.Embeddings) == 0 || res.Embeddings[0] == nil {
		return nil, fmt.Errorf("empty embedding response")
	}
	return res.Embeddings[0].Values, nil
}

// Generate runs one prompt through the configured model and returns the
// generated text plus the model name that produced it.
func (c *LLMClient) Generate(prompt string) (string, string, error) {
	if !c.IsConfigured() {
		return "", "", fmt.Errorf("LLM client not configured")
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	res, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ThinkingConfig: &genai.ThinkingConfig{ThinkingLevel: thinkingLevel(c.thinking)},
	})
	if err != nil {
		return "", "", fmt.Errorf("generate content: %w", err)
	}
	if res == nil || len(res.Candidates) == 0 {
		return "", "", fmt.Errorf("empty response from API")
	}

	var sb strings.Builder
	if content := res.Candidates[0].Content; content != nil {
		for _, part := range content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
	}
	if sb.Len() == 0 {
		return "", "", fmt.Errorf("no text in response")
	}
	return sb.String(), c.model, nil
}

// SummarizeSkill generates a short usage summary for a skill pack from
// its instructions.
func (c *LLMClient) SummarizeSkill(name, instructions string) (string, error) {
	if !c.IsConfigured() {
		return "", fmt.Errorf("LLM client not configured")
	}

	maxLen := 4000
	if len(instructions) > maxLen {
		instructions = instructions[:maxLen] + "\n... (truncated)"
	}

	prompt := fmt.Sprintf(`Summarize this skill pack in 2-3 sentences. Focus on WHAT it helps with and WHEN to apply it.

Skill: %s

Instructions:
%s

Summary:`, name, instructions)

	text, _, err := c.Generate(prompt)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

// IsConfigured reports whether a usable API client is attached.
func (c *LLMClient) IsConfigured() bool {
	return c != nil && c.client != nil
}

// Model returns the configured generation model, or "" for a nil client.
func (c *LLMClient) Model() string {
	if c != nil {
		return c.model
	}
	return ""
}
