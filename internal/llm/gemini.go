package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/textmine/knowledge-extractor/internal/storage"
	"github.com/textmine/knowledge-extractor/pkg/config"
)

const summaryPrompt = "You are a precise assistant. Summarize the user's text in 1-3 sentences." +
	" Be concise and neutral."

const metadataPrompt = `Extract the following as pure JSON (no extra text):
{
  "title": string|null,
  "topics": string[3],
  "sentiment": "positive"|"neutral"|"negative"
}
Rules:
- "title" should be a short title if one can be inferred; otherwise null.
- "topics" must be exactly 3 short, general themes.
- "sentiment" is overall tone (positive/neutral/negative).
Return ONLY the JSON.`

// GeminiClient calls Google's Gemini generative models.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiClient creates a Gemini-backed Client from config. The API key is
// required; the model defaults to gemini-1.5-flash.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiClient{
		client: client,
		model:  model,
		logger: slog.Default().With("component", "gemini-client", "model", model),
	}, nil
}

// Close releases the underlying gRPC connection.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// Summarize asks the model for a 1-3 sentence summary.
func (c *GeminiClient) Summarize(ctx context.Context, text string) (string, error) {
	raw, err := c.generate(ctx, summaryPrompt, text)
	if err != nil {
		c.logger.Error("summarize failed", "error", err)
		return "", fmt.Errorf("gemini summarize: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// ExtractMetadata asks the model for title/topics/sentiment as strict JSON
// and normalizes the response.
func (c *GeminiClient) ExtractMetadata(ctx context.Context, text string) (*Metadata, error) {
	raw, err := c.generate(ctx, metadataPrompt, text)
	if err != nil {
		c.logger.Error("metadata extraction failed", "error", err)
		return nil, fmt.Errorf("gemini metadata: %w", err)
	}
	meta, err := parseMetadata(raw)
	if err != nil {
		c.logger.Error("metadata response unparseable", "error", err, "raw", raw)
		return nil, fmt.Errorf("gemini metadata: %w", err)
	}
	return meta, nil
}

func (c *GeminiClient) generate(ctx context.Context, prompt, text string) (string, error) {
	model := c.client.GenerativeModel(c.model)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt), genai.Text(text))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no candidates returned")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), nil
}

// parseMetadata decodes the model's JSON response, stripping markdown code
// fences if present, and normalizes the fields: topics are lowercased and
// padded or truncated to exactly three, an unrecognized sentiment becomes
// neutral, and a blank title becomes nil.
func parseMetadata(raw string) (*Metadata, error) {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.Trim(cleaned, "`")
		cleaned = strings.TrimPrefix(cleaned, "json")
		cleaned = strings.TrimSpace(cleaned)
	}

	var payload struct {
		Title     *string  `json:"title"`
		Topics    []string `json:"topics"`
		Sentiment string   `json:"sentiment"`
	}
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("decoding metadata JSON: %w", err)
	}

	meta := &Metadata{
		Title:     payload.Title,
		Sentiment: strings.ToLower(strings.TrimSpace(payload.Sentiment)),
	}
	if meta.Title != nil && strings.TrimSpace(*meta.Title) == "" {
		meta.Title = nil
	}
	if !storage.ValidSentiment(meta.Sentiment) {
		meta.Sentiment = storage.SentimentNeutral
	}

	for _, topic := range payload.Topics {
		topic = strings.ToLower(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}
		meta.Topics = append(meta.Topics, topic)
		if len(meta.Topics) == 3 {
			break
		}
	}
	for len(meta.Topics) < 3 {
		meta.Topics = append(meta.Topics, "general")
	}
	return meta, nil
}
