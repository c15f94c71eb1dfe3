package geminiservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"Nutrimind/internal/config"
	"github.com/rs/zerolog"
)

// --- Gemini API Configuration ---
const (
	defaultInitialBackoff = 1 * time.Second
	structuredMimeType    = "application/json"
	maxErrorBodyBytes     = 4 << 10
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("server is not configured for AI features")

	// ErrEmptyResponse is returned when the model answers without any text.
	ErrEmptyResponse = errors.New("no content found in Gemini response")
)

// APIError is a non-200 answer from the Gemini API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned non-200 status: %d, Body: %s", e.StatusCode, e.Body)
}

// retryable reports whether the status is worth another attempt.
func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// --- Structs for Gemini API Request/Response ---

type GeminiPayload struct {
	Contents          []GeminiContent   `json:"contents"`
	SystemInstruction *GeminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" or "model"
	Parts []GeminiPart `json:"parts"`
}

type GeminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// InlineData carries base64 image bytes for vision prompts.
type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type GenerationConfig struct {
	ResponseMimeType string        `json:"responseMimeType"`
	ResponseSchema   *GeminiSchema `json:"response_schema,omitempty"`
	Temperature      *float64      `json:"temperature,omitempty"`
}

type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// Request is a single structured generation call.
type Request struct {
	SystemPrompt string
	Contents     []GeminiContent
	Schema       *GeminiSchema
	Temperature  *float64
}

// TextRequest builds a one-turn request.
func TextRequest(systemPrompt, userPrompt string, schema *GeminiSchema) Request {
	return Request{
		SystemPrompt: systemPrompt,
		Contents: []GeminiContent{
			{Role: "user", Parts: []GeminiPart{{Text: userPrompt}}},
		},
		Schema: schema,
	}
}

// Client talks to the Gemini generateContent endpoint.
type Client struct {
	apiKey         string
	model          string
	baseURL        string
	maxRetries     int
	initialBackoff time.Duration
	requestTimeout time.Duration
	httpClient     *http.Client
}

// NewClient builds a Client from cfg. An empty API key yields a client
// whose calls fail with ErrNotConfigured.
func NewClient(cfg config.GeminiConfig) *Client {
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:         cfg.APIKey,
		model:          cfg.Model,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		maxRetries:     retries,
		initialBackoff: defaultInitialBackoff,
		requestTimeout: timeout,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// WithBackoff overrides the first retry delay. Later delays double.
func (c *Client) WithBackoff(d time.Duration) *Client {
	c.initialBackoff = d
	return c
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
}

// Generate sends req and returns the raw text of the first candidate.
func (c *Client) Generate(ctx context.Context, log *zerolog.Logger, req Request) (string, error) {
	if !c.Configured() {
		log.Error().Msg("GEMINI_API_KEY environment variable is not set.")
		return "", ErrNotConfigured
	}

	payload := GeminiPayload{
		Contents: req.Contents,
		GenerationConfig: &GenerationConfig{
			ResponseMimeType: structuredMimeType,
			ResponseSchema:   req.Schema,
			Temperature:      req.Temperature,
		},
	}
	if req.SystemPrompt != "" {
		payload.SystemInstruction = &GeminiContent{
			Parts: []GeminiPart{{Text: req.SystemPrompt}},
		}
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	var lastErr error

	// Exponential backoff retry loop
	for i := 0; i < c.maxRetries; i++ {
		if i > 0 {
			wait := c.initialBackoff * time.Duration(math.Pow(2, float64(i-1)))
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("gemini call cancelled after %d attempts: %w", i, ctx.Err())
			case <-time.After(wait):
			}
		}

		log.Info().Msgf("Attempt %d: Calling Gemini API...", i+1)

		text, err := c.do(ctx, payloadBytes)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.retryable() {
			log.Error().Err(err).Msgf("Attempt %d failed, not retrying", i+1)
			return "", err
		}
		if errors.Is(err, ErrEmptyResponse) || ctx.Err() != nil {
			return "", err
		}
		log.Warn().Err(err).Msgf("Attempt %d failed", i+1)
	}

	return "", fmt.Errorf("failed to call Gemini API after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, payload []byte) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var geminiResp GeminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		var sb strings.Builder
		for _, p := range geminiResp.Candidates[0].Content.Parts {
			sb.WriteString(p.Text)
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			return text, nil
		}
	}

	if geminiResp.PromptFeedback != nil && geminiResp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked (%s)", ErrEmptyResponse, geminiResp.PromptFeedback.BlockReason)
	}
	return "", ErrEmptyResponse
}

// GenerateAndParse calls Generate and decodes the JSON answer into out.
// name only labels the log lines.
func (c *Client) GenerateAndParse(ctx context.Context, log *zerolog.Logger, name string, req Request, out any) error {
	raw, err := c.Generate(ctx, log, req)
	if err != nil {
		log.Error().Err(err).Str("call", name).Msg("Gemini call failed")
		return err
	}

	jsonText, err := ExtractJSON(raw)
	if err != nil {
		log.Error().Err(err).Str("call", name).Str("raw", truncate(raw, 500)).Msg("Gemini returned non-JSON content")
		return err
	}

	if err := json.Unmarshal([]byte(jsonText), out); err != nil {
		log.Error().Err(err).Str("call", name).Str("raw", truncate(raw, 500)).Msg("Failed to parse Gemini JSON")
		return fmt.Errorf("failed to parse %s response: %w", name, err)
	}
	return nil
}

// ExtractJSON pulls the outermost JSON object out of a model answer,
// tolerating markdown fences and chatty preambles.
func ExtractJSON(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", fmt.Errorf("no JSON object in model response")
	}
	return s[start : end+1], nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
