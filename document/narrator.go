/*
narrator.go - Prose generation

PURPOSE:
  Documents mix computed figures with prose (summaries, fund overviews).
  A Narrator writes that prose from a list of facts. Figures in the
  facts are already formatted; narrators must not restate numbers that
  are not in the facts.

IMPLEMENTATIONS:
  StaticNarrator: Deterministic template prose, used offline and in tests
  LLMNarrator:    Chat-completions API; falls back to StaticNarrator when
                  no API key is configured

  An LLMNarrator call failure is returned to the caller. Regeneration
  relies on that to roll the document back to its previous status.
*/
package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNarration wraps prose service failures.
var ErrNarration = errors.New("narration failed")

// Fact is one labelled, pre-formatted value handed to a narrator.
type Fact struct {
	Label string
	Value string
}

// NarrationRequest asks for one section of prose.
type NarrationRequest struct {
	DocumentKind string
	Section      string
	Facts        []Fact
}

// Narrator writes prose for a document section.
type Narrator interface {
	Narrate(ctx context.Context, req NarrationRequest) (string, error)
}

// =============================================================================
// STATIC
// =============================================================================

// StaticNarrator writes template prose.
type StaticNarrator struct{}

func (StaticNarrator) Narrate(_ context.Context, req NarrationRequest) (string, error) {
	if len(req.Facts) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(req.Facts))
	for _, f := range req.Facts {
		parts = append(parts, fmt.Sprintf("the %s is %s", strings.ToLower(f.Label), f.Value))
	}
	text := "Under this " + strings.ReplaceAll(req.DocumentKind, "_", " ") + ", " + strings.Join(parts, "; ") + "."
	return text, nil
}

// =============================================================================
// LLM
// =============================================================================

// LLMConfig configures an LLMNarrator.
type LLMConfig struct {
	APIKey  string
	APIURL  string
	Model   string
	Timeout time.Duration
}

// LLMNarrator writes prose with a chat-completions API.
type LLMNarrator struct {
	apiKey     string
	apiURL     string
	model      string
	enabled    bool
	httpClient *http.Client
	fallback   Narrator
	logger     *zap.Logger
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

const systemPrompt = "You draft sections of legal and financial deal documents. " +
	"Write formal, plain prose in the third person. Use only the figures provided, " +
	"exactly as written. Do not add headings, lists or figures of your own."

// NewLLMNarrator creates a narrator. Without an API key it delegates to
// StaticNarrator.
func NewLLMNarrator(cfg LLMConfig, logger *zap.Logger) *LLMNarrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &LLMNarrator{
		apiKey:     cfg.APIKey,
		apiURL:     cfg.APIURL,
		model:      cfg.Model,
		enabled:    cfg.APIKey != "",
		httpClient: &http.Client{Timeout: timeout},
		fallback:   StaticNarrator{},
		logger:     logger,
	}
}

func (n *LLMNarrator) Narrate(ctx context.Context, req NarrationRequest) (string, error) {
	if !n.enabled {
		return n.fallback.Narrate(ctx, req)
	}

	var facts strings.Builder
	for _, f := range req.Facts {
		fmt.Fprintf(&facts, "- %s: %s\n", f.Label, f.Value)
	}
	prompt := fmt.Sprintf("Write the %q section of a %s in 2-4 sentences.\n\nFACTS:\n%s",
		req.Section, strings.ReplaceAll(req.DocumentKind, "_", " "), facts.String())

	start := time.Now()
	text, err := n.call(ctx, prompt)
	if err != nil {
		n.logger.Warn("narration failed",
			zap.String("op", "document.Narrate"),
			zap.String("kind", req.DocumentKind),
			zap.String("section", req.Section),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %s/%s: %v", ErrNarration, req.DocumentKind, req.Section, err)
	}

	n.logger.Debug("narration complete",
		zap.String("op", "document.Narrate"),
		zap.String("section", req.Section),
		zap.Duration("elapsed", time.Since(start)),
	)
	return strings.TrimSpace(text), nil
}

func (n *LLMNarrator) call(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: n.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: 400,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+n.apiKey)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("no response from model")
	}
	return out.Choices[0].Message.Content, nil
}
