// Package recipegen is a thin LLM front-end that drafts a Recipe's match_sql
// from the sanitized schemas of two sources. It never sees row values, only
// column metadata, and runs the single OpenAI-compatible chat completion
// call out-of-band from the job runner (§1 "out of scope for the engine
// itself", carried here as the optional operator-facing front-end).
package recipegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	"github.com/kallahq/kalla/internal/config"
	"github.com/kallahq/kalla/internal/model"
)

// Client drafts match_sql text from a left/right SanitizedSchema pair.
type Client struct {
	cfg config.Config
	hc  *http.Client
}

// New returns a Client, or ok=false if no API key is configured — callers
// should treat recipe generation as an optional, gated feature.
func New(cfg config.Config) (*Client, bool) {
	if !cfg.RecipeGenEnabled() {
		return nil, false
	}
	return &Client{cfg: cfg, hc: &http.Client{Timeout: 30 * time.Second}}, true
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

const systemPrompt = `You draft SQL reconciliation match conditions. Given the ` +
	`column metadata of a left and right source, respond with ONLY a single ` +
	`SQL boolean expression suitable after "ON" joining left.<pk> = right.<pk> ` +
	`plus any obvious tolerance_match(...) calls for numeric columns sharing a name. ` +
	`No prose, no markdown fences.`

// DraftMatchSQL asks the configured model for a match_sql expression joining
// left and right, retrying transient failures with exponential backoff per
// the teacher's real AI client pattern.
func (c *Client) DraftMatchSQL(ctx context.Context, left, right model.SanitizedSchema) (string, error) {
	userPrompt, err := buildUserPrompt(left, right)
	if err != nil {
		return "", fmt.Errorf("op=recipegen.DraftMatchSQL: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.cfg.RecipeGenModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("op=recipegen.DraftMatchSQL: %w", err)
	}

	var draft string
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.RecipeGenBaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.cfg.RecipeGenAPIKey)

		resp, err := c.hc.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("recipegen: upstream status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("recipegen: upstream status %d", resp.StatusCode))
		}

		var parsed chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("recipegen: decode response: %w", err))
		}
		if len(parsed.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("recipegen: empty choices"))
		}
		draft = parsed.Choices[0].Message.Content
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2)
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return "", fmt.Errorf("op=recipegen.DraftMatchSQL: %w", err)
	}
	return draft, nil
}

func buildUserPrompt(left, right model.SanitizedSchema) (string, error) {
	payload := struct {
		Left  model.SanitizedSchema `json:"left"`
		Right model.SanitizedSchema `json:"right"`
	}{Left: left, Right: right}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
