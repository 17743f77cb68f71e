package groq

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docflow/internal/llm"
)

// CompleteText sends prompt as a single user message.
func (c *Client) CompleteText(ctx context.Context, prompt string) (string, error) {
	return c.CompleteChat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
}

// CompleteChat posts the history to chat/completions and returns the first
// choice. An empty choice list yields "" so callers can apply their sentinel.
func (c *Client) CompleteChat(ctx context.Context, messages []llm.Message) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Debug("llm.groq.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"messages", len(messages),
	)

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"max_tokens":  c.cfg.MaxTokens,
		"messages":    messages,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	res, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.groq.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("groq http error: %w", err)
	}

	if err := classify(res); err != nil {
		c.logger.Warn("llm.groq.status_error",
			"req_id", rid, "status", res.Status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(res.Body, &cc); err != nil {
		return "", fmt.Errorf("decode groq response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.logger.Warn("llm.groq.no_choices", "req_id", rid)
		return "", nil
	}

	out := cc.Choices[0].Message.Content
	c.logger.Info("llm.groq.ok",
		"req_id", rid,
		"chars", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// classify turns a non-2xx response into an error; throttling becomes a
// *llm.RateLimitError.
func classify(res llm.HTTPResult) error {
	if res.Status >= 200 && res.Status < 300 {
		return nil
	}
	msg := strings.TrimSpace(string(res.Body))
	if res.Status == http.StatusTooManyRequests || strings.Contains(msg, "rate_limit_exceeded") {
		return &llm.RateLimitError{
			Provider:   Name,
			RetryAfter: retryAfter(res.Header),
			Err:        fmt.Errorf("groq status %d: %s", res.Status, msg),
		}
	}
	return fmt.Errorf("groq status %d: %s", res.Status, msg)
}

func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
