package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/docflow/internal/llm"
)

// Name is the provider name used for failover and rate-limit bookkeeping.
const Name = "gemini"

// Generator is the slice of *genai.GenerativeModel the client needs.
type Generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Config for the Vertex AI Gemini client.
type Config struct {
	Project string
	Region  string // default us-central1
	Model   string // default gemini-1.5-flash
}

type Client struct {
	model  Generator
	base   *genai.Client
	logger *slog.Logger
}

// NewClient dials Vertex AI and configures the generative model.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Project == "" {
		return nil, fmt.Errorf("gemini: project cannot be empty")
	}
	if cfg.Region == "" {
		cfg.Region = "us-central1"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}

	base, err := genai.NewClient(ctx, cfg.Project, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	model := base.GenerativeModel(cfg.Model)
	model.SetTemperature(0.7)

	c := NewWithGenerator(model, logger)
	c.base = base
	return c, nil
}

// NewWithGenerator wraps an existing generator; used by tests.
func NewWithGenerator(g Generator, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{model: g, logger: logger}
}

func (c *Client) Name() string { return Name }

func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

func (c *Client) CompleteText(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, prompt)
}

// CompleteChat flattens the history into "role: content" lines.
func (c *Client) CompleteChat(ctx context.Context, messages []llm.Message) (string, error) {
	return c.generate(ctx, FlattenMessages(messages))
}

// FlattenMessages renders a history as one prompt.
func FlattenMessages(messages []llm.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, m.Role+": "+m.Content)
	}
	return strings.Join(lines, "\n")
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		if isResourceExhausted(err) {
			return "", &llm.RateLimitError{Provider: Name, Err: err}
		}
		c.logger.Error("llm.gemini.generate_error", "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	out := responseText(resp)
	c.logger.Debug("llm.gemini.ok", "chars", len(out), "elapsed_ms", time.Since(start).Milliseconds())
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

func isResourceExhausted(err error) bool {
	var st interface{ GRPCStatus() *status.Status }
	if errors.As(err, &st) && st.GRPCStatus().Code() == codes.ResourceExhausted {
		return true
	}
	return status.Code(err) == codes.ResourceExhausted
}
