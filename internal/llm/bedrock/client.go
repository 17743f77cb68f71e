package bedrock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/joseph-ayodele/docflow/internal/llm"
)

// Name is the provider name used for failover and rate-limit bookkeeping.
const Name = "bedrock"

// ConverseAPI is the Bedrock operation the client uses; tests substitute a mock.
type ConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Config for the Bedrock client.
type Config struct {
	Region    string // default us-east-1
	Model     string
	MaxTokens int // default 2048
}

type Client struct {
	api    ConverseAPI
	cfg    Config
	logger *slog.Logger
}

// NewClient loads the default AWS config for cfg.Region.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewWithAPI(bedrockruntime.NewFromConfig(awsCfg), cfg, logger), nil
}

func NewWithAPI(api ConverseAPI, cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{api: api, cfg: cfg, logger: logger}
}

func (c *Client) Name() string { return Name }

func (c *Client) CompleteText(ctx context.Context, prompt string) (string, error) {
	return c.CompleteChat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}})
}

// CompleteChat maps system messages to the Converse system block and the
// rest to user/assistant turns.
func (c *Client) CompleteChat(ctx context.Context, messages []llm.Message) (string, error) {
	start := time.Now()
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.cfg.Model),
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(c.cfg.MaxTokens)),
			Temperature: aws.Float32(0.7),
		},
	}
	for _, m := range messages {
		switch m.Role {
		case llm.RoleSystem:
			input.System = append(input.System, &types.SystemContentBlockMemberText{Value: m.Content})
		case llm.RoleAssistant:
			input.Messages = append(input.Messages, textMessage(types.ConversationRoleAssistant, m.Content))
		default:
			input.Messages = append(input.Messages, textMessage(types.ConversationRoleUser, m.Content))
		}
	}

	resp, err := c.api.Converse(ctx, input)
	if err != nil {
		var throttled *types.ThrottlingException
		if errors.As(err, &throttled) {
			return "", &llm.RateLimitError{Provider: Name, Err: err}
		}
		c.logger.Error("llm.bedrock.converse_error", "model", c.cfg.Model, "error", err)
		return "", fmt.Errorf("failed to call Bedrock Converse API: %w", err)
	}

	out := outputText(resp)
	c.logger.Debug("llm.bedrock.ok",
		"model", c.cfg.Model,
		"chars", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

func textMessage(role types.ConversationRole, text string) types.Message {
	return types.Message{
		Role:    role,
		Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
	}
}

func outputText(resp *bedrockruntime.ConverseOutput) string {
	if resp == nil || resp.Output == nil {
		return ""
	}
	msg, ok := resp.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			b.WriteString(text.Value)
		}
	}
	return b.String()
}
