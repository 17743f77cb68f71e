package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Chat roles accepted in message history.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// NoResponseGenerated stands in for an empty provider answer.
const NoResponseGenerated = "No response generated"

// AllProvidersRateLimitedMessage is surfaced when every provider is cooling down.
const AllProvidersRateLimitedMessage = "All AI models are currently rate limited. Please try again later."

// Message is one turn of a chat history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider is a language-model backend. Implementations must return a
// *RateLimitError when the backend reports throttling so callers can fail
// over without inspecting messages.
type Provider interface {
	Name() string
	CompleteText(ctx context.Context, prompt string) (string, error)
	CompleteChat(ctx context.Context, messages []Message) (string, error)
}

// RateLimitError is the throttled outcome of a provider call.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration // zero when the backend gave no hint
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s rate limited: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s rate limited", e.Provider)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// IsRateLimit reports whether err carries a RateLimitError.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
