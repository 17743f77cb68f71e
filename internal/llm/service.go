package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/joseph-ayodele/docflow/constants"
	"github.com/joseph-ayodele/docflow/internal/common"
	"github.com/joseph-ayodele/docflow/internal/extract"
	"github.com/joseph-ayodele/docflow/internal/ratelimit"
)

// Config bounds a single provider's attempts within one call.
type Config struct {
	MaxRetries   int           // total attempts per provider
	InitialDelay time.Duration // delay before the second attempt; doubles afterwards
	CallTimeout  time.Duration // per attempt; zero disables
}

// DefaultConfig mirrors the completion defaults: three attempts starting at one second.
func DefaultConfig() Config {
	return Config{MaxRetries: 3, InitialDelay: time.Second, CallTimeout: 45 * time.Second}
}

// Service is the completion front door. It honors rate-limit cooldowns,
// retries transient failures with exponential backoff and fails over to the
// next provider when one reports throttling.
type Service struct {
	providers map[string]Provider
	limits    *ratelimit.Manager
	cfg       Config
	logger    *slog.Logger
}

// NewService registers providers in failover order. When limits is nil a
// manager with the default cooldown is built over the same order.
func NewService(providers []Provider, limits *ratelimit.Manager, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = time.Second
	}
	byName := make(map[string]Provider, len(providers))
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		if p == nil {
			continue
		}
		if _, dup := byName[p.Name()]; dup {
			continue
		}
		byName[p.Name()] = p
		names = append(names, p.Name())
	}
	if limits == nil {
		limits = ratelimit.NewManager(names)
	}
	return &Service{providers: byName, limits: limits, cfg: cfg, logger: logger}
}

// Limits exposes the rate-limit state for status reporting.
func (s *Service) Limits() *ratelimit.Manager { return s.limits }

// Complete runs a single-prompt completion. preferred may be empty to start
// with the first configured provider.
func (s *Service) Complete(ctx context.Context, prompt, preferred string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", common.NewValidationError("prompt is required", nil)
	}
	return s.run(ctx, "complete", preferred, func(ctx context.Context, p Provider) (string, error) {
		return p.CompleteText(ctx, prompt)
	})
}

// Chat runs a multi-turn completion after validating the history.
func (s *Service) Chat(ctx context.Context, messages []Message, preferred string) (string, error) {
	if err := ValidateMessages(messages); err != nil {
		return "", err
	}
	return s.run(ctx, "chat", preferred, func(ctx context.Context, p Provider) (string, error) {
		return p.CompleteChat(ctx, messages)
	})
}

// AnalyzeDocument summarizes extracted document text. Text beyond
// extract.MaxContentLength is summarized head and tail first.
func (s *Service) AnalyzeDocument(ctx context.Context, text, preferred string) (string, error) {
	text = extract.Summarize(extract.Sanitize(text), extract.MaxContentLength)
	if text == "" {
		return "", common.NewValidationError("document text is required", nil)
	}
	return s.Complete(ctx, BuildAnalyzePrompt(text), preferred)
}

// GenerateQuestions proposes questions about the given context.
func (s *Service) GenerateQuestions(ctx context.Context, context, preferred string) (string, error) {
	context = extract.Summarize(extract.Sanitize(context), extract.MaxContentLength)
	if context == "" {
		return "", common.NewValidationError("context is required", nil)
	}
	return s.Complete(ctx, BuildQuestionsPrompt(context), preferred)
}

// ChatAboutDocument prepends a system message grounded in the document to the
// caller's history.
func (s *Service) ChatAboutDocument(ctx context.Context, title, content string, messages []Message, preferred string) (string, error) {
	if err := ValidateMessages(messages); err != nil {
		return "", err
	}
	full := make([]Message, 0, len(messages)+1)
	full = append(full, Message{Role: RoleSystem, Content: BuildDocumentSystemPrompt(title, content)})
	full = append(full, messages...)
	return s.Chat(ctx, full, preferred)
}

type callFunc func(ctx context.Context, p Provider) (string, error)

func (s *Service) run(ctx context.Context, op, preferred string, call callFunc) (string, error) {
	order := s.limits.Providers()
	if len(order) == 0 {
		return "", common.NewAppError(common.CodeConfig, "no providers configured", nil)
	}
	if preferred == "" {
		preferred = order[0]
	} else if c, ok := constants.CanonicalProvider(preferred); ok {
		preferred = string(c)
	}
	if !s.limits.Knows(preferred) {
		return "", common.NewValidationError(fmt.Sprintf("unknown provider %q", preferred), nil)
	}

	start := time.Now()
	var lastLimit error
	name := preferred
	for i := 0; i < len(order); i, name = i+1, s.limits.Alternate(name) {
		if s.limits.IsLimited(name) {
			s.logger.Info("llm."+op+".skip_limited", "provider", name)
			continue
		}
		p, ok := s.providers[name]
		if !ok {
			s.logger.Warn("llm."+op+".provider_missing", "provider", name)
			continue
		}
		if name != preferred {
			s.logger.Info("llm."+op+".fallback", "from", preferred, "to", name)
		}

		text, err := s.attempt(ctx, op, p, call)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				s.logger.Warn("llm."+op+".empty_response", "provider", name)
				text = NoResponseGenerated
			}
			s.logger.Info("llm."+op+".ok",
				"provider", name,
				"chars", len(text),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return text, nil
		}

		var rl *RateLimitError
		if errors.As(err, &rl) {
			reset := s.limits.MarkLimited(name)
			s.logger.Warn("llm."+op+".rate_limited",
				"provider", name,
				"reset_at", reset,
				"retry_after", rl.RetryAfter,
			)
			lastLimit = common.NewAppError(common.CodeProviderRateLimited, name+" is rate limited", err)
			continue
		}
		if common.HasCode(err, common.CodeValidation) {
			return "", err
		}

		s.logger.Error("llm."+op+".failed",
			"provider", name,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", common.NewAppError(common.CodeProvider, name+" request failed", err)
	}

	s.logger.Warn("llm."+op+".all_limited", "limited", len(s.limits.Limited()))
	return "", common.NewAppError(common.CodeAllProvidersRateLimited, AllProvidersRateLimitedMessage, lastLimit)
}

// attempt calls one provider up to MaxRetries times. Rate limits and
// validation failures end the loop at once.
func (s *Service) attempt(ctx context.Context, op string, p Provider, call callFunc) (string, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.cfg.InitialDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxInterval = s.cfg.InitialDelay << 10
	eb.MaxElapsedTime = 0
	eb.Reset()
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(s.cfg.MaxRetries-1)), ctx)

	var out string
	n := 0
	operation := func() error {
		n++
		callCtx, cancel := common.WithOptionalTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()
		text, err := call(callCtx, p)
		if err != nil {
			if IsRateLimit(err) || common.HasCode(err, common.CodeValidation) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = text
		return nil
	}
	notify := func(err error, next time.Duration) {
		s.logger.Warn("llm."+op+".attempt_failed",
			"provider", p.Name(),
			"attempt", n,
			"next_delay_ms", next.Milliseconds(),
			"error", err,
		)
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return "", err
	}
	return out, nil
}
