package tagger

import (
	"context"
	"errors"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dcdoc/dcform-cli/internal/config"
	"github.com/dcdoc/dcform-cli/internal/resilience"
	"github.com/dcdoc/dcform-cli/pkg/anthropic"
)

// AnthropicClassifier classifies cells with the Anthropic Messages API.
// Calls are throttled to the configured request rate, retried on transient
// failures and guarded by a circuit breaker shared by all callers of the
// classifier. It is safe for concurrent use.
type AnthropicClassifier struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	limiter     *rate.Limiter
	retry       resilience.RetryConfig
	breaker     *resilience.CircuitBreaker
}

// ClassifierOption customizes an AnthropicClassifier.
type ClassifierOption func(*AnthropicClassifier)

// WithRetryConfig replaces the retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) ClassifierOption {
	return func(a *AnthropicClassifier) { a.retry = cfg }
}

// WithLimiter replaces the request rate limiter.
func WithLimiter(l *rate.Limiter) ClassifierOption {
	return func(a *AnthropicClassifier) { a.limiter = l }
}

// WithBreaker replaces the circuit breaker.
func WithBreaker(cb *resilience.CircuitBreaker) ClassifierOption {
	return func(a *AnthropicClassifier) { a.breaker = cb }
}

// NewAnthropicClassifier builds a classifier from the anthropic and tagging
// configuration sections.
func NewAnthropicClassifier(client anthropic.Client, acfg config.AnthropicConfig, tcfg config.TaggingConfig, opts ...ClassifierOption) *AnthropicClassifier {
	rpm := acfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 30
	}
	maxTokens := acfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	retry := resilience.DefaultRetryConfig().WithAttempts(tcfg.RetryAttempts)
	retry.OnRetry = resilience.RetryLogger("anthropic", "tag_mapping")

	a := &AnthropicClassifier{
		client:      client,
		model:       acfg.Model,
		maxTokens:   maxTokens,
		temperature: acfg.Temperature,
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1),
		retry:       retry,
		breaker:     resilience.NewCircuitBreaker("anthropic", 5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Classify sends the prompt and returns the response text.
func (a *AnthropicClassifier) Classify(ctx context.Context, p Prompt) (string, error) {
	temp := a.temperature
	req := anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		System:      anthropic.BuildCachedSystemBlocks(p.System, "5m"),
		Messages:    []anthropic.Message{{Role: "user", Content: p.User}},
		Temperature: &temp,
	}

	resp, err := resilience.Do(ctx, a.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "tagger: wait for rate limiter")
		}
		return resilience.Call(ctx, a.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			resp, err := a.client.CreateMessage(ctx, req)
			if err != nil {
				return nil, markTransient(err)
			}
			return resp, nil
		})
	})
	if err != nil {
		return "", eris.Wrap(err, "tagger: classify cells")
	}

	resp.Usage.LogUsage(a.model, "tag_mapping")
	if resp.Truncated() {
		zap.L().Warn("tagger: classifier reply hit max_tokens", zap.Int64("max_tokens", a.maxTokens))
	}
	return resp.Text(), nil
}

// markTransient tags API errors whose status is worth retrying so that
// resilience.Do sees them as transient.
func markTransient(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.StatusCode) {
		return resilience.NewTransientError(err, apiErr.StatusCode)
	}
	return err
}
