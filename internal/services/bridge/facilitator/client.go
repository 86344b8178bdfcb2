// Package facilitator turns a room snapshot into a prompt, submits it to a
// language-model provider and classifies the provider's failures.
package facilitator

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	apperrors "github.com/louisbranch/bridge-ai/internal/platform/errors"
	"github.com/louisbranch/bridge-ai/internal/platform/i18n"
	"github.com/louisbranch/bridge-ai/internal/platform/logging"
	"github.com/louisbranch/bridge-ai/internal/platform/timeouts"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/room"
)

const (
	// DefaultMaxConcurrent bounds simultaneous provider calls per process.
	DefaultMaxConcurrent = 4

	tracerName = "github.com/louisbranch/bridge-ai/internal/services/bridge/facilitator"
)

var (
	// ErrCredentialMissing is returned before any request when no provider
	// credential is configured.
	ErrCredentialMissing = apperrors.New(apperrors.CodeFacilitatorCredentialMissing, "facilitator credential is not configured")
	// ErrRateLimited matches provider rate-limit failures.
	ErrRateLimited = apperrors.New(apperrors.CodeFacilitatorRateLimited, "facilitator rate limited")
	// ErrEmptyReply is returned when the provider answers with blank text.
	ErrEmptyReply = apperrors.New(apperrors.CodeFacilitatorEmptyReply, "facilitator returned an empty reply")
)

// Provider submits one prompt to a text-generation service.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f ProviderFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Option configures a Client.
type Option func(*Client)

// WithLocalizer sets the prompt language.
func WithLocalizer(localizer *i18n.Localizer) Option {
	return func(c *Client) { c.localizer = localizer }
}

// WithTimeout caps each provider call, including the wait for a slot.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxConcurrent bounds simultaneous provider calls.
func WithMaxConcurrent(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.slots = semaphore.NewWeighted(n)
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// Client generates facilitator replies. A Client without a provider is
// valid and reports ErrCredentialMissing on every call.
type Client struct {
	provider  Provider
	localizer *i18n.Localizer
	timeout   time.Duration
	slots     *semaphore.Weighted
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewClient returns a client for provider, which may be nil.
func NewClient(provider Provider, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		timeout:  timeouts.Facilitator,
		slots:    semaphore.NewWeighted(DefaultMaxConcurrent),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.localizer == nil {
		c.localizer = i18n.NewLocalizer(i18n.BaseLocale)
	}
	c.logger = logging.OrNop(c.logger)
	return c
}

// Available reports whether a provider credential is configured.
func (c *Client) Available() bool {
	return c != nil && c.provider != nil
}

// Generate builds the prompt for snapshot, calls the provider and returns
// the trimmed reply.
func (c *Client) Generate(ctx context.Context, snapshot room.Room) (string, error) {
	if !c.Available() {
		return "", ErrCredentialMissing
	}

	ctx, span := c.tracer.Start(ctx, "facilitator.Generate", trace.WithAttributes(
		attribute.String("bridge.room_id", snapshot.ID),
		attribute.Int("bridge.message_count", snapshot.MessageCount),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := BuildPrompt(c.localizer, snapshot)
	started := time.Now()
	reply, err := c.call(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Debug("facilitator call failed",
			zap.String("room_id", snapshot.ID),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return "", err
	}
	span.SetAttributes(attribute.Int("bridge.reply_runes", len([]rune(reply))))
	return reply, nil
}

func (c *Client) call(ctx context.Context, prompt string) (string, error) {
	if err := c.slots.Acquire(ctx, 1); err != nil {
		return "", classify(err)
	}
	defer c.slots.Release(1)

	reply, err := c.provider.Generate(ctx, prompt)
	if err != nil {
		return "", classify(err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// classify maps a provider failure onto the facilitator error taxonomy.
func classify(err error) error {
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if IsRateLimit(err) {
		return apperrors.Wrap(apperrors.CodeFacilitatorRateLimited, "facilitator rate limited", err)
	}
	return apperrors.WrapWithMetadata(apperrors.CodeFacilitatorFailed, "facilitator error", map[string]string{
		"Detail": err.Error(),
	}, err)
}

// IsRateLimit reports whether err looks like a provider rate-limit signal.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	message := err.Error()
	return strings.Contains(message, "429") ||
		strings.Contains(message, "RESOURCE_EXHAUSTED") ||
		strings.Contains(message, "Too Many Requests")
}
