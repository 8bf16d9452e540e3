// Package fallback runs an ordered list of interchangeable providers.
//
// Each pipeline stage (speech-to-text, text-to-speech) owns one Chain. The first
// provider that succeeds wins; failures are logged and aggregated, never retried.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrAllProvidersFailed is returned when every provider in a chain fails.
var ErrAllProvidersFailed = errors.New("fallback: all providers failed")

// ErrNoProviders is returned when a chain is built without providers.
var ErrNoProviders = errors.New("fallback: no providers configured")

// Provider is one attempt in a chain.
type Provider[In, Out any] struct {
	Name string
	Call func(ctx context.Context, in In) (Out, error)
}

// Result is the first successful output and the provider that produced it.
type Result[Out any] struct {
	Value    Out
	Provider string
}

// Chain tries providers in order until one succeeds.
type Chain[In, Out any] struct {
	stage     string
	providers []Provider[In, Out]
	logger    *zap.Logger
}

// NewChain creates a chain for the named stage. At least one provider is required.
func NewChain[In, Out any](stage string, logger *zap.Logger, providers ...Provider[In, Out]) (*Chain[In, Out], error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("%s: %w", stage, ErrNoProviders)
	}

	for i, p := range providers {
		if p.Call == nil {
			return nil, fmt.Errorf("%s: provider %d (%q) has no call function", stage, i, p.Name)
		}
	}

	return &Chain[In, Out]{
		stage:     stage,
		providers: providers,
		logger:    logger.With(zap.String("stage", stage)),
	}, nil
}

// Run tries each provider until one succeeds.
func (c *Chain[In, Out]) Run(ctx context.Context, in In) (Result[Out], error) {
	var errs error

	for i, p := range c.providers {
		value, err := p.Call(ctx, in)
		if err == nil {
			if i > 0 {
				c.logger.Info("Fallback provider succeeded",
					zap.String("provider", p.Name),
					zap.Int("providerIndex", i))
			} else {
				c.logger.Debug("Provider succeeded", zap.String("provider", p.Name))
			}
			return Result[Out]{Value: value, Provider: p.Name}, nil
		}

		errs = multierr.Append(errs, fmt.Errorf("%s: %w", p.Name, err))
		c.logger.Warn("Provider failed, trying next",
			append([]zap.Field{
				zap.String("provider", p.Name),
				zap.Int("providerIndex", i),
			}, errorFields(err)...)...)

		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
	}

	return Result[Out]{}, &ChainError{Stage: c.stage, Err: errs}
}

// statusError is a provider HTTP failure that can be classified
type statusError interface {
	error
	IsRateLimited() bool
	IsUnauthorized() bool
	IsServerError() bool
}

func errorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}

	var se statusError
	if errors.As(err, &se) {
		fields = append(fields,
			zap.Bool("rateLimited", se.IsRateLimited()),
			zap.Bool("unauthorized", se.IsUnauthorized()),
			zap.Bool("serverError", se.IsServerError()))
	}
	return fields
}

// Names returns provider names in the order they are tried.
func (c *Chain[In, Out]) Names() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name)
	}
	return names
}

// ChainError aggregates errors from all providers in a chain.
type ChainError struct {
	Stage string
	Err   error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	errs := multierr.Errors(e.Err)
	switch len(errs) {
	case 0:
		return fmt.Sprintf("%s chain: no errors recorded", e.Stage)
	case 1:
		return fmt.Sprintf("%s chain: %v", e.Stage, errs[0])
	default:
		return fmt.Sprintf("%s chain: all %d attempts failed: %v", e.Stage, len(errs), e.Err)
	}
}

// Errors returns the individual provider errors in order.
func (e *ChainError) Errors() []error {
	return multierr.Errors(e.Err)
}

// Is lets callers match ErrAllProvidersFailed.
func (e *ChainError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}

// Unwrap exposes the provider errors to errors.Is / errors.As.
func (e *ChainError) Unwrap() []error {
	return multierr.Errors(e.Err)
}
