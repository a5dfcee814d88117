package llm

import (
	"context"
	"errors"
	"time"

	"github.com/Harshitk-cp/orgbrain/internal/domain"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerConfig tunes the completion circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// BreakerClient fails fast while the upstream provider is unhealthy.
// An open breaker surfaces as gobreaker.ErrOpenState.
type BreakerClient struct {
	next domain.CompletionClient
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerClient(next domain.CompletionClient, cfg BreakerConfig, logger *zap.Logger) *BreakerClient {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("completion breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			// Caller cancellation says nothing about provider health.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &BreakerClient{next: next, cb: cb}
}

func (c *BreakerClient) Complete(ctx context.Context, system, user string) (string, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.next.Complete(ctx, system, user)
	})
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// State exposes the breaker state for health reporting.
func (c *BreakerClient) State() string {
	return c.cb.State().String()
}
