package ai

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/bryanwahyu/newsgate/internal/domain/analyses"
	"github.com/bryanwahyu/newsgate/internal/domain/faults"
	"github.com/bryanwahyu/newsgate/internal/domain/inference"
)

type BreakerSettings struct {
	// MaxFailures consecutive unreachable answers open the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before letting a trial call through.
	OpenTimeout time.Duration
	// HalfOpenRequests is how many probes may run while half-open.
	HalfOpenRequests uint32
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = 1
	}
	return s
}

// Breaker fails fast with ServiceUnavailable while the analyzer keeps being
// unreachable. It never retries a call. Only ServiceUnavailable results count as
// failures; a bad answer means the service is up.
type Breaker struct {
	next inference.Classifier
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(name string, next inference.Classifier, s BreakerSettings, log *zap.Logger) *Breaker {
	s = s.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: countsAsUp,
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("analysis breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &Breaker{next: next, cb: cb}
}

// countsAsUp reports whether err leaves the analyzer's health untouched. A caller
// that hangs up cancels its own request; that says nothing about the analyzer.
func countsAsUp(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	return faults.KindOf(err) != faults.KindServiceUnavailable
}

func (b *Breaker) Classify(ctx context.Context, text string) (*analyses.Analysis, error) {
	var hungUp error
	v, err := b.cb.Execute(func() (interface{}, error) {
		a, err := b.next.Classify(ctx, text)
		// transports do not always wrap the cancellation; trust ctx instead
		if err != nil && errors.Is(ctx.Err(), context.Canceled) {
			hungUp = err
			return nil, nil
		}
		return a, err
	})
	if hungUp != nil {
		return nil, hungUp
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, faults.ServiceUnavailable("ai.Breaker", err)
	}
	if err != nil {
		return nil, err
	}
	a, _ := v.(*analyses.Analysis)
	return a, nil
}

// State reports the breaker state, e.g. "closed" or "open".
func (b *Breaker) State() string { return b.cb.State().String() }

func (b *Breaker) Ping(ctx context.Context) error {
	if p, ok := b.next.(inference.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
