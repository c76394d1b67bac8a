package store

import (
	"context"
	"errors"
	"time"

	"github.com/saeid-a/AlumniNetworkBack/internal/apperr"
	"github.com/saeid-a/AlumniNetworkBack/internal/logger"
	"github.com/saeid-a/AlumniNetworkBack/internal/metrics"
	"github.com/sony/gobreaker"
)

type GuardConfig struct {
	Name     string
	Timeout  time.Duration
	Failures uint32
	Cooldown time.Duration
}

// Guard bounds every persistence call with a timeout and a circuit breaker.
// Infrastructure failures come back wrapped in apperr.ErrStoreUnavailable;
// business outcomes pass through untouched and do not trip the breaker.
type Guard struct {
	name    string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Collector
}

func NewGuard(cfg GuardConfig, log *logger.Logger, collector *metrics.Collector) *Guard {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Failures == 0 {
		cfg.Failures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	log = log.With("component", "store_guard", "store", cfg.Name)

	g := &Guard{
		name:    cfg.Name,
		timeout: cfg.Timeout,
		metrics: collector,
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.Failures
		},
		IsSuccessful: func(err error) bool {
			var abandoned *abandonedCall
			return err == nil || apperr.IsDomain(err) || errors.As(err, &abandoned)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("store circuit breaker changed state", "from", from.String(), "to", to.String())
			collector.SetBreakerState(name, float64(to))
		},
	})
	collector.SetBreakerState(cfg.Name, float64(gobreaker.StateClosed))
	return g
}

// abandonedCall marks a failure caused by the caller giving up. It says
// nothing about the store, so the breaker counts it as a success.
type abandonedCall struct {
	err error
}

func (e *abandonedCall) Error() string { return e.err.Error() }
func (e *abandonedCall) Unwrap() error { return e.err }

func (g *Guard) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	started := time.Now()
	if err := ctx.Err(); err != nil {
		g.metrics.ObserveStore(g.name, operation, "cancelled", time.Since(started))
		return err
	}

	_, err := g.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()
		err := fn(callCtx)
		if err != nil && ctx.Err() != nil && !apperr.IsDomain(err) {
			return nil, &abandonedCall{err: err}
		}
		return nil, err
	})

	result := "ok"
	var abandoned *abandonedCall
	switch {
	case err == nil:
	case errors.As(err, &abandoned):
		result = "cancelled"
		err = abandoned.err
	case apperr.IsDomain(err):
		result = apperr.Code(err)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "rejected"
		err = apperr.Unavailable(err)
	default:
		result = "unavailable"
		err = apperr.Unavailable(err)
	}
	g.metrics.ObserveStore(g.name, operation, result, time.Since(started))
	return err
}
