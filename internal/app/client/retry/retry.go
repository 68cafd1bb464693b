// Package retry повторяет идемпотентные операции с экспоненциальной задержкой.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

// Policy параметры повторов
type Policy struct {
	MaxRetries   int           `json:"max_retries"`
	InitialDelay time.Duration `json:"initial_delay"`
	MaxDelay     time.Duration `json:"max_delay"`
	Factor       float64       `json:"factor"`
}

// DefaultPolicy значения по умолчанию
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:   3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Factor:       2,
	}
}

// Delays возвращает задержки перед каждым повтором
func (p Policy) Delays() []time.Duration {
	if p.MaxRetries <= 0 {
		return nil
	}
	delays := make([]time.Duration, 0, p.MaxRetries)
	delay := p.InitialDelay
	for i := 0; i < p.MaxRetries; i++ {
		delays = append(delays, delay)
		delay = p.next(delay)
	}
	return delays
}

func (p Policy) next(delay time.Duration) time.Duration {
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	next := time.Duration(float64(delay) * factor)
	if p.MaxDelay > 0 && next > p.MaxDelay {
		next = p.MaxDelay
	}
	return next
}

// SleepFunc ожидает d или отмену контекста
type SleepFunc func(ctx context.Context, d time.Duration) error

// Operation одна попытка; attempt начинается с 0
type Operation[T any] func(ctx context.Context, attempt int) (T, error)

// Retrier выполняет операции согласно Policy
type Retrier struct {
	policy Policy
	log    *slog.Logger
	sleep  SleepFunc
}

type Option func(*Retrier)

// WithSleep подменяет ожидание (в тестах)
func WithSleep(sleep SleepFunc) Option {
	return func(r *Retrier) {
		r.sleep = sleep
	}
}

func New(policy Policy, log *slog.Logger, opts ...Option) *Retrier {
	if log == nil {
		log = slog.Default()
	}
	r := &Retrier{
		policy: policy,
		log:    log.With(slog.String("component", "retry")),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy возвращает текущие параметры
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do выполняет op не более MaxRetries+1 раз.
// Постоянные ошибки (см. Permanent) возвращаются сразу, без ожидания.
// После исчерпания попыток возвращается последняя ошибка.
func Do[T any](ctx context.Context, r *Retrier, op Operation[T]) (T, error) {
	var zero T
	attempts := r.policy.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	delay := r.policy.InitialDelay

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := op(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if IsPermanent(err) {
			r.log.Warn("permanent failure, not retrying",
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()),
			)
			return zero, err
		}

		if attempt == attempts-1 {
			break
		}

		r.log.Warn("attempt failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)

		if err := r.sleep(ctx, delay); err != nil {
			return zero, fmt.Errorf("retry interrupted after attempt %d: %w", attempt+1, errors.Join(lastErr, err))
		}
		delay = r.policy.next(delay)
	}

	r.log.Error("all attempts failed",
		slog.Int("attempts", attempts),
		slog.String("error", lastErr.Error()),
	)
	return zero, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
