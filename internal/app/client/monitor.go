package client

import (
	"context"
	"time"

	"golang.org/x/exp/slog"
)

// Prober проверяет доступность сервера
type Prober interface {
	HealthCheck(ctx context.Context) error
}

// Monitor периодически проверяет связь с сервером
type Monitor struct {
	prober   Prober
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
}

func NewMonitor(prober Prober, interval, timeout time.Duration, log *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= 0 || timeout > interval {
		timeout = interval
	}
	return &Monitor{
		prober:   prober,
		interval: interval,
		timeout:  timeout,
		log:      log.With(slog.String("component", "connectivity")),
	}
}

// Probe одна проверка связи
func (m *Monitor) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if err := m.prober.HealthCheck(ctx); err != nil {
		m.log.Debug("server unreachable", slog.String("error", err.Error()))
		return false
	}
	return true
}

// Run проверяет связь сразу и затем каждые interval, пока ctx не отменен.
// observe получает результат каждой проверки.
func (m *Monitor) Run(ctx context.Context, observe func(online bool)) {
	observe(m.Probe(ctx))

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			observe(m.Probe(ctx))
		}
	}
}
