package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedSleep struct {
	delays []time.Duration
}

func (r *recordedSleep) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func TestDo_AlwaysFails(t *testing.T) {
	rec := &recordedSleep{}
	r := New(Policy{MaxRetries: 3, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Factor: 2},
		discardLogger(), WithSleep(rec.sleep))

	calls := 0
	_, err := Do(context.Background(), r, func(_ context.Context, attempt int) (string, error) {
		assert.Equal(t, calls, attempt)
		calls++
		return "", fmt.Errorf("attempt %d failed", attempt)
	})

	require.Error(t, err)
	assert.Equal(t, "attempt 3 failed", err.Error())
	assert.Equal(t, 4, calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}, rec.delays)
}

func TestDo_DelayCappedByMaxDelay(t *testing.T) {
	rec := &recordedSleep{}
	r := New(Policy{MaxRetries: 5, InitialDelay: 200 * time.Millisecond, MaxDelay: 500 * time.Millisecond, Factor: 2},
		discardLogger(), WithSleep(rec.sleep))

	_, err := Do(context.Background(), r, func(_ context.Context, _ int) (int, error) {
		return 0, errors.New("boom")
	})

	require.Error(t, err)
	assert.Equal(t, []time.Duration{
		200 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
	}, rec.delays)
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	rec := &recordedSleep{}
	r := New(DefaultPolicy(), discardLogger(), WithSleep(rec.sleep))

	got, err := Do(context.Background(), r, func(_ context.Context, attempt int) (string, error) {
		if attempt < 2 {
			return "", errors.New("timeout")
		}
		return "cloud-1", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "cloud-1", got)
	assert.Len(t, rec.delays, 2)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	rec := &recordedSleep{}
	r := New(DefaultPolicy(), discardLogger(), WithSleep(rec.sleep))
	validation := errors.New("imovelId is required")

	calls := 0
	_, err := Do(context.Background(), r, func(_ context.Context, _ int) (struct{}, error) {
		calls++
		return struct{}{}, Permanent(validation)
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
	assert.ErrorIs(t, err, validation)
	assert.True(t, IsPermanent(err))
}

func TestDo_ZeroRetries(t *testing.T) {
	r := New(Policy{MaxRetries: 0}, discardLogger())

	calls := 0
	_, err := Do(context.Background(), r, func(_ context.Context, _ int) (int, error) {
		calls++
		return 0, errors.New("boom")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(Policy{MaxRetries: 3, InitialDelay: time.Hour, Factor: 2}, discardLogger())

	calls := 0
	_, err := Do(ctx, r, func(_ context.Context, _ int) (int, error) {
		calls++
		cancel()
		return 0, errors.New("connection reset")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPolicy_Delays(t *testing.T) {
	p := Policy{MaxRetries: 3, InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Factor: 2}
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}, p.Delays())
	assert.Nil(t, Policy{}.Delays())
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("x")))
}
