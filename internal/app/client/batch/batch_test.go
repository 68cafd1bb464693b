package batch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		items []int
		size  int
		want  [][]int
	}{
		{name: "empty", items: nil, size: 3, want: [][]int{}},
		{name: "exact", items: []int{1, 2, 3, 4}, size: 2, want: [][]int{{1, 2}, {3, 4}}},
		{name: "remainder", items: []int{1, 2, 3, 4, 5}, size: 2, want: [][]int{{1, 2}, {3, 4}, {5}}},
		{name: "default size", items: []int{1, 2, 3, 4, 5, 6}, size: 0, want: [][]int{{1, 2, 3, 4, 5}, {6}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.items, tt.size))
		})
	}
}

func TestRun_Empty(t *testing.T) {
	called := false
	summary := Run(context.Background(), []string{}, Options{Size: 5}, func(context.Context, string) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.Equal(t, 0, summary.Batches)
	assert.Equal(t, 0, summary.Total())
	assert.Empty(t, summary.Results)
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var seen sync.Map

	summary := Run(context.Background(), items, Options{Size: 5}, func(_ context.Context, item int) error {
		seen.Store(item, true)
		if item == 3 {
			return errors.New("item 3 always fails")
		}
		return nil
	})

	assert.Equal(t, 1, summary.Batches)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	for _, item := range items {
		_, ok := seen.Load(item)
		assert.True(t, ok, "item %d was not processed", item)
	}
	for _, r := range summary.Results {
		if r.Item == 3 {
			assert.Error(t, r.Err)
		} else {
			assert.NoError(t, r.Err)
		}
	}
}

func TestRun_BatchesAreSequential(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}
	var (
		mu        sync.Mutex
		inFlight  int
		maxFlight int
	)
	var completed atomic.Int32

	var starts []int
	summary := Run(context.Background(), items, Options{
		Size: 3,
		OnBatchStart: func(batch, batches, size int) {
			starts = append(starts, batch)
			assert.Equal(t, 3, batches)
			assert.Equal(t, int32((batch-1)*3), completed.Load(), "batch %d started before previous settled", batch)
		},
	}, func(_ context.Context, item int) error {
		mu.Lock()
		inFlight++
		if inFlight > maxFlight {
			maxFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		completed.Add(1)
		return nil
	})

	require.Equal(t, 7, summary.Succeeded)
	assert.Equal(t, 3, summary.Batches)
	assert.Equal(t, []int{1, 2, 3}, starts)
	assert.LessOrEqual(t, maxFlight, 3)
}

func TestRun_ItemsWithinBatchRunConcurrently(t *testing.T) {
	items := []int{1, 2, 3}
	release := make(chan struct{})
	var arrived sync.WaitGroup
	arrived.Add(len(items))

	go func() {
		arrived.Wait()
		close(release)
	}()

	summary := Run(context.Background(), items, Options{Size: 3}, func(_ context.Context, _ int) error {
		arrived.Done()
		select {
		case <-release:
			return nil
		case <-time.After(2 * time.Second):
			return errors.New("items were not started concurrently")
		}
	})

	assert.Equal(t, 3, summary.Succeeded)
}
