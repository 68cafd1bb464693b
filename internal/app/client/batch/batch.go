// Package batch делит очередь на пакеты: пакеты идут строго по очереди,
// элементы внутри пакета обрабатываются параллельно.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const DefaultSize = 5

// Result итог обработки одного элемента
type Result[T any] struct {
	Item T
	Err  error
}

// Summary сводка по всем пакетам
type Summary[T any] struct {
	Batches   int
	Succeeded int
	Failed    int
	Results   []Result[T]
}

// Total количество обработанных элементов
func (s Summary[T]) Total() int {
	return s.Succeeded + s.Failed
}

// Options параметры прогона
type Options struct {
	Size int
	// OnBatchStart вызывается перед запуском каждого пакета (номер с 1)
	OnBatchStart func(batch, batches, size int)
}

// Split делит items на пакеты не длиннее size, сохраняя порядок
func Split[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultSize
	}
	batches := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}

// Run обрабатывает items пакетами. Ошибка одного элемента не отменяет
// соседей: perItem вызывается для каждого элемента ровно один раз.
// Пакет N+1 стартует только после завершения всех элементов пакета N.
func Run[T any](ctx context.Context, items []T, opts Options, perItem func(ctx context.Context, item T) error) Summary[T] {
	summary := Summary[T]{Results: make([]Result[T], 0, len(items))}
	if len(items) == 0 {
		return summary
	}

	batches := Split(items, opts.Size)
	summary.Batches = len(batches)

	for n, b := range batches {
		if opts.OnBatchStart != nil {
			opts.OnBatchStart(n+1, len(batches), len(b))
		}

		results := make([]Result[T], len(b))
		// errgroup без WithContext: ошибка элемента не отменяет остальных
		var g errgroup.Group
		for i, item := range b {
			g.Go(func() error {
				results[i] = Result[T]{Item: item, Err: perItem(ctx, item)}
				return nil
			})
		}
		_ = g.Wait()

		for _, r := range results {
			if r.Err != nil {
				summary.Failed++
			} else {
				summary.Succeeded++
			}
			summary.Results = append(summary.Results, r)
		}
	}

	return summary
}
