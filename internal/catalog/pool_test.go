package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteCollectsAllResults(t *testing.T) {
	pool := NewFetchPool(4)

	tasks := make([]Task, 10)
	for i := range tasks {
		id := fmt.Sprintf("task-%d", i)
		tasks[i] = Task{
			ID: id,
			Func: func(_ context.Context) (interface{}, error) {
				return id, nil
			},
		}
	}

	results := pool.Execute(context.Background(), tasks)
	require.Len(t, results, 10)

	seen := make(map[string]bool)
	for _, result := range results {
		require.NoError(t, result.Error)
		assert.Equal(t, result.ID, result.Data)
		seen[result.ID] = true
	}

	assert.Len(t, seen, 10)
}

func TestExecutePropagatesPerTaskErrors(t *testing.T) {
	pool := NewFetchPool(2)

	boom := errors.New("fetch failed")
	tasks := []Task{
		{ID: "ok", Func: func(_ context.Context) (interface{}, error) { return 1, nil }},
		{ID: "bad", Func: func(_ context.Context) (interface{}, error) { return nil, boom }},
	}

	results := pool.Execute(context.Background(), tasks)
	require.Len(t, results, 2)

	byID := make(map[string]Result)
	for _, result := range results {
		byID[result.ID] = result
	}

	assert.NoError(t, byID["ok"].Error)
	assert.ErrorIs(t, byID["bad"].Error, boom)
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	const workers = 3

	pool := NewFetchPool(workers)

	var active, peak atomic.Int32

	gate := make(chan struct{})

	tasks := make([]Task, 12)
	for i := range tasks {
		tasks[i] = Task{
			ID: fmt.Sprintf("task-%d", i),
			Func: func(_ context.Context) (interface{}, error) {
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}

				<-gate

				active.Add(-1)

				return nil, nil
			},
		}
	}

	done := make(chan []Result)

	go func() {
		done <- pool.Execute(context.Background(), tasks)
	}()

	close(gate)

	results := <-done
	require.Len(t, results, 12)
	assert.LessOrEqual(t, peak.Load(), int32(workers))
}

func TestExecuteEmptyTaskList(t *testing.T) {
	pool := NewFetchPool(4)
	assert.Empty(t, pool.Execute(context.Background(), nil))
}
