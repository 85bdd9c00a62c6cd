package catalog

import (
	"context"
	"sync"
)

// FetchPool manages parallel execution of independent catalog reads with a
// bounded number of workers. Completion order is not significant; callers
// order-normalize results afterward if they need to.
type FetchPool struct {
	workers int
}

// NewFetchPool creates a fetch pool with the given worker count
func NewFetchPool(workers int) *FetchPool {
	if workers <= 0 {
		workers = 8
	}

	return &FetchPool{workers: workers}
}

// Task represents a unit of work for the fetch pool
type Task struct {
	ID   string
	Func func(ctx context.Context) (interface{}, error)
}

// Result represents the result of a task execution
type Result struct {
	ID    string
	Data  interface{}
	Error error
}

// Execute runs tasks in parallel and collects all results
func (p *FetchPool) Execute(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return []Result{}
	}

	taskChan := make(chan Task, len(tasks))
	resultChan := make(chan Result, len(tasks))

	var wg sync.WaitGroup
	for range p.workers {
		wg.Add(1)

		go p.worker(ctx, &wg, taskChan, resultChan)
	}

	go func() {
		defer close(taskChan)

		for _, task := range tasks {
			select {
			case taskChan <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]Result, 0, len(tasks))
	for result := range resultChan {
		results = append(results, result)
	}

	return results
}

func (p *FetchPool) worker(ctx context.Context, wg *sync.WaitGroup, taskChan <-chan Task, resultChan chan<- Result) {
	defer wg.Done()

	for {
		select {
		case task, ok := <-taskChan:
			if !ok {
				return
			}

			data, err := task.Func(ctx)
			result := Result{ID: task.ID, Data: data, Error: err}

			select {
			case resultChan <- result:
			case <-ctx.Done():
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
