package analysis

import (
	"fmt"
	"runtime"
)

// Pool runs n independent jobs and returns their results by index.
type Pool interface {
	Map(n int, job func(i int) (float64, error)) ([]float64, error)
}

// ConsecutivePool runs jobs one after another on the calling goroutine.
type ConsecutivePool struct{}

func (ConsecutivePool) Map(n int, job func(i int) (float64, error)) ([]float64, error) {
	results := make([]float64, n)
	for i := 0; i < n; i++ {
		v, err := job(i)
		if err != nil {
			return nil, err
		}
		results[i] = v
	}
	return results, nil
}

// ParallelPool runs jobs on up to NumCores goroutines. NumCores <= 0 uses
// every CPU.
type ParallelPool struct {
	NumCores int
}

// Map starts one goroutine per job, limited to NumCores running at once, and
// collects results over a channel. Results keep job order, and when several
// jobs fail the error of the lowest index is returned.
func (p ParallelPool) Map(n int, job func(i int) (float64, error)) ([]float64, error) {
	numCores := p.NumCores
	if numCores <= 0 {
		numCores = runtime.NumCPU()
	}

	type jobResult struct {
		index int
		value float64
		err   error
	}
	resultChan := make(chan jobResult)
	slots := make(chan struct{}, numCores)

	for i := 0; i < n; i++ {
		go func(index int) {
			slots <- struct{}{}
			value, err := job(index)
			<-slots
			resultChan <- jobResult{index: index, value: value, err: err}
		}(i)
	}

	results := make([]float64, n)
	errs := make([]error, n)
	for completed := 0; completed < n; completed++ {
		res := <-resultChan
		results[res.index] = res.value
		errs[res.index] = res.err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i, err)
		}
	}
	return results, nil
}
