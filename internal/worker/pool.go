package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// indexedJob remembers the submission position of a job
type indexedJob struct {
	index int
	job   Job
}

type indexedResult struct {
	index  int
	result Result
}

// Pool runs jobs on a fixed number of workers and returns their results in
// submission order
type Pool struct {
	workers     int
	jobQueue    chan indexedJob
	results     chan indexedResult
	submitted   int
	collected   []Result // Owned by the collector goroutine until collectDone
	collectDone chan struct{}
	wg          sync.WaitGroup
	ctx         context.Context
	cancelFunc  context.CancelFunc
	closeOnce   sync.Once
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	return NewPoolWithContext(context.Background(), workers)
}

// NewPoolWithContext creates a pool whose jobs are canceled with ctx
func NewPoolWithContext(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:     workers,
		jobQueue:    make(chan indexedJob, workers*2),
		results:     make(chan indexedResult, workers*2),
		collectDone: make(chan struct{}),
		ctx:         ctx,
		cancelFunc:  cancel,
	}
}

// Start starts the workers and the result collector
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	go p.collect()
}

// collect drains results while jobs are still being submitted so that
// workers never block on a full results channel
func (p *Pool) collect() {
	defer close(p.collectDone)
	for ir := range p.results {
		for len(p.collected) <= ir.index {
			p.collected = append(p.collected, nil)
		}
		p.collected[ir.index] = ir.result
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case ij, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := ij.job.Execute(p.ctx)
			select {
			case p.results <- indexedResult{index: ij.index, result: result}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It must not be called concurrently with itself or
// after Wait. Jobs submitted after Shutdown may be dropped.
func (p *Pool) Submit(job Job) {
	ij := indexedJob{index: p.submitted, job: job}
	p.submitted++

	select {
	case <-p.ctx.Done():
	case p.jobQueue <- ij:
	}
}

// Wait waits for all jobs to complete and returns their results in
// submission order. Jobs dropped by cancellation leave a nil entry.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.collectDone
	p.cancelFunc()

	results := make([]Result, p.submitted)
	copy(results, p.collected)
	return results
}

// Shutdown cancels running jobs and stops the workers
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
