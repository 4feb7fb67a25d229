// Package worker provides concurrent envelope processing with per-source
// intake throttling. Parallelism is across documents; ordering guarantees
// within one loan are the reconciliation engine's job.
package worker

import (
	"context"
	"sync"

	"github.com/mortgageiq/loanforge/internal/pipeline"
)

// Processor runs one envelope through the document pipeline
type Processor interface {
	Process(ctx context.Context, env *pipeline.Envelope) (*pipeline.Result, error)
}

// Job is one envelope queued for processing. Path is the manifest entry it
// came from, kept for reporting.
type Job struct {
	Path     string
	Envelope *pipeline.Envelope
}

// JobResult pairs a job with its outcome
type JobResult struct {
	Path   string
	Result *pipeline.Result
	Err    error
}

// Pool runs envelope jobs across a fixed set of workers
type Pool struct {
	workers    int
	proc       Processor
	limiter    *Limiter
	jobQueue   chan Job
	results    chan JobResult
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
}

// NewPool creates a worker pool. A nil limiter disables intake throttling.
func NewPool(workers int, proc Processor, limiter *Limiter) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		workers:    workers,
		proc:       proc,
		limiter:    limiter,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan JobResult, workers*2),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start launches the workers
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			res := p.run(job)
			select {
			case p.results <- res:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// run throttles by intake source, then processes the envelope
func (p *Pool) run(job Job) JobResult {
	if p.limiter != nil {
		if err := p.limiter.Wait(p.ctx, job.Envelope.Source); err != nil {
			return JobResult{Path: job.Path, Err: err}
		}
	}
	result, err := p.proc.Process(p.ctx, job.Envelope)
	return JobResult{Path: job.Path, Result: result, Err: err}
}

// Submit queues a job for execution
func (p *Pool) Submit(job Job) {
	select {
	case <-p.ctx.Done():
	case p.jobQueue <- job:
	}
}

// Wait closes the queue, waits for all jobs, and returns the results
func (p *Pool) Wait() []JobResult {
	close(p.jobQueue)

	go func() {
		p.wg.Wait()
		p.closeResults()
	}()

	var results []JobResult
	for res := range p.results {
		results = append(results, res)
	}
	return results
}

// Shutdown stops the pool immediately
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
