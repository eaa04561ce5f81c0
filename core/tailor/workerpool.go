package tailor

import (
	"runtime"
	"sync"
)

// workerPool fans jobs out to a fixed number of goroutines and collects
// their results.
type workerPool[Job any, Result any] struct {
	numWorkers int
	jobs       chan Job
	results    chan Result
	wg         sync.WaitGroup
}

// newWorkerPool sizes the pool to numWorkers, or the CPU count when that is
// not positive, and never to more workers than jobs.
func newWorkerPool[Job any, Result any](numWorkers, numJobs int) *workerPool[Job, Result] {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numJobs > 0 {
		numWorkers = min(numWorkers, numJobs)
	}

	return &workerPool[Job, Result]{
		numWorkers: numWorkers,
		jobs:       make(chan Job, numJobs),
		results:    make(chan Result, numJobs),
	}
}

// start launches the workers. workerFn is called once per job.
func (p *workerPool[Job, Result]) start(workerFn func(Job) Result) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.results <- workerFn(job)
			}
		}()
	}
}

func (p *workerPool[Job, Result]) submit(job Job) {
	p.jobs <- job
}

// close stops accepting jobs. The results channel is closed once every
// worker has returned.
func (p *workerPool[Job, Result]) close() {
	close(p.jobs)
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

func (p *workerPool[Job, Result]) resultsChan() <-chan Result {
	return p.results
}
