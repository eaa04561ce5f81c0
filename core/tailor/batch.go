package tailor

import (
	"context"
	"time"

	"github.com/FocuswithJustin/resumetailor/core/edits"
	"github.com/FocuswithJustin/resumetailor/internal/logging"
)

// Job is one independent document to tailor.
type Job struct {
	Name     string
	Input    []byte
	Requests []edits.Request
}

// JobResult is the outcome of one Job. Exactly one of Result and Err is set.
type JobResult struct {
	Name     string
	Result   *Result
	Err      error
	Duration time.Duration
}

type indexedJob struct {
	index int
	job   Job
}

type indexedResult struct {
	index  int
	result JobResult
}

// RunBatch patches every job with e on up to workers goroutines and returns
// the results in job order. A failing job does not stop the others. Jobs
// not yet started when ctx is done fail with ctx.Err(); a pass already
// running is never interrupted.
func RunBatch(ctx context.Context, e *Engine, jobs []Job, workers int) []JobResult {
	results := make([]JobResult, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	pool := newWorkerPool[indexedJob, indexedResult](workers, len(jobs))
	pool.start(func(ij indexedJob) indexedResult {
		start := time.Now()
		jr := JobResult{Name: ij.job.Name}
		if err := ctx.Err(); err != nil {
			jr.Err = err
		} else {
			jctx := logging.WithPassID(ctx, logging.NewPassID())
			jr.Result, jr.Err = e.Patch(jctx, ij.job.Input, ij.job.Requests)
		}
		jr.Duration = time.Since(start)
		logging.BatchJob(jr.Name, jr.Err, jr.Duration)
		return indexedResult{index: ij.index, result: jr}
	})
	for i, job := range jobs {
		pool.submit(indexedJob{index: i, job: job})
	}
	pool.close()

	for r := range pool.resultsChan() {
		results[r.index] = r.result
	}
	return results
}
