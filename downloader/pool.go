package downloader

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ytget/ytfetch/internal/logger"
)

// Job is one transfer queued on a Pool.
type Job struct {
	ID   uuid.UUID
	URL  string
	Path string
}

// NewJob assigns a fresh identifier to a transfer.
func NewJob(url, path string) Job {
	return Job{ID: uuid.New(), URL: url, Path: path}
}

// JobResult pairs a finished job with its outcome.
type JobResult struct {
	Job Job
	Err error
}

// Pool runs transfers on a fixed number of workers sharing one
// Downloader.
type Pool struct {
	dl      *Downloader
	workers int
	log     *logger.ComponentLogger
}

// NewPool creates a pool with the given concurrency; values below 1
// are clamped to 1.
func NewPool(dl *Downloader, workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		dl:      dl,
		workers: workers,
		log:     logger.WithComponent(logger.ComponentDownloader),
	}
}

// Run executes all jobs and returns one result per job, in completion
// order. Cancelling the context stops feeding new jobs to the workers;
// jobs never started report the context error.
func (p *Pool) Run(ctx context.Context, jobs []Job) []JobResult {
	jobCh := make(chan Job)
	resCh := make(chan JobResult, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				p.log.Debug("job started", map[string]any{"id": job.ID.String(), "path": job.Path})
				err := p.dl.Download(ctx, job.URL, job.Path)
				resCh <- JobResult{Job: job, Err: err}
			}
		}()
	}

	sent := 0
feed:
	for _, job := range jobs {
		select {
		case <-ctx.Done():
			break feed
		case jobCh <- job:
			sent++
		}
	}
	close(jobCh)
	wg.Wait()
	close(resCh)

	results := make([]JobResult, 0, len(jobs))
	for r := range resCh {
		results = append(results, r)
	}
	for _, job := range jobs[sent:] {
		results = append(results, JobResult{Job: job, Err: ctx.Err()})
	}
	return results
}
