package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type jobStatus string

const (
	jobRunning jobStatus = "running"
	jobDone    jobStatus = "completed"
	jobFailed  jobStatus = "failed"
)

// Job is an asynchronous analysis run.
type Job struct {
	ID         string     `json:"job_id"`
	Kind       string     `json:"kind"`
	BaseType   string     `json:"base_type"`
	Status     jobStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	Result     any        `json:"result,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type jobQueue struct {
	ctx  context.Context
	mu   sync.RWMutex
	jobs map[string]*Job
	wg   sync.WaitGroup
}

func newJobQueue(ctx context.Context) *jobQueue {
	return &jobQueue{ctx: ctx, jobs: make(map[string]*Job)}
}

// start registers a job and runs fn in the background.
func (q *jobQueue) start(kind, baseType string, fn func(ctx context.Context) (any, error)) Job {
	j := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		BaseType:  baseType,
		Status:    jobRunning,
		CreatedAt: time.Now().UTC(),
	}
	q.mu.Lock()
	q.jobs[j.ID] = j
	snapshot := *j
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		result, err := fn(q.ctx)

		q.mu.Lock()
		defer q.mu.Unlock()
		now := time.Now().UTC()
		j.FinishedAt = &now
		if err != nil {
			j.Status = jobFailed
			j.Error = err.Error()
			return
		}
		j.Status = jobDone
		j.Result = result
	}()
	return snapshot
}

func (q *jobQueue) get(id string) (Job, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	j, ok := q.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// wait blocks until every started job has finished.
func (q *jobQueue) wait() {
	q.wg.Wait()
}
