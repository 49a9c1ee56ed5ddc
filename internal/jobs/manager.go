// Package jobs tracks background work, currently drawing extraction.
package jobs

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one tracked unit of background work.
type Job struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Metadata carries job-specific references (e.g. the drawing id).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Manager runs and tracks background jobs.
type Manager struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewManager creates a job manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{jobs: make(map[string]*Job), logger: logger}
}

// Run starts fn in the background and returns the tracking record
// immediately. The job transitions to completed or failed when fn
// returns; cancellation of ctx fails the job.
func (m *Manager) Run(ctx context.Context, jobType string, metadata map[string]string, fn func(context.Context) error) *Job {
	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
		Metadata:  metadata,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.setStatus(job.ID, StatusRunning, "")
		if err := fn(ctx); err != nil {
			m.logger.Error("job failed", "job", job.ID, "type", jobType, "error", err)
			m.setStatus(job.ID, StatusFailed, err.Error())
			return
		}
		m.setStatus(job.ID, StatusCompleted, "")
	}()

	return job
}

func (m *Manager) setStatus(id string, status Status, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.jobs[id]; ok {
		job.Status = status
		job.Error = errMsg
		job.UpdatedAt = time.Now().UTC()
	}
}

// Get returns a copy of a job by id.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns copies of all jobs, newest first.
func (m *Manager) List() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Counts returns the number of jobs per status.
func (m *Manager) Counts() map[Status]int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[Status]int)
	for _, j := range m.jobs {
		counts[j.Status]++
	}
	return counts
}

// Wait blocks until all running jobs finish. Used during shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}
