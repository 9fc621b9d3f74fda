package inmemory

import (
	"context"
	"fmt"
	"sync"

	"github.com/numa-app/numa-core/internal/jobs"
)

// Store is an in-memory implementation of jobs.Store, safe for concurrent
// use. Data is lost on process restart; a single worker instance is the
// only deployment shape this serves.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobs.RecategorizeJob
}

// NewStore creates a new in-memory job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*jobs.RecategorizeJob)}
}

// SaveJob implements jobs.Store.
func (s *Store) SaveJob(ctx context.Context, job *jobs.RecategorizeJob) error {
	if job.JobID == "" {
		return fmt.Errorf("jobs: job ID is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	jobCopy := *job
	s.jobs[job.JobID] = &jobCopy
	return nil
}

// GetJob implements jobs.Store.
func (s *Store) GetJob(ctx context.Context, jobID string) (*jobs.RecategorizeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return nil, fmt.Errorf("jobs: job not found: %s", jobID)
	}
	jobCopy := *job
	return &jobCopy, nil
}

// ListJobs implements jobs.Store.
func (s *Store) ListJobs(ctx context.Context, filter jobs.JobFilter) ([]*jobs.RecategorizeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*jobs.RecategorizeJob
	for _, job := range s.jobs {
		if filter.TransactionID != "" && job.TransactionID != filter.TransactionID {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		jobCopy := *job
		result = append(result, &jobCopy)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*jobs.RecategorizeJob{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

// UpdateJobStatus implements jobs.Store.
func (s *Store) UpdateJobStatus(ctx context.Context, jobID string, status jobs.JobStatus, errorMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return fmt.Errorf("jobs: job not found: %s", jobID)
	}
	job.Status = status
	if errorMsg != "" {
		job.Error = errorMsg
	}
	return nil
}

var _ jobs.Store = (*Store)(nil)
