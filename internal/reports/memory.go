package reports

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps reports in process memory. It is the default
// backend; reports do not survive a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*Report
}

// NewMemoryStore creates an empty in-memory report store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*Report)}
}

// Save stores a report, replacing any existing report with the same ID.
func (s *MemoryStore) Save(_ context.Context, report *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.ID] = report
	return nil
}

// Get returns the report with the given ID.
func (s *MemoryStore) Get(_ context.Context, id string) (*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	return report, nil
}

// List returns summaries of all stored reports, newest first.
func (s *MemoryStore) List(_ context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*Report, 0, len(s.reports))
	for _, report := range s.reports {
		all = append(all, report)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	summaries := make([]Summary, 0, len(all))
	for _, report := range all {
		summaries = append(summaries, Summary{
			ID:        report.ID,
			Status:    report.Status,
			Filename:  report.Metadata.Filename,
			FlagCount: len(report.Flags),
		})
	}
	return summaries, nil
}

// Delete removes the report with the given ID.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
