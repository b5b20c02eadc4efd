package store

import (
	"context"
	"sync"

	"github.com/longhornrumble/widget-backend/internal/model"
)

// InMemoryStore implements Store with maps. Used in development and tests.
type InMemoryStore struct {
	mu          sync.RWMutex
	submissions map[string]*model.Submission
	smsUsage    map[string]int64
}

// NewInMemoryStore creates an in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		submissions: make(map[string]*model.Submission),
		smsUsage:    make(map[string]int64),
	}
}

// PutSubmission implements Store.
func (s *InMemoryStore) PutSubmission(ctx context.Context, sub *model.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *sub
	s.submissions[submissionKey(sub.TenantID, sub.SubmissionID)] = &copied
	return nil
}

// GetSubmission implements Store.
func (s *InMemoryStore) GetSubmission(ctx context.Context, tenantID, submissionID string) (*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[submissionKey(tenantID, submissionID)]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *sub
	return &copied, nil
}

// GetSMSUsage implements Store.
func (s *InMemoryStore) GetSMSUsage(ctx context.Context, tenantID, yyyymm string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.smsUsage[smsUsageKey(tenantID, yyyymm)], nil
}

// IncrSMSUsage implements Store.
func (s *InMemoryStore) IncrSMSUsage(ctx context.Context, tenantID, yyyymm string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := smsUsageKey(tenantID, yyyymm)
	s.smsUsage[key]++
	return s.smsUsage[key], nil
}

// SetSMSUsage seeds a counter. Tests only.
func (s *InMemoryStore) SetSMSUsage(tenantID, yyyymm string, count int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.smsUsage[smsUsageKey(tenantID, yyyymm)] = count
}

// Ping implements Store.
func (s *InMemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close implements Store.
func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions = nil
	s.smsUsage = nil
	return nil
}
