package repository

import (
	"context"
	"sync"
	"time"

	"github.com/realsuite/docintel-back/internal/domain"
)

// ResultsRepository is the append-only store for analysis outputs. Results
// are never updated; reruns insert new rows.
type ResultsRepository interface {
	CreateChangeSet(ctx context.Context, changeSet *domain.ChangeSet) error
	GetChangeSet(ctx context.Context, changeSetID string) (*domain.ChangeSet, error)
	CreateCheckResult(ctx context.Context, result *domain.ComplianceCheckResult) error
	GetCheckResult(ctx context.Context, resultID string) (*domain.ComplianceCheckResult, error)
}

type MemoryResultsRepository struct {
	mu           sync.RWMutex
	changeSets   map[string]*domain.ChangeSet
	checkResults map[string]*domain.ComplianceCheckResult
}

func NewMemoryResultsRepository() *MemoryResultsRepository {
	return &MemoryResultsRepository{
		changeSets:   make(map[string]*domain.ChangeSet),
		checkResults: make(map[string]*domain.ComplianceCheckResult),
	}
}

func (r *MemoryResultsRepository) CreateChangeSet(_ context.Context, changeSet *domain.ChangeSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if changeSet.CreatedAt.IsZero() {
		changeSet.CreatedAt = time.Now().UTC()
	}
	clone := *changeSet
	clone.Operations = append([]domain.ChangeOperation(nil), changeSet.Operations...)
	clone.CriticalChanges = append([]domain.CriticalChange(nil), changeSet.CriticalChanges...)
	r.changeSets[changeSet.ID] = &clone
	return nil
}

func (r *MemoryResultsRepository) GetChangeSet(_ context.Context, changeSetID string) (*domain.ChangeSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	changeSet, ok := r.changeSets[changeSetID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *changeSet
	clone.Operations = append([]domain.ChangeOperation(nil), changeSet.Operations...)
	clone.CriticalChanges = append([]domain.CriticalChange(nil), changeSet.CriticalChanges...)
	return &clone, nil
}

func (r *MemoryResultsRepository) CreateCheckResult(
	_ context.Context,
	result *domain.ComplianceCheckResult,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}
	clone := *result
	clone.RuleResults = append([]domain.RuleResult(nil), result.RuleResults...)
	clone.MissingFields = append([]string(nil), result.MissingFields...)
	if result.SeverityCounts != nil {
		clone.SeverityCounts = make(map[domain.Severity]int, len(result.SeverityCounts))
		for severity, count := range result.SeverityCounts {
			clone.SeverityCounts[severity] = count
		}
	}
	r.checkResults[result.ID] = &clone
	return nil
}

func (r *MemoryResultsRepository) GetCheckResult(
	_ context.Context,
	resultID string,
) (*domain.ComplianceCheckResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result, ok := r.checkResults[resultID]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *result
	clone.RuleResults = append([]domain.RuleResult(nil), result.RuleResults...)
	clone.MissingFields = append([]string(nil), result.MissingFields...)
	return &clone, nil
}
