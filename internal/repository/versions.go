package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/realsuite/docintel-back/internal/domain"
)

// VersionsRepository stores document versions and the relationship edges
// between them. Sequence numbers are assigned on insert and are strictly
// increasing per document.
type VersionsRepository interface {
	CreateVersion(ctx context.Context, version *domain.DocumentVersion) error
	GetVersion(ctx context.Context, versionID string) (*domain.DocumentVersion, error)
	ListVersions(ctx context.Context, documentID string) ([]*domain.DocumentVersion, error)
	// PreviousVersion returns the version immediately preceding the given
	// sequence number for a document, or ErrNotFound when none exists.
	PreviousVersion(ctx context.Context, documentID string, beforeSequence int) (*domain.DocumentVersion, error)
	CreateRelationship(ctx context.Context, rel *domain.DocumentRelationship) error
	ListRelationships(ctx context.Context, versionID string) ([]*domain.DocumentRelationship, error)
}

type MemoryVersionsRepository struct {
	mu            sync.RWMutex
	versions      map[string]*domain.DocumentVersion
	byDocument    map[string][]string
	relationships []*domain.DocumentRelationship
}

func NewMemoryVersionsRepository() *MemoryVersionsRepository {
	return &MemoryVersionsRepository{
		versions:   make(map[string]*domain.DocumentVersion),
		byDocument: make(map[string][]string),
	}
}

func (r *MemoryVersionsRepository) CreateVersion(_ context.Context, version *domain.DocumentVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	version.SequenceNumber = len(r.byDocument[version.DocumentID]) + 1
	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}
	r.versions[version.ID] = cloneVersion(version)
	r.byDocument[version.DocumentID] = append(r.byDocument[version.DocumentID], version.ID)
	return nil
}

func (r *MemoryVersionsRepository) GetVersion(_ context.Context, versionID string) (*domain.DocumentVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	version, ok := r.versions[versionID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneVersion(version), nil
}

func (r *MemoryVersionsRepository) ListVersions(
	_ context.Context,
	documentID string,
) ([]*domain.DocumentVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byDocument[documentID]
	versions := make([]*domain.DocumentVersion, 0, len(ids))
	for _, id := range ids {
		versions = append(versions, cloneVersion(r.versions[id]))
	}
	sort.Slice(versions, func(a, b int) bool {
		return versions[a].SequenceNumber < versions[b].SequenceNumber
	})
	return versions, nil
}

func (r *MemoryVersionsRepository) PreviousVersion(
	ctx context.Context,
	documentID string,
	beforeSequence int,
) (*domain.DocumentVersion, error) {
	versions, err := r.ListVersions(ctx, documentID)
	if err != nil {
		return nil, err
	}
	var previous *domain.DocumentVersion
	for _, version := range versions {
		if version.SequenceNumber < beforeSequence {
			previous = version
		}
	}
	if previous == nil {
		return nil, ErrNotFound
	}
	return previous, nil
}

func (r *MemoryVersionsRepository) CreateRelationship(
	_ context.Context,
	rel *domain.DocumentRelationship,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}
	clone := *rel
	r.relationships = append(r.relationships, &clone)
	return nil
}

func (r *MemoryVersionsRepository) ListRelationships(
	_ context.Context,
	versionID string,
) ([]*domain.DocumentRelationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]*domain.DocumentRelationship, 0)
	for _, rel := range r.relationships {
		if rel.FromVersionID == versionID || rel.ToVersionID == versionID {
			clone := *rel
			matches = append(matches, &clone)
		}
	}
	sort.Slice(matches, func(a, b int) bool {
		return matches[a].CreatedAt.Before(matches[b].CreatedAt)
	})
	return matches, nil
}

func cloneVersion(version *domain.DocumentVersion) *domain.DocumentVersion {
	if version == nil {
		return nil
	}
	clone := *version
	if version.StructuredFields != nil {
		clone.StructuredFields = make(map[string]string, len(version.StructuredFields))
		for key, value := range version.StructuredFields {
			clone.StructuredFields[key] = value
		}
	}
	return &clone
}
