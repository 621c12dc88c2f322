package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/realsuite/docintel-back/internal/domain"
	"github.com/realsuite/docintel-back/internal/repository"
)

// ErrInvalidVersion marks ingest requests rejected before anything is stored.
var ErrInvalidVersion = errors.New("invalid document version")

// IngestVersionInput is one extracted document snapshot to be stored.
type IngestVersionInput struct {
	DocumentID           string
	Category             domain.Category
	RawText              string
	StructuredFields     map[string]string
	ExtractionConfidence float64
	EngineUsed           string
	Degraded             bool
	PageImageRef         string
}

type VersionsService struct {
	versions repository.VersionsRepository
	jobs     *JobsService
	logger   *log.Logger

	// autoAnalyze submits summarize, check_compliance and, from the second
	// version on, detect_changes for every ingested version.
	autoAnalyze bool
}

func NewVersionsService(
	versions repository.VersionsRepository,
	jobs *JobsService,
	autoAnalyze bool,
	logger *log.Logger,
) *VersionsService {
	return &VersionsService{versions: versions, jobs: jobs, autoAnalyze: autoAnalyze, logger: logger}
}

func (s *VersionsService) IngestVersion(
	ctx context.Context,
	input IngestVersionInput,
) (*domain.DocumentVersion, error) {
	if strings.TrimSpace(input.DocumentID) == "" {
		return nil, fmt.Errorf("%w: document_id is required", ErrInvalidVersion)
	}
	if !domain.ValidCategory(input.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidVersion, input.Category)
	}
	if strings.TrimSpace(input.RawText) == "" && input.PageImageRef == "" {
		return nil, fmt.Errorf("%w: raw_text or page_image_ref is required", ErrInvalidVersion)
	}
	if input.ExtractionConfidence < 0 || input.ExtractionConfidence > 1 {
		return nil, fmt.Errorf("%w: extraction_confidence must be within [0,1]", ErrInvalidVersion)
	}

	version := &domain.DocumentVersion{
		ID:                   uuid.NewString(),
		DocumentID:           input.DocumentID,
		Category:             input.Category,
		RawText:              input.RawText,
		StructuredFields:     input.StructuredFields,
		ExtractionConfidence: input.ExtractionConfidence,
		EngineUsed:           input.EngineUsed,
		Degraded:             input.Degraded,
		PageImageRef:         input.PageImageRef,
		CreatedAt:            time.Now().UTC(),
	}
	if err := s.versions.CreateVersion(ctx, version); err != nil {
		return nil, fmt.Errorf("create document version: %w", err)
	}

	if s.autoAnalyze && s.jobs != nil {
		s.submitAnalysis(ctx, version)
	}
	return version, nil
}

func (s *VersionsService) submitAnalysis(ctx context.Context, version *domain.DocumentVersion) {
	kinds := []domain.JobKind{domain.JobKindSummarize, domain.JobKindCheckCompliance}
	if version.SequenceNumber > 1 {
		kinds = append(kinds, domain.JobKindDetectChanges)
	}
	for _, kind := range kinds {
		_, err := s.jobs.SubmitJob(ctx, SubmitJobInput{
			Kind:              kind,
			DocumentVersionID: version.ID,
		})
		if err != nil && s.logger != nil {
			s.logger.Printf("auto-submit %s failed version_id=%s err=%v", kind, version.ID, err)
		}
	}
}

func (s *VersionsService) GetVersion(ctx context.Context, versionID string) (*domain.DocumentVersion, error) {
	return s.versions.GetVersion(ctx, versionID)
}

func (s *VersionsService) ListVersions(
	ctx context.Context,
	documentID string,
) ([]*domain.DocumentVersion, error) {
	return s.versions.ListVersions(ctx, documentID)
}

func (s *VersionsService) ListRelationships(
	ctx context.Context,
	versionID string,
) ([]*domain.DocumentRelationship, error) {
	if _, err := s.versions.GetVersion(ctx, versionID); err != nil {
		return nil, err
	}
	return s.versions.ListRelationships(ctx, versionID)
}

// LinkVersions records an explicit relationship edge between two stored
// versions.
func (s *VersionsService) LinkVersions(
	ctx context.Context,
	fromVersionID, toVersionID string,
	relType domain.RelationshipType,
) (*domain.DocumentRelationship, error) {
	if !domain.ValidRelationshipType(relType) {
		return nil, fmt.Errorf("%w: unknown relationship type %q", ErrInvalidVersion, relType)
	}
	if fromVersionID == toVersionID {
		return nil, fmt.Errorf("%w: a version cannot relate to itself", ErrInvalidVersion)
	}
	for _, id := range []string{fromVersionID, toVersionID} {
		if _, err := s.versions.GetVersion(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: document version %s does not exist", ErrInvalidVersion, id)
			}
			return nil, err
		}
	}

	rel := &domain.DocumentRelationship{
		ID:            uuid.NewString(),
		FromVersionID: fromVersionID,
		ToVersionID:   toVersionID,
		Type:          relType,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.versions.CreateRelationship(ctx, rel); err != nil {
		return nil, fmt.Errorf("create relationship: %w", err)
	}
	return rel, nil
}
