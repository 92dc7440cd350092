package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/trace-graph/internal/errors"
	"github.com/trace-graph/internal/models"
	"github.com/trace-graph/internal/storage"
)

// SecurityStore persists scorer verdicts
type SecurityStore interface {
	Get(ctx context.Context, address string) (*models.SecurityCheck, error)
	Put(ctx context.Context, check *models.SecurityCheck) error
}

// Scorer is the external risk-assessment collaborator
type Scorer interface {
	Assess(ctx context.Context, address string, metadata *models.AddressMetadata) (int, json.RawMessage, error)
}

// SecurityService is a read-through, permanent cache in front of the scorer.
// A stored verdict is served forever; there is no invalidation or re-scoring
// path on reads.
type SecurityService struct {
	checks   SecurityStore
	scorer   Scorer
	metadata *MetadataService
}

// NewSecurityService creates a new security service
func NewSecurityService(checks SecurityStore, scorer Scorer, metadata *MetadataService) *SecurityService {
	return &SecurityService{
		checks:   checks,
		scorer:   scorer,
		metadata: metadata,
	}
}

// GetOrAssess returns the stored verdict for an address, or scores it once
// and persists the result. The address shape is validated before any I/O.
func (s *SecurityService) GetOrAssess(ctx context.Context, address string) (*models.SecurityCheckResult, error) {
	if err := storage.ValidateAddress(address); err != nil {
		return nil, err
	}
	address = strings.ToLower(address)

	existing, err := s.checks.Get(ctx, address)
	if err != nil {
		return nil, errors.NewDatabaseError("security check lookup", err)
	}
	if existing != nil {
		return &models.SecurityCheckResult{
			Address: existing.Address,
			Score:   existing.Score,
			Reports: existing.Reports,
			Cached:  true,
		}, nil
	}

	// The scorer wants whatever metadata we hold; an unknown address is
	// assessed from an all-null entry.
	meta, err := s.metadata.addresses.Get(ctx, address)
	if err != nil {
		return nil, errors.NewDatabaseError("address lookup", err)
	}
	if meta == nil {
		meta = models.EmptyMetadata(address)
	}

	score, reports, err := s.scorer.Assess(ctx, address, meta)
	if err != nil {
		return nil, err
	}

	check := &models.SecurityCheck{
		Address:   address,
		Score:     score,
		Reports:   reports,
		CheckedAt: time.Now().UTC(),
	}
	// Persisted before being returned; a concurrent check of the same
	// address may have won the race, which is fine.
	if err := s.checks.Put(ctx, check); err != nil {
		return nil, errors.NewDatabaseError("security check store", err)
	}

	return &models.SecurityCheckResult{
		Address: address,
		Score:   score,
		Reports: reports,
		Cached:  false,
	}, nil
}
