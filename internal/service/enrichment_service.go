package service

import (
	"context"
	"strings"
	"time"

	"github.com/trace-graph/internal/logging"
	"github.com/trace-graph/internal/models"
)

// AddressLister yields the addresses seen anywhere in the trace ledger
type AddressLister interface {
	DistinctAddresses(ctx context.Context) ([]string, error)
}

// EnrichmentTarget is the writable side of the address store
type EnrichmentTarget interface {
	Exists(ctx context.Context, address string) (bool, error)
	Upsert(ctx context.Context, metadata *models.AddressMetadata) error
}

// ContractSource fetches on-chain contract details for an address
type ContractSource interface {
	GetBytecode(ctx context.Context, address string) ([]byte, error)
	GetContractMetadata(ctx context.Context, address string) (*models.AddressMetadata, error)
}

// EnrichmentService walks the trace ledger's address universe and fills in
// metadata rows for addresses the store has not seen. Addresses already
// present are skipped, so the worker is safe to re-run.
type EnrichmentService struct {
	lister AddressLister
	target EnrichmentTarget
	source ContractSource
}

// NewEnrichmentService creates a new enrichment service
func NewEnrichmentService(lister AddressLister, target EnrichmentTarget, source ContractSource) *EnrichmentService {
	return &EnrichmentService{
		lister: lister,
		target: target,
		source: source,
	}
}

// EnrichmentStats summarizes one enrichment run
type EnrichmentStats struct {
	Total    int
	Skipped  int
	Enriched int
	Failed   int
}

// Run enriches every ledger address missing from the store. Individual
// address failures are logged and counted, not fatal: the run continues so
// one flaky upstream response cannot starve the rest of the universe.
func (s *EnrichmentService) Run(ctx context.Context) (*EnrichmentStats, error) {
	addresses, err := s.lister.DistinctAddresses(ctx)
	if err != nil {
		return nil, err
	}

	log := logging.GetGlobalLogger()
	stats := &EnrichmentStats{Total: len(addresses)}
	log.WithField("addresses", stats.Total).Info("Starting address enrichment")

	for i, address := range addresses {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}

		address = strings.ToLower(address)
		exists, err := s.target.Exists(ctx, address)
		if err != nil {
			return stats, err
		}
		if exists {
			stats.Skipped++
			continue
		}

		if err := s.enrichOne(ctx, address); err != nil {
			stats.Failed++
			log.WithError(err).WithField("address", address).Warn("Failed to enrich address")
			continue
		}

		stats.Enriched++
		if (i+1)%100 == 0 {
			log.WithFields(map[string]interface{}{
				"processed": i + 1,
				"total":     stats.Total,
			}).Info("Enrichment progress")
		}
	}

	log.WithFields(map[string]interface{}{
		"enriched": stats.Enriched,
		"skipped":  stats.Skipped,
		"failed":   stats.Failed,
	}).Info("Address enrichment finished")

	return stats, nil
}

func (s *EnrichmentService) enrichOne(ctx context.Context, address string) error {
	bytecode, err := s.source.GetBytecode(ctx, address)
	if err != nil {
		return err
	}

	// No deployed code means an externally owned account; store the bare row.
	if len(bytecode) == 0 {
		return s.target.Upsert(ctx, &models.AddressMetadata{Address: address})
	}

	meta, err := s.source.GetContractMetadata(ctx, address)
	if err != nil {
		return err
	}

	meta.Address = address
	meta.IsContract = true
	meta.ContractBytecode = bytecode

	return s.target.Upsert(ctx, meta)
}

// RunPeriodically runs enrichment on an interval until the context ends
func (s *EnrichmentService) RunPeriodically(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.Run(ctx); err != nil {
			logging.GetGlobalLogger().WithError(err).Error("Enrichment run failed")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
