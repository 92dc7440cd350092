package service

import (
	"context"
	"strings"

	"github.com/trace-graph/internal/errors"
	"github.com/trace-graph/internal/logging"
	"github.com/trace-graph/internal/models"
	"github.com/trace-graph/internal/storage"
)

// TraceStore is the ledger surface the graph pipeline reads from
type TraceStore interface {
	InsertBatch(ctx context.Context, traces []*models.Trace) error
	GetByAddress(ctx context.Context, address string) ([]*models.Trace, error)
	GetByBlock(ctx context.Context, blockNumber uint64) ([]*models.Trace, error)
	GetByAddressSet(ctx context.Context, addresses []string) ([]*models.Trace, error)
}

// GraphService turns raw trace rows into graph responses: a per-record
// timeline for one address, or a deduplicated edge list for a block.
type GraphService struct {
	traces   TraceStore
	metadata *MetadataService
	cache    *storage.CacheService
}

// NewGraphService creates a new graph service. The cache may be nil, in
// which case every query hits the ledger.
func NewGraphService(traces TraceStore, metadata *MetadataService, cache *storage.CacheService) *GraphService {
	return &GraphService{
		traces:   traces,
		metadata: metadata,
		cache:    cache,
	}
}

// TraceByAddress returns the full per-record timeline for one address with
// metadata for every endpoint seen. An address with no traces and no stored
// metadata is a not-found condition; an address known to the metadata store
// but without traces yields an empty timeline.
func (s *GraphService) TraceByAddress(ctx context.Context, address string) (*models.TraceTimeline, error) {
	if err := storage.ValidateAddress(address); err != nil {
		return nil, err
	}
	address = strings.ToLower(address)

	if s.cache != nil {
		var cached models.TraceTimeline
		key := s.cache.GenerateAddressTraceKey(address)
		if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
			logging.GetGlobalLogger().WithError(err).Warn("Trace cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	traces, err := s.traces.GetByAddress(ctx, address)
	if err != nil {
		return nil, errors.NewDatabaseError("trace lookup", err)
	}

	if len(traces) == 0 {
		if _, err := s.metadata.GetAddress(ctx, address); err != nil {
			return nil, err
		}
		// Known address, just no activity yet.
		return &models.TraceTimeline{
			Traces:   []*models.Trace{},
			Metadata: s.metadata.Enrich(ctx, []string{address}),
		}, nil
	}

	timeline := &models.TraceTimeline{
		Traces:   traces,
		Metadata: s.metadata.Enrich(ctx, CollectAddresses(traces)),
	}

	if s.cache != nil {
		s.cacheSet(ctx, s.cache.GenerateAddressTraceKey(address), timeline)
	}

	return timeline, nil
}

// TraceByBlock returns the deduplicated edge graph for one block. A block
// with zero traces is an empty graph, not an error.
func (s *GraphService) TraceByBlock(ctx context.Context, blockNumber uint64) (*models.TraceGraph, error) {
	if s.cache != nil {
		var cached models.TraceGraph
		key := s.cache.GenerateBlockGraphKey(blockNumber)
		if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
			logging.GetGlobalLogger().WithError(err).Warn("Block graph cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	traces, err := s.traces.GetByBlock(ctx, blockNumber)
	if err != nil {
		return nil, errors.NewDatabaseError("block trace lookup", err)
	}

	graph := &models.TraceGraph{
		Edges:    AggregateEdges(traces),
		Metadata: s.metadata.Enrich(ctx, CollectAddresses(traces)),
	}

	if s.cache != nil {
		s.cacheSet(ctx, s.cache.GenerateBlockGraphKey(blockNumber), graph)
	}

	return graph, nil
}

// TraceByTransaction is reserved; transaction-scoped graphs are not served yet
func (s *GraphService) TraceByTransaction(ctx context.Context, txHash string) (*models.TraceGraph, error) {
	return nil, errors.NewNotImplementedError("transaction trace lookup")
}

// IngestTraces appends a batch of traces to the ledger
func (s *GraphService) IngestTraces(ctx context.Context, traces []*models.Trace) error {
	for _, t := range traces {
		if t.ID == "" {
			return errors.NewInvalidParameterError("id", "trace id is required")
		}
		if t.ToAddr == "" {
			return errors.NewInvalidParameterError("to_addr", "trace target address is required")
		}
	}

	if err := s.traces.InsertBatch(ctx, traces); err != nil {
		return errors.NewDatabaseError("trace ingest", err)
	}

	return nil
}

func (s *GraphService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		logging.GetGlobalLogger().WithError(err).WithField("key", key).Warn("Cache write failed")
	}
}
