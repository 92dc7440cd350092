package service

import (
	"context"
	"strings"

	"github.com/trace-graph/internal/errors"
	"github.com/trace-graph/internal/logging"
	"github.com/trace-graph/internal/models"
	"github.com/trace-graph/internal/storage"
)

// SnapshotStore is the persistence surface for named snapshots
type SnapshotStore interface {
	Replace(ctx context.Context, snapshot *models.Snapshot, nodes []*models.SnapshotNode) error
	GetByName(ctx context.Context, name string) (*models.Snapshot, error)
	GetNodes(ctx context.Context, snapshotID int64) ([]*models.SnapshotNode, error)
	List(ctx context.Context) ([]*models.Snapshot, error)
}

// SnapshotService persists named node layouts and reconstructs their graphs.
// Layout is stored; connectivity is derived from the trace ledger at read
// time, so a snapshot's edges reflect traces ingested after it was saved.
type SnapshotService struct {
	snapshots SnapshotStore
	traces    TraceStore
	cache     *storage.CacheService
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(snapshots SnapshotStore, traces TraceStore, cache *storage.CacheService) *SnapshotService {
	return &SnapshotService{
		snapshots: snapshots,
		traces:    traces,
		cache:     cache,
	}
}

// Save creates or atomically replaces the snapshot stored under the given
// name and returns its new surrogate id. Validation happens before any write
// so a malformed node never leaves partial state behind.
func (s *SnapshotService) Save(ctx context.Context, snapshot *models.Snapshot, nodes []*models.SnapshotNode) (int64, error) {
	if strings.TrimSpace(snapshot.Name) == "" {
		return 0, errors.NewInvalidParameterError("snapshot_name", "must be a non-empty string")
	}
	if nodes == nil {
		return 0, errors.NewInvalidParameterError("snapshot_nodes", "must be an array of nodes")
	}
	for _, node := range nodes {
		if strings.TrimSpace(node.Address) == "" {
			return 0, errors.NewInvalidParameterError("snapshot_nodes", "every node needs a non-empty address")
		}
	}

	if err := s.snapshots.Replace(ctx, snapshot, nodes); err != nil {
		return 0, errors.NewDatabaseError("snapshot replace", err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateSnapshot(ctx, snapshot.Name); err != nil {
			logging.GetGlobalLogger().WithError(err).WithField("snapshot", snapshot.Name).Warn("Snapshot cache invalidation failed")
		}
	}

	return snapshot.ID, nil
}

// Read resolves a snapshot by name: the stored layout plus an edge list
// derived live from the ledger, restricted to pairs whose endpoints are both
// snapshot nodes. An unknown name is not-found; a snapshot with zero nodes
// short-circuits to empty nodes and edges without touching the ledger.
func (s *SnapshotService) Read(ctx context.Context, name string) (*models.SnapshotView, error) {
	if s.cache != nil {
		var cached models.SnapshotView
		key := s.cache.GenerateSnapshotKey(name)
		if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
			logging.GetGlobalLogger().WithError(err).Warn("Snapshot cache read failed")
		} else if hit {
			return &cached, nil
		}
	}

	snapshot, err := s.snapshots.GetByName(ctx, name)
	if err != nil {
		return nil, errors.NewDatabaseError("snapshot lookup", err)
	}
	if snapshot == nil {
		return nil, errors.NewNotFoundError("snapshot", name)
	}

	nodes, err := s.snapshots.GetNodes(ctx, snapshot.ID)
	if err != nil {
		return nil, errors.NewDatabaseError("snapshot node lookup", err)
	}

	view := &models.SnapshotView{
		SnapshotName: snapshot.Name,
		SnapshotID:   snapshot.ID,
		Nodes:        []*models.SnapshotNode{},
		Traces:       []*models.TraceEdge{},
	}

	if len(nodes) == 0 {
		return view, nil
	}
	view.Nodes = nodes

	addressSet := make(map[string]bool, len(nodes))
	addresses := make([]string, 0, len(nodes))
	for _, node := range nodes {
		addr := strings.ToLower(node.Address)
		if !addressSet[addr] {
			addressSet[addr] = true
			addresses = append(addresses, addr)
		}
	}

	traces, err := s.traces.GetByAddressSet(ctx, addresses)
	if err != nil {
		return nil, errors.NewDatabaseError("snapshot trace lookup", err)
	}

	view.Traces = RestrictToAddressSet(AggregateEdges(traces), addressSet)

	if s.cache != nil {
		key := s.cache.GenerateSnapshotKey(name)
		if err := s.cache.Set(ctx, key, view); err != nil {
			logging.GetGlobalLogger().WithError(err).WithField("key", key).Warn("Cache write failed")
		}
	}

	return view, nil
}

// List returns every stored snapshot, newest first.
func (s *SnapshotService) List(ctx context.Context) ([]*models.Snapshot, error) {
	snapshots, err := s.snapshots.List(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("snapshot list", err)
	}
	if snapshots == nil {
		snapshots = []*models.Snapshot{}
	}
	return snapshots, nil
}
