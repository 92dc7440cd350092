package service

import (
	"sort"

	"github.com/trace-graph/internal/models"
	"github.com/trace-graph/internal/types"
)

// AggregateEdges collapses raw trace rows into a deduplicated edge list.
// Normal edges (call, create, create2) group on (from_addr, to_addr, action);
// delegate edges group on (storage_addr, to_addr, action) because the storage
// context is the semantic source of a delegate call. Actions outside the
// known enumeration form their own unclassified edges keyed like normal ones,
// so a typo in an upstream action name is visible instead of being merged
// into a call bucket.
func AggregateEdges(traces []*models.Trace) []*models.TraceEdge {
	type edgeKey struct {
		source string
		target string
		action types.TraceAction
		class  types.EdgeClass
	}

	grouped := make(map[edgeKey]*models.TraceEdge)
	order := make([]edgeKey, 0, len(traces))

	for _, t := range traces {
		class := types.ClassifyAction(t.Action)

		source := t.FromAddr
		if class == types.EdgeClassDelegate {
			source = t.StorageAddr
		}

		key := edgeKey{source: source, target: t.ToAddr, action: t.Action, class: class}
		if edge, ok := grouped[key]; ok {
			edge.Count++
			continue
		}

		edge := &models.TraceEdge{
			ToAddr: t.ToAddr,
			Action: t.Action,
			Class:  class,
			Count:  1,
		}
		if class == types.EdgeClassDelegate {
			edge.StorageAddr = source
		} else {
			edge.FromAddr = source
		}

		grouped[key] = edge
		order = append(order, key)
	}

	edges := make([]*models.TraceEdge, 0, len(order))
	for _, key := range order {
		edges = append(edges, grouped[key])
	}

	return edges
}

// RestrictToAddressSet filters edges to those whose source and target both
// belong to the given set. Used for snapshot views, where only connectivity
// among the stored nodes is wanted.
func RestrictToAddressSet(edges []*models.TraceEdge, addresses map[string]bool) []*models.TraceEdge {
	filtered := make([]*models.TraceEdge, 0, len(edges))
	for _, edge := range edges {
		if addresses[edge.SourceAddr()] && addresses[edge.ToAddr] {
			filtered = append(filtered, edge)
		}
	}
	return filtered
}

// CollectAddresses returns the sorted set of unique addresses appearing as
// any endpoint of the given traces, including the storage address of
// delegate rows.
func CollectAddresses(traces []*models.Trace) []string {
	seen := make(map[string]bool)
	for _, t := range traces {
		if t.FromAddr != "" {
			seen[t.FromAddr] = true
		}
		if t.ToAddr != "" {
			seen[t.ToAddr] = true
		}
		if t.StorageAddr != "" {
			seen[t.StorageAddr] = true
		}
	}

	addresses := make([]string, 0, len(seen))
	for addr := range seen {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	return addresses
}
