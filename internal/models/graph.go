package models

import "github.com/trace-graph/internal/types"

// TraceEdge is one deduplicated relationship between two addresses. Normal
// and unclassified edges carry from_addr; delegate edges carry storage_addr
// instead. Consumers discriminate by which field is present.
type TraceEdge struct {
	FromAddr    string            `json:"from_addr,omitempty"`
	StorageAddr string            `json:"storage_addr,omitempty"`
	ToAddr      string            `json:"to_addr"`
	Action      types.TraceAction `json:"action"`
	Class       types.EdgeClass   `json:"class"`
	Count       int64             `json:"count"`
}

// SourceAddr returns the edge's semantic source endpoint regardless of class.
func (e *TraceEdge) SourceAddr() string {
	if e.Class == types.EdgeClassDelegate {
		return e.StorageAddr
	}
	return e.FromAddr
}

// TraceGraph is a grouped-edge view over a batch of traces, returned for
// block and snapshot scoped queries.
type TraceGraph struct {
	Edges    []*TraceEdge                `json:"traces"`
	Metadata map[string]*AddressMetadata `json:"metadata"`
}

// TraceTimeline is the per-record view over one address's traces, suitable
// for timeline display.
type TraceTimeline struct {
	Traces   []*Trace                    `json:"traces"`
	Metadata map[string]*AddressMetadata `json:"metadata"`
}
