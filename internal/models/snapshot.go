package models

import "time"

// Snapshot is a user-named, persisted 2-D layout of a subset of addresses.
// Layout is stored; connectivity is derived from the trace ledger at read
// time. Saving under an existing name replaces the whole snapshot.
type Snapshot struct {
	ID          int64     `json:"snapshot_id"`
	Name        string    `json:"snapshot_name"`
	Description *string   `json:"description,omitempty"`
	ProtocolID  *int64    `json:"protocol_id,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SnapshotNode is one positioned address within a snapshot. Nodes are owned
// by their snapshot and cascade-deleted with it. The address is not required
// to reference a known metadata row.
type SnapshotNode struct {
	ID      int64  `json:"id"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Address string `json:"address"`
}

// SnapshotView is the read-side shape: the stored layout plus edges derived
// live from the trace ledger, restricted to pairs inside the node set.
type SnapshotView struct {
	SnapshotName string          `json:"snapshot_name"`
	SnapshotID   int64           `json:"snapshot_id"`
	Nodes        []*SnapshotNode `json:"nodes"`
	Traces       []*TraceEdge    `json:"traces"`
}
