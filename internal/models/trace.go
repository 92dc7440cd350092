package models

import (
	"time"

	"github.com/trace-graph/internal/types"
)

// Trace represents one recorded execution step of a transaction. Rows are
// immutable once ingested; the graph pipeline only reads and aggregates them.
// StorageAddr is populated for delegate calls and names the storage context
// the call executed in.
type Trace struct {
	ID              string            `json:"id"`
	TransactionHash string            `json:"transaction_hash"`
	BlockNumber     uint64            `json:"block_number"`
	BlockTimestamp  time.Time         `json:"block_timestamp"`
	FromAddr        string            `json:"from_addr"`
	ToAddr          string            `json:"to_addr"`
	StorageAddr     string            `json:"storage_addr,omitempty"`
	Value           string            `json:"value"`
	Action          types.TraceAction `json:"action"`
	CallData        string            `json:"call_data,omitempty"`
}
