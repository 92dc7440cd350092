package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/trace-graph/internal/models"
	"github.com/trace-graph/internal/types"
)

// TraceRepository handles the trace ledger in ClickHouse. Rows are immutable
// once ingested; the graph pipeline only reads and aggregates them.
type TraceRepository struct {
	db *ClickHouseDB
}

// NewTraceRepository creates a new trace repository
func NewTraceRepository(db *ClickHouseDB) *TraceRepository {
	return &TraceRepository{db: db}
}

const traceColumns = `
	id, transaction_hash, block_number, block_timestamp,
	from_addr, to_addr, storage_addr, value, action, call_data`

// InsertBatch appends traces to the ledger
func (r *TraceRepository) InsertBatch(ctx context.Context, traces []*models.Trace) error {
	if len(traces) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `
		INSERT INTO traces (
			id, transaction_hash, block_number, block_timestamp,
			from_addr, to_addr, storage_addr, value, action, call_data
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, t := range traces {
		value := t.Value
		if value == "" {
			value = "0"
		}

		err := batch.Append(
			t.ID,
			t.TransactionHash,
			t.BlockNumber,
			t.BlockTimestamp,
			strings.ToLower(t.FromAddr),
			strings.ToLower(t.ToAddr),
			strings.ToLower(t.StorageAddr),
			value,
			string(t.Action),
			t.CallData,
		)
		if err != nil {
			return fmt.Errorf("failed to append trace %s: %w", t.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send trace batch: %w", err)
	}

	return nil
}

// GetByAddress returns all traces touching an address in any endpoint role,
// ordered by block then trace id for stable timeline display.
func (r *TraceRepository) GetByAddress(ctx context.Context, address string) ([]*models.Trace, error) {
	address = strings.ToLower(address)

	query := `
		SELECT` + traceColumns + `
		FROM traces
		WHERE from_addr = ? OR to_addr = ? OR storage_addr = ?
		ORDER BY block_number, id
	`

	rows, err := r.db.Conn().Query(ctx, query, address, address, address)
	if err != nil {
		return nil, fmt.Errorf("failed to query traces by address: %w", err)
	}
	defer rows.Close()

	return scanTraces(rows)
}

// GetByBlock returns all traces recorded in one block
func (r *TraceRepository) GetByBlock(ctx context.Context, blockNumber uint64) ([]*models.Trace, error) {
	query := `
		SELECT` + traceColumns + `
		FROM traces
		WHERE block_number = ?
		ORDER BY id
	`

	rows, err := r.db.Conn().Query(ctx, query, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query traces by block: %w", err)
	}
	defer rows.Close()

	return scanTraces(rows)
}

// GetByAddressSet returns candidate traces whose target and semantic source
// both fall inside the given address set. Delegate rows key their source off
// storage_addr, so the query admits either source column; the aggregator
// applies the exact per-class restriction.
func (r *TraceRepository) GetByAddressSet(ctx context.Context, addresses []string) ([]*models.Trace, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	lowered := make([]string, len(addresses))
	for i, a := range addresses {
		lowered[i] = strings.ToLower(a)
	}

	query := `
		SELECT` + traceColumns + `
		FROM traces
		WHERE to_addr IN (?) AND (from_addr IN (?) OR storage_addr IN (?))
		ORDER BY block_number, id
	`

	rows, err := r.db.Conn().Query(ctx, query, lowered, lowered, lowered)
	if err != nil {
		return nil, fmt.Errorf("failed to query traces by address set: %w", err)
	}
	defer rows.Close()

	return scanTraces(rows)
}

// DistinctAddresses returns every address that appears as an endpoint of any
// trace. Used by the enrichment worker to find addresses needing metadata.
func (r *TraceRepository) DistinctAddresses(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT addr FROM (
			SELECT from_addr AS addr FROM traces
			UNION ALL
			SELECT to_addr AS addr FROM traces
			UNION ALL
			SELECT storage_addr AS addr FROM traces
		)
		WHERE addr != ''
	`

	rows, err := r.db.Conn().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct addresses: %w", err)
	}
	defer rows.Close()

	var addresses []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, addr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating addresses: %w", err)
	}

	return addresses, nil
}

func scanTraces(rows driver.Rows) ([]*models.Trace, error) {
	var traces []*models.Trace
	for rows.Next() {
		var t models.Trace
		var action string
		if err := rows.Scan(
			&t.ID, &t.TransactionHash, &t.BlockNumber, &t.BlockTimestamp,
			&t.FromAddr, &t.ToAddr, &t.StorageAddr, &t.Value, &action, &t.CallData,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trace row: %w", err)
		}
		t.Action = types.TraceAction(action)
		traces = append(traces, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trace rows: %w", err)
	}

	return traces, nil
}
