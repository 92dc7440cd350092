package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/trace-graph/internal/models"
)

// SnapshotRepository handles named graph snapshot storage operations
type SnapshotRepository struct {
	db *PostgresDB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *PostgresDB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Replace stores a snapshot under its name, removing any previous snapshot
// with the same name in the same transaction. Concurrent replaces of the same
// name serialize on an advisory lock keyed by the name, so readers never see a
// half-written snapshot.
func (r *SnapshotRepository) Replace(ctx context.Context, snapshot *models.Snapshot, nodes []*models.SnapshotNode) error {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock released automatically at commit/rollback.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, snapshot.Name); err != nil {
		return fmt.Errorf("failed to acquire snapshot lock: %w", err)
	}

	// snapshot_nodes rows go with it via ON DELETE CASCADE.
	if _, err := tx.Exec(ctx, `DELETE FROM snapshots WHERE snapshot_name = $1`, snapshot.Name); err != nil {
		return fmt.Errorf("failed to delete previous snapshot: %w", err)
	}

	query := `
		INSERT INTO snapshots (snapshot_name, description, protocol_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err = tx.QueryRow(ctx, query,
		snapshot.Name,
		snapshot.Description,
		snapshot.ProtocolID,
	).Scan(&snapshot.ID, &snapshot.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	for _, node := range nodes {
		_, err := tx.Exec(ctx, `
			INSERT INTO snapshot_nodes (snapshot_id, address, x, y)
			VALUES ($1, $2, $3, $4)
		`, snapshot.ID, node.Address, node.X, node.Y)
		if err != nil {
			return fmt.Errorf("failed to insert snapshot node %s: %w", node.Address, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	return nil
}

// GetByName retrieves a snapshot by its unique name. Returns nil if no
// snapshot with that name exists.
func (r *SnapshotRepository) GetByName(ctx context.Context, name string) (*models.Snapshot, error) {
	query := `
		SELECT id, snapshot_name, description, protocol_id, created_at
		FROM snapshots
		WHERE snapshot_name = $1
	`

	var s models.Snapshot
	err := r.db.Pool().QueryRow(ctx, query, name).Scan(
		&s.ID, &s.Name, &s.Description, &s.ProtocolID, &s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return &s, nil
}

// GetNodes returns the node layout stored for a snapshot
func (r *SnapshotRepository) GetNodes(ctx context.Context, snapshotID int64) ([]*models.SnapshotNode, error) {
	query := `
		SELECT id, address, x, y
		FROM snapshot_nodes
		WHERE snapshot_id = $1
		ORDER BY id
	`

	rows, err := r.db.Pool().Query(ctx, query, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*models.SnapshotNode
	for rows.Next() {
		var n models.SnapshotNode
		if err := rows.Scan(&n.ID, &n.Address, &n.X, &n.Y); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot node: %w", err)
		}
		nodes = append(nodes, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot nodes: %w", err)
	}

	return nodes, nil
}

// List returns all snapshots, newest first
func (r *SnapshotRepository) List(ctx context.Context) ([]*models.Snapshot, error) {
	query := `
		SELECT id, snapshot_name, description, protocol_id, created_at
		FROM snapshots
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.Snapshot
	for rows.Next() {
		var s models.Snapshot
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.ProtocolID, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return snapshots, nil
}
