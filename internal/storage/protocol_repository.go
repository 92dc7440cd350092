package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/trace-graph/internal/models"
)

// ProtocolRepository handles protocol identity persistence
type ProtocolRepository struct {
	db *PostgresDB
}

// NewProtocolRepository creates a new protocol repository
func NewProtocolRepository(db *PostgresDB) *ProtocolRepository {
	return &ProtocolRepository{db: db}
}

// Create registers a new protocol and fills in its surrogate id
func (r *ProtocolRepository) Create(ctx context.Context, p *models.Protocol) error {
	query := `
		INSERT INTO protocols (protocol_name, protocol_symbol, protocol_type, main_address, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.Pool().QueryRow(ctx, query,
		p.Name, p.Symbol, p.Type, p.MainAddress, p.Description,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create protocol: %w", err)
	}

	return nil
}

// GetByID retrieves a protocol by its surrogate id. Returns nil without
// error when absent.
func (r *ProtocolRepository) GetByID(ctx context.Context, id int64) (*models.Protocol, error) {
	query := `
		SELECT id, protocol_name, protocol_symbol, protocol_type, main_address, description, created_at
		FROM protocols
		WHERE id = $1
	`

	var p models.Protocol
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Symbol, &p.Type, &p.MainAddress, &p.Description, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get protocol: %w", err)
	}

	return &p, nil
}

// List retrieves all protocols sorted by name
func (r *ProtocolRepository) List(ctx context.Context) ([]*models.Protocol, error) {
	query := `
		SELECT id, protocol_name, protocol_symbol, protocol_type, main_address, description, created_at
		FROM protocols
		ORDER BY protocol_name
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list protocols: %w", err)
	}
	defer rows.Close()

	var protocols []*models.Protocol
	for rows.Next() {
		var p models.Protocol
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Symbol, &p.Type, &p.MainAddress, &p.Description, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan protocol: %w", err)
		}
		protocols = append(protocols, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating protocol rows: %w", err)
	}

	return protocols, nil
}
