package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/trace-graph/internal/models"
)

// SecurityRepository persists scorer verdicts. Entries never expire: a
// stored verdict is served forever without re-contacting the scorer.
type SecurityRepository struct {
	db *PostgresDB
}

// NewSecurityRepository creates a new security check repository
func NewSecurityRepository(db *PostgresDB) *SecurityRepository {
	return &SecurityRepository{db: db}
}

// Get retrieves a cached verdict for an address. Returns nil if the address
// has never been checked.
func (r *SecurityRepository) Get(ctx context.Context, address string) (*models.SecurityCheck, error) {
	query := `
		SELECT address, score, reports, checked_at
		FROM security_check
		WHERE address = $1
	`

	var check models.SecurityCheck
	err := r.db.Pool().QueryRow(ctx, query, address).Scan(
		&check.Address, &check.Score, &check.Reports, &check.CheckedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get security check: %w", err)
	}

	return &check, nil
}

// Put stores a verdict. A concurrent check of the same address may have won
// the race; keep the existing row in that case.
func (r *SecurityRepository) Put(ctx context.Context, check *models.SecurityCheck) error {
	query := `
		INSERT INTO security_check (address, score, reports, checked_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO NOTHING
	`

	_, err := r.db.Pool().Exec(ctx, query,
		check.Address, check.Score, check.Reports, check.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store security check: %w", err)
	}

	return nil
}
