package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/trace-graph/internal/models"
	"github.com/trace-graph/internal/types"
)

// Ethereum address regex pattern (0x followed by 40 hexadecimal characters)
var ethereumAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// AddressRepository handles address metadata persistence. Rows are written by
// the enrichment worker and read by the graph pipeline.
type AddressRepository struct {
	db *PostgresDB
}

// NewAddressRepository creates a new address repository
func NewAddressRepository(db *PostgresDB) *AddressRepository {
	return &AddressRepository{db: db}
}

// ValidateAddress validates an Ethereum address format
func ValidateAddress(address string) error {
	if !ethereumAddressRegex.MatchString(address) {
		return &types.ServiceError{
			Code:    "INVALID_ADDRESS_FORMAT",
			Message: fmt.Sprintf("invalid address format: %s (must be 0x followed by 40 hexadecimal characters)", address),
			Details: map[string]any{
				"address": address,
				"format":  "0x[a-fA-F0-9]{40}",
			},
		}
	}
	return nil
}

const addressMetadataColumns = `
	a.address, a.is_contract, a.is_proxy, a.is_verified,
	a.contract_source_code, a.contract_abi, a.contract_name,
	a.compiler_version, a.license_type,
	a.protocol_id, p.protocol_name`

// Get retrieves the metadata row for a single address, joined with its
// protocol if one is assigned. Returns nil without error when absent.
func (r *AddressRepository) Get(ctx context.Context, address string) (*models.AddressMetadata, error) {
	address = strings.ToLower(address)

	query := `
		SELECT` + addressMetadataColumns + `
		FROM addresses a
		LEFT JOIN protocols p ON p.id = a.protocol_id
		WHERE a.address = $1
	`

	var m models.AddressMetadata
	err := r.db.Pool().QueryRow(ctx, query, address).Scan(
		&m.Address, &m.IsContract, &m.IsProxy, &m.IsVerified,
		&m.ContractSourceCode, &m.ContractABI, &m.ContractName,
		&m.CompilerVersion, &m.LicenseType,
		&m.ProtocolID, &m.ProtocolName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get address metadata: %w", err)
	}

	return &m, nil
}

// GetBatch retrieves metadata for a set of addresses in one query. Addresses
// absent from the store are simply missing from the returned map; the
// enricher is responsible for filling those with all-null entries.
func (r *AddressRepository) GetBatch(ctx context.Context, addresses []string) (map[string]*models.AddressMetadata, error) {
	result := make(map[string]*models.AddressMetadata, len(addresses))
	if len(addresses) == 0 {
		return result, nil
	}

	lowered := make([]string, len(addresses))
	for i, a := range addresses {
		lowered[i] = strings.ToLower(a)
	}

	query := `
		SELECT` + addressMetadataColumns + `
		FROM addresses a
		LEFT JOIN protocols p ON p.id = a.protocol_id
		WHERE a.address = ANY($1)
	`

	rows, err := r.db.Pool().Query(ctx, query, lowered)
	if err != nil {
		return nil, fmt.Errorf("failed to query address metadata batch: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.AddressMetadata
		if err := rows.Scan(
			&m.Address, &m.IsContract, &m.IsProxy, &m.IsVerified,
			&m.ContractSourceCode, &m.ContractABI, &m.ContractName,
			&m.CompilerVersion, &m.LicenseType,
			&m.ProtocolID, &m.ProtocolName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan address metadata: %w", err)
		}
		result[m.Address] = &m
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating address metadata rows: %w", err)
	}

	return result, nil
}

// Exists reports whether a metadata row exists for an address
func (r *AddressRepository) Exists(ctx context.Context, address string) (bool, error) {
	var exists bool
	err := r.db.Pool().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM addresses WHERE address = $1)`,
		strings.ToLower(address),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check address existence: %w", err)
	}
	return exists, nil
}

// GetByProtocol retrieves all metadata rows assigned to a protocol
func (r *AddressRepository) GetByProtocol(ctx context.Context, protocolID int64) ([]*models.AddressMetadata, error) {
	query := `
		SELECT` + addressMetadataColumns + `
		FROM addresses a
		LEFT JOIN protocols p ON p.id = a.protocol_id
		WHERE a.protocol_id = $1
		ORDER BY a.address
	`

	rows, err := r.db.Pool().Query(ctx, query, protocolID)
	if err != nil {
		return nil, fmt.Errorf("failed to query addresses by protocol: %w", err)
	}
	defer rows.Close()

	var result []*models.AddressMetadata
	for rows.Next() {
		var m models.AddressMetadata
		if err := rows.Scan(
			&m.Address, &m.IsContract, &m.IsProxy, &m.IsVerified,
			&m.ContractSourceCode, &m.ContractABI, &m.ContractName,
			&m.CompilerVersion, &m.LicenseType,
			&m.ProtocolID, &m.ProtocolName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan address metadata: %w", err)
		}
		result = append(result, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating address metadata rows: %w", err)
	}

	return result, nil
}

// Upsert inserts or replaces the enrichment record for an address. Used by
// the enrichment worker only; the serving path never writes this table.
func (r *AddressRepository) Upsert(ctx context.Context, m *models.AddressMetadata) error {
	if err := ValidateAddress(m.Address); err != nil {
		return err
	}
	m.Address = strings.ToLower(m.Address)

	query := `
		INSERT INTO addresses (
			address, is_contract, is_proxy, is_verified,
			contract_bytecode, contract_source_code, contract_abi, contract_name,
			compiler_version, constructor_arguments, license_type
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (address) DO UPDATE SET
			is_contract = EXCLUDED.is_contract,
			is_proxy = EXCLUDED.is_proxy,
			is_verified = EXCLUDED.is_verified,
			contract_bytecode = EXCLUDED.contract_bytecode,
			contract_source_code = EXCLUDED.contract_source_code,
			contract_abi = EXCLUDED.contract_abi,
			contract_name = EXCLUDED.contract_name,
			compiler_version = EXCLUDED.compiler_version,
			constructor_arguments = EXCLUDED.constructor_arguments,
			license_type = EXCLUDED.license_type
	`

	_, err := r.db.Pool().Exec(ctx, query,
		m.Address,
		m.IsContract,
		m.IsProxy,
		m.IsVerified,
		m.ContractBytecode,
		m.ContractSourceCode,
		m.ContractABI,
		m.ContractName,
		m.CompilerVersion,
		m.ConstructorArguments,
		m.LicenseType,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert address metadata: %w", err)
	}

	return nil
}
