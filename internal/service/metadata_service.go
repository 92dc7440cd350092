package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/trace-graph/internal/errors"
	"github.com/trace-graph/internal/logging"
	"github.com/trace-graph/internal/models"
)

// AddressStore is the metadata lookup surface the enricher reads from
type AddressStore interface {
	Get(ctx context.Context, address string) (*models.AddressMetadata, error)
	GetBatch(ctx context.Context, addresses []string) (map[string]*models.AddressMetadata, error)
	GetByProtocol(ctx context.Context, protocolID int64) ([]*models.AddressMetadata, error)
}

// ProtocolStore is the protocol registry surface
type ProtocolStore interface {
	Create(ctx context.Context, protocol *models.Protocol) error
	GetByID(ctx context.Context, id int64) (*models.Protocol, error)
	List(ctx context.Context) ([]*models.Protocol, error)
}

// MetadataService resolves address and protocol metadata for graph responses
// and serves the metadata endpoints directly.
type MetadataService struct {
	addresses AddressStore
	protocols ProtocolStore
}

// NewMetadataService creates a new metadata service
func NewMetadataService(addresses AddressStore, protocols ProtocolStore) *MetadataService {
	return &MetadataService{
		addresses: addresses,
		protocols: protocols,
	}
}

// Enrich resolves metadata for every address in one batched read. Addresses
// the store has never seen get an all-null entry, so every address present in
// a graph has a metadata key. If the store is unreachable the map degrades to
// empty instead of failing the caller: connectivity data is worth returning
// even without enrichment.
func (s *MetadataService) Enrich(ctx context.Context, addresses []string) map[string]*models.AddressMetadata {
	if len(addresses) == 0 {
		return map[string]*models.AddressMetadata{}
	}

	metadata, err := s.addresses.GetBatch(ctx, addresses)
	if err != nil {
		logging.GetGlobalLogger().WithError(err).Warn("Metadata lookup failed, returning graph without enrichment")
		return map[string]*models.AddressMetadata{}
	}

	for _, addr := range addresses {
		key := strings.ToLower(addr)
		if _, ok := metadata[key]; !ok {
			metadata[key] = models.EmptyMetadata(key)
		}
	}

	return metadata
}

// GetAddress returns metadata for one address; a miss is a not-found error
func (s *MetadataService) GetAddress(ctx context.Context, address string) (*models.AddressMetadata, error) {
	meta, err := s.addresses.Get(ctx, address)
	if err != nil {
		return nil, errors.NewDatabaseError("address lookup", err)
	}
	if meta == nil {
		return nil, errors.NewNotFoundError("address", address)
	}
	return meta, nil
}

// GetAddresses returns metadata for several addresses at once. Unknown
// addresses get all-null entries, matching the enricher contract.
func (s *MetadataService) GetAddresses(ctx context.Context, addresses []string) (map[string]*models.AddressMetadata, error) {
	metadata, err := s.addresses.GetBatch(ctx, addresses)
	if err != nil {
		return nil, errors.NewDatabaseError("address batch lookup", err)
	}

	for _, addr := range addresses {
		key := strings.ToLower(addr)
		if _, ok := metadata[key]; !ok {
			metadata[key] = models.EmptyMetadata(key)
		}
	}

	return metadata, nil
}

// ProtocolDetail pairs a protocol with its registered addresses
type ProtocolDetail struct {
	Protocol  *models.Protocol          `json:"protocol"`
	Addresses []*models.AddressMetadata `json:"addresses"`
}

// GetProtocol returns a protocol and every address assigned to it
func (s *MetadataService) GetProtocol(ctx context.Context, protocolID int64) (*ProtocolDetail, error) {
	protocol, err := s.protocols.GetByID(ctx, protocolID)
	if err != nil {
		return nil, errors.NewDatabaseError("protocol lookup", err)
	}
	if protocol == nil {
		return nil, errors.NewNotFoundError("protocol", strconv.FormatInt(protocolID, 10))
	}

	addresses, err := s.addresses.GetByProtocol(ctx, protocolID)
	if err != nil {
		return nil, errors.NewDatabaseError("protocol address lookup", err)
	}
	if addresses == nil {
		addresses = []*models.AddressMetadata{}
	}

	return &ProtocolDetail{Protocol: protocol, Addresses: addresses}, nil
}

// ListProtocols returns all protocols sorted by name
func (s *MetadataService) ListProtocols(ctx context.Context) ([]*models.Protocol, error) {
	protocols, err := s.protocols.List(ctx)
	if err != nil {
		return nil, errors.NewDatabaseError("protocol list", err)
	}
	if protocols == nil {
		protocols = []*models.Protocol{}
	}
	return protocols, nil
}

// CreateProtocol registers a new protocol; the name is required
func (s *MetadataService) CreateProtocol(ctx context.Context, protocol *models.Protocol) error {
	if strings.TrimSpace(protocol.Name) == "" {
		return errors.NewInvalidParameterError("protocolName", "must be a non-empty string")
	}

	if err := s.protocols.Create(ctx, protocol); err != nil {
		return errors.NewDatabaseError("protocol create", err)
	}

	return nil
}
