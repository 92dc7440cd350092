package service

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/trace-graph/internal/errors"
	"github.com/trace-graph/internal/models"
)

func TestEnrich_FillsUnknownAddressesWithNulls(t *testing.T) {
	addresses := &mockAddressStore{rows: map[string]*models.AddressMetadata{
		addrA: {Address: addrA, IsContract: true},
	}}
	svc := NewMetadataService(addresses, &mockProtocolStore{})

	metadata := svc.Enrich(context.Background(), []string{addrA, addrB})

	if len(metadata) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(metadata))
	}
	if !metadata[addrA].IsContract {
		t.Error("known address lost its stored metadata")
	}
	entry, ok := metadata[addrB]
	if !ok {
		t.Fatal("unknown address must still get a metadata key")
	}
	if entry.IsContract || entry.ContractName != nil || entry.ProtocolID != nil {
		t.Errorf("expected all-null entry, got %+v", entry)
	}
}

func TestEnrich_DegradesToEmptyOnBackendFailure(t *testing.T) {
	addresses := &mockAddressStore{err: errors.New("connection refused")}
	svc := NewMetadataService(addresses, &mockProtocolStore{})

	metadata := svc.Enrich(context.Background(), []string{addrA})

	if metadata == nil {
		t.Fatal("expected an empty map, not nil")
	}
	if len(metadata) != 0 {
		t.Errorf("expected empty map on backend failure, got %d entries", len(metadata))
	}
}

func TestGetProtocol(t *testing.T) {
	protocols := &mockProtocolStore{}
	svc := NewMetadataService(&mockAddressStore{}, protocols)

	p := &models.Protocol{Name: "Uniswap"}
	if err := svc.CreateProtocol(context.Background(), p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	detail, err := svc.GetProtocol(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if detail.Protocol.Name != "Uniswap" {
		t.Errorf("unexpected protocol: %+v", detail.Protocol)
	}
	if detail.Addresses == nil {
		t.Error("addresses must be an empty slice, not nil")
	}

	if _, err := svc.GetProtocol(context.Background(), 999); !apperrors.IsNotFound(err) {
		t.Errorf("expected not-found for absent protocol, got %v", err)
	}
}

func TestCreateProtocol_RequiresName(t *testing.T) {
	svc := NewMetadataService(&mockAddressStore{}, &mockProtocolStore{})

	err := svc.CreateProtocol(context.Background(), &models.Protocol{Name: "  "})
	if !apperrors.IsValidation(err) {
		t.Errorf("expected validation error for blank name, got %v", err)
	}
}
