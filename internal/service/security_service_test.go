package service

import (
	"context"
	"encoding/json"
	"testing"

	apperrors "github.com/trace-graph/internal/errors"
	"github.com/trace-graph/internal/models"
)

// mockSecurityStore is a hand-rolled SecurityStore for service tests
type mockSecurityStore struct {
	checks map[string]*models.SecurityCheck
}

func (m *mockSecurityStore) Get(ctx context.Context, address string) (*models.SecurityCheck, error) {
	return m.checks[address], nil
}

func (m *mockSecurityStore) Put(ctx context.Context, check *models.SecurityCheck) error {
	if m.checks == nil {
		m.checks = make(map[string]*models.SecurityCheck)
	}
	if _, ok := m.checks[check.Address]; !ok {
		m.checks[check.Address] = check
	}
	return nil
}

// mockScorer counts calls so tests can assert the cache short-circuits
type mockScorer struct {
	score   int
	reports json.RawMessage
	err     error
	calls   int
}

func (m *mockScorer) Assess(ctx context.Context, address string, metadata *models.AddressMetadata) (int, json.RawMessage, error) {
	m.calls++
	if m.err != nil {
		return 0, nil, m.err
	}
	return m.score, m.reports, nil
}

func newTestSecurityService(store *mockSecurityStore, scorer *mockScorer) *SecurityService {
	metadata := NewMetadataService(&mockAddressStore{}, &mockProtocolStore{})
	return NewSecurityService(store, scorer, metadata)
}

func TestGetOrAssess_FreshAddressScoresOnce(t *testing.T) {
	scorer := &mockScorer{score: 42, reports: json.RawMessage(`[{"kind":"phishing"}]`)}
	store := &mockSecurityStore{}
	svc := newTestSecurityService(store, scorer)

	result, err := svc.GetOrAssess(context.Background(), addrA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Cached {
		t.Error("first check must report cached=false")
	}
	if result.Score != 42 {
		t.Errorf("expected score 42, got %d", result.Score)
	}
	if scorer.calls != 1 {
		t.Errorf("expected exactly one scorer call, got %d", scorer.calls)
	}
	if store.checks[addrA] == nil {
		t.Error("verdict must be persisted before being returned")
	}
}

func TestGetOrAssess_SecondCallServedFromStorage(t *testing.T) {
	scorer := &mockScorer{score: 7, reports: json.RawMessage(`[]`)}
	store := &mockSecurityStore{}
	svc := newTestSecurityService(store, scorer)

	first, err := svc.GetOrAssess(context.Background(), addrA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := svc.GetOrAssess(context.Background(), addrA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !second.Cached {
		t.Error("second check must report cached=true")
	}
	if second.Score != first.Score {
		t.Errorf("cached score %d differs from original %d", second.Score, first.Score)
	}
	if string(second.Reports) != string(first.Reports) {
		t.Error("cached reports differ from original")
	}
	if scorer.calls != 1 {
		t.Errorf("cached check must not re-score, scorer called %d times", scorer.calls)
	}
}

func TestGetOrAssess_MalformedAddressRejectedBeforeIO(t *testing.T) {
	scorer := &mockScorer{}
	svc := newTestSecurityService(&mockSecurityStore{}, scorer)

	_, err := svc.GetOrAssess(context.Background(), "0xZZZ")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !apperrors.IsValidation(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	if scorer.calls != 0 {
		t.Error("malformed address must be rejected before any scorer call")
	}
}

func TestGetOrAssess_ScorerFailurePropagates(t *testing.T) {
	scorer := &mockScorer{err: apperrors.NewUpstreamProtocolError("scorer", "response missing score")}
	store := &mockSecurityStore{}
	svc := newTestSecurityService(store, scorer)

	_, err := svc.GetOrAssess(context.Background(), addrA)
	if err == nil {
		t.Fatal("expected an error")
	}
	if apperrors.GetHTTPStatusCode(err) != 500 {
		t.Errorf("scorer protocol violation must surface as 500, got %d", apperrors.GetHTTPStatusCode(err))
	}
	if store.checks[addrA] != nil {
		t.Error("failed scoring must not persist a verdict")
	}
}
