package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	apperrors "github.com/trace-graph/internal/errors"
	"github.com/trace-graph/internal/models"
	"github.com/trace-graph/internal/types"
)

// mockTraceStore is a hand-rolled TraceStore for service tests
type mockTraceStore struct {
	traces     []*models.Trace
	err        error
	insertErr  error
	inserted   []*models.Trace
	setQueries [][]string
}

func (m *mockTraceStore) InsertBatch(ctx context.Context, traces []*models.Trace) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, traces...)
	return nil
}

func (m *mockTraceStore) GetByAddress(ctx context.Context, address string) ([]*models.Trace, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Trace
	for _, t := range m.traces {
		if t.FromAddr == address || t.ToAddr == address || t.StorageAddr == address {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTraceStore) GetByBlock(ctx context.Context, blockNumber uint64) ([]*models.Trace, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Trace
	for _, t := range m.traces {
		if t.BlockNumber == blockNumber {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTraceStore) GetByAddressSet(ctx context.Context, addresses []string) ([]*models.Trace, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.setQueries = append(m.setQueries, addresses)
	set := make(map[string]bool)
	for _, a := range addresses {
		set[a] = true
	}
	var out []*models.Trace
	for _, t := range m.traces {
		if set[t.ToAddr] && (set[t.FromAddr] || set[t.StorageAddr]) {
			out = append(out, t)
		}
	}
	return out, nil
}

// mockAddressStore backs the metadata service in tests
type mockAddressStore struct {
	rows map[string]*models.AddressMetadata
	err  error
}

func (m *mockAddressStore) Get(ctx context.Context, address string) (*models.AddressMetadata, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rows[strings.ToLower(address)], nil
}

func (m *mockAddressStore) GetBatch(ctx context.Context, addresses []string) (map[string]*models.AddressMetadata, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]*models.AddressMetadata)
	for _, a := range addresses {
		if row, ok := m.rows[strings.ToLower(a)]; ok {
			out[strings.ToLower(a)] = row
		}
	}
	return out, nil
}

func (m *mockAddressStore) GetByProtocol(ctx context.Context, protocolID int64) ([]*models.AddressMetadata, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.AddressMetadata
	for _, row := range m.rows {
		if row.ProtocolID != nil && *row.ProtocolID == protocolID {
			out = append(out, row)
		}
	}
	return out, nil
}

// mockProtocolStore backs the protocol registry in tests
type mockProtocolStore struct {
	protocols map[int64]*models.Protocol
	nextID    int64
	err       error
}

func (m *mockProtocolStore) Create(ctx context.Context, protocol *models.Protocol) error {
	if m.err != nil {
		return m.err
	}
	m.nextID++
	protocol.ID = m.nextID
	if m.protocols == nil {
		m.protocols = make(map[int64]*models.Protocol)
	}
	m.protocols[protocol.ID] = protocol
	return nil
}

func (m *mockProtocolStore) GetByID(ctx context.Context, id int64) (*models.Protocol, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.protocols[id], nil
}

func (m *mockProtocolStore) List(ctx context.Context) ([]*models.Protocol, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []*models.Protocol
	for _, p := range m.protocols {
		out = append(out, p)
	}
	return out, nil
}

const (
	addrA = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	addrB = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	addrC = "0xcccccccccccccccccccccccccccccccccccccccc"
)

func newTestGraphService(traces *mockTraceStore, addresses *mockAddressStore) *GraphService {
	metadata := NewMetadataService(addresses, &mockProtocolStore{})
	return NewGraphService(traces, metadata, nil)
}

func TestTraceByAddress_Timeline(t *testing.T) {
	traces := &mockTraceStore{traces: []*models.Trace{
		{ID: "t1", FromAddr: addrA, ToAddr: addrB, Action: types.ActionCall, BlockNumber: 1},
		{ID: "t2", FromAddr: addrA, ToAddr: addrB, Action: types.ActionCall, BlockNumber: 2},
	}}
	addresses := &mockAddressStore{rows: map[string]*models.AddressMetadata{
		addrA: {Address: addrA, IsContract: true},
	}}

	svc := newTestGraphService(traces, addresses)
	timeline, err := svc.TraceByAddress(context.Background(), addrA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Per-record granularity: repeated calls are not collapsed.
	if len(timeline.Traces) != 2 {
		t.Fatalf("expected 2 traces, got %d", len(timeline.Traces))
	}

	// Every endpoint has a metadata key, even unknown ones.
	if len(timeline.Metadata) != 2 {
		t.Fatalf("expected metadata for 2 addresses, got %d", len(timeline.Metadata))
	}
	if !timeline.Metadata[addrA].IsContract {
		t.Error("expected stored metadata for known address")
	}
	unknown, ok := timeline.Metadata[addrB]
	if !ok {
		t.Fatal("expected all-null entry for unknown address")
	}
	if unknown.IsContract || unknown.ContractName != nil {
		t.Errorf("expected all-null entry, got %+v", unknown)
	}
}

func TestTraceByAddress_UnknownAddressIsNotFound(t *testing.T) {
	svc := newTestGraphService(&mockTraceStore{}, &mockAddressStore{})

	_, err := svc.TraceByAddress(context.Background(), addrA)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !apperrors.IsNotFound(err) {
		t.Errorf("expected not-found, got %v", err)
	}
}

func TestTraceByAddress_KnownAddressWithoutTraces(t *testing.T) {
	addresses := &mockAddressStore{rows: map[string]*models.AddressMetadata{
		addrA: {Address: addrA},
	}}
	svc := newTestGraphService(&mockTraceStore{}, addresses)

	timeline, err := svc.TraceByAddress(context.Background(), addrA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(timeline.Traces) != 0 {
		t.Errorf("expected empty timeline, got %d traces", len(timeline.Traces))
	}
	if _, ok := timeline.Metadata[addrA]; !ok {
		t.Error("expected metadata entry for the queried address")
	}
}

func TestTraceByAddress_MalformedAddress(t *testing.T) {
	store := &mockTraceStore{err: errors.New("should not be reached")}
	svc := newTestGraphService(store, &mockAddressStore{err: errors.New("should not be reached")})

	_, err := svc.TraceByAddress(context.Background(), "0xZZZ")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !apperrors.IsValidation(err) {
		t.Errorf("expected validation error before any I/O, got %v", err)
	}
}

func TestTraceByBlock_GroupsEdges(t *testing.T) {
	traces := &mockTraceStore{traces: []*models.Trace{
		{ID: "t1", FromAddr: addrA, ToAddr: addrB, Action: types.ActionCall, BlockNumber: 7},
		{ID: "t2", FromAddr: addrA, ToAddr: addrB, Action: types.ActionCall, BlockNumber: 7},
		{ID: "t3", FromAddr: addrC, StorageAddr: addrA, ToAddr: addrB, Action: types.ActionDelegateCall, BlockNumber: 7},
		{ID: "t4", FromAddr: addrA, ToAddr: addrB, Action: types.ActionCall, BlockNumber: 8},
	}}

	svc := newTestGraphService(traces, &mockAddressStore{})
	graph, err := svc.TraceByBlock(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(graph.Edges) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(graph.Edges))
	}
	if graph.Edges[0].Count != 2 {
		t.Errorf("expected call edge count 2, got %d", graph.Edges[0].Count)
	}
	if graph.Edges[1].StorageAddr != addrA {
		t.Errorf("expected delegate edge keyed on storage address, got %+v", graph.Edges[1])
	}
}

func TestTraceByBlock_EmptyBlock(t *testing.T) {
	svc := newTestGraphService(&mockTraceStore{}, &mockAddressStore{})

	graph, err := svc.TraceByBlock(context.Background(), 999)
	if err != nil {
		t.Fatalf("empty block must not error: %v", err)
	}
	if len(graph.Edges) != 0 {
		t.Errorf("expected empty edge list, got %d", len(graph.Edges))
	}
}

func TestTraceByBlock_MetadataDegradesToEmpty(t *testing.T) {
	traces := &mockTraceStore{traces: []*models.Trace{
		{ID: "t1", FromAddr: addrA, ToAddr: addrB, Action: types.ActionCall, BlockNumber: 7},
	}}
	addresses := &mockAddressStore{err: errors.New("connection refused")}

	svc := newTestGraphService(traces, addresses)
	graph, err := svc.TraceByBlock(context.Background(), 7)
	if err != nil {
		t.Fatalf("metadata failure must not fail the graph: %v", err)
	}
	if len(graph.Edges) != 1 {
		t.Fatalf("expected the edge list regardless, got %d edges", len(graph.Edges))
	}
	if len(graph.Metadata) != 0 {
		t.Errorf("expected empty metadata map, got %d entries", len(graph.Metadata))
	}
}

func TestTraceByTransaction_NotImplemented(t *testing.T) {
	svc := newTestGraphService(&mockTraceStore{}, &mockAddressStore{})

	_, err := svc.TraceByTransaction(context.Background(), "0xdeadbeef")
	if err == nil {
		t.Fatal("expected an error")
	}
	if apperrors.GetHTTPStatusCode(err) != 501 {
		t.Errorf("expected 501, got %d", apperrors.GetHTTPStatusCode(err))
	}
}

func TestIngestTraces(t *testing.T) {
	store := &mockTraceStore{}
	svc := newTestGraphService(store, &mockAddressStore{})

	err := svc.IngestTraces(context.Background(), []*models.Trace{
		{ID: "t1", FromAddr: addrA, ToAddr: addrB, Action: types.ActionCall},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("expected 1 inserted trace, got %d", len(store.inserted))
	}

	err = svc.IngestTraces(context.Background(), []*models.Trace{
		{FromAddr: addrA, ToAddr: addrB, Action: types.ActionCall},
	})
	if err == nil {
		t.Fatal("expected validation error for missing id")
	}
}
