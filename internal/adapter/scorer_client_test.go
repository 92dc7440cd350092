package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trace-graph/internal/errors"
	"github.com/trace-graph/internal/models"
)

func newScorerTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/score" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestScorerAssess_Success(t *testing.T) {
	server := newScorerTestServer(t, http.StatusOK, `{"score": 73, "reports": [{"kind": "mixer"}]}`)
	client := NewScorerClient(server.URL, 5*time.Second)

	score, reports, err := client.Assess(context.Background(),
		"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		models.EmptyMetadata("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 73 {
		t.Errorf("expected score 73, got %d", score)
	}
	if string(reports) != `[{"kind": "mixer"}]` {
		t.Errorf("unexpected reports: %s", reports)
	}
}

func TestScorerAssess_ProtocolViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing score", `{"reports": []}`},
		{"missing reports", `{"score": 10}`},
		{"null reports", `{"score": 10, "reports": null}`},
		{"not JSON", `not json at all`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newScorerTestServer(t, http.StatusOK, tt.body)
			client := NewScorerClient(server.URL, 5*time.Second)

			_, _, err := client.Assess(context.Background(), "0xaa", nil)
			if err == nil {
				t.Fatal("expected an error")
			}

			catErr := errors.Categorize(err)
			if catErr.Code != "UPSTREAM_PROTOCOL_VIOLATION" {
				t.Errorf("expected protocol violation, got %s", catErr.Code)
			}
			if catErr.StatusCode != http.StatusInternalServerError {
				t.Errorf("expected 500, got %d", catErr.StatusCode)
			}
		})
	}
}

func TestScorerAssess_UpstreamFailure(t *testing.T) {
	server := newScorerTestServer(t, http.StatusBadGateway, `oops`)
	client := NewScorerClient(server.URL, 5*time.Second)

	_, _, err := client.Assess(context.Background(), "0xaa", nil)
	if err == nil {
		t.Fatal("expected an error")
	}

	catErr := errors.Categorize(err)
	if catErr.Code != "UPSTREAM_ERROR" {
		t.Errorf("expected upstream error, got %s", catErr.Code)
	}
}

func TestScorerAssess_Unreachable(t *testing.T) {
	client := NewScorerClient("http://127.0.0.1:1", 500*time.Millisecond)

	_, _, err := client.Assess(context.Background(), "0xaa", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Categorize(err).Category != errors.CategoryUpstream {
		t.Errorf("expected upstream category, got %v", errors.Categorize(err).Category)
	}
}
