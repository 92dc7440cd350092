package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/trace-graph/internal/errors"
	"github.com/trace-graph/internal/models"
)

// ScorerClient talks to the external risk-scoring service. The scorer assesses
// an address from its enrichment metadata and returns a numeric score plus a
// structured report document.
type ScorerClient struct {
	baseURL string
	client  *http.Client
}

// NewScorerClient creates a new scorer client with a bounded request timeout
func NewScorerClient(baseURL string, timeout time.Duration) *ScorerClient {
	return &ScorerClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type scoreRequest struct {
	Address  string                  `json:"address"`
	Metadata *models.AddressMetadata `json:"metadata"`
}

type scoreResponse struct {
	Score   *int            `json:"score"`
	Reports json.RawMessage `json:"reports"`
}

// Assess submits an address with its metadata for scoring. A scorer response
// missing the score or the reports payload violates the scorer contract and is
// returned as an upstream protocol error rather than defaulted.
func (c *ScorerClient) Assess(ctx context.Context, address string, metadata *models.AddressMetadata) (int, json.RawMessage, error) {
	payload, err := json.Marshal(scoreRequest{Address: address, Metadata: metadata})
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/score", bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, errors.NewUpstreamError("scorer", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read scorer response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, nil, errors.NewUpstreamError("scorer",
			fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body)))
	}

	var result scoreResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, nil, errors.NewUpstreamProtocolError("scorer", "response is not valid JSON")
	}

	if result.Score == nil {
		return 0, nil, errors.NewUpstreamProtocolError("scorer", "response missing score")
	}
	if len(result.Reports) == 0 || string(result.Reports) == "null" {
		return 0, nil, errors.NewUpstreamProtocolError("scorer", "response missing reports")
	}

	return *result.Score, result.Reports, nil
}
