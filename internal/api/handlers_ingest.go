package api

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/trace-graph/internal/logging"
	"github.com/trace-graph/internal/models"
	"github.com/trace-graph/internal/types"
)

// TraceJSON represents one trace record on the ingestion webhook. The
// indexer posts either a single object or an array.
type TraceJSON struct {
	ID              string `json:"id"`
	TransactionHash string `json:"transaction_hash"`
	BlockNumber     int64  `json:"block_number"`
	BlockTimestamp  int64  `json:"block_timestamp"`
	FromAddr        string `json:"from_addr"`
	ToAddr          string `json:"to_addr"`
	StorageAddr     string `json:"storage_addr"`
	Value           string `json:"value"`
	Action          string `json:"action"`
	CallData        string `json:"call_data"`
	Op              string `json:"_op"` // i=insert, u=update, d=delete
}

// handleIngestTraces accepts trace rows from the upstream indexer webhook
func (s *Server) handleIngestTraces(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Failed to read request body", nil)
		return
	}
	defer r.Body.Close()

	var tracesJSON []TraceJSON
	if err := json.Unmarshal(body, &tracesJSON); err != nil {
		var single TraceJSON
		if err := json.Unmarshal(body, &single); err != nil {
			logging.GetGlobalLogger().WithError(err).Warn("Unparseable trace webhook payload")
			respondError(w, http.StatusBadRequest, "INVALID_BODY", "Body must be a trace object or array", nil)
			return
		}
		tracesJSON = []TraceJSON{single}
	}

	traces := make([]*models.Trace, 0, len(tracesJSON))
	for _, t := range tracesJSON {
		if t.Op == "d" {
			// The ledger is append-only; indexer deletes are ignored.
			continue
		}

		if t.BlockNumber < 0 {
			respondError(w, http.StatusBadRequest, "INVALID_PARAMETER",
				"block_number must be non-negative", map[string]interface{}{"id": t.ID})
			return
		}

		traces = append(traces, &models.Trace{
			ID:              t.ID,
			TransactionHash: t.TransactionHash,
			BlockNumber:     uint64(t.BlockNumber),
			BlockTimestamp:  time.Unix(t.BlockTimestamp, 0).UTC(),
			FromAddr:        t.FromAddr,
			ToAddr:          t.ToAddr,
			StorageAddr:     t.StorageAddr,
			Value:           t.Value,
			Action:          types.TraceAction(t.Action),
			CallData:        t.CallData,
		})
	}

	if len(traces) == 0 {
		respondJSON(w, http.StatusOK, map[string]interface{}{"ingested": 0})
		return
	}

	if err := s.graphService.IngestTraces(r.Context(), traces); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"ingested": len(traces)})
}
