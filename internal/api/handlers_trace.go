package api

import (
	"net/http"
	"strconv"
)

// handleTrace serves graph queries. Exactly one of address, tx, or block must
// be supplied; the three target kinds return different granularities
// (per-record timeline for an address, grouped edges for a block).
func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	txHash := r.URL.Query().Get("tx")
	block := r.URL.Query().Get("block")

	supplied := 0
	for _, v := range []string{address, txHash, block} {
		if v != "" {
			supplied++
		}
	}
	if supplied != 1 {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER",
			"exactly one of address, tx, or block must be provided", nil)
		return
	}

	switch {
	case address != "":
		timeline, err := s.graphService.TraceByAddress(r.Context(), address)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, timeline)

	case block != "":
		blockNumber, err := strconv.ParseUint(block, 10, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAMETER",
				"block must be a non-negative integer", nil)
			return
		}
		graph, err := s.graphService.TraceByBlock(r.Context(), blockNumber)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, graph)

	default:
		graph, err := s.graphService.TraceByTransaction(r.Context(), txHash)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, graph)
	}
}
