package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/trace-graph/internal/models"
)

// handleGetAddressMetadata serves metadata for one address or a
// comma-joined list. A single unknown address is a 404; in a batch, unknown
// addresses come back as all-null entries.
func (s *Server) handleGetAddressMetadata(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	raw := vars["address"]

	parts := strings.Split(raw, ",")
	addresses := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			addresses = append(addresses, trimmed)
		}
	}

	if len(addresses) == 0 {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER",
			"at least one address is required", nil)
		return
	}

	if len(addresses) == 1 {
		meta, err := s.metadataService.GetAddress(r.Context(), strings.ToLower(addresses[0]))
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, meta)
		return
	}

	metadata, err := s.metadataService.GetAddresses(r.Context(), addresses)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, metadata)
}

// handleGetProtocol serves one protocol with its registered addresses
func (s *Server) handleGetProtocol(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	protocolID, err := strconv.ParseInt(vars["protocolId"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER",
			"protocolId must be an integer", nil)
		return
	}

	detail, err := s.metadataService.GetProtocol(r.Context(), protocolID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

// handleListProtocols serves all protocols sorted by name
func (s *Server) handleListProtocols(w http.ResponseWriter, r *http.Request) {
	protocols, err := s.metadataService.ListProtocols(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, protocols)
}

// CreateProtocolRequest is the payload for registering a protocol
type CreateProtocolRequest struct {
	ProtocolName   string  `json:"protocolName"`
	ProtocolSymbol *string `json:"protocolSymbol"`
	ProtocolType   *string `json:"protocolType"`
	MainAddress    *string `json:"mainAddress"`
	Description    *string `json:"description"`
}

// handleCreateProtocol registers a new protocol
func (s *Server) handleCreateProtocol(w http.ResponseWriter, r *http.Request) {
	var req CreateProtocolRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
		return
	}

	protocol := &models.Protocol{
		Name:        req.ProtocolName,
		Symbol:      req.ProtocolSymbol,
		Type:        req.ProtocolType,
		MainAddress: req.MainAddress,
		Description: req.Description,
	}

	if err := s.metadataService.CreateProtocol(r.Context(), protocol); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, protocol)
}
