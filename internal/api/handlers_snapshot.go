package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/trace-graph/internal/models"
)

// SnapshotNodeRequest is one positioned node in a save-snapshot payload
type SnapshotNodeRequest struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Address string `json:"address"`
}

// SaveSnapshotRequest is the payload for creating or replacing a snapshot
type SaveSnapshotRequest struct {
	SnapshotName  string                `json:"snapshot_name"`
	Description   *string               `json:"description"`
	ProtocolID    *int64                `json:"protocol_id"`
	SnapshotNodes []SnapshotNodeRequest `json:"snapshot_nodes"`
}

// SaveSnapshotResponse reports the outcome of a snapshot save
type SaveSnapshotResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	SnapshotID int64  `json:"snapshot_id"`
}

// handleSaveSnapshot creates or atomically replaces a named snapshot
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	var req SaveSnapshotRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil)
		return
	}

	if req.SnapshotNodes == nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAMETER",
			"snapshot_nodes is required", nil)
		return
	}

	snapshot := &models.Snapshot{
		Name:        req.SnapshotName,
		Description: req.Description,
		ProtocolID:  req.ProtocolID,
	}

	nodes := make([]*models.SnapshotNode, 0, len(req.SnapshotNodes))
	for _, n := range req.SnapshotNodes {
		nodes = append(nodes, &models.SnapshotNode{
			X:       n.X,
			Y:       n.Y,
			Address: n.Address,
		})
	}

	snapshotID, err := s.snapshotService.Save(r.Context(), snapshot, nodes)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, SaveSnapshotResponse{
		Success:    true,
		Message:    "snapshot saved",
		SnapshotID: snapshotID,
	})
}

// handleListSnapshots returns every stored snapshot, newest first
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.snapshotService.List(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, snapshots)
}

// handleReadSnapshot resolves a stored snapshot and its live edge list
func (s *Server) handleReadSnapshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	view, err := s.snapshotService.Read(r.Context(), vars["snapshotName"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}
