package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// handleSecurityCheck serves the read-through security score for an address
func (s *Server) handleSecurityCheck(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	result, err := s.securityService.GetOrAssess(r.Context(), vars["address"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
