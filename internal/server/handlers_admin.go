package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"sealdrop/internal/api"
)

const adminTokenHeader = "X-Admin-Token"

func (s *Server) handleAdminSweep(w http.ResponseWriter, r *http.Request) {
	if !s.authorizeAdmin(w, r) {
		return
	}

	result, err := s.sweepService.Sweep(r.Context(), time.Now().UTC())
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.SweepResponse{
		RemovedRecords:   result.RemovedRecords,
		RemovedArtifacts: result.RemovedArtifacts,
		StuckRecords:     result.StuckRecords,
		Failures:         result.Failures,
	})
}

func (s *Server) authorizeAdmin(w http.ResponseWriter, r *http.Request) bool {
	if s.adminToken == "" {
		s.writeErrorReq(w, r, http.StatusForbidden, makeAPIError(http.StatusForbidden, "forbidden", ErrCodeForbidden,
			fmt.Errorf("admin endpoints are disabled; no admin token configured")))
		return false
	}
	provided := r.Header.Get(adminTokenHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(s.adminToken)) != 1 {
		s.writeErrorReq(w, r, http.StatusForbidden, makeAPIError(http.StatusForbidden, "forbidden", ErrCodeForbidden,
			fmt.Errorf("invalid admin token")))
		return false
	}
	return true
}
