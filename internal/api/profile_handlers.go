package api

import (
	"net/http"
)

type judgeProfileRequest struct {
	Username      string `json:"username"`
	SessionCookie string `json:"sessionCookie"`
}

// External judge handlers

func (s *Server) handleSaveJudgeProfile(w http.ResponseWriter, r *http.Request) {
	var req judgeProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	acct, err := s.svc.Sync.SaveAccount(r.Context(), UserIDFromContext(r.Context()), req.Username, req.SessionCookie)
	if err != nil {
		respondServiceError(w, r, "save judge profile", err)
		return
	}

	respondJSON(w, http.StatusOK, acct)
}

func (s *Server) handleSyncJudge(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Sync.SyncUser(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, r, "judge sync", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{
		"synced": n,
	})
}

// handleLoginEvent is called by the session provider after a successful
// login. Reconciliation runs in the background.
func (s *Server) handleLoginEvent(w http.ResponseWriter, r *http.Request) {
	queued := s.svc.Sync.OnLogin(UserIDFromContext(r.Context()))

	respondJSON(w, http.StatusAccepted, map[string]bool{
		"queued": queued,
	})
}
