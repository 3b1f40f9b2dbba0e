package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leetease/catalog-engine/internal/models"
	"github.com/leetease/catalog-engine/internal/progress"
)

// progressRequest is the body of progress updates. UserDifficulty stays raw
// so an absent field (untouched) can be told apart from null (cleared).
type progressRequest struct {
	Solved         *bool           `json:"solved"`
	UserDifficulty json.RawMessage `json:"userDifficulty"`
	Company        string          `json:"company"`
	Bucket         string          `json:"bucket"`
}

type batchProgressRequest struct {
	progressRequest
	QuestionIDs []string `json:"questionIds"`
}

func (req *progressRequest) update() (models.ProgressUpdate, error) {
	upd := models.ProgressUpdate{Solved: req.Solved}

	raw := strings.TrimSpace(string(req.UserDifficulty))
	switch raw {
	case "":
		// absent
	case "null", `""`:
		none := models.DifficultyNone
		upd.UserDifficulty = &none
	default:
		var s string
		if err := json.Unmarshal(req.UserDifficulty, &s); err != nil {
			return upd, models.NewValidationError("userDifficulty", "must be a string or null")
		}
		d, err := models.ParseDifficulty(s)
		if err != nil {
			return upd, err
		}
		upd.UserDifficulty = &d
	}

	return upd, nil
}

func (req *progressRequest) view() progress.ViewScope {
	return progress.ViewScope{Company: req.Company, Bucket: req.Bucket}
}

// Progress handlers

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	id, ok := questionIDParam(w, r)
	if !ok {
		return
	}

	var req progressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	upd, err := req.update()
	if err != nil {
		respondServiceError(w, r, "update progress", err)
		return
	}

	p, err := s.svc.Progress.Upsert(r.Context(), UserIDFromContext(r.Context()), id, upd, req.view())
	if err != nil {
		respondServiceError(w, r, "update progress", err)
		return
	}

	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleBatchProgress(w http.ResponseWriter, r *http.Request) {
	var req batchProgressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	upd, err := req.update()
	if err != nil {
		respondServiceError(w, r, "batch progress", err)
		return
	}

	ids := make([]models.QuestionID, 0, len(req.QuestionIDs))
	for _, raw := range req.QuestionIDs {
		id, err := models.ParseQuestionID(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "validation_error", "invalid question id: "+raw)
			return
		}
		ids = append(ids, id)
	}

	n, err := s.svc.Progress.BatchUpsert(r.Context(), UserIDFromContext(r.Context()), ids, upd, req.view())
	if err != nil {
		respondServiceError(w, r, "batch progress", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{
		"updated": n,
	})
}

// Statistics handlers

func (s *Server) handleCompanyProgress(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.svc.Stats.CompanyProgress(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "company"))
	if err != nil {
		respondServiceError(w, r, "company progress", err)
		return
	}

	respondJSON(w, http.StatusOK, buckets)
}

func (s *Server) handleGlobalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats.GlobalStats(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, r, "global stats", err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
