package api

import (
	"errors"
	"net/http"
)

const defaultMaxUploadBytes = 32 << 20

// Admin handlers

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	limit := s.config.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "too_large", "uploaded file is too large")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", "expected a multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", "file field is required")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "no file selected")
		return
	}

	res, err := s.svc.Importer.ImportFile(r.Context(), header.Filename, file)
	if err != nil {
		respondServiceError(w, r, "import", err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleBackfillTags(w http.ResponseWriter, r *http.Request) {
	onlyMissing, err := boolQuery(r, "onlyMissing", true)
	if err != nil {
		respondServiceError(w, r, "backfill tags", err)
		return
	}

	res, err := s.svc.Catalog.BackfillTags(r.Context(), onlyMissing)
	if err != nil {
		respondServiceError(w, r, "backfill tags", err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}
