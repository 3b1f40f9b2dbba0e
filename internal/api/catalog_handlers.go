package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leetease/catalog-engine/internal/models"
)

const defaultPageLimit = 50

// Catalog handlers: companies, buckets and question pages

func (s *Server) handleListCompanies(w http.ResponseWriter, r *http.Request) {
	names, err := s.svc.Catalog.ListCompanyNames(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		respondServiceError(w, r, "list companies", err)
		return
	}
	if names == nil {
		names = make([]string, 0)
	}
	respondJSON(w, http.StatusOK, names)
}

func (s *Server) handleListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := s.svc.Catalog.ListBuckets(r.Context(), chi.URLParam(r, "company"))
	if err != nil {
		respondServiceError(w, r, "list buckets", err)
		return
	}
	if buckets == nil {
		buckets = make([]string, 0)
	}
	respondJSON(w, http.StatusOK, buckets)
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	query, err := parseQuestionQuery(r)
	if err != nil {
		respondServiceError(w, r, "list questions", err)
		return
	}

	page, err := s.svc.Catalog.Questions(r.Context(), query)
	if err != nil {
		respondServiceError(w, r, "list questions", err)
		return
	}

	respondJSON(w, http.StatusOK, page)
}

func parseQuestionQuery(r *http.Request) (models.QuestionQuery, error) {
	q := r.URL.Query()
	query := models.QuestionQuery{
		UserID:    UserIDFromContext(r.Context()),
		Company:   chi.URLParam(r, "company"),
		Bucket:    chi.URLParam(r, "bucket"),
		SortField: q.Get("sortField"),
		SortOrder: models.SortOrder(q.Get("sortOrder")),
		Search:    q.Get("search"),
		Tag:       q.Get("tag"),
	}

	var err error
	if query.Page, err = intQuery(r, "page", 1); err != nil {
		return query, err
	}
	if query.Limit, err = intQuery(r, "limit", defaultPageLimit); err != nil {
		return query, err
	}
	if query.ShowUnsolved, err = boolQuery(r, "showUnsolved", false); err != nil {
		return query, err
	}

	return query, nil
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	unsolved, err := boolQuery(r, "unsolved", false)
	if err != nil {
		respondServiceError(w, r, "topics", err)
		return
	}

	topics, err := s.svc.Catalog.Topics(r.Context(),
		UserIDFromContext(r.Context()),
		chi.URLParam(r, "company"),
		r.URL.Query().Get("bucket"),
		unsolved,
	)
	if err != nil {
		respondServiceError(w, r, "topics", err)
		return
	}

	respondJSON(w, http.StatusOK, topics)
}

// Question handlers

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		respondServiceError(w, r, "suggestions", err)
		return
	}

	suggestions, err := s.svc.Catalog.Suggestions(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		respondServiceError(w, r, "suggestions", err)
		return
	}

	respondJSON(w, http.StatusOK, suggestions)
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := questionIDParam(w, r)
	if !ok {
		return
	}

	detail, err := s.svc.Catalog.GetQuestion(r.Context(), UserIDFromContext(r.Context()), id)
	if err != nil {
		respondServiceError(w, r, "get question", err)
		return
	}

	respondJSON(w, http.StatusOK, detail)
}

func (s *Server) handleQuestionCompanies(w http.ResponseWriter, r *http.Request) {
	id, ok := questionIDParam(w, r)
	if !ok {
		return
	}

	placements, err := s.svc.Catalog.QuestionCompanies(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, "question companies", err)
		return
	}

	respondJSON(w, http.StatusOK, placements)
}
