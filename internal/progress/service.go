package progress

import (
	"context"
	"fmt"
	"strings"

	"github.com/leetease/catalog-engine/internal/models"
)

// MaxBatchSize bounds the number of questions in one batch update
const MaxBatchSize = 1000

// Store persists progress records
type Store interface {
	UpsertProgress(ctx context.Context, userID string, id models.QuestionID, upd models.ProgressUpdate, scope *models.Scope) (models.Progress, error)
	BatchUpsertProgress(ctx context.Context, userID string, ids []models.QuestionID, upd models.ProgressUpdate, scope *models.Scope) (int, error)
	ListProgress(ctx context.Context, userID string, ids []models.QuestionID) ([]models.Progress, error)
}

// Catalog resolves the catalog entities a progress update refers to
type Catalog interface {
	GetQuestions(ctx context.Context, ids []models.QuestionID) (map[models.QuestionID]models.Question, error)
	GetCompanyByName(ctx context.Context, name string) (*models.Company, error)
}

// Invalidator is told when a user's progress changed
type Invalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// ViewScope names the catalog view an update comes from. The zero value means
// no view (a generic update).
type ViewScope struct {
	Company string `json:"company,omitempty"`
	Bucket  string `json:"bucket,omitempty"`
}

// IsZero reports whether no view was given
func (v ViewScope) IsZero() bool {
	return v.Company == "" && v.Bucket == ""
}

// Service applies and resolves per-user progress
type Service struct {
	store       Store
	catalog     Catalog
	invalidator Invalidator
}

// NewService creates a progress service. invalidator may be nil.
func NewService(store Store, catalog Catalog, invalidator Invalidator) *Service {
	return &Service{
		store:       store,
		catalog:     catalog,
		invalidator: invalidator,
	}
}

// Upsert applies a partial update to the user's record for one question
func (s *Service) Upsert(ctx context.Context, userID string, id models.QuestionID, upd models.ProgressUpdate, view ViewScope) (*models.Progress, error) {
	if err := validateUpdate(userID, upd); err != nil {
		return nil, err
	}

	if err := s.requireQuestions(ctx, []models.QuestionID{id}); err != nil {
		return nil, err
	}

	scope, err := s.resolveScope(ctx, view)
	if err != nil {
		return nil, err
	}

	p, err := s.store.UpsertProgress(ctx, userID, id, upd, scope)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID)
	return &p, nil
}

// BatchUpsert applies the same update to many questions. Each record is
// updated atomically; the batch as a whole is not.
func (s *Service) BatchUpsert(ctx context.Context, userID string, ids []models.QuestionID, upd models.ProgressUpdate, view ViewScope) (int, error) {
	if err := validateUpdate(userID, upd); err != nil {
		return 0, err
	}

	ids = dedupe(ids)
	if len(ids) == 0 {
		return 0, models.NewValidationError("questionIds", "at least one question id is required")
	}
	if len(ids) > MaxBatchSize {
		return 0, models.NewValidationError("questionIds", "at most %d question ids per batch", MaxBatchSize)
	}

	if err := s.requireQuestions(ctx, ids); err != nil {
		return 0, err
	}

	scope, err := s.resolveScope(ctx, view)
	if err != nil {
		return 0, err
	}

	n, err := s.store.BatchUpsertProgress(ctx, userID, ids, upd, scope)
	if n > 0 {
		s.invalidate(ctx, userID)
	}
	return n, err
}

// Resolve returns the record that applies to the question in the given view:
// the scoped record, else the generic one, else the default state.
func (s *Service) Resolve(ctx context.Context, userID string, id models.QuestionID, view ViewScope) (models.Progress, error) {
	scope, err := s.resolveScope(ctx, view)
	if err != nil {
		return models.Progress{}, err
	}

	records, err := s.store.ListProgress(ctx, userID, []models.QuestionID{id})
	if err != nil {
		return models.Progress{}, fmt.Errorf("failed to load progress: %w", err)
	}

	return models.NewProgressIndex(userID, records).Resolve(id, scope), nil
}

func (s *Service) resolveScope(ctx context.Context, view ViewScope) (*models.Scope, error) {
	view.Company = strings.TrimSpace(view.Company)
	view.Bucket = strings.TrimSpace(view.Bucket)

	if view.IsZero() {
		return nil, nil
	}
	if view.Company == "" || view.Bucket == "" {
		return nil, models.NewValidationError("scope", "company and bucket must be given together")
	}

	company, err := s.catalog.GetCompanyByName(ctx, view.Company)
	if err != nil {
		return nil, err
	}

	return &models.Scope{CompanyID: company.ID, Bucket: view.Bucket}, nil
}

func (s *Service) requireQuestions(ctx context.Context, ids []models.QuestionID) error {
	found, err := s.catalog.GetQuestions(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load questions: %w", err)
	}

	for _, id := range ids {
		if _, ok := found[id]; !ok {
			return models.NotFound("question", id.String())
		}
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, userID string) {
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx, userID)
	}
}

func validateUpdate(userID string, upd models.ProgressUpdate) error {
	if userID == "" {
		return models.NewValidationError("userId", "user id is required")
	}
	if upd.IsEmpty() {
		return models.NewValidationError("fields", "nothing to update: provide solved and/or userDifficulty")
	}
	return nil
}

func dedupe(ids []models.QuestionID) []models.QuestionID {
	seen := make(map[models.QuestionID]bool, len(ids))
	out := make([]models.QuestionID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
