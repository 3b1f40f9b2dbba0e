package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leetease/catalog-engine/internal/models"
)

// SolvedFetcher reads a user's solved set from the external judge
type SolvedFetcher interface {
	GetSolvedSlugs(ctx context.Context, sessionToken string) ([]string, error)
}

// Store is the storage surface reconciliation needs
type Store interface {
	ListQuestions(ctx context.Context) ([]models.Question, error)
	MarkSolved(ctx context.Context, userID string, ids []models.QuestionID) (int, error)
}

// Invalidator is told when a user's progress changed
type Invalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// Service merges the external solved signal into per-user progress
type Service struct {
	store       Store
	judge       SolvedFetcher
	invalidator Invalidator
}

// NewService creates a reconciliation service. invalidator may be nil.
func NewService(store Store, judge SolvedFetcher, invalidator Invalidator) *Service {
	return &Service{
		store:       store,
		judge:       judge,
		invalidator: invalidator,
	}
}

// Reconcile marks every catalog question the user solved on the judge as
// solved in the user's generic progress. It never unsolves a question and
// never touches userDifficulty. All writes of one run land in a single bulk
// write. The returned count is the number of records that changed, so a rerun
// against unchanged external state returns 0.
func (s *Service) Reconcile(ctx context.Context, userID, handle, sessionToken string) (int, error) {
	if userID == "" {
		return 0, models.NewValidationError("userId", "user id is required")
	}
	if sessionToken == "" {
		return 0, models.NewValidationError("sessionCookie", "judge session token is required")
	}

	start := time.Now()

	slugs, err := s.judge.GetSolvedSlugs(ctx, sessionToken)
	if err != nil {
		return 0, err
	}

	bySlug, err := s.slugIndex(ctx)
	if err != nil {
		return 0, err
	}

	ids := make([]models.QuestionID, 0, len(slugs))
	unknown := 0
	for _, slug := range slugs {
		id, ok := bySlug[slug]
		if !ok {
			unknown++
			continue
		}
		ids = append(ids, id)
	}

	changed := 0
	if len(ids) > 0 {
		changed, err = s.store.MarkSolved(ctx, userID, ids)
		if err != nil {
			return 0, fmt.Errorf("failed to mark solved: %w", err)
		}
	}

	if changed > 0 && s.invalidator != nil {
		s.invalidator.Invalidate(ctx, userID)
	}

	slog.Info("reconciled judge progress",
		"user_id", userID,
		"handle", handle,
		"external_solved", len(slugs),
		"matched", len(ids),
		"unknown", unknown,
		"changed", changed,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return changed, nil
}

func (s *Service) slugIndex(ctx context.Context) (map[string]models.QuestionID, error) {
	questions, err := s.store.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	index := make(map[string]models.QuestionID, len(questions))
	for i := range questions {
		slug := questions[i].Slug()
		if slug == "" {
			continue
		}
		if _, dup := index[slug]; !dup {
			index[slug] = questions[i].ID
		}
	}
	return index, nil
}
