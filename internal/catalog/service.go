package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/leetease/catalog-engine/internal/models"
	"github.com/leetease/catalog-engine/internal/storage"
)

const (
	// MaxSearchLength bounds free-text search input, in characters
	MaxSearchLength = 100

	defaultSuggestions = 10
	maxSuggestions     = 50
)

// ProgressReader loads a user's progress records
type ProgressReader interface {
	ListProgress(ctx context.Context, userID string, ids []models.QuestionID) ([]models.Progress, error)
}

// TagFetcher looks up topic tags of a problem on the external judge
type TagFetcher interface {
	GetTopicTags(ctx context.Context, slug string) ([]string, error)
}

// Options tunes the catalog service
type Options struct {
	// BackfillWorkers bounds concurrent tag lookups
	BackfillWorkers int
}

// Service owns catalog writes and every catalog read that overlays progress
type Service struct {
	store    storage.CatalogStore
	progress ProgressReader
	tags     TagFetcher
	workers  int
}

// NewService creates a catalog service. tags may be nil when backfill is not used.
func NewService(store storage.CatalogStore, progress ProgressReader, tags TagFetcher, opts Options) *Service {
	workers := opts.BackfillWorkers
	if workers <= 0 {
		workers = 5
	}

	return &Service{
		store:    store,
		progress: progress,
		tags:     tags,
		workers:  workers,
	}
}

// UpsertQuestion creates a question on first reference by link
func (s *Service) UpsertQuestion(ctx context.Context, link, title string, hint models.Difficulty) (models.QuestionID, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return models.QuestionID{}, models.NewValidationError("link", "link is required")
	}
	return s.store.UpsertQuestion(ctx, link, strings.TrimSpace(title), hint)
}

// UpsertCompany creates a company on first reference by name
func (s *Service) UpsertCompany(ctx context.Context, name string) (models.CompanyID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.CompanyID{}, models.NewValidationError("company", "company name is required")
	}
	return s.store.UpsertCompany(ctx, name)
}

// UpsertPlacement validates and stores a placement, replacing any previous values
func (s *Service) UpsertPlacement(ctx context.Context, p models.Placement) error {
	p.Bucket = strings.TrimSpace(p.Bucket)
	if p.Bucket == "" {
		return models.NewValidationError("bucket", "bucket is required")
	}
	if math.IsNaN(p.Frequency) || math.IsInf(p.Frequency, 0) || p.Frequency < 0 {
		return models.NewValidationError("frequency", "must be a non-negative number")
	}
	if math.IsNaN(p.AcceptanceRate) || p.AcceptanceRate < 0 || p.AcceptanceRate > 100 {
		return models.NewValidationError("acceptanceRate", "must be between 0 and 100")
	}
	return s.store.UpsertPlacement(ctx, p)
}

// SetTags overwrites the topic tags of a question
func (s *Service) SetTags(ctx context.Context, id models.QuestionID, tags []string) error {
	return s.store.SetTags(ctx, id, tags)
}

// ListCompanyNames lists company names starting with prefix, case-insensitively
func (s *Service) ListCompanyNames(ctx context.Context, prefix string) ([]string, error) {
	return s.store.ListCompanyNames(ctx, strings.TrimSpace(prefix))
}

// ListBuckets lists the buckets a company has questions in
func (s *Service) ListBuckets(ctx context.Context, companyName string) ([]string, error) {
	company, err := s.store.GetCompanyByName(ctx, companyName)
	if err != nil {
		return nil, err
	}
	return s.store.ListBuckets(ctx, company.ID)
}

// QuestionDetail is a question with the user's generic progress
type QuestionDetail struct {
	models.Question
	Slug           string            `json:"slug"`
	Solved         bool              `json:"solved"`
	UserDifficulty models.Difficulty `json:"userDifficulty"`
	UpdatedAt      *time.Time        `json:"updatedAt,omitempty"`
}

// GetQuestion returns a question outside any company view
func (s *Service) GetQuestion(ctx context.Context, userID string, id models.QuestionID) (*QuestionDetail, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	records, err := s.progress.ListProgress(ctx, userID, []models.QuestionID{id})
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	p := models.NewProgressIndex(userID, records).Resolve(id, nil)

	return &QuestionDetail{
		Question:       *q,
		Slug:           q.Slug(),
		Solved:         p.Solved,
		UserDifficulty: p.UserDifficulty,
		UpdatedAt:      p.UpdatedAt,
	}, nil
}

// QuestionCompanies lists the company buckets a question appears in
func (s *Service) QuestionCompanies(ctx context.Context, id models.QuestionID) ([]models.QuestionPlacement, error) {
	placements, err := s.store.ListQuestionPlacements(ctx, id)
	if err != nil {
		return nil, err
	}
	if placements == nil {
		placements = make([]models.QuestionPlacement, 0)
	}
	return placements, nil
}

// Suggestion is a search hit across the whole catalog
type Suggestion struct {
	ID    models.QuestionID `json:"id"`
	Title string            `json:"title"`
	Slug  string            `json:"slug"`
}

// Suggestions searches question titles for text, treated literally
func (s *Service) Suggestions(ctx context.Context, text string, limit int) ([]Suggestion, error) {
	text = strings.TrimSpace(text)
	if err := validateSearch(text); err != nil {
		return nil, err
	}
	if text == "" {
		return make([]Suggestion, 0), nil
	}

	switch {
	case limit <= 0:
		limit = defaultSuggestions
	case limit > maxSuggestions:
		limit = maxSuggestions
	}

	questions, err := s.store.SearchQuestions(ctx, text, limit)
	if err != nil {
		return nil, err
	}

	result := make([]Suggestion, 0, len(questions))
	for _, q := range questions {
		result = append(result, Suggestion{ID: q.ID, Title: q.Title, Slug: q.Slug()})
	}
	return result, nil
}

// BackfillResult reports a tag backfill run
type BackfillResult struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// BackfillTags fetches topic tags for catalog questions with bounded
// concurrency. With onlyMissing, questions that already have tags are skipped.
// A failed lookup leaves that question's tags as they were.
func (s *Service) BackfillTags(ctx context.Context, onlyMissing bool) (*BackfillResult, error) {
	if s.tags == nil {
		return nil, fmt.Errorf("tag backfill is not configured")
	}

	questions, err := s.store.ListQuestions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}

	var updated, failed, skipped int64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, q := range questions {
		q := q
		slug := q.Slug()
		if slug == "" || (onlyMissing && len(q.Tags) > 0) {
			skipped++
			continue
		}

		g.Go(func() error {
			tags, err := s.tags.GetTopicTags(gctx, slug)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				slog.Warn("tag lookup failed", "slug", slug, "error", err)
				atomic.AddInt64(&failed, 1)
				return nil
			}

			if err := s.store.SetTags(gctx, q.ID, tags); err != nil {
				slog.Error("failed to store tags", "slug", slug, "error", err)
				atomic.AddInt64(&failed, 1)
				return nil
			}

			atomic.AddInt64(&updated, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &BackfillResult{Updated: int(updated), Failed: int(failed), Skipped: int(skipped)}
	slog.Info("tag backfill finished",
		"updated", result.Updated,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"duration", time.Since(start),
	)

	return result, nil
}

func validateSearch(text string) error {
	if utf8.RuneCountInString(text) > MaxSearchLength {
		return models.NewValidationError("search", "must be at most %d characters", MaxSearchLength)
	}
	return nil
}
