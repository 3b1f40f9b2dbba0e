package stats

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/leetease/catalog-engine/internal/models"
)

// Store is the read surface the statistics service needs
type Store interface {
	GetCompanyByName(ctx context.Context, name string) (*models.Company, error)
	ListCompanies(ctx context.Context) ([]models.Company, error)
	ListPlacementRows(ctx context.Context, companyID models.CompanyID, bucket string) ([]models.PlacementRow, error)
	ListBucketRows(ctx context.Context, bucket string) ([]models.PlacementRow, error)
	GetQuestions(ctx context.Context, ids []models.QuestionID) (map[models.QuestionID]models.Question, error)
	ListProgress(ctx context.Context, userID string, ids []models.QuestionID) ([]models.Progress, error)
}

// Service computes per-user progress summaries
type Service struct {
	store   Store
	global  Cache[models.UserStats]
	company Cache[[]models.BucketProgress]
	now     func() time.Time
}

// NewService creates a statistics service. Nil caches disable caching.
func NewService(store Store, global Cache[models.UserStats], company Cache[[]models.BucketProgress]) *Service {
	if global == nil {
		global = NoopCache[models.UserStats]{}
	}
	if company == nil {
		company = NoopCache[[]models.BucketProgress]{}
	}

	return &Service{
		store:   store,
		global:  global,
		company: company,
		now:     time.Now,
	}
}

var keyEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)

// cacheKey joins escaped parts with "|" so that no user's prefix can match
// another user's keys.
func cacheKey(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = keyEscaper.Replace(p)
	}
	return strings.Join(escaped, "|")
}

func userPrefix(userID string) string {
	return cacheKey(userID) + "|"
}

// Invalidate drops every cached summary of the user
func (s *Service) Invalidate(ctx context.Context, userID string) {
	s.global.InvalidatePrefix(ctx, userPrefix(userID))
	s.company.InvalidatePrefix(ctx, userPrefix(userID))
}

// CompanyProgress returns the user's progress in each well-known bucket of a
// company, always in display order and always all of them.
func (s *Service) CompanyProgress(ctx context.Context, userID, companyName string) ([]models.BucketProgress, error) {
	key := cacheKey(userID, "company", companyName)
	if cached, ok := s.company.Get(ctx, key); ok {
		return append([]models.BucketProgress(nil), cached...), nil
	}

	company, err := s.store.GetCompanyByName(ctx, companyName)
	if err != nil {
		return nil, err
	}

	records, err := s.store.ListProgress(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	solvedIDs := solvedQuestions(records)

	result := make([]models.BucketProgress, 0, len(models.Buckets))
	for _, bucket := range models.Buckets {
		rows, err := s.store.ListPlacementRows(ctx, company.ID, bucket)
		if err != nil {
			return nil, fmt.Errorf("failed to load bucket %s: %w", bucket, err)
		}

		total, solved := countBucket(rows, solvedIDs)
		result = append(result, models.BucketProgress{Bucket: bucket, Total: total, Solved: solved})
	}

	s.company.Set(ctx, key, append([]models.BucketProgress(nil), result...))
	return result, nil
}

// GlobalStats summarizes the user's progress across the catalog
func (s *Service) GlobalStats(ctx context.Context, userID string) (*models.UserStats, error) {
	key := cacheKey(userID, "global")
	if cached, ok := s.global.Get(ctx, key); ok {
		cached.Companies = copyCompanies(cached.Companies)
		return &cached, nil
	}

	records, err := s.store.ListProgress(ctx, userID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	solvedIDs := solvedQuestions(records)
	ids := make([]models.QuestionID, 0, len(solvedIDs))
	for id := range solvedIDs {
		ids = append(ids, id)
	}

	questions, err := s.store.GetQuestions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load solved questions: %w", err)
	}

	stats := models.UserStats{
		TotalAttempted: len(records),
		Companies:      make([]models.CompanySummary, 0),
		GeneratedAt:    s.now().UTC(),
	}

	// Counts are per progress record, so a question solved from two views
	// counts twice.
	for _, p := range records {
		if !p.Solved {
			continue
		}
		stats.TotalSolved++

		q, ok := questions[p.QuestionID]
		if !ok {
			continue
		}
		switch models.NormalizeDifficulty(string(q.LeetDifficulty)) {
		case models.DifficultyEasy:
			stats.Difficulty.Easy++
		case models.DifficultyMedium:
			stats.Difficulty.Medium++
		case models.DifficultyHard:
			stats.Difficulty.Hard++
		}
	}

	allRows, err := s.store.ListBucketRows(ctx, models.BucketAll)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s placements: %w", models.BucketAll, err)
	}

	slugs := make(map[string]bool)
	byCompany := make(map[models.CompanyID][]models.PlacementRow)
	for _, row := range allRows {
		if slug := row.Question.Slug(); slug != "" {
			slugs[slug] = true
		}
		byCompany[row.CompanyID] = append(byCompany[row.CompanyID], row)
	}
	stats.TotalQuestions = len(slugs)

	companies, err := s.store.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	for _, c := range companies {
		total, solved := countBucket(byCompany[c.ID], solvedIDs)
		stats.Companies = append(stats.Companies, models.CompanySummary{
			Company: c.Name,
			Total:   total,
			Solved:  solved,
		})
	}
	sort.SliceStable(stats.Companies, func(i, j int) bool {
		return stats.Companies[i].Company < stats.Companies[j].Company
	})

	slog.Debug("computed user stats",
		"user", userID,
		"attempted", stats.TotalAttempted,
		"solved", stats.TotalSolved,
	)

	stored := stats
	stored.Companies = copyCompanies(stats.Companies)
	s.global.Set(ctx, key, stored)
	return &stats, nil
}

func copyCompanies(in []models.CompanySummary) []models.CompanySummary {
	out := make([]models.CompanySummary, len(in))
	copy(out, in)
	return out
}

// solvedQuestions returns the questions with at least one solved record,
// whatever view the record was written from.
func solvedQuestions(records []models.Progress) map[models.QuestionID]bool {
	solved := make(map[models.QuestionID]bool)
	for _, p := range records {
		if p.Solved {
			solved[p.QuestionID] = true
		}
	}
	return solved
}

// countBucket counts distinct questions in rows and how many are solved
func countBucket(rows []models.PlacementRow, solvedIDs map[models.QuestionID]bool) (total, solved int) {
	seen := make(map[models.QuestionID]bool, len(rows))
	for _, row := range rows {
		if seen[row.QuestionID] {
			continue
		}
		seen[row.QuestionID] = true
		total++
		if solvedIDs[row.QuestionID] {
			solved++
		}
	}
	return total, solved
}
