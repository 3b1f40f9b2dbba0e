package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/leetease/catalog-engine/internal/models"
)

// Topics counts tags over the distinct questions of a company bucket, most
// frequent first. With unsolvedOnly, questions the user solved are left out.
func (s *Service) Topics(ctx context.Context, userID, companyName, bucket string, unsolvedOnly bool) ([]models.TopicCount, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		bucket = models.BucketAll
	}

	company, err := s.store.GetCompanyByName(ctx, companyName)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListPlacementRows(ctx, company.ID, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to load placements: %w", err)
	}
	rows = collapse(rows)

	var idx *models.ProgressIndex
	if unsolvedOnly {
		ids := make([]models.QuestionID, len(rows))
		for i, row := range rows {
			ids[i] = row.QuestionID
		}
		records, err := s.progress.ListProgress(ctx, userID, ids)
		if err != nil {
			return nil, fmt.Errorf("failed to load progress: %w", err)
		}
		idx = models.NewProgressIndex(userID, records)
	}

	scope := &models.Scope{CompanyID: company.ID, Bucket: bucket}
	counts := make(map[string]int)
	for _, row := range rows {
		if idx != nil && idx.Resolve(row.QuestionID, scope).Solved {
			continue
		}
		for _, tag := range row.Question.Tags {
			counts[tag]++
		}
	}

	result := make([]models.TopicCount, 0, len(counts))
	for tag, n := range counts {
		result = append(result, models.TopicCount{Tag: tag, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Tag < result[j].Tag
	})

	return result, nil
}
