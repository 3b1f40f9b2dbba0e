package catalog

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/leetease/catalog-engine/internal/models"
)

const (
	// MaxPageLimit caps the page size of a question query
	MaxPageLimit = 500
)

var sortFields = map[string]bool{
	models.SortTitle:          true,
	models.SortFrequency:      true,
	models.SortAcceptanceRate: true,
	models.SortLeetDifficulty: true,
}

// Questions returns one page of a company bucket with the user's progress
// overlaid. Total counts the filtered set before pagination and before the
// unsolved-only filter, so a page may hold fewer than Limit items.
func (s *Service) Questions(ctx context.Context, q models.QuestionQuery) (*models.QuestionPage, error) {
	if err := normalizeQuery(&q); err != nil {
		return nil, err
	}

	company, err := s.store.GetCompanyByName(ctx, q.Company)
	if err != nil {
		return nil, err
	}

	rows, err := s.store.ListPlacementRows(ctx, company.ID, q.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to load placements: %w", err)
	}

	rows = collapse(rows)
	rows = filterRows(rows, q.Tag, q.Search)
	sortRows(rows, q.SortField, q.SortOrder)

	total := len(rows)
	rows = window(rows, q.Page, q.Limit)

	ids := make([]models.QuestionID, len(rows))
	for i, row := range rows {
		ids[i] = row.QuestionID
	}

	records, err := s.progress.ListProgress(ctx, q.UserID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	idx := models.NewProgressIndex(q.UserID, records)
	scope := &models.Scope{CompanyID: company.ID, Bucket: q.Bucket}

	items := make([]models.QuestionItem, 0, len(rows))
	for _, row := range rows {
		p := idx.Resolve(row.QuestionID, scope)
		if q.ShowUnsolved && p.Solved {
			continue
		}
		items = append(items, toItem(row, p))
	}

	return &models.QuestionPage{Items: items, Total: total}, nil
}

func normalizeQuery(q *models.QuestionQuery) error {
	q.Company = strings.TrimSpace(q.Company)
	q.Bucket = strings.TrimSpace(q.Bucket)
	q.Search = strings.TrimSpace(q.Search)

	if q.Company == "" {
		return models.NewValidationError("company", "company is required")
	}
	if q.Bucket == "" {
		return models.NewValidationError("bucket", "bucket is required")
	}
	if q.Page < 1 {
		return models.NewValidationError("page", "must be a positive integer")
	}
	if q.Limit < 1 {
		return models.NewValidationError("limit", "must be a positive integer")
	}
	if q.Limit > MaxPageLimit {
		q.Limit = MaxPageLimit
	}
	if q.SortField != "" && !sortFields[q.SortField] {
		return models.NewValidationError("sortField", "unknown sort field %q", q.SortField)
	}

	switch q.SortOrder {
	case "":
		q.SortOrder = models.SortAsc
	case models.SortAsc, models.SortDesc:
	default:
		return models.NewValidationError("sortOrder", "must be asc or desc")
	}

	return validateSearch(q.Search)
}

// collapse merges rows of the same question into the first one, keeping the
// highest frequency and acceptance rate seen.
func collapse(rows []models.PlacementRow) []models.PlacementRow {
	pos := make(map[models.QuestionID]int, len(rows))
	out := make([]models.PlacementRow, 0, len(rows))

	for _, row := range rows {
		i, dup := pos[row.QuestionID]
		if !dup {
			pos[row.QuestionID] = len(out)
			out = append(out, row)
			continue
		}
		if row.Frequency > out[i].Frequency {
			out[i].Frequency = row.Frequency
		}
		if row.AcceptanceRate > out[i].AcceptanceRate {
			out[i].AcceptanceRate = row.AcceptanceRate
		}
	}

	return out
}

func filterRows(rows []models.PlacementRow, tag, search string) []models.PlacementRow {
	if tag == "" && search == "" {
		return rows
	}

	var pattern *regexp.Regexp
	if search != "" {
		pattern = regexp.MustCompile("(?i)" + regexp.QuoteMeta(search))
	}

	out := rows[:0]
	for _, row := range rows {
		if tag != "" && !row.Question.HasTag(tag) {
			continue
		}
		if pattern != nil && !pattern.MatchString(row.Question.Title) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// sortRows orders rows stably so ties keep natural order. Questions without a
// difficulty sort last in both directions.
func sortRows(rows []models.PlacementRow, field string, order models.SortOrder) {
	if field == "" {
		return
	}

	desc := order == models.SortDesc
	cmp := func(a, b models.PlacementRow) int {
		switch field {
		case models.SortTitle:
			return strings.Compare(strings.ToLower(a.Question.Title), strings.ToLower(b.Question.Title))
		case models.SortFrequency:
			return compareFloat(a.Frequency, b.Frequency)
		case models.SortAcceptanceRate:
			return compareFloat(a.AcceptanceRate, b.AcceptanceRate)
		case models.SortLeetDifficulty:
			ra, rb := a.Question.LeetDifficulty.Rank(), b.Question.LeetDifficulty.Rank()
			noneA := a.Question.LeetDifficulty == models.DifficultyNone
			noneB := b.Question.LeetDifficulty == models.DifficultyNone
			if noneA || noneB {
				if noneA == noneB {
					return 0
				}
				if desc {
					// cancel the reversal below
					return rb - ra
				}
			}
			return ra - rb
		}
		return 0
	}

	sort.SliceStable(rows, func(i, j int) bool {
		c := cmp(rows[i], rows[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func window(rows []models.PlacementRow, page, limit int) []models.PlacementRow {
	skip := (page - 1) * limit
	if skip >= len(rows) {
		return nil
	}
	end := skip + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[skip:end]
}

func toItem(row models.PlacementRow, p models.Progress) models.QuestionItem {
	tags := row.Question.Tags
	if tags == nil {
		tags = make([]string, 0)
	}

	return models.QuestionItem{
		ID:             row.QuestionID,
		Title:          row.Question.Title,
		Link:           row.Question.Link,
		Slug:           row.Question.Slug(),
		LeetDifficulty: row.Question.LeetDifficulty,
		Tags:           tags,
		Frequency:      row.Frequency,
		AcceptanceRate: row.AcceptanceRate,
		Bucket:         row.Bucket,
		Solved:         p.Solved,
		UserDifficulty: p.UserDifficulty,
	}
}
