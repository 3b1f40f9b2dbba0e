package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/leetease/catalog-engine/internal/models"
)

// MemoryRepository implements Repository in process memory. It backs tests
// and the "memory" storage driver.
type MemoryRepository struct {
	mu  sync.RWMutex
	now func() time.Time
	seq int64

	questions      map[models.QuestionID]*models.Question
	questionByLink map[string]models.QuestionID
	companies      map[models.CompanyID]*models.Company
	companyByName  map[string]models.CompanyID
	placements     map[placementKey]*models.PlacementRow
	progress       map[progressKey]*models.Progress
	accounts       map[string]models.JudgeAccount
}

type placementKey struct {
	company  models.CompanyID
	bucket   string
	question models.QuestionID
}

type progressKey struct {
	user     string
	question models.QuestionID
	company  string
	bucket   string
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		now:            time.Now,
		questions:      make(map[models.QuestionID]*models.Question),
		questionByLink: make(map[string]models.QuestionID),
		companies:      make(map[models.CompanyID]*models.Company),
		companyByName:  make(map[string]models.CompanyID),
		placements:     make(map[placementKey]*models.PlacementRow),
		progress:       make(map[progressKey]*models.Progress),
		accounts:       make(map[string]models.JudgeAccount),
	}
}

// SetClock overrides the time source used for updatedAt
func (r *MemoryRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

// Ping always succeeds
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (r *MemoryRepository) Close() error {
	return nil
}

// --- Catalog ---

func (r *MemoryRepository) UpsertQuestion(ctx context.Context, link, title string, hint models.Difficulty) (models.QuestionID, error) {
	if link == "" {
		return models.QuestionID{}, models.NewValidationError("link", "link is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.questionByLink[link]; ok {
		return id, nil
	}

	id := models.NewQuestionID()
	r.questions[id] = &models.Question{
		ID:             id,
		Link:           link,
		Title:          title,
		LeetDifficulty: hint,
	}
	r.questionByLink[link] = id
	return id, nil
}

func (r *MemoryRepository) SetTags(ctx context.Context, id models.QuestionID, tags []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	q, ok := r.questions[id]
	if !ok {
		return models.NotFound("question", id.String())
	}
	q.Tags = append([]string(nil), tags...)
	return nil
}

func (r *MemoryRepository) UpsertCompany(ctx context.Context, name string) (models.CompanyID, error) {
	if name == "" {
		return models.CompanyID{}, models.NewValidationError("name", "company name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.companyByName[name]; ok {
		return id, nil
	}

	id := models.NewCompanyID()
	r.companies[id] = &models.Company{ID: id, Name: name}
	r.companyByName[name] = id
	return id, nil
}

func (r *MemoryRepository) UpsertPlacement(ctx context.Context, p models.Placement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.companies[p.CompanyID]; !ok {
		return models.NotFound("company", p.CompanyID.String())
	}
	if _, ok := r.questions[p.QuestionID]; !ok {
		return models.NotFound("question", p.QuestionID.String())
	}

	key := placementKey{p.CompanyID, p.Bucket, p.QuestionID}
	if existing, ok := r.placements[key]; ok {
		existing.Placement = p
		return nil
	}

	r.seq++
	r.placements[key] = &models.PlacementRow{Placement: p, Seq: r.seq}
	return nil
}

func (r *MemoryRepository) GetQuestion(ctx context.Context, id models.QuestionID) (*models.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q, ok := r.questions[id]
	if !ok {
		return nil, models.NotFound("question", id.String())
	}
	cp := copyQuestion(q)
	return &cp, nil
}

func (r *MemoryRepository) GetQuestions(ctx context.Context, ids []models.QuestionID) (map[models.QuestionID]models.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[models.QuestionID]models.Question, len(ids))
	for _, id := range ids {
		if q, ok := r.questions[id]; ok {
			result[id] = copyQuestion(q)
		}
	}
	return result, nil
}

func (r *MemoryRepository) ListQuestions(ctx context.Context) ([]models.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.Question, 0, len(r.questions))
	for _, q := range r.questions {
		result = append(result, copyQuestion(q))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Link < result[j].Link })
	return result, nil
}

func (r *MemoryRepository) SearchQuestions(ctx context.Context, text string, limit int) ([]models.Question, error) {
	needle := strings.ToLower(text)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Question
	for _, q := range r.questions {
		if strings.Contains(strings.ToLower(q.Title), needle) {
			result = append(result, copyQuestion(q))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Title != result[j].Title {
			return result[i].Title < result[j].Title
		}
		return result[i].Link < result[j].Link
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *MemoryRepository) ListQuestionPlacements(ctx context.Context, id models.QuestionID) ([]models.QuestionPlacement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.questions[id]; !ok {
		return nil, models.NotFound("question", id.String())
	}

	var result []models.QuestionPlacement
	for key := range r.placements {
		if key.question != id {
			continue
		}
		result = append(result, models.QuestionPlacement{
			Company: r.companies[key.company].Name,
			Bucket:  key.bucket,
		})
	}
	sortQuestionPlacements(result)
	return result, nil
}

func (r *MemoryRepository) GetCompanyByName(ctx context.Context, name string) (*models.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.companyByName[name]
	if !ok {
		return nil, models.NotFound("company", name)
	}
	c := *r.companies[id]
	return &c, nil
}

func (r *MemoryRepository) ListCompanies(ctx context.Context) ([]models.Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.Company, 0, len(r.companies))
	for _, c := range r.companies {
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *MemoryRepository) ListCompanyNames(ctx context.Context, prefix string) ([]string, error) {
	lowered := strings.ToLower(prefix)

	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.companyByName))
	for name := range r.companyByName {
		if strings.HasPrefix(strings.ToLower(name), lowered) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *MemoryRepository) ListBuckets(ctx context.Context, companyID models.CompanyID) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for key := range r.placements {
		if key.company == companyID {
			seen[key.bucket] = true
		}
	}

	buckets := make([]string, 0, len(seen))
	for b := range seen {
		buckets = append(buckets, b)
	}
	SortBuckets(buckets)
	return buckets, nil
}

func (r *MemoryRepository) ListPlacementRows(ctx context.Context, companyID models.CompanyID, bucket string) ([]models.PlacementRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rows []models.PlacementRow
	for key, row := range r.placements {
		if key.company == companyID && key.bucket == bucket {
			rows = append(rows, r.joinRow(row))
		}
	}
	sortRows(rows)
	return rows, nil
}

func (r *MemoryRepository) ListBucketRows(ctx context.Context, bucket string) ([]models.PlacementRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var rows []models.PlacementRow
	for key, row := range r.placements {
		if key.bucket == bucket {
			rows = append(rows, r.joinRow(row))
		}
	}
	sortRows(rows)
	return rows, nil
}

func (r *MemoryRepository) joinRow(row *models.PlacementRow) models.PlacementRow {
	joined := *row
	joined.Question = copyQuestion(r.questions[row.QuestionID])
	return joined
}

// --- Progress ---

func (r *MemoryRepository) UpsertProgress(ctx context.Context, userID string, id models.QuestionID, upd models.ProgressUpdate, scope *models.Scope) (models.Progress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.upsertLocked(userID, id, upd, scope), nil
}

func (r *MemoryRepository) BatchUpsertProgress(ctx context.Context, userID string, ids []models.QuestionID, upd models.ProgressUpdate, scope *models.Scope) (int, error) {
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		r.mu.Lock()
		r.upsertLocked(userID, id, upd, scope)
		r.mu.Unlock()
	}
	return len(ids), nil
}

func (r *MemoryRepository) upsertLocked(userID string, id models.QuestionID, upd models.ProgressUpdate, scope *models.Scope) models.Progress {
	companyKey, bucketKey := scope.Key()
	key := progressKey{userID, id, companyKey, bucketKey}
	now := r.now()

	p, ok := r.progress[key]
	if !ok {
		p = &models.Progress{UserID: userID, QuestionID: id}
		if scope != nil {
			s := *scope
			p.Scope = &s
			// New scoped records start from the generic record's values.
			if generic, found := r.progress[progressKey{userID, id, "", ""}]; found {
				p.Solved = generic.Solved
				p.UserDifficulty = generic.UserDifficulty
			}
		}
		r.progress[key] = p
	}

	upd.Apply(p)
	p.UpdatedAt = &now
	return copyProgress(p)
}

func (r *MemoryRepository) ListProgress(ctx context.Context, userID string, ids []models.QuestionID) ([]models.Progress, error) {
	var wanted map[models.QuestionID]bool
	if ids != nil {
		wanted = make(map[models.QuestionID]bool, len(ids))
		for _, id := range ids {
			wanted[id] = true
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Progress
	for key, p := range r.progress {
		if key.user != userID {
			continue
		}
		if wanted != nil && !wanted[key.question] {
			continue
		}
		result = append(result, copyProgress(p))
	}
	return result, nil
}

func (r *MemoryRepository) MarkSolved(ctx context.Context, userID string, ids []models.QuestionID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	changed := 0
	for _, id := range ids {
		key := progressKey{userID, id, "", ""}
		p, ok := r.progress[key]
		if ok && p.Solved {
			continue
		}
		if !ok {
			p = &models.Progress{UserID: userID, QuestionID: id}
			r.progress[key] = p
		}
		p.Solved = true
		p.UpdatedAt = &now
		changed++
	}
	return changed, nil
}

// --- Judge accounts ---

func (r *MemoryRepository) SaveJudgeAccount(ctx context.Context, acct models.JudgeAccount) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	acct.UpdatedAt = r.now()
	r.accounts[acct.UserID] = acct
	return nil
}

func (r *MemoryRepository) GetJudgeAccount(ctx context.Context, userID string) (*models.JudgeAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	acct, ok := r.accounts[userID]
	if !ok {
		return nil, models.NotFound("judge account", userID)
	}
	return &acct, nil
}

func (r *MemoryRepository) ListJudgeAccounts(ctx context.Context) ([]models.JudgeAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.JudgeAccount, 0, len(r.accounts))
	for _, acct := range r.accounts {
		result = append(result, acct)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

// Helper functions

func copyQuestion(q *models.Question) models.Question {
	cp := *q
	cp.Tags = make([]string, len(q.Tags))
	copy(cp.Tags, q.Tags)
	return cp
}

func copyProgress(p *models.Progress) models.Progress {
	cp := *p
	if p.Scope != nil {
		s := *p.Scope
		cp.Scope = &s
	}
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		cp.UpdatedAt = &t
	}
	return cp
}

func sortRows(rows []models.PlacementRow) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })
}

func sortQuestionPlacements(list []models.QuestionPlacement) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Company != list[j].Company {
			return list[i].Company < list[j].Company
		}
		return models.BucketRank(list[i].Bucket) < models.BucketRank(list[j].Bucket)
	})
}

// SortBuckets orders buckets by display order; unknown buckets follow alphabetically
func SortBuckets(buckets []string) {
	sort.Slice(buckets, func(i, j int) bool {
		ri, rj := models.BucketRank(buckets[i]), models.BucketRank(buckets[j])
		if ri != rj {
			return ri < rj
		}
		return buckets[i] < buckets[j]
	})
}
