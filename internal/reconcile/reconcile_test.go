package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leetease/catalog-engine/internal/models"
	"github.com/leetease/catalog-engine/internal/storage"
	"github.com/leetease/catalog-engine/internal/worker"
)

type fakeJudge struct {
	mu     sync.Mutex
	solved map[string][]string
	fail   map[string]error
	calls  int
}

func (f *fakeJudge) GetSolvedSlugs(ctx context.Context, token string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[token]; err != nil {
		return nil, err
	}
	return f.solved[token], nil
}

type countingInvalidator struct {
	mu    sync.Mutex
	count map[string]int
}

func (c *countingInvalidator) Invalidate(ctx context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.count == nil {
		c.count = make(map[string]int)
	}
	c.count[userID]++
}

func (c *countingInvalidator) get(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count[userID]
}

type inlineSubmitter struct {
	mu    sync.Mutex
	tasks []worker.Task
}

func (s *inlineSubmitter) Submit(task worker.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
	return true
}

func (s *inlineSubmitter) runAll(t *testing.T) []error {
	t.Helper()
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()

	var errs []error
	for _, task := range tasks {
		errs = append(errs, task.Run(context.Background()))
	}
	return errs
}

func seed(t *testing.T, repo *storage.MemoryRepository) map[string]models.QuestionID {
	t.Helper()
	ctx := context.Background()

	ids := make(map[string]models.QuestionID)
	for _, link := range []string{
		"https://leetcode.com/problems/two-sum/",
		"https://leetcode.com/problems/lru-cache",
		"https://leetcode.com/problems/3sum/?envType=study",
	} {
		id, err := repo.UpsertQuestion(ctx, link, models.SlugFromLink(link), models.DifficultyMedium)
		require.NoError(t, err)
		ids[models.SlugFromLink(link)] = id
	}
	return ids
}

func TestReconcileIdempotentAndMonotonic(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	ids := seed(t, repo)
	inv := &countingInvalidator{}
	judge := &fakeJudge{solved: map[string][]string{
		"tok": {"two-sum", "3sum", "not-in-catalog"},
	}}
	svc := NewService(repo, judge, inv)

	hard := models.DifficultyHard
	_, err := repo.UpsertProgress(ctx, "u1", ids["two-sum"], models.ProgressUpdate{UserDifficulty: &hard}, nil)
	require.NoError(t, err)

	n, err := svc.Reconcile(ctx, "u1", "alice", "tok")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, inv.get("u1"))

	n, err = svc.Reconcile(ctx, "u1", "alice", "tok")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "rerun with unchanged external state touches nothing")
	assert.Equal(t, 1, inv.get("u1"))

	records, err := repo.ListProgress(ctx, "u1", nil)
	require.NoError(t, err)
	byID := make(map[models.QuestionID]models.Progress)
	for _, p := range records {
		assert.Nil(t, p.Scope)
		byID[p.QuestionID] = p
	}
	assert.True(t, byID[ids["two-sum"]].Solved)
	assert.Equal(t, models.DifficultyHard, byID[ids["two-sum"]].UserDifficulty, "rating preserved")
	assert.True(t, byID[ids["3sum"]].Solved)
	_, touched := byID[ids["lru-cache"]]
	assert.False(t, touched)

	// The judge forgetting a question never unsolves it.
	judge.solved["tok"] = nil
	n, err = svc.Reconcile(ctx, "u1", "alice", "tok")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	p := models.NewProgressIndex("u1", mustList(t, repo, "u1")).Resolve(ids["3sum"], nil)
	assert.True(t, p.Solved)
}

func mustList(t *testing.T, repo *storage.MemoryRepository, userID string) []models.Progress {
	t.Helper()
	records, err := repo.ListProgress(context.Background(), userID, nil)
	require.NoError(t, err)
	return records
}

func TestReconcileUpstreamFailure(t *testing.T) {
	repo := storage.NewMemoryRepository()
	seed(t, repo)
	upstream := &models.UpstreamError{Op: "get solved", Err: errors.New("502")}
	svc := NewService(repo, &fakeJudge{fail: map[string]error{"tok": upstream}}, nil)

	_, err := svc.Reconcile(context.Background(), "u1", "alice", "tok")
	assert.ErrorIs(t, err, models.ErrUpstream)
	assert.Empty(t, mustList(t, repo, "u1"))

	_, err = svc.Reconcile(context.Background(), "u1", "alice", "")
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestSchedulerSaveAndSync(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	ids := seed(t, repo)
	judge := &fakeJudge{solved: map[string][]string{"tok": {"lru-cache"}}}
	tasks := &inlineSubmitter{}
	sched := NewScheduler(NewService(repo, judge, nil), repo, tasks, 0)

	_, err := sched.SyncUser(ctx, "u1")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = sched.SaveAccount(ctx, "u1", "alice", "")
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = sched.SaveAccount(ctx, "u1", " ", "tok")
	assert.ErrorIs(t, err, models.ErrValidation)

	acct, err := sched.SaveAccount(ctx, "u1", "alice", "tok")
	require.NoError(t, err)
	assert.Equal(t, "alice", acct.Handle)
	assert.False(t, acct.UpdatedAt.IsZero())

	errs := tasks.runAll(t)
	require.Len(t, errs, 1)
	require.NoError(t, errs[0])

	p := models.NewProgressIndex("u1", mustList(t, repo, "u1")).Resolve(ids["lru-cache"], nil)
	assert.True(t, p.Solved)

	n, err := sched.SyncUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSchedulerOnLogin(t *testing.T) {
	repo := storage.NewMemoryRepository()
	seed(t, repo)
	judge := &fakeJudge{}
	tasks := &inlineSubmitter{}
	sched := NewScheduler(NewService(repo, judge, nil), repo, tasks, 0)

	assert.False(t, sched.OnLogin(""))
	assert.True(t, sched.OnLogin("nobody"))

	errs := tasks.runAll(t)
	require.Len(t, errs, 1)
	assert.NoError(t, errs[0], "users without credentials are skipped")
	assert.Equal(t, 0, judge.calls)
}

func TestSyncAllIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemoryRepository()
	ids := seed(t, repo)
	judge := &fakeJudge{
		solved: map[string][]string{
			"tok-a": {"two-sum"},
			"tok-c": {"two-sum", "lru-cache"},
		},
		fail: map[string]error{
			"tok-b": &models.UpstreamError{Op: "get solved", Err: errors.New("timeout")},
		},
	}
	sched := NewScheduler(NewService(repo, judge, nil), repo, &inlineSubmitter{}, 2)

	for user, tok := range map[string]string{"a": "tok-a", "b": "tok-b", "c": "tok-c"} {
		require.NoError(t, repo.SaveJudgeAccount(ctx, models.JudgeAccount{UserID: user, Handle: user, SessionToken: tok}))
	}

	summary, err := sched.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, &SyncSummary{Users: 3, Failed: 1, Changed: 3}, summary)

	p := models.NewProgressIndex("c", mustList(t, repo, "c")).Resolve(ids["lru-cache"], nil)
	assert.True(t, p.Solved)
	assert.Empty(t, mustList(t, repo, "b"))
}

func TestPeriodicSync(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := storage.NewMemoryRepository()
	seed(t, repo)
	judge := &fakeJudge{solved: map[string][]string{"tok": {"two-sum"}}}
	require.NoError(t, repo.SaveJudgeAccount(ctx, models.JudgeAccount{UserID: "u1", Handle: "alice", SessionToken: "tok"}))

	sched := NewScheduler(NewService(repo, judge, nil), repo, &inlineSubmitter{}, 1)
	sched.Periodic(20*time.Millisecond, true).Start(ctx)

	assert.Eventually(t, func() bool {
		judge.mu.Lock()
		defer judge.mu.Unlock()
		return judge.calls >= 2
	}, 2*time.Second, 10*time.Millisecond)
}
