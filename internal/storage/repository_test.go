package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leetease/catalog-engine/internal/models"
)

// testRepository runs the behaviour every Repository implementation must share.
// Names are unique per run so the suite tolerates a non-empty database.
func testRepository(t *testing.T, repo Repository) {
	ctx := context.Background()
	run := uuid.NewString()[:8]
	link := func(slug string) string { return "https://leetcode.com/problems/" + slug + "-" + run + "/" }
	boolPtr := func(b bool) *bool { return &b }
	diffPtr := func(d models.Difficulty) *models.Difficulty { return &d }

	t.Run("UpsertQuestionCreateIfAbsent", func(t *testing.T) {
		id1, err := repo.UpsertQuestion(ctx, link("two-sum"), "T", models.DifficultyEasy)
		require.NoError(t, err)
		id2, err := repo.UpsertQuestion(ctx, link("two-sum"), "T2", models.DifficultyHard)
		require.NoError(t, err)
		assert.Equal(t, id1, id2)

		q, err := repo.GetQuestion(ctx, id1)
		require.NoError(t, err)
		assert.Equal(t, "T", q.Title)
		assert.Equal(t, models.DifficultyEasy, q.LeetDifficulty)
	})

	t.Run("UpsertQuestionEmptyLink", func(t *testing.T) {
		_, err := repo.UpsertQuestion(ctx, "", "T", models.DifficultyNone)
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("UpsertCompanyCreateIfAbsent", func(t *testing.T) {
		id1, err := repo.UpsertCompany(ctx, "Acme-"+run)
		require.NoError(t, err)
		id2, err := repo.UpsertCompany(ctx, "Acme-"+run)
		require.NoError(t, err)
		assert.Equal(t, id1, id2)

		_, err = repo.UpsertCompany(ctx, "")
		assert.ErrorIs(t, err, models.ErrValidation)

		_, err = repo.GetCompanyByName(ctx, "missing-"+run)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("SetTags", func(t *testing.T) {
		id, err := repo.UpsertQuestion(ctx, link("lru-cache"), "LRU Cache", models.DifficultyMedium)
		require.NoError(t, err)

		require.NoError(t, repo.SetTags(ctx, id, []string{"Design", "Hash Table"}))
		q, err := repo.GetQuestion(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []string{"Design", "Hash Table"}, q.Tags)

		err = repo.SetTags(ctx, models.NewQuestionID(), []string{"x"})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("PlacementsReplaceAndNaturalOrder", func(t *testing.T) {
		cid, err := repo.UpsertCompany(ctx, "Order-"+run)
		require.NoError(t, err)
		a, err := repo.UpsertQuestion(ctx, link("a"), "A", models.DifficultyNone)
		require.NoError(t, err)
		b, err := repo.UpsertQuestion(ctx, link("b"), "B", models.DifficultyNone)
		require.NoError(t, err)

		require.NoError(t, repo.UpsertPlacement(ctx, models.Placement{CompanyID: cid, QuestionID: b, Bucket: models.Bucket30Days, Frequency: 1}))
		require.NoError(t, repo.UpsertPlacement(ctx, models.Placement{CompanyID: cid, QuestionID: a, Bucket: models.Bucket30Days, Frequency: 2}))
		require.NoError(t, repo.UpsertPlacement(ctx, models.Placement{CompanyID: cid, QuestionID: b, Bucket: models.Bucket30Days, Frequency: 9, AcceptanceRate: 40}))
		require.NoError(t, repo.UpsertPlacement(ctx, models.Placement{CompanyID: cid, QuestionID: a, Bucket: models.BucketAll}))

		rows, err := repo.ListPlacementRows(ctx, cid, models.Bucket30Days)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, b, rows[0].QuestionID)
		assert.Equal(t, 9.0, rows[0].Frequency)
		assert.Equal(t, 40.0, rows[0].AcceptanceRate)
		assert.Equal(t, "B", rows[0].Question.Title)
		assert.Equal(t, a, rows[1].QuestionID)

		buckets, err := repo.ListBuckets(ctx, cid)
		require.NoError(t, err)
		assert.Equal(t, []string{models.Bucket30Days, models.BucketAll}, buckets)

		placements, err := repo.ListQuestionPlacements(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, []models.QuestionPlacement{
			{Company: "Order-" + run, Bucket: models.Bucket30Days},
			{Company: "Order-" + run, Bucket: models.BucketAll},
		}, placements)
	})

	t.Run("ListCompanyNamesPrefix", func(t *testing.T) {
		for _, name := range []string{"zeta-" + run, "Zebra-" + run, "alpha-" + run} {
			_, err := repo.UpsertCompany(ctx, name)
			require.NoError(t, err)
		}

		names, err := repo.ListCompanyNames(ctx, "ze")
		require.NoError(t, err)
		assert.Contains(t, names, "zeta-"+run)
		assert.Contains(t, names, "Zebra-"+run)
		assert.NotContains(t, names, "alpha-"+run)
	})

	t.Run("SearchQuestionsLiteral", func(t *testing.T) {
		_, err := repo.UpsertQuestion(ctx, link("pct"), "100% Sure_"+run, models.DifficultyNone)
		require.NoError(t, err)
		_, err = repo.UpsertQuestion(ctx, link("other"), "1000 Surely"+run, models.DifficultyNone)
		require.NoError(t, err)

		found, err := repo.SearchQuestions(ctx, "100% sure_"+run, 10)
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, "100% Sure_"+run, found[0].Title)
	})

	t.Run("ProgressScopedSeedAndResolve", func(t *testing.T) {
		user := "user-" + run
		cid, err := repo.UpsertCompany(ctx, "Scope-"+run)
		require.NoError(t, err)
		qid, err := repo.UpsertQuestion(ctx, link("scoped"), "Scoped", models.DifficultyNone)
		require.NoError(t, err)

		generic, err := repo.UpsertProgress(ctx, user, qid, models.ProgressUpdate{Solved: boolPtr(true)}, nil)
		require.NoError(t, err)
		assert.True(t, generic.Solved)
		assert.Nil(t, generic.Scope)
		require.NotNil(t, generic.UpdatedAt)

		scope := &models.Scope{CompanyID: cid, Bucket: models.Bucket30Days}
		scoped, err := repo.UpsertProgress(ctx, user, qid, models.ProgressUpdate{UserDifficulty: diffPtr(models.DifficultyHard)}, scope)
		require.NoError(t, err)
		assert.True(t, scoped.Solved, "new scoped record inherits the generic solved flag")
		assert.Equal(t, models.DifficultyHard, scoped.UserDifficulty)

		scoped, err = repo.UpsertProgress(ctx, user, qid, models.ProgressUpdate{Solved: boolPtr(false)}, scope)
		require.NoError(t, err)
		assert.False(t, scoped.Solved)
		assert.Equal(t, models.DifficultyHard, scoped.UserDifficulty, "unset fields are untouched")

		records, err := repo.ListProgress(ctx, user, []models.QuestionID{qid})
		require.NoError(t, err)
		require.Len(t, records, 2)

		idx := models.NewProgressIndex(user, records)
		assert.False(t, idx.Resolve(qid, scope).Solved)
		assert.True(t, idx.Resolve(qid, nil).Solved)
		assert.True(t, idx.Resolve(qid, &models.Scope{CompanyID: cid, Bucket: models.BucketAll}).Solved)
	})

	t.Run("ClearUserDifficulty", func(t *testing.T) {
		user := "clear-" + run
		qid, err := repo.UpsertQuestion(ctx, link("clear"), "Clear", models.DifficultyNone)
		require.NoError(t, err)

		_, err = repo.UpsertProgress(ctx, user, qid, models.ProgressUpdate{UserDifficulty: diffPtr(models.DifficultyEasy)}, nil)
		require.NoError(t, err)
		p, err := repo.UpsertProgress(ctx, user, qid, models.ProgressUpdate{UserDifficulty: diffPtr(models.DifficultyNone)}, nil)
		require.NoError(t, err)
		assert.Equal(t, models.DifficultyNone, p.UserDifficulty)
	})

	t.Run("BatchUpsertProgress", func(t *testing.T) {
		user := "batch-" + run
		var ids []models.QuestionID
		for _, slug := range []string{"b1", "b2", "b3"} {
			id, err := repo.UpsertQuestion(ctx, link(slug), slug, models.DifficultyNone)
			require.NoError(t, err)
			ids = append(ids, id)
		}

		n, err := repo.BatchUpsertProgress(ctx, user, ids, models.ProgressUpdate{Solved: boolPtr(true)}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		records, err := repo.ListProgress(ctx, user, nil)
		require.NoError(t, err)
		assert.Len(t, records, 3)
		for _, p := range records {
			assert.True(t, p.Solved)
		}
	})

	t.Run("MarkSolvedIdempotent", func(t *testing.T) {
		user := "mark-" + run
		q1, err := repo.UpsertQuestion(ctx, link("m1"), "M1", models.DifficultyNone)
		require.NoError(t, err)
		q2, err := repo.UpsertQuestion(ctx, link("m2"), "M2", models.DifficultyNone)
		require.NoError(t, err)

		_, err = repo.UpsertProgress(ctx, user, q1, models.ProgressUpdate{UserDifficulty: diffPtr(models.DifficultyMedium)}, nil)
		require.NoError(t, err)

		n, err := repo.MarkSolved(ctx, user, []models.QuestionID{q1, q2, q2})
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		n, err = repo.MarkSolved(ctx, user, []models.QuestionID{q1, q2})
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		records, err := repo.ListProgress(ctx, user, []models.QuestionID{q1})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.True(t, records[0].Solved)
		assert.Equal(t, models.DifficultyMedium, records[0].UserDifficulty)
	})

	t.Run("JudgeAccounts", func(t *testing.T) {
		user := "judge-" + run
		_, err := repo.GetJudgeAccount(ctx, user)
		assert.ErrorIs(t, err, models.ErrNotFound)

		require.NoError(t, repo.SaveJudgeAccount(ctx, models.JudgeAccount{UserID: user, Handle: "h", SessionToken: "s1"}))
		require.NoError(t, repo.SaveJudgeAccount(ctx, models.JudgeAccount{UserID: user, Handle: "h", SessionToken: "s2"}))

		acct, err := repo.GetJudgeAccount(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, "s2", acct.SessionToken)
		assert.False(t, acct.UpdatedAt.IsZero())

		all, err := repo.ListJudgeAccounts(ctx)
		require.NoError(t, err)
		var found bool
		for _, a := range all {
			found = found || a.UserID == user
		}
		assert.True(t, found)
	})
}

func TestMemoryRepository(t *testing.T) {
	testRepository(t, NewMemoryRepository())
}

func TestSortBuckets(t *testing.T) {
	buckets := []string{"Custom", models.BucketAll, "Another", models.Bucket30Days, models.Bucket6Months}
	SortBuckets(buckets)
	assert.Equal(t, []string{models.Bucket30Days, models.Bucket6Months, models.BucketAll, "Another", "Custom"}, buckets)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now \\ ok`, escapeLike(`50% off_now \ ok`))
}
