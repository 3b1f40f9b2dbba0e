package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/leetease/catalog-engine/internal/catalog"
	"github.com/leetease/catalog-engine/internal/models"
	"github.com/leetease/catalog-engine/internal/storage"
)

func newImporter(t *testing.T) (*Importer, *storage.MemoryRepository) {
	t.Helper()
	repo := storage.NewMemoryRepository()
	svc := catalog.NewService(repo, repo, nil, catalog.Options{})
	return New(svc), repo
}

func companyRows(t *testing.T, repo *storage.MemoryRepository, company, bucket string) []models.PlacementRow {
	t.Helper()
	ctx := context.Background()
	c, err := repo.GetCompanyByName(ctx, company)
	require.NoError(t, err)
	rows, err := repo.ListPlacementRows(ctx, c.ID, bucket)
	require.NoError(t, err)
	return rows
}

func TestImportCSV(t *testing.T) {
	im, repo := newImporter(t)
	csv := strings.Join([]string{
		"Title, URL ,Company,Bucket,Difficulty,Frequency,Acceptance_Rate",
		"Two Sum,https://leetcode.com/problems/two-sum/,Acme,30Days,EASY,87.5,52.1%",
		"Two Sum,https://leetcode.com/problems/two-sum/,Acme,All,easy,40,52.1",
		",https://leetcode.com/problems/missing-title/,Acme,All,Easy,1,1",
		"LRU Cache,https://leetcode.com/problems/lru-cache/,Acme,All,medium,not-a-number,",
		"Bad Rate,https://leetcode.com/problems/bad-rate/,Acme,All,Hard,1,250",
		",,,,,,",
	}, "\n")

	res, err := im.ImportFile(context.Background(), "upload.CSV", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, &Result{Imported: 3, Skipped: 2}, res)

	rows := companyRows(t, repo, "Acme", models.Bucket30Days)
	require.Len(t, rows, 1)
	assert.Equal(t, "Two Sum", rows[0].Question.Title)
	assert.Equal(t, models.DifficultyEasy, rows[0].Question.LeetDifficulty)
	assert.Equal(t, 87.5, rows[0].Frequency)
	assert.Equal(t, 52.1, rows[0].AcceptanceRate)

	rows = companyRows(t, repo, "Acme", models.BucketAll)
	require.Len(t, rows, 2)
	assert.Equal(t, rows[0].QuestionID, companyRows(t, repo, "Acme", models.Bucket30Days)[0].QuestionID, "one canonical question per link")
	assert.Equal(t, "LRU Cache", rows[1].Question.Title)
	assert.Zero(t, rows[1].Frequency)

	questions, err := repo.ListQuestions(context.Background())
	require.NoError(t, err)
	assert.Len(t, questions, 3, "the question of a rejected placement is still created")
}

func TestImportIsIdempotent(t *testing.T) {
	im, repo := newImporter(t)
	csv := "title,link,company,bucket,frequency\nTwo Sum,https://leetcode.com/problems/two-sum/,Acme,All,10\n"

	for i := 0; i < 2; i++ {
		res, err := im.ImportFile(context.Background(), "a.csv", strings.NewReader(csv))
		require.NoError(t, err)
		assert.Equal(t, 1, res.Imported)
	}

	csv = strings.Replace(csv, ",10", ",20", 1)
	_, err := im.ImportFile(context.Background(), "a.csv", strings.NewReader(csv))
	require.NoError(t, err)

	rows := companyRows(t, repo, "Acme", models.BucketAll)
	require.Len(t, rows, 1)
	assert.Equal(t, 20.0, rows[0].Frequency, "placement values are replaced")
}

func TestImportNonFiniteNumbers(t *testing.T) {
	im, repo := newImporter(t)
	csv := strings.Join([]string{
		"title,link,company,bucket,frequency,acceptanceRate",
		"Two Sum,https://leetcode.com/problems/two-sum/,Acme,All,NaN,NaN",
		"LRU Cache,https://leetcode.com/problems/lru-cache/,Acme,All,+Inf,-Inf%",
	}, "\n")

	res, err := im.ImportFile(context.Background(), "a.csv", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, &Result{Imported: 2}, res)

	rows := companyRows(t, repo, "Acme", models.BucketAll)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Zero(t, row.Frequency)
		assert.Zero(t, row.AcceptanceRate)
	}

	_, err = json.Marshal(rows)
	assert.NoError(t, err)
}

func TestImportFileValidation(t *testing.T) {
	im, _ := newImporter(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"missing columns", "a.csv", "title,link\nTwo Sum,https://leetcode.com/problems/two-sum/\n"},
		{"header only", "a.csv", "title,link,company,bucket\n"},
		{"empty", "a.csv", ""},
		{"unsupported type", "a.txt", "title,link,company,bucket\n"},
		{"broken workbook", "a.xlsx", "not a zip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := im.ImportFile(ctx, tt.file, strings.NewReader(tt.content))
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}

	_, err := im.ImportFile(ctx, "a.csv", strings.NewReader("title,url\nx,y\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "company")
	assert.Contains(t, err.Error(), "bucket")
	assert.NotContains(t, err.Error(), "link|url")
}

func TestImportXLSX(t *testing.T) {
	im, repo := newImporter(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Title", "Link", "Company", "Bucket", "Difficulty", "Frequency", "Acceptance Rate"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"3Sum", "https://leetcode.com/problems/3sum/", "Initech", "6Months", "Medium", 12.5, 33}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"No Link", "", "Initech", "6Months"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	res, err := im.ImportFile(context.Background(), "catalog.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, &Result{Imported: 1, Skipped: 1}, res)

	rows := companyRows(t, repo, "Initech", models.Bucket6Months)
	require.Len(t, rows, 1)
	assert.Equal(t, "3sum", rows[0].Question.Slug())
	assert.Equal(t, models.DifficultyMedium, rows[0].Question.LeetDifficulty)
	assert.Equal(t, 12.5, rows[0].Frequency)
	assert.Equal(t, 33.0, rows[0].AcceptanceRate)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDir(t *testing.T) {
	root := t.TempDir()
	header := "Difficulty,Title,Frequency,Acceptance Rate,Link,Topics\n"
	writeFile(t, filepath.Join(root, "Acme", "1. Thirty Days.csv"),
		header+"EASY,Two Sum,100.0,0.55,https://leetcode.com/problems/two-sum,\"Array, Hash Table\"\n")
	writeFile(t, filepath.Join(root, "Acme", "5. All.csv"),
		header+"EASY,Two Sum,80.0,0.55,https://leetcode.com/problems/two-sum\nMEDIUM,LRU Cache,50,0.4,https://leetcode.com/problems/lru-cache\n")
	writeFile(t, filepath.Join(root, "Acme", "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, "Globex", "5. All.csv"), header+"HARD,Median,10,0.3,\n")
	writeFile(t, filepath.Join(root, "README.md"), "not a company")

	im, repo := newImporter(t)
	res, err := im.LoadDir(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, &Result{Imported: 3, Skipped: 1}, res)

	assert.Len(t, companyRows(t, repo, "Acme", models.Bucket30Days), 1)
	assert.Len(t, companyRows(t, repo, "Acme", models.BucketAll), 2)
	assert.Empty(t, companyRows(t, repo, "Globex", models.BucketAll))

	names, err := repo.ListCompanyNames(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Globex"}, names)
}

func TestLoadDirManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestFile), "buckets:\n  recent.csv: 30Days\n")
	writeFile(t, filepath.Join(root, "Acme", "recent.csv"), "title,link\nTwo Sum,https://leetcode.com/problems/two-sum\n")
	writeFile(t, filepath.Join(root, "Acme", "5. All.csv"), "title,link\nLRU Cache,https://leetcode.com/problems/lru-cache\n")

	files, err := LoadBucketFiles(root)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"recent.csv": models.Bucket30Days}, files)

	im, repo := newImporter(t)
	res, err := im.LoadDir(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	buckets, err := catalog.NewService(repo, repo, nil, catalog.Options{}).ListBuckets(context.Background(), "Acme")
	require.NoError(t, err)
	assert.Equal(t, []string{models.Bucket30Days}, buckets)
}

func TestLoadBucketFilesDefaults(t *testing.T) {
	files, err := LoadBucketFiles(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, models.BucketMoreThan6Months, files["4. More Than Six Months.csv"])

	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestFile), "buckets: {}\n")
	_, err = LoadBucketFiles(root)
	assert.ErrorIs(t, err, models.ErrValidation)
}
