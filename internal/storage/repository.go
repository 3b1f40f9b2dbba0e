package storage

import (
	"context"

	"github.com/leetease/catalog-engine/internal/models"
)

// CatalogStore persists questions, companies and their placements
type CatalogStore interface {
	// Create-if-absent by link; never overwrites an existing question
	UpsertQuestion(ctx context.Context, link, title string, hint models.Difficulty) (models.QuestionID, error)
	SetTags(ctx context.Context, id models.QuestionID, tags []string) error
	// Create-if-absent by name
	UpsertCompany(ctx context.Context, name string) (models.CompanyID, error)
	// Full replace on (company, bucket, question)
	UpsertPlacement(ctx context.Context, p models.Placement) error

	GetQuestion(ctx context.Context, id models.QuestionID) (*models.Question, error)
	GetQuestions(ctx context.Context, ids []models.QuestionID) (map[models.QuestionID]models.Question, error)
	ListQuestions(ctx context.Context) ([]models.Question, error)
	SearchQuestions(ctx context.Context, text string, limit int) ([]models.Question, error)
	ListQuestionPlacements(ctx context.Context, id models.QuestionID) ([]models.QuestionPlacement, error)

	GetCompanyByName(ctx context.Context, name string) (*models.Company, error)
	ListCompanies(ctx context.Context) ([]models.Company, error)
	ListCompanyNames(ctx context.Context, prefix string) ([]string, error)
	ListBuckets(ctx context.Context, companyID models.CompanyID) ([]string, error)

	// Placement rows joined with questions, in natural (insertion) order
	ListPlacementRows(ctx context.Context, companyID models.CompanyID, bucket string) ([]models.PlacementRow, error)
	// Placement rows of one bucket across all companies, in natural order
	ListBucketRows(ctx context.Context, bucket string) ([]models.PlacementRow, error)
}

// ProgressStore persists per-user progress overlays
type ProgressStore interface {
	UpsertProgress(ctx context.Context, userID string, id models.QuestionID, upd models.ProgressUpdate, scope *models.Scope) (models.Progress, error)
	// Per-record atomic, not cross-record transactional
	BatchUpsertProgress(ctx context.Context, userID string, ids []models.QuestionID, upd models.ProgressUpdate, scope *models.Scope) (int, error)
	// ListProgress returns every record (scoped and generic) of the user for the
	// given questions, or for all questions when ids is nil.
	ListProgress(ctx context.Context, userID string, ids []models.QuestionID) ([]models.Progress, error)
	// MarkSolved sets solved=true on the generic records of ids in a single
	// write and returns how many records changed.
	MarkSolved(ctx context.Context, userID string, ids []models.QuestionID) (int, error)
}

// AccountStore persists external judge credentials
type AccountStore interface {
	SaveJudgeAccount(ctx context.Context, acct models.JudgeAccount) error
	GetJudgeAccount(ctx context.Context, userID string) (*models.JudgeAccount, error)
	ListJudgeAccounts(ctx context.Context) ([]models.JudgeAccount, error)
}

// Repository is the full persistence surface
type Repository interface {
	CatalogStore
	ProgressStore
	AccountStore

	// Health
	Ping(ctx context.Context) error
	Close() error
}
