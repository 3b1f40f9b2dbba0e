package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leetease/catalog-engine/internal/models"
)

// PostgreSQL error codes handled explicitly
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool, now: time.Now}, nil
}

// Pool exposes the underlying pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Catalog ---

// UpsertQuestion inserts a question unless its link already exists
func (r *PostgresRepository) UpsertQuestion(ctx context.Context, link, title string, hint models.Difficulty) (models.QuestionID, error) {
	if link == "" {
		return models.QuestionID{}, models.NewValidationError("link", "link is required")
	}

	query := `
		INSERT INTO questions (link, title, leet_difficulty)
		VALUES ($1, $2, $3)
		ON CONFLICT (link) DO NOTHING
		RETURNING id
	`

	var id uuid.UUID
	err := retryOnConflict(func() error {
		err := r.pool.QueryRow(ctx, query, link, title, hint.Ptr()).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race or already present; the row is committed by now.
			return r.pool.QueryRow(ctx, `SELECT id FROM questions WHERE link = $1`, link).Scan(&id)
		}
		return err
	})
	if err != nil {
		return models.QuestionID{}, fmt.Errorf("failed to upsert question: %w", err)
	}

	return models.QuestionID(id), nil
}

// SetTags overwrites the tags of a question
func (r *PostgresRepository) SetTags(ctx context.Context, id models.QuestionID, tags []string) error {
	if tags == nil {
		tags = []string{}
	}

	result, err := r.pool.Exec(ctx, `UPDATE questions SET tags = $2 WHERE id = $1`, uuid.UUID(id), tags)
	if err != nil {
		return fmt.Errorf("failed to set tags: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.NotFound("question", id.String())
	}

	return nil
}

// UpsertCompany inserts a company unless its name already exists
func (r *PostgresRepository) UpsertCompany(ctx context.Context, name string) (models.CompanyID, error) {
	if name == "" {
		return models.CompanyID{}, models.NewValidationError("name", "company name is required")
	}

	query := `
		INSERT INTO companies (name)
		VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id
	`

	var id uuid.UUID
	err := retryOnConflict(func() error {
		err := r.pool.QueryRow(ctx, query, name).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return r.pool.QueryRow(ctx, `SELECT id FROM companies WHERE name = $1`, name).Scan(&id)
		}
		return err
	})
	if err != nil {
		return models.CompanyID{}, fmt.Errorf("failed to upsert company: %w", err)
	}

	return models.CompanyID(id), nil
}

// UpsertPlacement creates or fully replaces a placement
func (r *PostgresRepository) UpsertPlacement(ctx context.Context, p models.Placement) error {
	query := `
		INSERT INTO company_questions (company_id, question_id, bucket, frequency, acceptance_rate)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (company_id, bucket, question_id) DO UPDATE
		SET frequency = EXCLUDED.frequency, acceptance_rate = EXCLUDED.acceptance_rate
	`

	err := retryOnConflict(func() error {
		_, err := r.pool.Exec(ctx, query,
			uuid.UUID(p.CompanyID),
			uuid.UUID(p.QuestionID),
			p.Bucket,
			p.Frequency,
			p.AcceptanceRate,
		)
		return err
	})
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return models.NotFound("placement target", p.CompanyID.String()+"/"+p.QuestionID.String())
		}
		return fmt.Errorf("failed to upsert placement: %w", err)
	}

	return nil
}

const questionColumns = `q.id, q.link, q.title, q.leet_difficulty, q.tags`

// GetQuestion retrieves a question by ID
func (r *PostgresRepository) GetQuestion(ctx context.Context, id models.QuestionID) (*models.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions q WHERE q.id = $1`

	q, err := scanQuestion(r.pool.QueryRow(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NotFound("question", id.String())
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}

	return &q, nil
}

// GetQuestions retrieves the known questions among ids
func (r *PostgresRepository) GetQuestions(ctx context.Context, ids []models.QuestionID) (map[models.QuestionID]models.Question, error) {
	result := make(map[models.QuestionID]models.Question, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	raw := make([]uuid.UUID, len(ids))
	for i, id := range ids {
		raw[i] = uuid.UUID(id)
	}

	query := `SELECT ` + questionColumns + ` FROM questions q WHERE q.id = ANY($1)`
	questions, err := r.queryQuestions(ctx, query, raw)
	if err != nil {
		return nil, err
	}

	for _, q := range questions {
		result[q.ID] = q
	}
	return result, nil
}

// ListQuestions returns the whole catalog
func (r *PostgresRepository) ListQuestions(ctx context.Context) ([]models.Question, error) {
	return r.queryQuestions(ctx, `SELECT `+questionColumns+` FROM questions q ORDER BY q.link`)
}

// SearchQuestions matches text literally and case-insensitively against titles
func (r *PostgresRepository) SearchQuestions(ctx context.Context, text string, limit int) ([]models.Question, error) {
	query := `
		SELECT ` + questionColumns + `
		FROM questions q
		WHERE q.title ILIKE '%' || $1 || '%' ESCAPE '\'
		ORDER BY q.title, q.link
	`
	args := []interface{}{escapeLike(text)}

	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	return r.queryQuestions(ctx, query, args...)
}

func (r *PostgresRepository) queryQuestions(ctx context.Context, query string, args ...interface{}) ([]models.Question, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	return questions, nil
}

// ListQuestionPlacements lists the company buckets a question appears in
func (r *PostgresRepository) ListQuestionPlacements(ctx context.Context, id models.QuestionID) ([]models.QuestionPlacement, error) {
	if _, err := r.GetQuestion(ctx, id); err != nil {
		return nil, err
	}

	query := `
		SELECT c.name, cq.bucket
		FROM company_questions cq
		JOIN companies c ON c.id = cq.company_id
		WHERE cq.question_id = $1
	`

	rows, err := r.pool.Query(ctx, query, uuid.UUID(id))
	if err != nil {
		return nil, fmt.Errorf("failed to list question placements: %w", err)
	}
	defer rows.Close()

	var result []models.QuestionPlacement
	for rows.Next() {
		var qp models.QuestionPlacement
		if err := rows.Scan(&qp.Company, &qp.Bucket); err != nil {
			return nil, fmt.Errorf("failed to scan question placement: %w", err)
		}
		result = append(result, qp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating question placements: %w", err)
	}

	sortQuestionPlacements(result)
	return result, nil
}

// GetCompanyByName retrieves a company by its unique name
func (r *PostgresRepository) GetCompanyByName(ctx context.Context, name string) (*models.Company, error) {
	var id uuid.UUID
	var c models.Company

	err := r.pool.QueryRow(ctx, `SELECT id, name FROM companies WHERE name = $1`, name).Scan(&id, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NotFound("company", name)
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}

	c.ID = models.CompanyID(id)
	return &c, nil
}

// ListCompanies returns every company ordered by name
func (r *PostgresRepository) ListCompanies(ctx context.Context) ([]models.Company, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM companies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []models.Company
	for rows.Next() {
		var id uuid.UUID
		var c models.Company
		if err := rows.Scan(&id, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		c.ID = models.CompanyID(id)
		companies = append(companies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating companies: %w", err)
	}

	return companies, nil
}

// ListCompanyNames returns company names with a case-insensitive prefix
func (r *PostgresRepository) ListCompanyNames(ctx context.Context, prefix string) ([]string, error) {
	query := `
		SELECT name FROM companies
		WHERE name ILIKE $1 || '%' ESCAPE '\'
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query, escapeLike(prefix))
	if err != nil {
		return nil, fmt.Errorf("failed to list company names: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan company name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// ListBuckets returns the buckets a company has placements in
func (r *PostgresRepository) ListBuckets(ctx context.Context, companyID models.CompanyID) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT bucket FROM company_questions WHERE company_id = $1`,
		uuid.UUID(companyID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer rows.Close()

	buckets := make([]string, 0, len(models.Buckets))
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating buckets: %w", err)
	}

	SortBuckets(buckets)
	return buckets, nil
}

const placementRowQuery = `
	SELECT cq.seq, cq.company_id, cq.bucket, cq.frequency, cq.acceptance_rate, ` + questionColumns + `
	FROM company_questions cq
	JOIN questions q ON q.id = cq.question_id
`

// ListPlacementRows returns one company bucket joined with questions in natural order
func (r *PostgresRepository) ListPlacementRows(ctx context.Context, companyID models.CompanyID, bucket string) ([]models.PlacementRow, error) {
	query := placementRowQuery + ` WHERE cq.company_id = $1 AND cq.bucket = $2 ORDER BY cq.seq`
	return r.queryPlacementRows(ctx, query, uuid.UUID(companyID), bucket)
}

// ListBucketRows returns one bucket across all companies in natural order
func (r *PostgresRepository) ListBucketRows(ctx context.Context, bucket string) ([]models.PlacementRow, error) {
	query := placementRowQuery + ` WHERE cq.bucket = $1 ORDER BY cq.seq`
	return r.queryPlacementRows(ctx, query, bucket)
}

func (r *PostgresRepository) queryPlacementRows(ctx context.Context, query string, args ...interface{}) ([]models.PlacementRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query placements: %w", err)
	}
	defer rows.Close()

	var result []models.PlacementRow
	for rows.Next() {
		var row models.PlacementRow
		var companyID, questionID uuid.UUID
		var difficulty *string

		err := rows.Scan(
			&row.Seq,
			&companyID,
			&row.Bucket,
			&row.Frequency,
			&row.AcceptanceRate,
			&questionID,
			&row.Question.Link,
			&row.Question.Title,
			&difficulty,
			&row.Question.Tags,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan placement: %w", err)
		}

		row.CompanyID = models.CompanyID(companyID)
		row.QuestionID = models.QuestionID(questionID)
		row.Question.ID = row.QuestionID
		row.Question.LeetDifficulty = difficultyFromColumn(difficulty)
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating placements: %w", err)
	}

	return result, nil
}

// --- Progress ---

// New scoped rows are seeded from the user's generic row; on conflict only the
// provided fields change.
const upsertProgressQuery = `
	INSERT INTO progress (user_id, question_id, company_id, bucket, solved, user_difficulty, updated_at)
	SELECT $1::text, $2::text, $3::text, $4::text,
	       COALESCE($5::boolean, g.solved, FALSE),
	       CASE WHEN $7::boolean THEN $6::text ELSE g.user_difficulty END,
	       $8::timestamptz
	FROM (SELECT 1) AS one
	LEFT JOIN progress g
	       ON g.user_id = $1 AND g.question_id = $2 AND g.company_id = '' AND g.bucket = ''
	ON CONFLICT (user_id, question_id, company_id, bucket) DO UPDATE
	SET solved = COALESCE($5::boolean, progress.solved),
	    user_difficulty = CASE WHEN $7::boolean THEN $6::text ELSE progress.user_difficulty END,
	    updated_at = $8
	RETURNING solved, user_difficulty, updated_at
`

func progressArgs(userID string, id models.QuestionID, upd models.ProgressUpdate, scope *models.Scope, now time.Time) []interface{} {
	companyKey, bucketKey := scope.Key()

	var difficulty *string
	setDifficulty := upd.UserDifficulty != nil
	if setDifficulty {
		difficulty = upd.UserDifficulty.Ptr()
	}

	return []interface{}{userID, id.String(), companyKey, bucketKey, upd.Solved, difficulty, setDifficulty, now}
}

// UpsertProgress applies a partial update to one progress record
func (r *PostgresRepository) UpsertProgress(ctx context.Context, userID string, id models.QuestionID, upd models.ProgressUpdate, scope *models.Scope) (models.Progress, error) {
	p := models.Progress{UserID: userID, QuestionID: id}
	if scope != nil {
		s := *scope
		p.Scope = &s
	}

	var difficulty *string
	var updatedAt time.Time

	err := r.pool.QueryRow(ctx, upsertProgressQuery, progressArgs(userID, id, upd, scope, r.now())...).
		Scan(&p.Solved, &difficulty, &updatedAt)
	if err != nil {
		return models.Progress{}, fmt.Errorf("failed to upsert progress: %w", err)
	}

	p.UserDifficulty = difficultyFromColumn(difficulty)
	p.UpdatedAt = &updatedAt
	return p, nil
}

// BatchUpsertProgress applies the same update to many records in one round trip
func (r *PostgresRepository) BatchUpsertProgress(ctx context.Context, userID string, ids []models.QuestionID, upd models.ProgressUpdate, scope *models.Scope) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	now := r.now()
	batch := &pgx.Batch{}
	for _, id := range ids {
		batch.Queue(upsertProgressQuery, progressArgs(userID, id, upd, scope, now)...)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	count := 0
	for range ids {
		if _, err := results.Exec(); err != nil {
			return count, fmt.Errorf("failed to batch upsert progress: %w", err)
		}
		count++
	}

	return count, nil
}

// ListProgress returns the user's records for ids, or all of them when ids is nil
func (r *PostgresRepository) ListProgress(ctx context.Context, userID string, ids []models.QuestionID) ([]models.Progress, error) {
	query := `
		SELECT question_id, company_id, bucket, solved, user_difficulty, updated_at
		FROM progress
		WHERE user_id = $1
	`
	args := []interface{}{userID}

	if ids != nil {
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = id.String()
		}
		query += " AND question_id = ANY($2)"
		args = append(args, keys)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var result []models.Progress
	for rows.Next() {
		var questionKey, companyKey, bucket string
		var difficulty *string
		var updatedAt time.Time
		p := models.Progress{UserID: userID}

		if err := rows.Scan(&questionKey, &companyKey, &bucket, &p.Solved, &difficulty, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}

		qid, err := models.ParseQuestionID(questionKey)
		if err != nil {
			// Stale rows with foreign identifiers are not ours to interpret.
			continue
		}
		p.QuestionID = qid

		if companyKey != "" || bucket != "" {
			cid, err := models.ParseCompanyID(companyKey)
			if err != nil {
				continue
			}
			p.Scope = &models.Scope{CompanyID: cid, Bucket: bucket}
		}

		p.UserDifficulty = difficultyFromColumn(difficulty)
		p.UpdatedAt = &updatedAt
		result = append(result, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating progress: %w", err)
	}

	return result, nil
}

// MarkSolved sets solved on the generic records of ids in one statement.
// Records that are already solved are left alone.
func (r *PostgresRepository) MarkSolved(ctx context.Context, userID string, ids []models.QuestionID) (int, error) {
	keys := uniqueKeys(ids)
	if len(keys) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO progress (user_id, question_id, company_id, bucket, solved, updated_at)
		SELECT $1::text, qid, '', '', TRUE, $3::timestamptz
		FROM unnest($2::text[]) AS qid
		ON CONFLICT (user_id, question_id, company_id, bucket) DO UPDATE
		SET solved = TRUE, updated_at = EXCLUDED.updated_at
		WHERE progress.solved = FALSE
	`

	var changed int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, query, userID, keys, r.now())
		if err != nil {
			return err
		}
		changed = result.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to mark solved: %w", err)
	}

	return int(changed), nil
}

// --- Judge accounts ---

// SaveJudgeAccount stores or replaces a user's judge credentials
func (r *PostgresRepository) SaveJudgeAccount(ctx context.Context, acct models.JudgeAccount) error {
	query := `
		INSERT INTO judge_accounts (user_id, handle, session_token, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET handle = EXCLUDED.handle, session_token = EXCLUDED.session_token, updated_at = EXCLUDED.updated_at
	`

	if _, err := r.pool.Exec(ctx, query, acct.UserID, acct.Handle, acct.SessionToken, r.now()); err != nil {
		return fmt.Errorf("failed to save judge account: %w", err)
	}

	return nil
}

// GetJudgeAccount retrieves a user's judge credentials
func (r *PostgresRepository) GetJudgeAccount(ctx context.Context, userID string) (*models.JudgeAccount, error) {
	var acct models.JudgeAccount

	err := r.pool.QueryRow(ctx,
		`SELECT user_id, handle, session_token, updated_at FROM judge_accounts WHERE user_id = $1`,
		userID,
	).Scan(&acct.UserID, &acct.Handle, &acct.SessionToken, &acct.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.NotFound("judge account", userID)
		}
		return nil, fmt.Errorf("failed to get judge account: %w", err)
	}

	return &acct, nil
}

// ListJudgeAccounts returns every stored judge account
func (r *PostgresRepository) ListJudgeAccounts(ctx context.Context) ([]models.JudgeAccount, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, handle, session_token, updated_at FROM judge_accounts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list judge accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.JudgeAccount
	for rows.Next() {
		var acct models.JudgeAccount
		if err := rows.Scan(&acct.UserID, &acct.Handle, &acct.SessionToken, &acct.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan judge account: %w", err)
		}
		accounts = append(accounts, acct)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating judge accounts: %w", err)
	}

	return accounts, nil
}

// Helper functions

func scanQuestion(row pgx.Row) (models.Question, error) {
	var q models.Question
	var id uuid.UUID
	var difficulty *string

	if err := row.Scan(&id, &q.Link, &q.Title, &difficulty, &q.Tags); err != nil {
		return models.Question{}, err
	}

	q.ID = models.QuestionID(id)
	q.LeetDifficulty = difficultyFromColumn(difficulty)
	return q, nil
}

func difficultyFromColumn(s *string) models.Difficulty {
	if s == nil {
		return models.DifficultyNone
	}
	return models.NormalizeDifficulty(*s)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// retryOnConflict runs op again once if it hit a unique violation. Concurrent
// first inserts of the same key resolve on the second attempt.
func retryOnConflict(op func() error) error {
	err := op()
	if pgCode(err) == pgUniqueViolation {
		err = op()
		if pgCode(err) == pgUniqueViolation {
			return fmt.Errorf("%w: %v", models.ErrConflict, err)
		}
	}
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes text match literally inside a LIKE pattern
func escapeLike(text string) string {
	return likeEscaper.Replace(text)
}

func uniqueKeys(ids []models.QuestionID) []string {
	seen := make(map[models.QuestionID]bool, len(ids))
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		keys = append(keys, id.String())
	}
	return keys
}
