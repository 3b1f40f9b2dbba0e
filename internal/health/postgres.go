package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresChecker checks PostgreSQL connectivity on a dedicated small
// database/sql pool, independent of the application's pgx pool.
type PostgresChecker struct {
	db *sql.DB
}

// NewPostgresChecker opens a checker pool for dsn. The connection is not
// verified until the first check.
func NewPostgresChecker(dsn string) (*PostgresChecker, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresChecker{db: db}, nil
}

// HealthCheck verifies PostgreSQL connectivity
func (p *PostgresChecker) HealthCheck(ctx context.Context) error {
	var one int
	if err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("postgres unavailable: %w", err)
	}
	return nil
}

// Close closes the checker pool
func (p *PostgresChecker) Close() error {
	return p.db.Close()
}
