package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/scrubware/pmscrub/internal/config"
	"github.com/scrubware/pmscrub/internal/logger"
	"go.uber.org/zap"
)

// Run is one recorded redaction session: which source and resource were
// fetched, how many records came back, and how many replacements of each
// category the filter made. Only counts are stored, never content.
type Run struct {
	ID        int64     `db:"id" json:"id"`
	Source    string    `db:"source" json:"source"`
	Resource  string    `db:"resource" json:"resource"`
	Records   int       `db:"records" json:"records"`
	Emails    int       `db:"emails" json:"emails"`
	Names     int       `db:"names" json:"names"`
	Phones    int       `db:"phones" json:"phones"`
	Companies int       `db:"companies" json:"companies"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Store persists redaction runs to PostgreSQL.
type Store struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// New creates an audit store and ensures the schema exists.
func New(cfg config.AuditConfig, log *logger.Logger) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	store := &Store{db: db, logger: log}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit store: %w", err)
	}

	log.Info("audit store initialized",
		zap.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)

	return store, nil
}

// initialize checks the connection and ensures the schema
func (s *Store) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS redaction_runs (
			id         BIGSERIAL PRIMARY KEY,
			source     TEXT NOT NULL,
			resource   TEXT NOT NULL,
			records    INTEGER NOT NULL DEFAULT 0,
			emails     INTEGER NOT NULL DEFAULT 0,
			names      INTEGER NOT NULL DEFAULT 0,
			phones     INTEGER NOT NULL DEFAULT 0,
			companies  INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	return nil
}

// SaveRun inserts a redaction run and fills in its id and timestamp.
func (s *Store) SaveRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO redaction_runs (source, resource, records, emails, names, phones, companies)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := s.db.QueryRowContext(ctx, query,
		run.Source,
		run.Resource,
		run.Records,
		run.Emails,
		run.Names,
		run.Phones,
		run.Companies,
	).Scan(&run.ID, &run.CreatedAt)

	if err != nil {
		s.logger.Error("failed to save redaction run",
			zap.Error(err),
			zap.String("source", run.Source),
			zap.String("resource", run.Resource))
		return fmt.Errorf("failed to save redaction run: %w", err)
	}

	s.logger.Debug("redaction run saved",
		zap.Int64("id", run.ID),
		zap.String("source", run.Source))

	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []Run
	query := `
		SELECT id, source, resource, records, emails, names, phones, companies, created_at
		FROM redaction_runs
		ORDER BY created_at DESC
		LIMIT $1`

	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to query redaction runs: %w", err)
	}

	return runs, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// maskDatabaseURL masks credentials in a database URL for logging.
func maskDatabaseURL(url string) string {
	if !strings.Contains(url, "@") {
		return url
	}
	parts := strings.Split(url, "@")
	userPart := parts[0]
	if idx := strings.LastIndex(userPart, ":"); idx > strings.Index(userPart, "//") {
		parts[0] = userPart[:idx] + ":***"
	}
	return strings.Join(parts, "@")
}
