package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/closeguard/closeguard/internal/engine"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStore archives reports in PostgreSQL so they survive restarts.
type PostgresStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// PostgresConfig contains database configuration
type PostgresConfig struct {
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

const reportsSchema = `
	CREATE TABLE IF NOT EXISTS reports (
		id           TEXT PRIMARY KEY,
		status       TEXT NOT NULL,
		filename     TEXT NOT NULL,
		text_length  INTEGER NOT NULL,
		flags        JSONB NOT NULL,
		analytics    JSONB NOT NULL,
		user_context JSONB,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`

// NewPostgresStore connects to PostgreSQL and ensures the reports table
// exists.
func NewPostgresStore(config *PostgresConfig, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	store := &PostgresStore{db: db, logger: logger}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize report store: %w", err)
	}

	logger.Info("Report store initialized",
		zap.String("database_url", maskDatabaseURL(config.DatabaseURL)),
		zap.Int("max_open_conns", config.MaxOpenConns))

	return store, nil
}

// initialize checks the connection and creates the schema.
func (s *PostgresStore) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, reportsSchema); err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}

	return nil
}

// reportRow is the database shape of a report.
type reportRow struct {
	ID          string         `db:"id"`
	Status      string         `db:"status"`
	Filename    string         `db:"filename"`
	TextLength  int            `db:"text_length"`
	Flags       []byte         `db:"flags"`
	Analytics   []byte         `db:"analytics"`
	UserContext sql.NullString `db:"user_context"`
	CreatedAt   time.Time      `db:"created_at"`
}

// Save inserts or replaces a report.
func (s *PostgresStore) Save(ctx context.Context, report *Report) error {
	flags, err := json.Marshal(report.Flags)
	if err != nil {
		return fmt.Errorf("failed to marshal flags: %w", err)
	}
	analytics, err := json.Marshal(report.Analytics)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics: %w", err)
	}

	var userContext interface{}
	if report.Context != nil {
		data, err := json.Marshal(report.Context)
		if err != nil {
			return fmt.Errorf("failed to marshal user context: %w", err)
		}
		userContext = data
	}

	query := `
		INSERT INTO reports (id, status, filename, text_length, flags, analytics, user_context, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			flags = EXCLUDED.flags,
			analytics = EXCLUDED.analytics`

	_, err = s.db.ExecContext(ctx, query,
		report.ID,
		report.Status,
		report.Metadata.Filename,
		report.Metadata.TextLength,
		flags,
		analytics,
		userContext,
		report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	s.logger.Debug("Report saved", zap.String("report_id", report.ID))
	return nil
}

// Get returns the report with the given ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Report, error) {
	var row reportRow
	query := `SELECT id, status, filename, text_length, flags, analytics, user_context, created_at FROM reports WHERE id = $1`

	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	report := &Report{
		ID:     row.ID,
		Status: row.Status,
		Metadata: Metadata{
			Filename:   row.Filename,
			TextLength: row.TextLength,
			UploadedAt: row.CreatedAt,
		},
		CreatedAt: row.CreatedAt,
	}

	if err := json.Unmarshal(row.Flags, &report.Flags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flags: %w", err)
	}
	if err := json.Unmarshal(row.Analytics, &report.Analytics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analytics: %w", err)
	}
	if row.UserContext.Valid {
		report.Context = &engine.UserContext{}
		if err := json.Unmarshal([]byte(row.UserContext.String), report.Context); err != nil {
			return nil, fmt.Errorf("failed to unmarshal user context: %w", err)
		}
	}

	return report, nil
}

// List returns summaries of all stored reports, newest first.
func (s *PostgresStore) List(ctx context.Context) ([]Summary, error) {
	query := `SELECT id, status, filename, jsonb_array_length(flags) AS flags_count FROM reports ORDER BY created_at DESC`

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var summary Summary
		if err := rows.Scan(&summary.ID, &summary.Status, &summary.Filename, &summary.FlagCount); err != nil {
			return nil, fmt.Errorf("failed to scan report summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	return summaries, rows.Err()
}

// Delete removes the report with the given ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// maskDatabaseURL masks credentials in a database URL for logging.
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if idx := strings.LastIndex(userPart, ":"); idx > strings.Index(userPart, "//") {
				parts[0] = userPart[:idx] + ":***"
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
