package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go-verifier/pkg/models"

	_ "github.com/jackc/pgx/v4/stdlib" // registers the "pgx" driver
	"go.uber.org/zap"
)

// Open connects to Postgres, retrying the ping until it succeeds, attempts run
// out, or ctx ends.
func Open(ctx context.Context, dsn string, attempts int, delay time.Duration, logger *zap.Logger) (*sql.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	for i := 1; ; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			logger.Info("connected to database")
			return db, nil
		}
		if i >= attempts {
			break
		}

		logger.Warn("waiting for database", zap.Int("attempt", i), zap.Error(err))
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("wait for database: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	db.Close()
	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", attempts, err)
}

// ResultSink records verification runs in the verifications table.
type ResultSink struct {
	db *sql.DB
}

func NewResultSink(db *sql.DB) *ResultSink {
	return &ResultSink{db: db}
}

func (s *ResultSink) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS verifications (
			id              BIGSERIAL PRIMARY KEY,
			url             TEXT NOT NULL,
			expected        TEXT NOT NULL,
			selector        TEXT NOT NULL,
			match_count     INTEGER NOT NULL,
			visible         BOOLEAN NOT NULL,
			indicator_text  TEXT NOT NULL,
			passed          BOOLEAN NOT NULL,
			screenshot_path TEXT NOT NULL,
			status_code     INTEGER,
			duration_ms     BIGINT NOT NULL,
			started_at      TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create verifications table: %w", err)
	}
	return nil
}

func (s *ResultSink) Save(ctx context.Context, r *models.Result) error {
	var statusCode sql.NullInt64
	if r.Page != nil {
		statusCode = sql.NullInt64{Int64: int64(r.Page.StatusCode), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO verifications (url, expected, selector, match_count, visible, indicator_text,
			passed, screenshot_path, status_code, duration_ms, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		r.URL,
		r.Expected,
		r.Indicator.Selector,
		r.Indicator.Count,
		r.Indicator.Visible,
		r.Indicator.Text,
		r.Passed(),
		r.ScreenshotPath,
		statusCode,
		r.Duration.Milliseconds(),
		r.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert verification for %s: %w", r.URL, err)
	}
	return nil
}
