package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"proplens/internal/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	// Disable prepared statement caching to avoid "unnamed prepared statement does not exist" errors
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// SaveAnalysis inserts one audit-log row with its embedding vector.
func (r *PostgresRepository) SaveAnalysis(ctx context.Context, record *model.AnalysisRecord, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	query := `
		INSERT INTO analysis_logs (session_id, agent, address, question, analysis, summary, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		record.SessionID, record.Agent, record.Address, record.Question,
		record.Analysis, record.Summary, vec,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

// FindSimilar returns the closest past analyses by cosine distance.
func (r *PostgresRepository) FindSimilar(ctx context.Context, embedding []float32, limit int) ([]model.SimilarAnalysis, error) {
	vec := pgvector.NewVector(embedding)
	query := `
		SELECT
			id, session_id, agent, address, question, analysis, summary, created_at,
			1 - (embedding <=> $1) AS similarity
		FROM analysis_logs
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	var results []model.SimilarAnalysis
	if err := r.db.SelectContext(ctx, &results, query, vec, limit); err != nil {
		return nil, fmt.Errorf("failed to search analyses: %w", err)
	}
	return results, nil
}

// RecentAnalyses returns the latest audit-log rows, newest first.
func (r *PostgresRepository) RecentAnalyses(ctx context.Context, limit int) ([]model.AnalysisRecord, error) {
	query := `
		SELECT id, session_id, agent, address, question, analysis, summary, created_at
		FROM analysis_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	var records []model.AnalysisRecord
	if err := r.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch analyses: %w", err)
	}
	return records, nil
}
