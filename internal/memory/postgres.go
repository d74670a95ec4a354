package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStore implements Store using PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStore opens a connection and verifies it with a ping.
func NewPostgresStore(cfg *PostgresConfig) (*PostgresStore, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("memory-store-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStore{db: db, logger: cfg.Logger}, nil
}

// Add appends an entry. A missing ID or timestamp is filled in.
func (p *PostgresStore) Add(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO memory_entries (id, category, content, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := p.db.ExecContext(ctx, query,
		entry.ID, entry.Category, entry.Content, entry.CreatedAt)
	if err != nil {
		EntriesErrorsTotal.Inc()
		return fmt.Errorf("insert memory entry: %w", err)
	}

	EntriesAddedTotal.WithLabelValues(entry.Category).Inc()
	p.logger.Debug("memory-entry-added",
		zap.String("entry-id", entry.ID),
		zap.String("category", entry.Category))

	return nil
}

// Search returns entries matching the query, newest first.
func (p *PostgresStore) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	stmt := `
		SELECT id, category, content, created_at
		FROM memory_entries
		WHERE content ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := p.db.QueryContext(ctx, stmt, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search memory entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Category, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan memory entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memory entries: %w", err)
	}

	SearchesTotal.Inc()

	return entries, nil
}

// SetContext upserts a context value.
func (p *PostgresStore) SetContext(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO agent_context (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3
	`

	_, err := p.db.ExecContext(ctx, query, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("set context %q: %w", key, err)
	}

	p.logger.Debug("context-updated", zap.String("key", key))

	return nil
}

// GetContext retrieves a context value. Missing keys are not an error.
func (p *PostgresStore) GetContext(ctx context.Context, key string) (string, error) {
	var value string
	err := p.db.QueryRowContext(ctx,
		`SELECT value FROM agent_context WHERE key = $1`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get context %q: %w", key, err)
	}

	return value, nil
}

// Ping reports database reachability for readiness probes.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	p.logger.Info("closing-memory-store")
	return p.db.Close()
}
