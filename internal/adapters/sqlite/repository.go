package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stockCalculator/internal/adapters/jsoncodec"
	"stockCalculator/internal/domain"
	"stockCalculator/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DefaultKey is the storage key used when none is configured.
const DefaultKey = "stockCalculator"

// Repository implements the ports.StateRepository interface on top of a
// SQLite key-value table. The whole portfolio is one JSON document stored
// under a single key.
type Repository struct {
	db     *sql.DB
	key    string
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Key    string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/portfolio.db"
	}
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("%w: failed to open database at '%s': %w", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("%w: failed to ping database at '%s': %w", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// Single writer; SQLite serializes anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Debug(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath, "key": key})

	repo := &Repository{db: db, key: key, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS kv_store (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Debug(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// Load returns the stored state, or nil, nil if the key has never been written.
func (r *Repository) Load(ctx context.Context) (*domain.State, error) {
	const query = `SELECT value FROM kv_store WHERE key = ?`

	var value string
	err := r.db.QueryRowContext(ctx, query, r.key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.logger.Debug(ctx, "No stored portfolio state", map[string]interface{}{"key": r.key})
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to read key %s: %w", ports.ErrQueryFailed, r.key, err)
	}

	state, err := jsoncodec.DecodeState([]byte(value))
	if err != nil {
		return nil, fmt.Errorf("stored value under key %s: %w", r.key, err)
	}
	r.logger.Debug(ctx, "Portfolio state loaded", map[string]interface{}{"key": r.key, "transactions": len(state.Transactions)})
	return state, nil
}

// Save replaces the stored state.
func (r *Repository) Save(ctx context.Context, state *domain.State) error {
	const query = `
	INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	data, err := jsoncodec.EncodeState(state)
	if err != nil {
		return fmt.Errorf("failed to encode portfolio state: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, r.key, string(data), time.Now().UTC()); err != nil {
		return fmt.Errorf("%w: failed to write key %s: %w", ports.ErrUpdateFailed, r.key, err)
	}
	r.logger.Debug(ctx, "Portfolio state saved", map[string]interface{}{"key": r.key, "bytes": len(data)})
	return nil
}

