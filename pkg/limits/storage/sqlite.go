package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrInvalidState is returned for a nil state or empty account id.
var ErrInvalidState = errors.New("invalid tracker state")

// SQLiteBackend implements Backend using SQLite for persistence.
// It is suitable for single-instance deployments where counters must
// survive restarts.
//
// The backend uses a write-ahead log (WAL) for better concurrent
// performance and periodic checkpointing to balance write performance with
// durability.
type SQLiteBackend struct {
	db                 *sql.DB
	dbPath             string
	checkpointInterval time.Duration
	done               chan struct{}
	mu                 sync.RWMutex
	closeOnce          sync.Once

	saveStmt   *sql.Stmt
	loadStmt   *sql.Stmt
	deleteStmt *sql.Stmt
	listStmt   *sql.Stmt
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// DBPath is the path to the SQLite database file.
	DBPath string

	// CheckpointInterval is how often to checkpoint the WAL.
	// Default: 5 minutes
	CheckpointInterval time.Duration

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteBackend creates a new SQLite storage backend with default settings.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{
		DBPath: dbPath,
	})
}

// NewSQLiteBackendWithConfig creates a new SQLite backend with custom configuration.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.CheckpointInterval == 0 {
		cfg.CheckpointInterval = 5 * time.Minute
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.DBPath, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{
		db:                 db,
		dbPath:             cfg.DBPath,
		checkpointInterval: cfg.CheckpointInterval,
		done:               make(chan struct{}),
	}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	go backend.checkpointLoop()

	return backend, nil
}

// initSchema creates the database schema if it doesn't exist.
func (s *SQLiteBackend) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tracker_states (
		account_id TEXT NOT NULL PRIMARY KEY,
		counters TEXT NOT NULL,
		last_updated INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tracker_last_updated ON tracker_states(last_updated);
	`

	_, err := s.db.Exec(schema)
	return err
}

// prepareStatements prepares SQL statements for reuse.
func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO tracker_states (account_id, counters, last_updated, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			counters = excluded.counters,
			last_updated = excluded.last_updated
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.loadStmt, err = s.db.Prepare(`
		SELECT account_id, counters, last_updated, created_at
		FROM tracker_states
		WHERE account_id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare load statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`
		DELETE FROM tracker_states
		WHERE account_id = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT account_id, counters, last_updated, created_at
		FROM tracker_states
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	return nil
}

// Save persists the tracker state for an account.
func (s *SQLiteBackend) Save(ctx context.Context, state *TrackerState) error {
	if state == nil || state.AccountID == "" {
		return ErrInvalidState
	}

	counters, err := json.Marshal(state.Counters)
	if err != nil {
		return fmt.Errorf("failed to marshal counters: %w", err)
	}

	now := time.Now()
	createdAt := state.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.saveStmt.ExecContext(ctx,
		state.AccountID,
		string(counters),
		now.Unix(),
		createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}

	return nil
}

// Load retrieves the tracker state for an account. Returns (nil, nil) when
// nothing is stored.
func (s *SQLiteBackend) Load(ctx context.Context, accountID string) (*TrackerState, error) {
	if accountID == "" {
		return nil, ErrInvalidState
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		counters    string
		lastUpdated int64
		createdAt   int64
	)

	err := s.loadStmt.QueryRowContext(ctx, accountID).Scan(
		&accountID,
		&counters,
		&lastUpdated,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	state := &TrackerState{
		AccountID:   accountID,
		LastUpdated: time.Unix(lastUpdated, 0),
		CreatedAt:   time.Unix(createdAt, 0),
	}
	if err := json.Unmarshal([]byte(counters), &state.Counters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal counters: %w", err)
	}

	return state, nil
}

// Delete removes the tracker state for an account.
func (s *SQLiteBackend) Delete(ctx context.Context, accountID string) error {
	if accountID == "" {
		return ErrInvalidState
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.deleteStmt.ExecContext(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}

	return nil
}

// List returns all stored tracker states.
func (s *SQLiteBackend) List(ctx context.Context) ([]*TrackerState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}
	defer rows.Close()

	var states []*TrackerState
	for rows.Next() {
		var (
			accountID   string
			counters    string
			lastUpdated int64
			createdAt   int64
		)

		if err := rows.Scan(&accountID, &counters, &lastUpdated, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		state := &TrackerState{
			AccountID:   accountID,
			LastUpdated: time.Unix(lastUpdated, 0),
			CreatedAt:   time.Unix(createdAt, 0),
		}
		if err := json.Unmarshal([]byte(counters), &state.Counters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal counters: %w", err)
		}

		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return states, nil
}

// Close releases any resources held by the backend.
// Close is idempotent and safe to call multiple times.
func (s *SQLiteBackend) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		close(s.done)

		if s.saveStmt != nil {
			s.saveStmt.Close()
		}
		if s.loadStmt != nil {
			s.loadStmt.Close()
		}
		if s.deleteStmt != nil {
			s.deleteStmt.Close()
		}
		if s.listStmt != nil {
			s.listStmt.Close()
		}

		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})

	return closeErr
}

// checkpointLoop runs periodic WAL checkpoints.
func (s *SQLiteBackend) checkpointLoop() {
	ticker := time.NewTicker(s.checkpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
		case <-s.done:
			return
		}
	}
}
