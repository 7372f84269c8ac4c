package usage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

// SQLiteConfig contains configuration for the SQLite usage store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/usage.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite usage store.
// It initializes the database schema and enables WAL mode if configured.
func NewSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "usage.sqlite")

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("usage store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if busyTimeoutMs == 0 {
		busyTimeoutMs = 5000
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	_, err := s.db.Exec(`
		INSERT INTO aggregation_state (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO NOTHING
	`, stateKeySchemaVersion, strconv.Itoa(SchemaVersion))
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	var stored string
	err = s.db.QueryRow(`SELECT value FROM aggregation_state WHERE key = ?`, stateKeySchemaVersion).Scan(&stored)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if stored != strconv.Itoa(SchemaVersion) {
		return fmt.Errorf("schema version mismatch: expected %d, got %s", SchemaVersion, stored)
	}

	return nil
}

// AppendRecord persists a usage record.
func (s *SQLiteStore) AppendRecord(ctx context.Context, record *Record) error {
	if record == nil || record.ID == "" || record.AccountID == "" {
		return ErrInvalidRecord
	}

	timestamp := record.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	status := record.Status
	if status == "" {
		status = StatusSuccess
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_records (id, account_id, provider, model, input_tokens, output_tokens, cost, status, recorded_at, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID,
		record.AccountID,
		record.Provider,
		record.Model,
		record.InputTokens,
		record.OutputTokens,
		record.Cost,
		status,
		timestamp.Unix(),
		DateOf(timestamp).Format(dateLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to append usage record: %w", err)
	}

	return nil
}

// RecordsForDay returns all records whose timestamp falls on the given UTC
// calendar date.
func (s *SQLiteStore) RecordsForDay(ctx context.Context, date time.Time) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, provider, model, input_tokens, output_tokens, cost, status, recorded_at
		FROM usage_records
		WHERE date = ?
		ORDER BY recorded_at
	`, DateOf(date).Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			record     Record
			recordedAt int64
		)
		if err := rows.Scan(
			&record.ID,
			&record.AccountID,
			&record.Provider,
			&record.Model,
			&record.InputTokens,
			&record.OutputTokens,
			&record.Cost,
			&record.Status,
			&recordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		record.Timestamp = time.Unix(recordedAt, 0).UTC()
		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// EarliestRecordDate returns the date of the oldest record.
func (s *SQLiteStore) EarliestRecordDate(ctx context.Context) (time.Time, bool, error) {
	var date sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT MIN(date) FROM usage_records`).Scan(&date)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to query earliest record: %w", err)
	}
	if !date.Valid {
		return time.Time{}, false, nil
	}

	parsed, err := time.ParseInLocation(dateLayout, date.String, time.UTC)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("malformed record date %q: %w", date.String, err)
	}
	return parsed, true, nil
}

// Summary returns the summary for a key, or nil when none is stored.
func (s *SQLiteStore) Summary(ctx context.Context, key SummaryKey) (*DailySummary, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT account_id, provider, model, date, request_count, input_tokens, output_tokens, total_tokens, total_cost, updated_at
		FROM daily_summaries
		WHERE account_id = ? AND provider = ? AND model = ? AND date = ?
	`, key.AccountID, key.Provider, key.Model, DateOf(key.Date).Format(dateLayout))

	summary, err := scanSummary(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load summary: %w", err)
	}
	return summary, nil
}

// SaveSummary upserts a summary row.
func (s *SQLiteStore) SaveSummary(ctx context.Context, summary *DailySummary) error {
	if summary == nil || summary.AccountID == "" {
		return ErrInvalidRecord
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_summaries (account_id, provider, model, date, request_count, input_tokens, output_tokens, total_tokens, total_cost, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id, provider, model, date) DO UPDATE SET
			request_count = excluded.request_count,
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			total_tokens = excluded.total_tokens,
			total_cost = excluded.total_cost,
			updated_at = excluded.updated_at
	`,
		summary.AccountID,
		summary.Provider,
		summary.Model,
		DateOf(summary.Date).Format(dateLayout),
		summary.RequestCount,
		summary.InputTokens,
		summary.OutputTokens,
		summary.TotalTokens,
		summary.TotalCost,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}

	return nil
}

// SummariesInRange returns an account's summaries ordered by date.
func (s *SQLiteStore) SummariesInRange(ctx context.Context, accountID string, from, to time.Time) ([]*DailySummary, error) {
	query := `
		SELECT account_id, provider, model, date, request_count, input_tokens, output_tokens, total_tokens, total_cost, updated_at
		FROM daily_summaries
		WHERE date >= ? AND date <= ?
	`
	args := []interface{}{
		DateOf(from).Format(dateLayout),
		DateOf(to).Format(dateLayout),
	}
	if accountID != "" {
		query += " AND account_id = ?"
		args = append(args, accountID)
	}
	query += " ORDER BY date, account_id, provider, model"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*DailySummary
	for rows.Next() {
		summary, err := scanSummary(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summaries: %w", err)
	}

	return summaries, nil
}

// Watermark returns the last date through which aggregation has run.
func (s *SQLiteStore) Watermark(ctx context.Context) (time.Time, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM aggregation_state WHERE key = ?`, stateKeyWatermark).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read watermark: %w", err)
	}

	parsed, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("malformed watermark %q: %w", value, err)
	}
	return parsed, true, nil
}

// SetWatermark records the last aggregated date.
func (s *SQLiteStore) SetWatermark(ctx context.Context, date time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO aggregation_state (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, stateKeyWatermark, DateOf(date).Format(dateLayout))
	if err != nil {
		return fmt.Errorf("failed to set watermark: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// scanSummary reads one summary row through the given scan function.
func scanSummary(scan func(dest ...interface{}) error) (*DailySummary, error) {
	var (
		summary   DailySummary
		date      string
		updatedAt int64
	)
	if err := scan(
		&summary.AccountID,
		&summary.Provider,
		&summary.Model,
		&date,
		&summary.RequestCount,
		&summary.InputTokens,
		&summary.OutputTokens,
		&summary.TotalTokens,
		&summary.TotalCost,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	parsed, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("malformed summary date %q: %w", date, err)
	}
	summary.Date = parsed
	summary.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &summary, nil
}
