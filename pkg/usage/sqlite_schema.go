package usage

// SchemaVersion is the current database schema version.
const SchemaVersion = 2

// Schema contains the SQL statements to create the usage database schema.
const Schema = `
-- Per-request usage records (append-only)
CREATE TABLE IF NOT EXISTS usage_records (
    id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    input_tokens INTEGER NOT NULL,
    output_tokens INTEGER NOT NULL,
    cost REAL NOT NULL,
    status TEXT NOT NULL DEFAULT 'success',
    recorded_at INTEGER NOT NULL,

    -- UTC calendar date of recorded_at, denormalized for day scans
    date TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_records_date ON usage_records(date);
CREATE INDEX IF NOT EXISTS idx_usage_records_account ON usage_records(account_id, date);

-- Daily rollups, one row per (account, provider, model, date)
CREATE TABLE IF NOT EXISTS daily_summaries (
    account_id TEXT NOT NULL,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    date TEXT NOT NULL,
    request_count INTEGER NOT NULL,
    input_tokens INTEGER NOT NULL,
    output_tokens INTEGER NOT NULL,
    total_tokens INTEGER NOT NULL DEFAULT 0,
    total_cost REAL NOT NULL,
    updated_at INTEGER NOT NULL,

    UNIQUE (account_id, provider, model, date)
);

CREATE INDEX IF NOT EXISTS idx_daily_summaries_account_date ON daily_summaries(account_id, date);

-- Aggregation bookkeeping (watermark, schema version)
CREATE TABLE IF NOT EXISTS aggregation_state (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Keys in the aggregation_state table.
const (
	stateKeySchemaVersion = "schema_version"
	stateKeyWatermark     = "watermark"
)
