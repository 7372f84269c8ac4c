package usage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store with in-process maps. It is used in tests
// and for deployments that do not need usage history across restarts.
type MemoryStore struct {
	records      []*Record
	summaries    map[SummaryKey]*DailySummary
	watermark    time.Time
	hasWatermark bool
	mu           sync.RWMutex
}

// NewMemoryStore creates an empty in-memory usage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		summaries: make(map[SummaryKey]*DailySummary),
	}
}

// AppendRecord stores a copy of the record.
func (m *MemoryStore) AppendRecord(_ context.Context, record *Record) error {
	if record == nil || record.ID == "" || record.AccountID == "" {
		return ErrInvalidRecord
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *record
	if copied.Timestamp.IsZero() {
		copied.Timestamp = time.Now().UTC()
	}
	if copied.Status == "" {
		copied.Status = StatusSuccess
	}
	m.records = append(m.records, &copied)
	return nil
}

// RecordsForDay returns copies of all records on the given UTC date.
func (m *MemoryStore) RecordsForDay(_ context.Context, date time.Time) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	day := DateOf(date)
	var result []*Record
	for _, record := range m.records {
		if DateOf(record.Timestamp).Equal(day) {
			copied := *record
			result = append(result, &copied)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})
	return result, nil
}

// EarliestRecordDate returns the date of the oldest record.
func (m *MemoryStore) EarliestRecordDate(_ context.Context) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.records) == 0 {
		return time.Time{}, false, nil
	}

	earliest := DateOf(m.records[0].Timestamp)
	for _, record := range m.records[1:] {
		if day := DateOf(record.Timestamp); day.Before(earliest) {
			earliest = day
		}
	}
	return earliest, true, nil
}

// Summary returns a copy of the stored summary, or nil when absent.
func (m *MemoryStore) Summary(_ context.Context, key SummaryKey) (*DailySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	key.Date = DateOf(key.Date)
	summary, ok := m.summaries[key]
	if !ok {
		return nil, nil
	}

	copied := *summary
	return &copied, nil
}

// SaveSummary upserts a summary.
func (m *MemoryStore) SaveSummary(_ context.Context, summary *DailySummary) error {
	if summary == nil || summary.AccountID == "" {
		return ErrInvalidRecord
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *summary
	copied.Date = DateOf(summary.Date)
	copied.UpdatedAt = time.Now().UTC()
	m.summaries[copied.Key()] = &copied
	return nil
}

// SummariesInRange returns an account's summaries ordered by date.
func (m *MemoryStore) SummariesInRange(_ context.Context, accountID string, from, to time.Time) ([]*DailySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fromDay, toDay := DateOf(from), DateOf(to)
	var result []*DailySummary
	for _, summary := range m.summaries {
		if accountID != "" && summary.AccountID != accountID {
			continue
		}
		if summary.Date.Before(fromDay) || summary.Date.After(toDay) {
			continue
		}
		copied := *summary
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.AccountID != b.AccountID {
			return a.AccountID < b.AccountID
		}
		if a.Provider != b.Provider {
			return a.Provider < b.Provider
		}
		return a.Model < b.Model
	})
	return result, nil
}

// Watermark returns the last aggregated date.
func (m *MemoryStore) Watermark(_ context.Context) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.watermark, m.hasWatermark, nil
}

// SetWatermark records the last aggregated date.
func (m *MemoryStore) SetWatermark(_ context.Context, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watermark = DateOf(date)
	m.hasWatermark = true
	return nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}
