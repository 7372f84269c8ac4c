package pricing

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// ModelCost contains the per-1000-token prices for a single model.
// Prices are in USD and never change at runtime except through Reload.
type ModelCost struct {
	// InputPer1K is the cost per 1000 input (prompt) tokens in USD.
	InputPer1K float64 `yaml:"input_per_1k"`

	// OutputPer1K is the cost per 1000 output (completion) tokens in USD.
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// Table is a lookup table of per-model token prices.
//
// A Table is read-mostly: request-time lookups take a read lock, and the
// only mutation is Reload, which swaps the whole entry set (used by the
// Watcher for hot reload). An unknown model costs 0, which callers must
// interpret as "cost unknown", not "free".
type Table struct {
	mu      sync.RWMutex
	entries map[string]ModelCost
}

// NewTable creates a cost table from the given entries.
// The entries map is copied; later changes to it do not affect the table.
func NewTable(entries map[string]ModelCost) *Table {
	t := &Table{entries: make(map[string]ModelCost, len(entries))}
	for model, cost := range entries {
		t.entries[model] = cost
	}
	return t
}

// tableFile is the on-disk YAML layout for a pricing table.
type tableFile struct {
	Models map[string]ModelCost `yaml:"models"`
}

// LoadTable reads a pricing table from a YAML file.
//
// Expected layout:
//
//	models:
//	  gpt-4o:
//	    input_per_1k: 0.0025
//	    output_per_1k: 0.01
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file %q: %w", path, err)
	}

	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file %q: %w", path, err)
	}

	for model, cost := range file.Models {
		if cost.InputPer1K < 0 || cost.OutputPer1K < 0 {
			return nil, fmt.Errorf("pricing for model %q must not be negative", model)
		}
	}

	return NewTable(file.Models), nil
}

// CostFor returns the cost in USD for the given token counts against a model.
//
// An unknown model returns 0. Callers must treat a zero cost for a non-empty
// request as "unpriced" and handle it conservatively.
func (t *Table) CostFor(model string, inputTokens, outputTokens int) float64 {
	t.mu.RLock()
	cost, ok := t.entries[model]
	t.mu.RUnlock()

	if !ok {
		return 0
	}

	return tokenCost(inputTokens, cost.InputPer1K) + tokenCost(outputTokens, cost.OutputPer1K)
}

// Cost returns the unit prices for a model and whether the model is priced.
func (t *Table) Cost(model string) (ModelCost, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cost, ok := t.entries[model]
	return cost, ok
}

// CheapestModel returns the model with the lowest combined input+output unit
// price. It is used as the last-resort fallback once an explicit fallback
// chain is exhausted. Ties break on model name for determinism. Returns ""
// when the table is empty.
func (t *Table) CheapestModel() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cheapest := ""
	cheapestPrice := 0.0
	for model, cost := range t.entries {
		price := cost.InputPer1K + cost.OutputPer1K
		if cheapest == "" || price < cheapestPrice || (price == cheapestPrice && model < cheapest) {
			cheapest = model
			cheapestPrice = price
		}
	}

	return cheapest
}

// Models returns the priced model names in sorted order.
func (t *Table) Models() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	models := make([]string, 0, len(t.entries))
	for model := range t.entries {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// Len returns the number of priced models.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Reload replaces the table contents. This is thread-safe and can be called
// while the table is in use; in-flight lookups see either the old or the new
// entry set, never a mix.
func (t *Table) Reload(entries map[string]ModelCost) {
	copied := make(map[string]ModelCost, len(entries))
	for model, cost := range entries {
		copied[model] = cost
	}

	t.mu.Lock()
	t.entries = copied
	t.mu.Unlock()
}

// tokenCost calculates the cost for a token count at a per-1K unit price.
func tokenCost(tokens int, costPer1K float64) float64 {
	if tokens <= 0 {
		return 0.0
	}

	return (float64(tokens) / 1000.0) * costPer1K
}
