package pricing

import (
	"os"
	"path/filepath"
	"testing"
)

func testTable() *Table {
	return NewTable(map[string]ModelCost{
		"gpt-4o":          {InputPer1K: 0.0025, OutputPer1K: 0.01},
		"gpt-4o-mini":     {InputPer1K: 0.00015, OutputPer1K: 0.0006},
		"claude-sonnet-4": {InputPer1K: 0.003, OutputPer1K: 0.015},
	})
}

func TestCostFor(t *testing.T) {
	table := testTable()

	// 2000 input tokens at $0.0025/1k + 1000 output at $0.01/1k
	got := table.CostFor("gpt-4o", 2000, 1000)
	want := 0.015
	if got != want {
		t.Errorf("Expected cost %.4f, got %.4f", want, got)
	}
}

func TestCostFor_UnknownModel(t *testing.T) {
	table := testTable()

	got := table.CostFor("nonexistent-model", 5000, 5000)
	if got != 0 {
		t.Errorf("Expected 0 for unknown model, got %.4f", got)
	}
}

func TestCostFor_ZeroTokens(t *testing.T) {
	table := testTable()

	if got := table.CostFor("gpt-4o", 0, 0); got != 0 {
		t.Errorf("Expected 0 for zero tokens, got %.4f", got)
	}
	if got := table.CostFor("gpt-4o", -100, -100); got != 0 {
		t.Errorf("Expected 0 for negative tokens, got %.4f", got)
	}
}

func TestCheapestModel(t *testing.T) {
	table := testTable()

	got := table.CheapestModel()
	if got != "gpt-4o-mini" {
		t.Errorf("Expected gpt-4o-mini as cheapest, got %q", got)
	}
}

func TestCheapestModel_Empty(t *testing.T) {
	table := NewTable(nil)

	if got := table.CheapestModel(); got != "" {
		t.Errorf("Expected empty string for empty table, got %q", got)
	}
}

func TestCheapestModel_TieBreaksOnName(t *testing.T) {
	table := NewTable(map[string]ModelCost{
		"model-b": {InputPer1K: 0.001, OutputPer1K: 0.002},
		"model-a": {InputPer1K: 0.001, OutputPer1K: 0.002},
	})

	if got := table.CheapestModel(); got != "model-a" {
		t.Errorf("Expected model-a on tie, got %q", got)
	}
}

func TestReload(t *testing.T) {
	table := testTable()

	table.Reload(map[string]ModelCost{
		"gpt-4o": {InputPer1K: 0.005, OutputPer1K: 0.02},
	})

	got := table.CostFor("gpt-4o", 1000, 0)
	if got != 0.005 {
		t.Errorf("Expected reloaded price 0.005, got %.4f", got)
	}
	if table.Len() != 1 {
		t.Errorf("Expected 1 model after reload, got %d", table.Len())
	}
	if got := table.CostFor("claude-sonnet-4", 1000, 0); got != 0 {
		t.Errorf("Expected dropped model to cost 0, got %.4f", got)
	}
}

func TestLoadTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model_costs.yaml")

	content := `models:
  gpt-4o:
    input_per_1k: 0.0025
    output_per_1k: 0.01
  gpt-4o-mini:
    input_per_1k: 0.00015
    output_per_1k: 0.0006
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write pricing file: %v", err)
	}

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}

	if table.Len() != 2 {
		t.Errorf("Expected 2 models, got %d", table.Len())
	}

	got := table.CostFor("gpt-4o-mini", 1000, 1000)
	want := 0.00075
	if got != want {
		t.Errorf("Expected cost %.5f, got %.5f", want, got)
	}
}

func TestLoadTable_NegativePrice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model_costs.yaml")

	content := `models:
  broken:
    input_per_1k: -1.0
    output_per_1k: 0.01
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write pricing file: %v", err)
	}

	if _, err := LoadTable(path); err == nil {
		t.Error("Expected error for negative price")
	}
}

func TestLoadTable_MissingFile(t *testing.T) {
	if _, err := LoadTable("/nonexistent/model_costs.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}
