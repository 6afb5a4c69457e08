package normalize

import (
	"testing"
	"time"

	"github.com/bluefin-ops/healthdeck/internal/models"
	"github.com/bluefin-ops/healthdeck/internal/source"
)

func TestAlerts_SeverityMappingAndPassThrough(t *testing.T) {
	n := New(models.DefaultSeverityLevels())

	table := n.Alerts([]map[string]any{
		{"SeverityLevel": 1, "Source": "A", "TimeAlertReceived": "2024-01-01T00:00:00Z"},
		{"SeverityLevel": 9, "Source": "B", "TimeAlertReceived": nil},
	})

	if got := table.Rows[0][models.ColSeverity]; got != "Critical" {
		t.Errorf("row 0 severity = %v, want Critical", got)
	}
	// Unmapped codes keep their original raw value.
	if got := table.Rows[1][models.ColSeverity]; got != 9 {
		t.Errorf("row 1 severity = %v, want 9", got)
	}
	if got := table.Rows[1][models.ColReceivedAt]; got != nil {
		t.Errorf("row 1 timestamp = %v, want nil", got)
	}

	ts, ok := table.Rows[0].Time(models.ColReceivedAt)
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !ok || !ts.Equal(want) {
		t.Errorf("row 0 timestamp = %v, %v, want %v", ts, ok, want)
	}
}

func TestAlerts_ColumnCompleteness(t *testing.T) {
	n := New(models.DefaultSeverityLevels())

	table := n.Alerts([]map[string]any{{"Source": "only-source"}})

	for _, col := range models.AlertColumns {
		if _, ok := table.Rows[0][col]; !ok {
			t.Errorf("column %q missing from normalized row", col)
		}
	}
}

func TestAlerts_UnparseableTimestampBecomesNil(t *testing.T) {
	n := New(models.DefaultSeverityLevels())

	table := n.Alerts([]map[string]any{
		{"TimeAlertReceived": "yesterday-ish"},
		{"TimeAlertReceived": 12345},
	})

	for i, row := range table.Rows {
		if row[models.ColReceivedAt] != nil {
			t.Errorf("row %d timestamp = %v, want nil", i, row[models.ColReceivedAt])
		}
	}
}

func TestAlerts_SeverityStringCode(t *testing.T) {
	n := New(models.DefaultSeverityLevels())

	table := n.Alerts([]map[string]any{{"SeverityLevel": "2"}})
	if got := table.Rows[0][models.ColSeverity]; got != "High" {
		t.Errorf("severity = %v, want High", got)
	}
}

func TestFlowRuns_UsesDeclaredColumnNames(t *testing.T) {
	n := New(models.DefaultSeverityLevels())

	// Column order differs from the canonical order on purpose.
	qt := &source.QueryTable{
		Columns: []source.QueryColumn{
			{Name: "success"},
			{Name: "timestamp"},
			{Name: "displayName"},
		},
		Rows: [][]any{
			{"0", "2024-05-01T10:00:00Z", "Nightly Sync"},
		},
	}

	table := n.FlowRuns(qt)

	if got := table.Rows[0][models.ColSuccess]; got != false {
		t.Errorf("success = %v, want false", got)
	}
	if got := table.Rows[0][models.ColDisplayName]; got != "Nightly Sync" {
		t.Errorf("display name = %v, want Nightly Sync", got)
	}
	ts, ok := table.Rows[0].Time(models.ColTimestamp)
	if !ok || ts != time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) {
		t.Errorf("timestamp = %v, %v", ts, ok)
	}
	// Columns the envelope never declared are still present as nil.
	if _, ok := table.Rows[0][models.ColRunID]; !ok {
		t.Error("RunID column missing from normalized row")
	}
}

func TestFlowRuns_ShortRowsDoNotPanic(t *testing.T) {
	n := New(models.DefaultSeverityLevels())

	qt := &source.QueryTable{
		Columns: []source.QueryColumn{{Name: "timestamp"}, {Name: "success"}},
		Rows:    [][]any{{"2024-05-01T10:00:00Z"}},
	}

	table := n.FlowRuns(qt)
	if table.Len() != 1 {
		t.Fatalf("len = %d, want 1", table.Len())
	}
	if got := table.Rows[0][models.ColSuccess]; got != nil {
		t.Errorf("success = %v, want nil", got)
	}
}

func TestNormalizeBool(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{true, true},
		{false, false},
		{float64(1), true},
		{float64(0), false},
		{"true", true},
		{"True", true},
		{"1", true},
		{"false", false},
		{"0", false},
		{" TRUE ", true},
		{"banana", false},
		{nil, nil},
	}
	for _, tt := range tests {
		if got := normalizeBool(tt.in); got != tt.want {
			t.Errorf("normalizeBool(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_Dispatch(t *testing.T) {
	n := New(models.DefaultSeverityLevels())

	if _, err := n.Normalize(models.SourceAlerts, []map[string]any{}); err != nil {
		t.Errorf("Normalize(alerts) error = %v", err)
	}
	if _, err := n.Normalize(models.SourceFlowRuns, &source.QueryTable{}); err != nil {
		t.Errorf("Normalize(flow_runs) error = %v", err)
	}
	if _, err := n.Normalize(models.SourceAlerts, "wrong shape"); err == nil {
		t.Error("Normalize(alerts, string) error = nil, want type error")
	}
	if _, err := n.Normalize(models.SourceKind("nope"), nil); err == nil {
		t.Error("Normalize(unknown) error = nil, want error")
	}
}

func TestNormalize_IsDeterministic(t *testing.T) {
	n := New(models.DefaultSeverityLevels())
	raw := []map[string]any{
		{"SeverityLevel": 3, "Source": "X", "TimeAlertReceived": "2024-02-01T01:02:03Z"},
	}

	a := n.Alerts(raw)
	b := n.Alerts(raw)

	if a.Len() != b.Len() {
		t.Fatalf("lengths differ: %d vs %d", a.Len(), b.Len())
	}
	for _, col := range a.Columns {
		if a.Rows[0][col] != b.Rows[0][col] {
			t.Errorf("column %q differs between runs: %v vs %v", col, a.Rows[0][col], b.Rows[0][col])
		}
	}
}
