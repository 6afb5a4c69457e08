// Package normalize converts raw source responses into canonical tables.
//
// Normalization never fails on a malformed individual field: a value
// that cannot be interpreted degrades to nil (timestamps) or passes
// through unchanged (severity codes), so one bad record can never block
// an entire table load.
package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bluefin-ops/healthdeck/internal/models"
	"github.com/bluefin-ops/healthdeck/internal/source"
)

// timestampLayouts are the accepted wire formats for timestamp fields,
// tried in order. Everything is normalized to UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// queryColumnMapping maps the query source's declared column names to
// canonical flow-run columns.
var queryColumnMapping = map[string]string{
	"timestamp":     models.ColTimestamp,
	"id":            models.ColID,
	"runId":         models.ColRunID,
	"environmentId": models.ColEnvironmentID,
	"displayName":   models.ColDisplayName,
	"name":          models.ColName,
	"errorCode":     models.ColErrorCode,
	"errorMessage":  models.ColErrorMessage,
	"success":       models.ColSuccess,
}

// Normalizer converts each source's raw record shape into a canonical
// table. It is pure apart from the injected severity mapping: identical
// input yields identical output, and it never reads the current time.
type Normalizer struct {
	severity *models.SeverityLevels
}

// New creates a normalizer using the given severity mapping.
func New(severity *models.SeverityLevels) *Normalizer {
	return &Normalizer{severity: severity}
}

// Normalize dispatches on the source kind. raw must be the matching
// client's fetch result: []map[string]any for alerts, *source.QueryTable
// for flow runs.
func (n *Normalizer) Normalize(kind models.SourceKind, raw any) (*models.Table, error) {
	switch kind {
	case models.SourceAlerts:
		entities, ok := raw.([]map[string]any)
		if !ok {
			return nil, fmt.Errorf("normalize %s: unexpected raw type %T", kind, raw)
		}
		return n.Alerts(entities), nil
	case models.SourceFlowRuns:
		table, ok := raw.(*source.QueryTable)
		if !ok {
			return nil, fmt.Errorf("normalize %s: unexpected raw type %T", kind, raw)
		}
		return n.FlowRuns(table), nil
	default:
		return nil, fmt.Errorf("normalize: unknown source kind %q", kind)
	}
}

// Alerts normalizes alert entities from the table store. Severity codes
// with a mapping become their display label; unmapped codes keep their
// raw value. Unparseable timestamps become nil.
func (n *Normalizer) Alerts(entities []map[string]any) *models.Table {
	t := models.NewTable(models.AlertColumns)

	for _, entity := range entities {
		row := models.Row{}
		for _, col := range models.AlertColumns {
			value, ok := entity[col]
			if !ok {
				continue
			}
			switch col {
			case models.ColReceivedAt:
				row[col] = normalizeTimestamp(value)
			case models.ColSeverity:
				row[col] = n.normalizeSeverity(value)
			default:
				row[col] = value
			}
		}
		t.Append(row)
	}

	return t
}

// FlowRuns normalizes a columnar query result into the canonical
// flow-runs table, using the envelope's declared column names rather
// than assuming positional identity.
func (n *Normalizer) FlowRuns(qt *source.QueryTable) *models.Table {
	t := models.NewTable(models.FlowRunColumns)

	for _, raw := range qt.Rows {
		row := models.Row{}
		for i, col := range qt.Columns {
			if i >= len(raw) {
				break
			}
			canonical, ok := queryColumnMapping[col.Name]
			if !ok {
				continue
			}
			switch canonical {
			case models.ColTimestamp:
				row[canonical] = normalizeTimestamp(raw[i])
			case models.ColSuccess:
				row[canonical] = normalizeBool(raw[i])
			default:
				row[canonical] = raw[i]
			}
		}
		t.Append(row)
	}

	return t
}

func (n *Normalizer) normalizeSeverity(value any) any {
	code, ok := asInt(value)
	if !ok {
		return value
	}
	label, ok := n.severity.Label(code)
	if !ok {
		return value
	}
	return label
}

// normalizeTimestamp parses a timestamp-bearing value into a UTC
// time.Time, or nil when the value cannot be interpreted. Downstream
// windowing treats nil as "never matches any time-bounded view".
func normalizeTimestamp(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return v.UTC()
	case string:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, v); err == nil {
				return ts.UTC()
			}
		}
		return nil
	default:
		return nil
	}
}

// normalizeBool coerces the source's loosely-typed representation of
// truth to a strict boolean: native booleans, numeric 1/0, and the
// strings "true"/"false"/"1"/"0" all normalize identically.
func normalizeBool(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1":
			return true
		default:
			return false
		}
	default:
		return false
	}
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
		return 0, false
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}
