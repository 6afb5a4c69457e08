// Package view computes presentation-ready aggregates over canonical
// tables. Every function is pure: no I/O, and "now" is always an
// explicit argument.
package view

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/bluefin-ops/healthdeck/internal/models"
)

// Trailing windows used by the overview metrics.
const (
	Window24h = 24 * time.Hour
	Window7d  = 7 * 24 * time.Hour
)

// FilterAll is the sentinel filter value meaning "no filter on this
// column".
const FilterAll = "All"

// CategoryCount is one bucket of a categorical breakdown.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// TrendPoint is one day of a trend series.
type TrendPoint struct {
	Date  string `json:"date"` // UTC calendar date, YYYY-MM-DD
	Count int    `json:"count"`
}

// WindowCount counts rows whose timestamp in col falls within
// [now-window, now]. Rows with a nil or non-timestamp value never count.
func WindowCount(t *models.Table, col string, now time.Time, window time.Duration) int {
	if !t.HasColumn(col) {
		return 0
	}
	cutoff := now.Add(-window)
	count := 0
	for _, row := range t.Rows {
		ts, ok := row.Time(col)
		if !ok {
			continue
		}
		if !ts.Before(cutoff) && !ts.After(now) {
			count++
		}
	}
	return count
}

// Breakdown groups rows by the values of col and returns buckets in
// descending count order. Ties keep the first-seen order of the source
// table, so the result is deterministic. Nil values are excluded; the
// bucket counts sum to the number of non-nil rows in the column.
func Breakdown(t *models.Table, col string) []CategoryCount {
	if !t.HasColumn(col) {
		return nil
	}

	counts := make(map[string]int)
	var firstSeen []string
	for _, row := range t.Rows {
		v := row[col]
		if v == nil {
			continue
		}
		key := categoryKey(v)
		if _, ok := counts[key]; !ok {
			firstSeen = append(firstSeen, key)
		}
		counts[key]++
	}

	out := make([]CategoryCount, 0, len(firstSeen))
	for _, key := range firstSeen {
		out = append(out, CategoryCount{Category: key, Count: counts[key]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// OrderedBreakdown is like Breakdown but emits buckets in the
// caller-supplied canonical order (severity rank). Categories present in
// the table but absent from the order are appended afterwards in
// first-seen order, so pass-through severity codes still surface.
func OrderedBreakdown(t *models.Table, col string, order []string) []CategoryCount {
	buckets := Breakdown(t, col)
	if len(buckets) == 0 {
		return buckets
	}

	rank := make(map[string]int, len(order))
	for i, category := range order {
		rank[category] = i
	}

	byCategory := make(map[string]int, len(buckets))
	var extras []string
	for _, b := range buckets {
		byCategory[b.Category] = b.Count
	}
	// first-seen order for extras
	seen := make(map[string]bool)
	for _, row := range t.Rows {
		v := row[col]
		if v == nil {
			continue
		}
		key := categoryKey(v)
		if _, ranked := rank[key]; ranked || seen[key] {
			continue
		}
		seen[key] = true
		extras = append(extras, key)
	}

	out := make([]CategoryCount, 0, len(buckets))
	for _, category := range order {
		if count, ok := byCategory[category]; ok {
			out = append(out, CategoryCount{Category: category, Count: count})
		}
	}
	for _, category := range extras {
		out = append(out, CategoryCount{Category: category, Count: byCategory[category]})
	}
	return out
}

// Trend groups rows by the UTC calendar date of col and returns one
// point per date in ascending date order. Dates with zero rows are not
// synthesized; callers rendering continuous lines treat missing dates
// as zero.
func Trend(t *models.Table, col string) []TrendPoint {
	if !t.HasColumn(col) {
		return nil
	}

	counts := make(map[string]int)
	for _, row := range t.Rows {
		ts, ok := row.Time(col)
		if !ok {
			continue
		}
		counts[ts.Format("2006-01-02")]++
	}

	dates := make([]string, 0, len(counts))
	for date := range counts {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	out := make([]TrendPoint, 0, len(dates))
	for _, date := range dates {
		out = append(out, TrendPoint{Date: date, Count: counts[date]})
	}
	return out
}

// Project applies equality filters over named columns and returns the
// matching rows sorted descending by sortCol, stable for equal keys.
// A filter value of FilterAll (or empty) means no filter on that column.
// All original columns are preserved for display.
func Project(t *models.Table, filters map[string]string, sortCol string) *models.Table {
	out := models.NewTable(t.Columns)

	for _, row := range t.Rows {
		if matches(row, filters) {
			out.Rows = append(out.Rows, row)
		}
	}

	if sortCol != "" && out.HasColumn(sortCol) {
		sort.SliceStable(out.Rows, func(i, j int) bool {
			return less(out.Rows[j][sortCol], out.Rows[i][sortCol])
		})
	}

	return out
}

// Head returns a table with at most n of the input's leading rows.
// A non-positive n yields an empty table.
func Head(t *models.Table, n int) *models.Table {
	out := models.NewTable(t.Columns)
	if n < 0 {
		n = 0
	}
	if n > t.Len() {
		n = t.Len()
	}
	out.Rows = append(out.Rows, t.Rows[:n]...)
	return out
}

// Categories returns the sorted distinct non-nil values of col, used to
// populate filter dropdowns.
func Categories(t *models.Table, col string) []string {
	if !t.HasColumn(col) {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, row := range t.Rows {
		v := row[col]
		if v == nil {
			continue
		}
		key := categoryKey(v)
		if !seen[key] {
			seen[key] = true
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

func matches(row models.Row, filters map[string]string) bool {
	for col, want := range filters {
		if want == "" || want == FilterAll {
			continue
		}
		v, ok := row[col]
		if !ok || v == nil {
			return false
		}
		if categoryKey(v) != want {
			return false
		}
	}
	return true
}

// less orders values of heterogeneous kinds: nil sorts lowest, then
// everything else by its natural order within a kind, falling back to
// the string form across kinds.
func less(a, b any) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}

	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Before(bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return av < bv
		}
	case int:
		if bv, ok := b.(int); ok {
			return av < bv
		}
	case string:
		if bv, ok := b.(string); ok {
			return av < bv
		}
	case bool:
		if bv, ok := b.(bool); ok {
			return !av && bv
		}
	}
	return categoryKey(a) < categoryKey(b)
}

// categoryKey renders a cell value as a grouping key.
func categoryKey(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case time.Time:
		return value.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", value)
	}
}
