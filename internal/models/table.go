// Package models contains the core data structures for healthdeck.
package models

import "time"

// Row is a single record of a canonical table. Every declared column of the
// owning table is present as a key; fields the source omitted are nil.
type Row map[string]any

// Table is the normalized, column-complete representation shared by both
// sources. Row order follows the source response order.
type Table struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewTable creates an empty table over the given column set.
func NewTable(columns []string) *Table {
	return &Table{Columns: columns, Rows: []Row{}}
}

// Append adds a row, backfilling any declared column the caller omitted
// so downstream filters never hit a missing key.
func (t *Table) Append(r Row) {
	for _, c := range t.Columns {
		if _, ok := r[c]; !ok {
			r[c] = nil
		}
	}
	t.Rows = append(t.Rows, r)
}

// HasColumn reports whether the table declares the given column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Time returns the row's value in col as a UTC timestamp. The second
// return value is false when the value is nil or not a timestamp.
func (r Row) Time(col string) (time.Time, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return time.Time{}, false
	}
	ts, ok := v.(time.Time)
	if !ok {
		return time.Time{}, false
	}
	return ts.UTC(), true
}
