// Package repeater manages ordered row collections for repeater fields: row
// identity, min/max enforcement, reordering, and per-row layout width.
package repeater

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/webtero/blockkit/pkg/schema"
)

// Engine-owned row keys stored alongside sub-field values.
const (
	KeyRowID = "_rowId"
	KeyWidth = "_width"
)

// Direction selects a MoveRow neighbour.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Position selects which side of an index InsertRow targets.
type Position string

const (
	Before Position = "before"
	After  Position = "after"
)

// Row is one repeater entry: sub-field values keyed by sub-field id plus the
// engine-owned identity and width keys.
type Row map[string]any

func (r Row) clone() Row {
	out := make(Row, len(r))
	for key, value := range r {
		out[key] = value
	}
	return out
}

// ID returns the row's stable identifier, empty for legacy rows that have not
// been assigned one yet.
func (r Row) ID() string {
	id, _ := r[KeyRowID].(string)
	return id
}

// Width returns the row's display width percentage, defaulting to full width.
func (r Row) Width() int {
	switch w := r[KeyWidth].(type) {
	case int:
		if schema.ValidWidth(w) {
			return w
		}
	case float64:
		if schema.ValidWidth(int(w)) {
			return int(w)
		}
	}
	return 100
}

// Engine is the state machine for one repeater instance. Row order is the
// authoritative order; collapse state is client-local and never serialized.
type Engine struct {
	field     schema.Field
	rows      []Row
	collapsed map[int]bool
	dirty     bool
}

// New builds an engine from the repeater's field schema and its current
// stored value. Rows missing a stable identifier (legacy data) are assigned
// one immediately; NeedsResave reports when that happened so callers can
// persist the repaired rows.
func New(field schema.Field, value any) (*Engine, error) {
	if field.Type != schema.TypeRepeater {
		return nil, fmt.Errorf("repeater: field %q is %s, not repeater", field.ID, field.Type)
	}

	e := &Engine{
		field:     field,
		rows:      coerceRows(value),
		collapsed: make(map[int]bool),
	}
	for i, row := range e.rows {
		if row.ID() == "" {
			repaired := row.clone()
			repaired[KeyRowID] = newRowID()
			e.rows[i] = repaired
			e.dirty = true
		}
	}
	return e, nil
}

// NeedsResave reports whether loading assigned identifiers to legacy rows,
// which must trigger a re-save of the repaired value.
func (e *Engine) NeedsResave() bool {
	return e.dirty
}

// Count returns the current number of rows.
func (e *Engine) Count() int {
	return len(e.rows)
}

// CountLabel formats the row count for display, as "current/max" when the
// repeater declares a finite maximum.
func (e *Engine) CountLabel() string {
	if _, max, bounded := e.field.RowBounds(); bounded {
		return fmt.Sprintf("%d/%d", len(e.rows), max)
	}
	return fmt.Sprintf("%d", len(e.rows))
}

// Rows returns a copy of the current row list in authoritative order.
func (e *Engine) Rows() []Row {
	out := make([]Row, len(e.rows))
	for i, row := range e.rows {
		out[i] = row.clone()
	}
	return out
}

// AddRow appends a fresh row seeded with sub-field defaults. It reports false
// without mutating state when the row count has reached the maximum.
func (e *Engine) AddRow() bool {
	if e.atMax() {
		return false
	}
	e.rows = append(e.rows, e.newRow())
	return true
}

// InsertRow places a fresh row adjacent to index. Out-of-range indexes and
// full repeaters are rejected without mutation.
func (e *Engine) InsertRow(index int, pos Position) bool {
	if e.atMax() || index < 0 || index >= len(e.rows) {
		return false
	}
	at := index
	if pos == After {
		at = index + 1
	}

	rows := make([]Row, 0, len(e.rows)+1)
	rows = append(rows, e.rows[:at]...)
	rows = append(rows, e.newRow())
	rows = append(rows, e.rows[at:]...)
	e.rows = rows
	return true
}

// RemoveRow deletes the row at index. It reports false when the count is at
// the minimum or the index is out of range.
func (e *Engine) RemoveRow(index int) bool {
	if index < 0 || index >= len(e.rows) {
		return false
	}
	if min, _, _ := e.field.RowBounds(); len(e.rows) <= min {
		return false
	}
	e.rows = append(e.rows[:index:index], e.rows[index+1:]...)
	delete(e.collapsed, index)
	return true
}

// MoveRow swaps the row at index with its neighbour. Boundary moves report
// false without mutation. Row identifiers travel with their rows.
func (e *Engine) MoveRow(index int, dir Direction) bool {
	target := index - 1
	if dir == Down {
		target = index + 1
	}
	if index < 0 || index >= len(e.rows) || target < 0 || target >= len(e.rows) {
		return false
	}
	e.rows[index], e.rows[target] = e.rows[target], e.rows[index]
	return true
}

// UpdateRowField merges one sub-field value into the row at index, leaving
// every other key and row untouched.
func (e *Engine) UpdateRowField(index int, subFieldID string, value any) error {
	if index < 0 || index >= len(e.rows) {
		return fmt.Errorf("repeater: row index %d out of range", index)
	}
	if _, ok := e.field.SubField(subFieldID); !ok {
		return fmt.Errorf("repeater: unknown sub-field %q", subFieldID)
	}
	row := e.rows[index].clone()
	row[subFieldID] = value
	e.rows[index] = row
	return nil
}

// UpdateRowWidth sets the display width of the row at index from the fixed
// allowed set.
func (e *Engine) UpdateRowWidth(index int, width int) error {
	if index < 0 || index >= len(e.rows) {
		return fmt.Errorf("repeater: row index %d out of range", index)
	}
	if !schema.ValidWidth(width) {
		return fmt.Errorf("repeater: width %d not in %v", width, schema.AllowedWidths)
	}
	row := e.rows[index].clone()
	row[KeyWidth] = width
	e.rows[index] = row
	return nil
}

// ToggleCollapse flips the client-local collapse flag for a row position.
// Collapse state never reaches the persisted value.
func (e *Engine) ToggleCollapse(index int) {
	e.collapsed[index] = !e.collapsed[index]
}

// Collapsed reports the client-local collapse flag for a row position.
func (e *Engine) Collapsed(index int) bool {
	return e.collapsed[index]
}

// Value returns the rows as a serializable []any suitable for the value
// store.
func (e *Engine) Value() []any {
	out := make([]any, len(e.rows))
	for i, row := range e.rows {
		out[i] = map[string]any(row.clone())
	}
	return out
}

func (e *Engine) newRow() Row {
	row := Row{
		KeyRowID: newRowID(),
		KeyWidth: 100,
	}
	for _, sub := range e.field.Fields {
		row[sub.ID] = sub.DefaultValue()
	}
	return row
}

func (e *Engine) atMax() bool {
	_, max, bounded := e.field.RowBounds()
	return bounded && len(e.rows) >= max
}

func newRowID() string {
	return "row_" + uuid.NewString()
}

func coerceRows(value any) []Row {
	list, ok := value.([]any)
	if !ok {
		if typed, ok := value.([]map[string]any); ok {
			rows := make([]Row, len(typed))
			for i, m := range typed {
				rows[i] = Row(m).clone()
			}
			return rows
		}
		return nil
	}
	rows := make([]Row, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			rows = append(rows, Row(m).clone())
		}
	}
	return rows
}
