// Package grid describes the IONCON list grid and keeps its user layout
// (column order, visibility, width, sort and filters) in the preference
// store.
package grid

import (
	"context"
	"fmt"
	"strings"

	"github.com/duke-git/lancet/v2/slice"

	"github.com/matthewbaird/ioncon/internal/prefs"
)

// ListName is the name of the IONCON list grid.
const ListName = "IONCONListGrid"

// Pixel sizes used to size the grid to its content.
const (
	RowHeight    = 30
	HeaderHeight = 30
	// MaxListHeight caps the IONCON list grid.
	MaxListHeight = 1000
)

// Column is one grid column.
type Column struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Width       int    `json:"width,omitempty"`
	Visible     bool   `json:"visible"`
	// Link marks the column that opens the record detail.
	Link bool `json:"link,omitempty"`
}

// Definition is a grid's column set and behaviour.
type Definition struct {
	Name               string   `json:"name"`
	Columns            []Column `json:"columnDefs"`
	RowHeight          int      `json:"rowHeight"`
	EnableRowSelection bool     `json:"enableRowSelection"`
	MultiSelect        bool     `json:"multiSelect"`
	EnableFiltering    bool     `json:"enableFiltering"`
	Height             int      `json:"height"`
}

// IONCONList returns the definition of the IONCON list grid. label maps a
// field name to its display text.
func IONCONList(label func(key string) string) Definition {
	col := func(name string, width int, link bool) Column {
		return Column{Name: name, DisplayName: label(name), Width: width, Visible: true, Link: link}
	}
	return Definition{
		Name: ListName,
		Columns: []Column{
			col("PK01", 220, true),
			col("PK02", 100, false),
			col("PK03", 100, false),
			col("AL30", 260, false),
			col("AL31", 160, false),
			col("AL32", 260, false),
			col("AL35", 160, false),
		},
		RowHeight:          RowHeight,
		EnableRowSelection: true,
		MultiSelect:        false,
		EnableFiltering:    true,
		Height:             HeaderHeight,
	}
}

// AdjustHeight returns the pixel height that shows rows rows, capped at max.
func AdjustHeight(rows, max int) int {
	if rows < 0 {
		rows = 0
	}
	h := HeaderHeight + rows*RowHeight
	if max > 0 && h > max {
		return max
	}
	return h
}

// Sort is a column's sort setting.
type Sort struct {
	Direction string `json:"direction"` // asc or desc
	Priority  int    `json:"priority"`
}

// ColumnState is the saved layout of one column.
type ColumnState struct {
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
	Width   int    `json:"width,omitempty"`
	Sort    *Sort  `json:"sort,omitempty"`
	Filter  string `json:"filter,omitempty"`
}

// State is the saved layout of a grid. Column order is the display order.
type State struct {
	Columns   []ColumnState `json:"columns"`
	Selection []string      `json:"selection,omitempty"`
}

// Validate rejects states that name a column twice or use an unknown sort
// direction.
func (s State) Validate() error {
	seen := map[string]bool{}
	for _, c := range s.Columns {
		if c.Name == "" {
			return fmt.Errorf("grid: column without name")
		}
		if seen[c.Name] {
			return fmt.Errorf("grid: column %s listed twice", c.Name)
		}
		seen[c.Name] = true
		if c.Sort != nil && c.Sort.Direction != "asc" && c.Sort.Direction != "desc" {
			return fmt.Errorf("grid: column %s: unknown sort direction %q", c.Name, c.Sort.Direction)
		}
	}
	return nil
}

// StateOf captures the current layout of def.
func StateOf(def Definition) State {
	cols := make([]ColumnState, len(def.Columns))
	for i, c := range def.Columns {
		cols[i] = ColumnState{Name: c.Name, Visible: c.Visible, Width: c.Width}
	}
	return State{Columns: cols}
}

// Apply lays def out according to st. Columns st does not know keep their
// relative order after the known ones; names def does not have are ignored.
func Apply(def Definition, st State) Definition {
	byName := make(map[string]Column, len(def.Columns))
	for _, c := range def.Columns {
		byName[c.Name] = c
	}

	out := def
	out.Columns = make([]Column, 0, len(def.Columns))
	placed := map[string]bool{}
	for _, cs := range st.Columns {
		c, ok := byName[cs.Name]
		if !ok || placed[cs.Name] {
			continue
		}
		c.Visible = cs.Visible
		if cs.Width > 0 {
			c.Width = cs.Width
		}
		out.Columns = append(out.Columns, c)
		placed[cs.Name] = true
	}
	rest := slice.Filter(def.Columns, func(_ int, c Column) bool { return !placed[c.Name] })
	out.Columns = append(out.Columns, rest...)
	return out
}

// EventType names a grid callback.
type EventType string

const (
	RenderingComplete       EventType = "renderingComplete"
	SortChanged             EventType = "sortChanged"
	FilterChanged           EventType = "filterChanged"
	ColumnVisibilityChanged EventType = "columnVisibilityChanged"
	ColumnPositionChanged   EventType = "columnPositionChanged"
	ColumnSizeChanged       EventType = "columnSizeChanged"
	RowSelectionChanged     EventType = "rowSelectionChanged"
	RowSelectionBatch       EventType = "rowSelectionChangedBatch"
)

var persisting = []EventType{
	SortChanged, FilterChanged, ColumnVisibilityChanged, ColumnPositionChanged,
	ColumnSizeChanged, RowSelectionChanged, RowSelectionBatch,
}

// Persists reports whether the event saves the grid layout.
func (t EventType) Persists() bool {
	return slice.Contain(persisting, t)
}

// Known reports whether t is a grid callback.
func (t EventType) Known() bool {
	return t == RenderingComplete || t.Persists()
}

// StateStore saves grid layouts as preferences.
type StateStore struct {
	prefs prefs.Store
}

// NewStateStore creates a StateStore on p.
func NewStateStore(p prefs.Store) *StateStore {
	return &StateStore{prefs: p}
}

// Save stores the layout of grid name.
func (s *StateStore) Save(ctx context.Context, name string, st State) error {
	if err := st.Validate(); err != nil {
		return err
	}
	return s.prefs.Set(ctx, prefs.GridKey(name), st)
}

// Restore loads the layout of grid name.
func (s *StateStore) Restore(ctx context.Context, name string) (State, bool, error) {
	var st State
	ok, err := prefs.Decode(ctx, s.prefs, prefs.GridKey(name), &st)
	if err != nil || !ok {
		return State{}, false, err
	}
	return st, true, nil
}

// CellRef addresses one selected cell.
type CellRef struct {
	Row    string `json:"row"`
	Column string `json:"column"`
}

// Copy renders a cell selection as clipboard text: values of a row are
// separated by commas, rows by newlines. Cells lookup cannot resolve are
// skipped.
func Copy(cells []CellRef, lookup func(row, column string) (string, bool)) string {
	var b strings.Builder
	row := ""
	first := true
	for _, c := range cells {
		v, ok := lookup(c.Row, c.Column)
		if !ok {
			continue
		}
		switch {
		case first:
			first = false
		case c.Row != row:
			b.WriteByte('\n')
		default:
			b.WriteByte(',')
		}
		row = c.Row
		b.WriteString(v)
	}
	return b.String()
}
