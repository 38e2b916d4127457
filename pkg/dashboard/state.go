// Package dashboard holds the mutable dashboard document and every operation
// that changes it.
//
// An Orchestrator owns exactly one State. All mutations go through its
// methods; each one records the pre-mutation state on a bounded undo stack.
// Snapshots copy the item slices but share the Data, Style and Config maps of
// unchanged items, so callers must not mutate those maps in place after
// handing them over.
package dashboard

import (
	"slices"
	"time"

	"github.com/leapstack-labs/leapdash/pkg/core"
)

// Mode is the canvas interaction mode.
type Mode string

// Canvas modes.
const (
	ModeEdit    Mode = "edit"
	ModePreview Mode = "preview"
)

// DataSourceItemType is the Type of every DataTableItem.
const DataSourceItemType = "dataSource"

// State is the whole dashboard document. Its JSON form is the persistence
// contract shared with the rendering layer.
type State struct {
	Mode        Mode            `json:"mode" yaml:"mode"`
	CanvasItems []CanvasItem    `json:"canvasItems" yaml:"canvasItems"`
	DataTables  []DataTableItem `json:"dataTables" yaml:"dataTables"`
	Connections []Connection    `json:"connections" yaml:"connections"`
	Background  string          `json:"background" yaml:"background"`
	Theme       string          `json:"theme" yaml:"theme"`
}

// CanvasItem is a positioned visual element.
type CanvasItem struct {
	ID     string         `json:"id" yaml:"id"`
	Type   core.VizType   `json:"type" yaml:"type"`
	Title  string         `json:"title" yaml:"title"`
	X      float64        `json:"x" yaml:"x"`
	Y      float64        `json:"y" yaml:"y"`
	Width  float64        `json:"width" yaml:"width"`
	Height float64        `json:"height" yaml:"height"`
	Data   map[string]any `json:"data" yaml:"data"`
	Style  map[string]any `json:"style" yaml:"style"`
	ZIndex int            `json:"zIndex" yaml:"zIndex"`
}

// Position returns the item's rectangle.
func (c CanvasItem) Position() core.Position {
	return core.Position{X: c.X, Y: c.Y, Width: c.Width, Height: c.Height}
}

// DataTableItem declares a data source on the canvas. Connected and LastSync
// belong to whatever fetches the data; the orchestrator only stores them.
type DataTableItem struct {
	ID         string          `json:"id" yaml:"id"`
	Type       string          `json:"type" yaml:"type"`
	SourceType core.SourceType `json:"sourceType" yaml:"sourceType"`
	Name       string          `json:"name" yaml:"name"`
	X          float64         `json:"x" yaml:"x"`
	Y          float64         `json:"y" yaml:"y"`
	Width      float64         `json:"width" yaml:"width"`
	Height     float64         `json:"height" yaml:"height"`
	Config     map[string]any  `json:"config" yaml:"config"`
	Connected  bool            `json:"connected" yaml:"connected"`
	LastSync   *time.Time      `json:"lastSync,omitempty" yaml:"lastSync,omitempty"`
}

// Connection is a directed edge between two item ids.
type Connection struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source"`
	Target       string `json:"target" yaml:"target"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
	Type         string `json:"type" yaml:"type"`
	Animated     bool   `json:"animated" yaml:"animated"`
}

// NewState returns an empty edit-mode document.
func NewState() State {
	return State{
		Mode:        ModeEdit,
		CanvasItems: []CanvasItem{},
		DataTables:  []DataTableItem{},
		Connections: []Connection{},
		Background:  "#f8fafc",
		Theme:       "light",
	}
}

// normalized fills empty fields with their NewState values so the JSON form
// always carries arrays and a mode.
func (s State) normalized() State {
	def := NewState()
	if s.Mode == "" {
		s.Mode = def.Mode
	}
	if s.Theme == "" {
		s.Theme = def.Theme
	}
	if s.CanvasItems == nil {
		s.CanvasItems = def.CanvasItems
	}
	if s.DataTables == nil {
		s.DataTables = def.DataTables
	}
	if s.Connections == nil {
		s.Connections = def.Connections
	}
	return s
}

// Clone copies the item slices. Maps inside items are shared.
func (s State) Clone() State {
	s.CanvasItems = slices.Clone(s.CanvasItems)
	s.DataTables = slices.Clone(s.DataTables)
	s.Connections = slices.Clone(s.Connections)
	return s
}

// hasItem reports whether id names a canvas item or a data table.
func (s State) hasItem(id string) bool {
	return slices.ContainsFunc(s.CanvasItems, func(c CanvasItem) bool { return c.ID == id }) ||
		slices.ContainsFunc(s.DataTables, func(d DataTableItem) bool { return d.ID == id })
}

// CanvasItem returns the canvas item with id.
func (s State) CanvasItem(id string) (CanvasItem, bool) {
	i := slices.IndexFunc(s.CanvasItems, func(c CanvasItem) bool { return c.ID == id })
	if i < 0 {
		return CanvasItem{}, false
	}
	return s.CanvasItems[i], true
}

// ItemsOfType returns the canvas items of type t in insertion order.
func (s State) ItemsOfType(t core.VizType) []CanvasItem {
	var out []CanvasItem
	for _, c := range s.CanvasItems {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// history is a bounded stack of snapshots; pushing beyond capacity drops the
// oldest entry.
type history struct {
	entries  []State
	capacity int
}

func (h *history) push(s State) {
	if h.capacity <= 0 {
		return
	}
	if len(h.entries) == h.capacity {
		h.entries = slices.Delete(h.entries, 0, 1)
	}
	h.entries = append(h.entries, s)
}

func (h *history) pop() (State, bool) {
	if len(h.entries) == 0 {
		return State{}, false
	}
	last := h.entries[len(h.entries)-1]
	h.entries = h.entries[:len(h.entries)-1]
	return last, true
}
