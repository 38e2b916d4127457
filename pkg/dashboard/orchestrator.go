package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapdash/pkg/core"
)

// DefaultHistoryCapacity is the undo depth used when none is configured.
const DefaultHistoryCapacity = 50

// CanvasCenter is the point CenterItems aligns the canvas bounding box to.
var CanvasCenter = struct{ X, Y float64 }{X: 800, Y: 450}

// ErrEndpointMissing is returned by ConnectNodes when either end of the
// connection does not name an existing item.
var ErrEndpointMissing = errors.New("connection endpoint not found")

// Orchestrator owns one dashboard State. It is not safe for concurrent use.
type Orchestrator struct {
	state         State
	history       history
	batchSnapshot bool
	logger        *slog.Logger
	newID         func() string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the orchestrator's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHistoryCapacity bounds the undo stack. Zero disables history.
func WithHistoryCapacity(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.history.capacity = n
		}
	}
}

// WithBatchSnapshot controls whether ExecuteBatch records a snapshot of its
// own before dispatching commands. Each dispatched command records one
// regardless. Enabled by default.
func WithBatchSnapshot(enabled bool) Option {
	return func(o *Orchestrator) { o.batchSnapshot = enabled }
}

// New creates an orchestrator holding an empty state.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		state:         NewState(),
		history:       history{capacity: DefaultHistoryCapacity},
		batchSnapshot: true,
		logger:        slog.New(slog.DiscardHandler),
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns a copy of the current state.
func (o *Orchestrator) State() State {
	return o.state.Clone()
}

// HistoryLen is the number of snapshots Undo can restore.
func (o *Orchestrator) HistoryLen() int {
	return len(o.history.entries)
}

func (o *Orchestrator) saveHistory() {
	o.history.push(o.state.Clone())
}

// Undo restores the most recent snapshot. It reports false when there is
// nothing to undo.
func (o *Orchestrator) Undo() bool {
	prev, ok := o.history.pop()
	if !ok {
		return false
	}
	o.state = prev
	o.logger.Debug("undo", "remaining", len(o.history.entries))
	return true
}

// SetState replaces the whole state.
func (o *Orchestrator) SetState(s State) {
	o.saveHistory()
	o.state = s.Clone()
}

// VizOptions customise AddVisualization. A nil Position places the item at a
// cascading default offset with the type's default size.
type VizOptions struct {
	Title    string
	Position *core.Position
	Data     map[string]any
	Style    map[string]any
}

type size struct{ w, h float64 }

var defaultSizes = map[core.VizType]size{
	core.VizKPICard:     {250, 150},
	core.VizDataTable:   {600, 400},
	core.VizText:        {300, 100},
	core.VizPieChart:    {400, 400},
	core.VizMapChart:    {600, 400},
	core.VizScatterPlot: {500, 400},
}

func defaultSize(t core.VizType) size {
	if s, ok := defaultSizes[t]; ok {
		return s
	}
	return size{500, 350}
}

var titleCaser = cases.Title(language.English)

// defaultTitle splits a camelCase type name into words: "barChart" -> "Bar Chart".
func defaultTitle(t core.VizType) string {
	var b strings.Builder
	for i, r := range string(t) {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return titleCaser.String(b.String())
}

// AddVisualization appends a canvas item of type t and returns its id.
func (o *Orchestrator) AddVisualization(t core.VizType, opts VizOptions) string {
	o.saveHistory()

	n := float64(len(o.state.CanvasItems))
	sz := defaultSize(t)
	pos := core.Position{X: 100 + 20*n, Y: 100 + 20*n, Width: sz.w, Height: sz.h}
	if opts.Position != nil {
		pos = *opts.Position
	}
	title := opts.Title
	if title == "" {
		title = defaultTitle(t)
	}
	z := 1
	for _, c := range o.state.CanvasItems {
		z = max(z, c.ZIndex+1)
	}

	item := CanvasItem{
		ID:     "viz-" + o.newID(),
		Type:   t,
		Title:  title,
		X:      pos.X,
		Y:      pos.Y,
		Width:  pos.Width,
		Height: pos.Height,
		Data:   orEmpty(opts.Data),
		Style:  orEmpty(opts.Style),
		ZIndex: z,
	}
	o.state.CanvasItems = append(o.state.CanvasItems, item)
	o.logger.Debug("visualization added", "id", item.ID, "type", t)
	return item.ID
}

// SourceOptions customise AddDataSource.
type SourceOptions struct {
	Name     string
	Position *core.Position
	Config   map[string]any
}

// AddDataSource appends a data table of the given source type and returns
// its id.
func (o *Orchestrator) AddDataSource(st core.SourceType, opts SourceOptions) string {
	o.saveHistory()

	n := float64(len(o.state.DataTables))
	pos := core.Position{X: 50, Y: 100 + 180*n, Width: 250, Height: 150}
	if opts.Position != nil {
		pos = *opts.Position
	}
	name := opts.Name
	if name == "" {
		name = defaultTitle(core.VizType(st)) + " Data"
	}

	item := DataTableItem{
		ID:         "datasource-" + o.newID(),
		Type:       DataSourceItemType,
		SourceType: st,
		Name:       name,
		X:          pos.X,
		Y:          pos.Y,
		Width:      pos.Width,
		Height:     pos.Height,
		Config:     orEmpty(opts.Config),
	}
	o.state.DataTables = append(o.state.DataTables, item)
	o.logger.Debug("data source added", "id", item.ID, "source_type", st)
	return item.ID
}

// ConnectOptions customise ConnectNodes. An empty Type means "default".
type ConnectOptions struct {
	SourceHandle string
	TargetHandle string
	Type         string
	Animated     bool
}

// ConnectNodes adds a directed connection between two existing items and
// returns its id. Endpoints are checked only now; removing an item later
// removes its connections.
func (o *Orchestrator) ConnectNodes(source, target string, opts ConnectOptions) (string, error) {
	for _, id := range []string{source, target} {
		if !o.state.hasItem(id) {
			return "", fmt.Errorf("connect %s -> %s: %w: %s", source, target, ErrEndpointMissing, id)
		}
	}
	o.saveHistory()

	typ := opts.Type
	if typ == "" {
		typ = "default"
	}
	conn := Connection{
		ID:           "conn-" + o.newID(),
		Source:       source,
		Target:       target,
		SourceHandle: opts.SourceHandle,
		TargetHandle: opts.TargetHandle,
		Type:         typ,
		Animated:     opts.Animated,
	}
	o.state.Connections = append(o.state.Connections, conn)
	return conn.ID, nil
}

// Update is a partial item update. Nil fields are left untouched. Title and
// Style apply to canvas items, Name, Config and Connected to data tables; the
// geometry fields apply to both.
type Update struct {
	Title     *string        `mapstructure:"title"`
	X         *float64       `mapstructure:"x"`
	Y         *float64       `mapstructure:"y"`
	Width     *float64       `mapstructure:"width"`
	Height    *float64       `mapstructure:"height"`
	ZIndex    *int           `mapstructure:"zIndex"`
	Data      map[string]any `mapstructure:"data"`
	Style     map[string]any `mapstructure:"style"`
	Name      *string        `mapstructure:"name"`
	Config    map[string]any `mapstructure:"config"`
	Connected *bool          `mapstructure:"connected"`
}

func (u Update) geometry(x, y, w, h *float64) {
	setIf(x, u.X)
	setIf(y, u.Y)
	setIf(w, u.Width)
	setIf(h, u.Height)
}

// UpdateItem applies u to the canvas item or data table named id, looking in
// canvas items first. It reports false when neither list holds id.
func (o *Orchestrator) UpdateItem(id string, u Update) bool {
	o.saveHistory()

	if i := slices.IndexFunc(o.state.CanvasItems, func(c CanvasItem) bool { return c.ID == id }); i >= 0 {
		c := &o.state.CanvasItems[i]
		u.geometry(&c.X, &c.Y, &c.Width, &c.Height)
		setIf(&c.Title, u.Title)
		setIf(&c.ZIndex, u.ZIndex)
		if u.Data != nil {
			c.Data = u.Data
		}
		if u.Style != nil {
			c.Style = u.Style
		}
		return true
	}
	if i := slices.IndexFunc(o.state.DataTables, func(d DataTableItem) bool { return d.ID == id }); i >= 0 {
		d := &o.state.DataTables[i]
		u.geometry(&d.X, &d.Y, &d.Width, &d.Height)
		setIf(&d.Name, u.Name)
		setIf(&d.Connected, u.Connected)
		if u.Config != nil {
			d.Config = u.Config
		}
		return true
	}
	o.logger.Debug("update of unknown item", "id", id)
	return false
}

// RemoveItem deletes id from canvas items and data tables along with every
// connection that references it. Unknown ids are a no-op.
func (o *Orchestrator) RemoveItem(id string) {
	o.saveHistory()

	s := &o.state
	s.CanvasItems = slices.DeleteFunc(s.CanvasItems, func(c CanvasItem) bool { return c.ID == id })
	s.DataTables = slices.DeleteFunc(s.DataTables, func(d DataTableItem) bool { return d.ID == id })
	s.Connections = slices.DeleteFunc(s.Connections, func(c Connection) bool {
		return c.Source == id || c.Target == id
	})
}

// ArrangeGrid repositions canvas items row-major in insertion order. Every
// cell is as large as the largest item; sizes are kept.
func (o *Orchestrator) ArrangeGrid(columns int, gap float64) {
	o.saveHistory()

	if columns <= 0 {
		columns = 3
	}
	var cellW, cellH float64
	for _, c := range o.state.CanvasItems {
		cellW = max(cellW, c.Width)
		cellH = max(cellH, c.Height)
	}
	for i := range o.state.CanvasItems {
		c := &o.state.CanvasItems[i]
		c.X = gap + float64(i%columns)*(cellW+gap)
		c.Y = gap + float64(i/columns)*(cellH+gap)
	}
}

// CenterItems translates every canvas item so the center of their bounding
// box lands on CanvasCenter.
func (o *Orchestrator) CenterItems() {
	o.saveHistory()

	items := o.state.CanvasItems
	if len(items) == 0 {
		return
	}
	minX, minY := items[0].X, items[0].Y
	maxX, maxY := items[0].X+items[0].Width, items[0].Y+items[0].Height
	for _, c := range items[1:] {
		minX = min(minX, c.X)
		minY = min(minY, c.Y)
		maxX = max(maxX, c.X+c.Width)
		maxY = max(maxY, c.Y+c.Height)
	}
	dx := CanvasCenter.X - (minX+maxX)/2
	dy := CanvasCenter.Y - (minY+maxY)/2
	for i := range items {
		items[i].X += dx
		items[i].Y += dy
	}
}

// SetTheme sets the theme name.
func (o *Orchestrator) SetTheme(theme string) {
	o.saveHistory()
	o.state.Theme = theme
}

// Clear removes every item and connection, keeping mode, background and theme.
func (o *Orchestrator) Clear() {
	o.saveHistory()
	o.state.CanvasItems = []CanvasItem{}
	o.state.DataTables = []DataTableItem{}
	o.state.Connections = []Connection{}
}

// ExportState serialises the current state as JSON.
func (o *Orchestrator) ExportState() ([]byte, error) {
	data, err := json.MarshalIndent(o.state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export state: %w", err)
	}
	return data, nil
}

// ImportState replaces the state with the JSON object in data. Fields the
// document omits or sets to null keep their NewState defaults. Malformed input,
// including a document that is not an object, returns false and leaves both
// state and history untouched.
func (o *Orchestrator) ImportState(data []byte) bool {
	base := NewState()
	s := &base
	if err := json.Unmarshal(data, &s); err != nil {
		o.logger.Warn("import state failed", "error", err)
		return false
	}
	if s == nil {
		o.logger.Warn("import state failed", "error", "document is null")
		return false
	}
	o.saveHistory()
	o.state = s.normalized()
	return true
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
