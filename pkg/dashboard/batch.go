package dashboard

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/leapstack-labs/leapdash/pkg/core"
)

// ErrUnknownCommand is returned by DecodeCommand for action names it does not
// recognise.
var ErrUnknownCommand = errors.New("unknown command")

// Batch action names as they appear on the wire.
const (
	ActionAddVisualization = "addVisualization"
	ActionAddDataSource    = "addDataSource"
	ActionConnectNodes     = "connectNodes"
	ActionUpdateItem       = "updateItem"
	ActionRemoveItem       = "removeItem"
	ActionArrangeGrid      = "arrangeGrid"
	ActionSetTheme         = "setTheme"
)

// Command is one batch operation. The set of implementations is closed.
type Command interface {
	Action() string
	apply(o *Orchestrator) (any, error)
}

// AddVisualizationCommand adds a canvas item. Geometry fields left nil fall
// back to the orchestrator's defaults; a position needs all four.
type AddVisualizationCommand struct {
	Type   core.VizType   `mapstructure:"type"`
	Title  string         `mapstructure:"title"`
	X      *float64       `mapstructure:"x"`
	Y      *float64       `mapstructure:"y"`
	Width  *float64       `mapstructure:"width"`
	Height *float64       `mapstructure:"height"`
	Data   map[string]any `mapstructure:"data"`
	Style  map[string]any `mapstructure:"style"`
}

// AddDataSourceCommand adds a data table.
type AddDataSourceCommand struct {
	SourceType core.SourceType `mapstructure:"sourceType"`
	Name       string          `mapstructure:"name"`
	X          *float64        `mapstructure:"x"`
	Y          *float64        `mapstructure:"y"`
	Width      *float64        `mapstructure:"width"`
	Height     *float64        `mapstructure:"height"`
	Config     map[string]any  `mapstructure:"config"`
}

// ConnectCommand connects two items.
type ConnectCommand struct {
	Source       string `mapstructure:"source"`
	Target       string `mapstructure:"target"`
	SourceHandle string `mapstructure:"sourceHandle"`
	TargetHandle string `mapstructure:"targetHandle"`
	Type         string `mapstructure:"type"`
	Animated     bool   `mapstructure:"animated"`
}

// UpdateCommand applies a partial update to one item.
type UpdateCommand struct {
	ID      string `mapstructure:"id"`
	Updates Update `mapstructure:"updates"`
}

// RemoveCommand removes one item and its connections.
type RemoveCommand struct {
	ID string `mapstructure:"id"`
}

// ArrangeGridCommand runs ArrangeGrid.
type ArrangeGridCommand struct {
	Columns int     `mapstructure:"columns"`
	Gap     float64 `mapstructure:"gap"`
}

// SetThemeCommand sets the theme.
type SetThemeCommand struct {
	Theme string `mapstructure:"theme"`
}

func (AddVisualizationCommand) Action() string { return ActionAddVisualization }
func (AddDataSourceCommand) Action() string    { return ActionAddDataSource }
func (ConnectCommand) Action() string          { return ActionConnectNodes }
func (UpdateCommand) Action() string           { return ActionUpdateItem }
func (RemoveCommand) Action() string           { return ActionRemoveItem }
func (ArrangeGridCommand) Action() string      { return ActionArrangeGrid }
func (SetThemeCommand) Action() string         { return ActionSetTheme }

func position(x, y, w, h *float64) *core.Position {
	if x == nil || y == nil || w == nil || h == nil {
		return nil
	}
	return &core.Position{X: *x, Y: *y, Width: *w, Height: *h}
}

func (c AddVisualizationCommand) apply(o *Orchestrator) (any, error) {
	if c.Type == "" {
		return nil, errors.New("addVisualization: type is required")
	}
	return o.AddVisualization(c.Type, VizOptions{
		Title:    c.Title,
		Position: position(c.X, c.Y, c.Width, c.Height),
		Data:     c.Data,
		Style:    c.Style,
	}), nil
}

func (c AddDataSourceCommand) apply(o *Orchestrator) (any, error) {
	if c.SourceType == "" {
		return nil, errors.New("addDataSource: sourceType is required")
	}
	return o.AddDataSource(c.SourceType, SourceOptions{
		Name:     c.Name,
		Position: position(c.X, c.Y, c.Width, c.Height),
		Config:   c.Config,
	}), nil
}

func (c ConnectCommand) apply(o *Orchestrator) (any, error) {
	return o.ConnectNodes(c.Source, c.Target, ConnectOptions{
		SourceHandle: c.SourceHandle,
		TargetHandle: c.TargetHandle,
		Type:         c.Type,
		Animated:     c.Animated,
	})
}

func (c UpdateCommand) apply(o *Orchestrator) (any, error) {
	return o.UpdateItem(c.ID, c.Updates), nil
}

func (c RemoveCommand) apply(o *Orchestrator) (any, error) {
	o.RemoveItem(c.ID)
	return true, nil
}

func (c ArrangeGridCommand) apply(o *Orchestrator) (any, error) {
	o.ArrangeGrid(c.Columns, c.Gap)
	return true, nil
}

func (c SetThemeCommand) apply(o *Orchestrator) (any, error) {
	o.SetTheme(c.Theme)
	return true, nil
}

// RawCommand is the loosely typed wire form of a batch entry.
type RawCommand struct {
	Action string         `json:"action" yaml:"action"`
	Params map[string]any `json:"params" yaml:"params"`
}

// DecodeCommand builds a typed command from an action name and its
// parameters. Numeric strings and JSON float64 values are coerced to the
// field types; unknown parameter names are rejected.
func DecodeCommand(action string, params map[string]any) (Command, error) {
	var cmd Command
	switch action {
	case ActionAddVisualization:
		cmd = &AddVisualizationCommand{}
	case ActionAddDataSource:
		cmd = &AddDataSourceCommand{}
	case ActionConnectNodes:
		cmd = &ConnectCommand{}
	case ActionUpdateItem:
		cmd = &UpdateCommand{}
	case ActionRemoveItem:
		cmd = &RemoveCommand{}
	case ActionArrangeGrid:
		cmd = &ArrangeGridCommand{}
	case ActionSetTheme:
		cmd = &SetThemeCommand{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, action)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cmd,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", action, err)
	}
	if err := dec.Decode(params); err != nil {
		return nil, fmt.Errorf("decode %s: %w", action, err)
	}
	return cmd, nil
}

// Result is the outcome of one batch command.
type Result struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ExecuteBatch runs commands in order. A failing command yields an error
// result and does not stop the batch.
func (o *Orchestrator) ExecuteBatch(cmds []Command) []Result {
	if o.batchSnapshot {
		o.saveHistory()
	}
	results := make([]Result, len(cmds))
	for i, cmd := range cmds {
		results[i] = o.run(cmd)
	}
	return results
}

// ExecuteRaw decodes and runs wire-form commands. Entries that fail to decode,
// including unknown actions, become error results in place.
func (o *Orchestrator) ExecuteRaw(raw []RawCommand) []Result {
	if o.batchSnapshot {
		o.saveHistory()
	}
	results := make([]Result, len(raw))
	for i, rc := range raw {
		cmd, err := DecodeCommand(rc.Action, rc.Params)
		if err != nil {
			o.logger.Warn("batch command rejected", "index", i, "action", rc.Action, "error", err)
			results[i] = Result{Error: err.Error()}
			continue
		}
		results[i] = o.run(cmd)
	}
	return results
}

func (o *Orchestrator) run(cmd Command) Result {
	out, err := cmd.apply(o)
	if err != nil {
		o.logger.Warn("batch command failed", "action", cmd.Action(), "error", err)
		return Result{Error: err.Error()}
	}
	return Result{Success: true, Result: out}
}
