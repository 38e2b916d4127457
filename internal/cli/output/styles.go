package output

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent  = lipgloss.Color("#6366F1")
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#94A3B8")
)

// Styles are the lipgloss styles used in text mode.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Bold    lipgloss.Style
	Key     lipgloss.Style
	ID      lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Box     lipgloss.Style
}

// NewStyles returns colored styles, or unstyled ones when color is false.
func NewStyles(color bool) *Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return &Styles{
			Title: plain, Header: plain, Bold: plain, Key: plain, ID: plain,
			Muted: plain, Success: plain, Warning: plain, Error: plain, Info: plain,
			Box: plain,
		}
	}
	return &Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Header:  lipgloss.NewStyle().Bold(true).Underline(true),
		Bold:    lipgloss.NewStyle().Bold(true),
		Key:     lipgloss.NewStyle().Foreground(colorMuted).Width(18),
		ID:      lipgloss.NewStyle().Foreground(colorInfo),
		Muted:   lipgloss.NewStyle().Foreground(colorMuted),
		Success: lipgloss.NewStyle().Foreground(colorSuccess),
		Warning: lipgloss.NewStyle().Foreground(colorWarning),
		Error:   lipgloss.NewStyle().Foreground(colorError),
		Info:    lipgloss.NewStyle().Foreground(colorInfo),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1),
	}
}
