package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/qyinm/yentui/settings"
)

// palette is one color scheme. Dark uses the 16-color ANSI Dracula mapping.
type palette struct {
	Foreground lipgloss.Color
	Purple     lipgloss.Color
	Pink       lipgloss.Color
	Cyan       lipgloss.Color
	Green      lipgloss.Color
	Comment    lipgloss.Color
	Orange     lipgloss.Color
	Red        lipgloss.Color
	Yellow     lipgloss.Color
}

var (
	draculaPalette = palette{
		Foreground: "255",
		Purple:     "5",
		Pink:       "13",
		Cyan:       "14",
		Green:      "10",
		Comment:    "7",
		Orange:     "3",
		Red:        "1",
		Yellow:     "11",
	}
	lightPalette = palette{
		Foreground: "0",
		Purple:     "5",
		Pink:       "125",
		Cyan:       "24",
		Green:      "28",
		Comment:    "244",
		Orange:     "130",
		Red:        "160",
		Yellow:     "136",
	}
)

// Styles holds every lipgloss style the views use for one theme.
type Styles struct {
	p palette

	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style
	Title       lipgloss.Style
	Subtle      lipgloss.Style
	Body        lipgloss.Style
	Accent      lipgloss.Style
	Error       lipgloss.Style
	Warning     lipgloss.Style
	Success     lipgloss.Style
	StatusBar   lipgloss.Style
	HelpKey     lipgloss.Style
	HelpDesc    lipgloss.Style
	Selected    lipgloss.Style

	Card       lipgloss.Style
	Panel      lipgloss.Style
	Modal      lipgloss.Style
	Bubble     lipgloss.Style
	UserMsg    lipgloss.Style
	BotMsg     lipgloss.Style
	Button     lipgloss.Style
	ImpactOn   lipgloss.Style
	ImpactOff  lipgloss.Style
	PriceUp    lipgloss.Style
	PriceDown  lipgloss.Style
	GoodLabel  lipgloss.Style
	BadLabel   lipgloss.Style
	NoteLabel  lipgloss.Style
	InputLabel lipgloss.Style
}

// NewStyles builds the styles for theme.
func NewStyles(theme settings.Theme) Styles {
	p := draculaPalette
	if theme == settings.ThemeLight {
		p = lightPalette
	}

	return Styles{
		p: p,

		ActiveTab: lipgloss.NewStyle().
			Foreground(p.Pink).
			Bold(true).
			Padding(0, 1),
		InactiveTab: lipgloss.NewStyle().
			Foreground(p.Comment).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Foreground(p.Pink).
			Bold(true).
			Padding(0, 1),
		Subtle:  lipgloss.NewStyle().Foreground(p.Comment),
		Body:    lipgloss.NewStyle().Foreground(p.Foreground),
		Accent:  lipgloss.NewStyle().Foreground(p.Cyan),
		Error:   lipgloss.NewStyle().Foreground(p.Red),
		Warning: lipgloss.NewStyle().Foreground(p.Orange),
		Success: lipgloss.NewStyle().Foreground(p.Green),

		StatusBar: lipgloss.NewStyle().Foreground(p.Comment),
		HelpKey: lipgloss.NewStyle().
			Foreground(p.Pink).
			Bold(true),
		HelpDesc: lipgloss.NewStyle().Foreground(p.Foreground),
		Selected: lipgloss.NewStyle().
			BorderLeft(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(p.Pink).
			PaddingLeft(1),

		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Comment).
			Padding(0, 1),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(p.Purple).
			PaddingLeft(1),
		Modal: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(p.Pink).
			Padding(0, 2),
		Bubble: lipgloss.NewStyle().
			Foreground(p.Purple).
			Bold(true),
		UserMsg: lipgloss.NewStyle().
			Foreground(p.Cyan).
			Bold(true),
		BotMsg: lipgloss.NewStyle().Foreground(p.Green),
		Button: lipgloss.NewStyle().
			Foreground(p.Purple).
			Bold(true),
		ImpactOn:   lipgloss.NewStyle().Foreground(p.Red),
		ImpactOff:  lipgloss.NewStyle().Foreground(p.Comment),
		PriceUp:    lipgloss.NewStyle().Foreground(p.Green),
		PriceDown:  lipgloss.NewStyle().Foreground(p.Red),
		GoodLabel:  lipgloss.NewStyle().Foreground(p.Green).Bold(true),
		BadLabel:   lipgloss.NewStyle().Foreground(p.Red).Bold(true),
		NoteLabel:  lipgloss.NewStyle().Foreground(p.Comment).Bold(true),
		InputLabel: lipgloss.NewStyle().Foreground(p.Yellow),
	}
}
