package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Theme holds the color scheme for CLI output.
type Theme struct {
	Name    lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color

	// color is false when output is not a terminal
	color bool
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Name:    lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

// themeFor enables color only when w is a terminal.
func themeFor(w io.Writer) Theme {
	t := defaultTheme
	if f, ok := w.(*os.File); ok {
		t.color = term.IsTerminal(int(f.Fd()))
	}
	return t
}

func (t Theme) render(style lipgloss.Style, s string) string {
	if !t.color {
		return s
	}
	return style.Render(s)
}

func (t Theme) name(s string) string {
	return t.render(lipgloss.NewStyle().Foreground(t.Name).Bold(true), s)
}

func (t Theme) success(s string) string {
	return t.render(lipgloss.NewStyle().Foreground(t.Success), s)
}

func (t Theme) failure(s string) string {
	return t.render(lipgloss.NewStyle().Foreground(t.Error).Bold(true), s)
}

func (t Theme) hint(s string) string {
	return t.render(lipgloss.NewStyle().Foreground(t.Hint).Italic(true), s)
}
