package style

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles is the set of styles bound to one output. Colors are resolved
// against the renderer, so a pipe or NO_COLOR gets plain text.
type Styles struct {
	renderer *lipgloss.Renderer

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Normal   lipgloss.Style
	Muted    lipgloss.Style
	Label    lipgloss.Style

	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style

	Box     lipgloss.Style
	Code    lipgloss.Style
	Path    lipgloss.Style
	Lineage lipgloss.Style

	SeverityHigh   lipgloss.Style
	SeverityMedium lipgloss.Style
	SeverityLow    lipgloss.Style
}

// NoColorRequested reports whether the environment asks for plain output.
func NoColorRequested() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// ForWriter builds styles for w. noColor, NO_COLOR or a writer that is not
// a terminal disable all styling.
func ForWriter(w io.Writer, noColor bool) *Styles {
	r := lipgloss.NewRenderer(w)
	if noColor || NoColorRequested() {
		r.SetColorProfile(termenv.Ascii)
	}
	return New(r)
}

// New builds styles on r.
func New(r *lipgloss.Renderer) *Styles {
	s := &Styles{renderer: r}

	s.Title = r.NewStyle().Foreground(HeadingColor).Bold(true)
	s.Subtitle = r.NewStyle().Foreground(HeadingColor).Bold(true)
	s.Normal = r.NewStyle().Foreground(TextColor)
	s.Muted = r.NewStyle().Foreground(MutedColor)
	s.Label = r.NewStyle().Foreground(SecondaryColor)

	s.Success = r.NewStyle().Foreground(SuccessColor).Bold(true)
	s.Error = r.NewStyle().Foreground(ErrorColor).Bold(true)
	s.Warning = r.NewStyle().Foreground(WarningColor).Bold(true)
	s.Info = r.NewStyle().Foreground(InfoColor)

	s.Box = r.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(BorderColor).Padding(0, 1)
	s.Code = r.NewStyle().Foreground(PrimaryColor)
	s.Path = r.NewStyle().Foreground(SecondaryColor).Italic(true)
	s.Lineage = r.NewStyle().Foreground(LineageColor)

	s.SeverityHigh = r.NewStyle().Foreground(SeverityHighColor).Bold(true)
	s.SeverityMedium = r.NewStyle().Foreground(SeverityMediumColor).Bold(true)
	s.SeverityLow = r.NewStyle().Foreground(SeverityLowColor)
	return s
}

// Plain reports whether styling is off.
func (s *Styles) Plain() bool {
	return s.renderer.ColorProfile() == termenv.Ascii
}

// Severity picks the style for a conflict severity name.
func (s *Styles) Severity(name string) lipgloss.Style {
	switch name {
	case "high":
		return s.SeverityHigh
	case "medium":
		return s.SeverityMedium
	case "low":
		return s.SeverityLow
	default:
		return s.Muted
	}
}

// Operation indicators
const (
	SuccessMark = "✓"
	ErrorMark   = "✗"
	WarningMark = "!"
	InfoMark    = "•"
	PendingMark = "○"
)

// Indent pads s by two spaces per level.
func Indent(s string, level int) string {
	return lipgloss.NewStyle().PaddingLeft(level * 2).Render(s)
}
