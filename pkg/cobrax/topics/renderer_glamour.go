package topics

import (
	"github.com/charmbracelet/glamour"
)

// GlamourRenderer uses the glamour library for markdown topics.
type GlamourRenderer struct {
	// Style is "auto", "notty", a glamour standard style name or a path to
	// a JSON style file.
	Style string
	// Width wraps output; 0 keeps glamour's default.
	Width int
}

// NewGlamourRenderer creates a markdown renderer that detects the terminal
// background. With noColor set it renders plain "notty" output.
func NewGlamourRenderer(noColor bool) *GlamourRenderer {
	r := &GlamourRenderer{Style: "auto", Width: 80}
	if noColor {
		r.Style = "notty"
	}
	return r
}

// Render converts markdown to terminal output. Other formats and render
// failures return the content unchanged.
func (r *GlamourRenderer) Render(content string, format string) string {
	if format != ".md" {
		return content
	}

	var options []glamour.TermRendererOption
	switch r.Style {
	case "", "auto":
		options = append(options, glamour.WithAutoStyle())
	case "notty", "dark", "light", "dracula", "pink", "ascii", "tokyo-night":
		options = append(options, glamour.WithStandardStyle(r.Style))
	default:
		options = append(options, glamour.WithStylePath(r.Style))
	}
	if r.Width > 0 {
		options = append(options, glamour.WithWordWrap(r.Width))
	}

	renderer, err := glamour.NewTermRenderer(options...)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
