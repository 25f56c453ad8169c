package style

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var openTag = regexp.MustCompile(`\[([a-z_]+)\]`)

// MarkupParser expands [tag]text[/tag] markup into styled text.
type MarkupParser struct {
	styles map[string]lipgloss.Style
}

// Markup returns a parser for s.
func (s *Styles) Markup() *MarkupParser {
	bold := s.renderer.NewStyle().Bold(true)
	return &MarkupParser{
		styles: map[string]lipgloss.Style{
			"title":    s.Title,
			"subtitle": s.Subtitle,
			"success":  s.Success,
			"error":    s.Error,
			"warning":  s.Warning,
			"info":     s.Info,
			"code":     s.Code,
			"path":     s.Path,
			"muted":    s.Muted,
			"label":    s.Label,
			"lineage":  s.Lineage,
			"bold":     bold,
			"high":     s.SeverityHigh,
			"medium":   s.SeverityMedium,
			"low":      s.SeverityLow,
		},
	}
}

// AddStyle registers a custom tag.
func (p *MarkupParser) AddStyle(tag string, style lipgloss.Style) {
	p.styles[tag] = style
}

// Render expands tags, nested ones included. Unknown or unclosed tags are
// kept as written.
func (p *MarkupParser) Render(text string) string {
	return p.expand(text, true)
}

// Strip removes known tags without styling.
func (p *MarkupParser) Strip(text string) string {
	return p.expand(text, false)
}

func (p *MarkupParser) expand(text string, apply bool) string {
	var b strings.Builder
	for {
		loc := openTag.FindStringSubmatchIndex(text)
		if loc == nil {
			b.WriteString(text)
			return b.String()
		}
		name := text[loc[2]:loc[3]]
		rest := text[loc[1]:]
		st, known := p.styles[name]
		end := closingIndex(rest, name)
		if !known || end < 0 {
			b.WriteString(text[:loc[1]])
			text = rest
			continue
		}

		b.WriteString(text[:loc[0]])
		inner := p.expand(rest[:end], apply)
		if apply {
			inner = st.Render(inner)
		}
		b.WriteString(inner)
		text = rest[end+len("[/"+name+"]"):]
	}
}

// closingIndex finds the close tag matching an already opened name in s.
func closingIndex(s, name string) int {
	open, closing := "["+name+"]", "[/"+name+"]"
	depth := 0
	for i := 0; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], open):
			depth++
		case strings.HasPrefix(s[i:], closing):
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}
