package output

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/limistah/heimdal/pkg/state"
)

const timeLayout = "2006-01-02 15:04:05 MST"

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"when":     when,
		"severity": severity,
		"mark":     driftMark,
		"compat":   compat,
		"pad":      func(n int, v interface{}) string { return fmt.Sprintf("%-*s", n, fmt.Sprint(v)) },
		"join":     strings.Join,
		"plural":   plural,
	}
}

// when formats a time or *time.Time in UTC; nil and zero read "never".
func when(v interface{}) string {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format(timeLayout)
	case *time.Time:
		if t == nil {
			return "never"
		}
		return when(*t)
	default:
		return fmt.Sprint(v)
	}
}

// severity wraps a severity name in its markup tag, padded for columns.
func severity(v interface{}) string {
	name := fmt.Sprint(v)
	switch name {
	case "high", "medium", "low":
		return fmt.Sprintf("[%s]%-6s[/%s]", name, name, name)
	}
	return fmt.Sprintf("%-6s", name)
}

func driftMark(kind state.DriftKind) string {
	switch kind {
	case state.DriftNone:
		return "[success]✓[/success]"
	case state.DriftMissing:
		return "[error]✗[/error]"
	default:
		return "[warning]![/warning]"
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	if strings.HasSuffix(word, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(word, "y"))
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func compat(c state.Compatibility) string {
	switch c.Level {
	case state.CompatExact, state.CompatCompatible:
		return "[success]" + string(c.Level) + "[/success]"
	case state.CompatUpgradeRecommended:
		return "[warning]" + string(c.Level) + "[/warning]"
	default:
		return "[error]" + string(c.Level) + "[/error]"
	}
}
