package output

import (
	"strings"

	"github.com/limistah/heimdal/pkg/errors"
)

// Format selects how results are written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// Formats lists the accepted --output values.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatTOML}
}

// ParseFormat validates an --output value. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	}
	return "", errors.Newf(errors.ErrInvalidInput, "unknown output format %q (want text, json, yaml or toml)", s).
		WithDetail("flag", "output")
}

// Structured reports whether f encodes data instead of rendering text.
func (f Format) Structured() bool {
	return f != FormatText
}
