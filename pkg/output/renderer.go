package output

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/limistah/heimdal/pkg/conflict"
	"github.com/limistah/heimdal/pkg/errors"
	"github.com/limistah/heimdal/pkg/logging"
	"github.com/limistah/heimdal/pkg/style"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Renderer writes command results in one Format.
//
// For text it follows a two-phase approach:
//  1. Template expansion: templates/<name>.tmpl processes the result
//  2. Style application: markup tags become lipgloss styles, or are
//     stripped when colors are off
type Renderer struct {
	templates *template.Template
	writer    io.Writer
	format    Format
	styles    *style.Styles
	markup    *style.MarkupParser
}

// NewRenderer creates a renderer for w. Colors are disabled by noColor, by
// NO_COLOR, or when w is not a terminal.
func NewRenderer(w io.Writer, format Format, noColor bool) (*Renderer, error) {
	logging.GetLogger("output.Renderer").Debug().
		Str("format", string(format)).
		Bool("noColor", noColor).
		Msg("Creating renderer")
	return newRenderer(w, format, style.ForWriter(w, noColor))
}

func newRenderer(w io.Writer, format Format, s *style.Styles) (*Renderer, error) {
	if format == "" {
		format = FormatText
	}
	tmpl, err := template.New("output").Funcs(templateFuncs()).ParseFS(templatesFS, "templates/*.tmpl")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to parse templates")
	}
	return &Renderer{
		templates: tmpl,
		writer:    w,
		format:    format,
		styles:    s,
		markup:    s.Markup(),
	}, nil
}

// Format returns the renderer's output format.
func (r *Renderer) Format() Format { return r.format }

// Styles exposes the styles bound to the writer.
func (r *Renderer) Styles() *style.Styles { return r.styles }

// Render writes data using the template called name, or encodes data for
// the structured formats.
func (r *Renderer) Render(name string, data interface{}) error {
	if r.format.Structured() {
		return r.encode(data)
	}

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name+".tmpl", data); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to execute template %s", name)
	}
	return r.write(buf.String())
}

// RenderMessage writes one line wrapped in a markup tag.
func (r *Renderer) RenderMessage(tag, message string) error {
	if r.format.Structured() {
		return r.encode(map[string]string{"message": message})
	}
	return r.write(fmt.Sprintf("[%s]%s[/%s]", tag, message, tag))
}

// RenderError writes err for the user. Unresolved conflicts are listed with
// the resolve hint; other errors print their message and, in structured
// formats, their code, details and exit status.
func (r *Renderer) RenderError(err error) error {
	if err == nil {
		return nil
	}
	if r.format.Structured() {
		return r.encode(map[string]interface{}{"error": errorView(err)})
	}

	if report, ok := conflict.ReportFrom(err); ok {
		var buf bytes.Buffer
		if execErr := r.templates.ExecuteTemplate(&buf, "conflict-error.tmpl", report); execErr != nil {
			return errors.Wrap(execErr, errors.ErrInternal, "failed to execute template conflict-error")
		}
		return r.write(buf.String())
	}
	return r.write("[error]Error:[/error] " + message(err))
}

func (r *Renderer) write(text string) error {
	var out string
	if r.styles.Plain() {
		out = r.markup.Strip(text)
	} else {
		out = r.markup.Render(text)
	}
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return nil
	}
	_, err := fmt.Fprintln(r.writer, out)
	return err
}

func (r *Renderer) encode(data interface{}) error {
	switch r.format {
	case FormatJSON:
		enc := json.NewEncoder(r.writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(r.writer)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to encode yaml")
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(r.writer).Encode(data); err != nil {
			return errors.Wrap(err, errors.ErrInternal, "failed to encode toml")
		}
		return nil
	}
	return errors.Newf(errors.ErrInvalidInput, "unknown output format %q", r.format)
}

// ErrorView is the structured form of an error.
type ErrorView struct {
	Code     string                 `json:"code" yaml:"code" toml:"code"`
	Message  string                 `json:"message" yaml:"message" toml:"message"`
	Details  map[string]interface{} `json:"details,omitempty" yaml:"details,omitempty" toml:"details,omitempty"`
	ExitCode int                    `json:"exit_code" yaml:"exit_code" toml:"exit_code"`
}

func errorView(err error) ErrorView {
	details := errors.GetErrorDetails(err)
	if len(details) == 0 {
		details = nil
	}
	return ErrorView{
		Code:     string(errors.GetErrorCode(err)),
		Message:  message(err),
		Details:  details,
		ExitCode: errors.ExitCode(err),
	}
}

// message drops the "[CODE]" prefix HeimdalError puts on Error().
func message(err error) string {
	msg := err.Error()
	if strings.HasPrefix(msg, "[") {
		if i := strings.Index(msg, "] "); i > 0 {
			return msg[i+2:]
		}
	}
	return msg
}
