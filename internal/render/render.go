// Package render expands command and file templates with host data.
//
// Templates use text/template syntax over a context holding the host as it
// appears in the report, so {{ .host.id }} and {{ .host.vars.msg }} are
// available. Referencing a variable the host does not define is an error.
package render

import (
	"bytes"
	"encoding/json"
	"text/template"

	"github.com/eniac111/fleetctl/internal/types"
)

// Template is a parsed template, safe for concurrent use.
type Template struct {
	tmpl *template.Template
}

// Parse parses text as a template called name.
func Parse(name, text string) (*Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, types.Wrapf(types.ErrOther, err, "parse template %s", name)
	}
	return &Template{tmpl: tmpl}, nil
}

// Render executes the template for host.
func (t *Template) Render(host types.Host) (string, error) {
	ctx, err := Context(host)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, ctx); err != nil {
		return "", types.Wrapf(types.ErrOther, err, "render template %s for %s", t.tmpl.Name(), host.ID)
	}
	return buf.String(), nil
}

// String parses and renders text in one step.
func String(name, text string, host types.Host) (string, error) {
	t, err := Parse(name, text)
	if err != nil {
		return "", err
	}
	return t.Render(host)
}

// Context returns the template data for host: {"host": {id, address, user,
// tags, vars}}.
func Context(host types.Host) (map[string]any, error) {
	raw, err := json.Marshal(host)
	if err != nil {
		return nil, types.Wrapf(types.ErrOther, err, "encode host %s", host.ID)
	}
	var h map[string]any
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, types.Wrapf(types.ErrOther, err, "decode host %s", host.ID)
	}
	return map[string]any{"host": h}, nil
}
