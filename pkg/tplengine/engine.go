package tplengine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"
)

// EngineFormat represents the format of the template engine output
type EngineFormat string

const (
	FormatYAML EngineFormat = "yaml"
	FormatJSON EngineFormat = "json"
	FormatXML  EngineFormat = "xml"
	FormatText EngineFormat = "text"
)

// FormatFromName guesses the output format from a file name, ignoring a trailing .tmpl.
func FormatFromName(name string) EngineFormat {
	name = strings.TrimSuffix(name, ".tmpl")
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	case ".xml":
		return FormatXML
	default:
		return FormatText
	}
}

// TemplateEngine renders text/template sources with the sprig function set plus
// escapers for the file types found in generated projects.
type TemplateEngine struct {
	templates map[string]*template.Template
	format    EngineFormat
}

// ProcessResult contains the result of processing a template
type ProcessResult struct {
	Text string
	YAML any
	JSON any
}

func NewEngine(format EngineFormat) *TemplateEngine {
	return &TemplateEngine{
		templates: make(map[string]*template.Template),
		format:    format,
	}
}

// WithFormat returns the engine with the output format changed
func (e *TemplateEngine) WithFormat(format EngineFormat) *TemplateEngine {
	e.format = format
	return e
}

func newTemplate(name string) *template.Template {
	return template.New(name).Option("missingkey=error").Funcs(sprig.TxtFuncMap()).Funcs(FuncMap())
}

// AddTemplate parses and registers a named template
func (e *TemplateEngine) AddTemplate(name, templateStr string) error {
	tmpl, err := newTemplate(name).Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	e.templates[name] = tmpl
	return nil
}

func (e *TemplateEngine) HasNamed(name string) bool {
	_, ok := e.templates[name]
	return ok
}

// HasTemplate returns true if the string contains template markers
func HasTemplate(s string) bool {
	return strings.Contains(s, "{{")
}

// Render renders a registered template by name
func (e *TemplateEngine) Render(name string, data any) (string, error) {
	tmpl, ok := e.templates[name]
	if !ok {
		return "", fmt.Errorf("template not found: %s", name)
	}
	return execute(tmpl, data)
}

// RenderString renders an inline template string
func (e *TemplateEngine) RenderString(templateStr string, data any) (string, error) {
	if !HasTemplate(templateStr) {
		return templateStr, nil
	}
	tmpl, err := newTemplate("inline").Parse(templateStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	return execute(tmpl, data)
}

func execute(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return buf.String(), nil
}

// ProcessString renders a template string and checks the result is well formed for the
// engine's format.
func (e *TemplateEngine) ProcessString(templateStr string, data any) (*ProcessResult, error) {
	rendered, err := e.RenderString(templateStr, data)
	if err != nil {
		return nil, err
	}
	return e.check(rendered)
}

// Process renders a registered template and checks the result like ProcessString.
func (e *TemplateEngine) Process(name string, data any) (*ProcessResult, error) {
	rendered, err := e.Render(name, data)
	if err != nil {
		return nil, err
	}
	return e.check(rendered)
}

func (e *TemplateEngine) check(rendered string) (*ProcessResult, error) {
	result := &ProcessResult{Text: rendered}
	switch e.format {
	case FormatYAML:
		var obj any
		if err := yaml.Unmarshal([]byte(rendered), &obj); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		result.YAML = obj
	case FormatJSON:
		var obj any
		if err := json.Unmarshal([]byte(rendered), &obj); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
		result.JSON = obj
	}
	return result, nil
}
