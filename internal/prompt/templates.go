// Package prompt loads the YAML prompt templates that drive each generation
// step. Defaults are embedded in the binary; a configured template directory
// overrides them file-by-file.
package prompt

import (
	"bytes"
	"embed"
	"os"
	"path/filepath"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/queryscout/queryscout/internal/errors"
)

//go:embed templates/*.yaml
var defaultTemplates embed.FS

// Template names
const (
	ProfileExtraction = "profile_extraction"
	QueryRefiner      = "query_refiner"
	ContextEnrichment = "context_enrichment"
	QueryMaker        = "query_maker"
)

type templateFile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Template    string `yaml:"template"`
}

// Loader resolves and renders prompt templates
type Loader struct {
	overrideDir string
}

// NewLoader creates a template loader. overrideDir may be empty, in which
// case only the embedded defaults are used.
func NewLoader(overrideDir string) *Loader {
	return &Loader{overrideDir: overrideDir}
}

// Load returns the raw template text for the given name
func (l *Loader) Load(name string) (string, error) {
	data, err := l.read(name)
	if err != nil {
		return "", err
	}

	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return "", errors.Wrapf(err, errors.ErrTypeConfig,
			"failed to parse prompt template %s", name)
	}

	if file.Template == "" {
		return "", errors.Newf(errors.ErrTypeConfig,
			"prompt template %s has an empty template body", name)
	}

	return file.Template, nil
}

// Render loads the named template and executes it with data
func (l *Loader) Render(name string, data interface{}) (string, error) {
	text, err := l.Load(name)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrTypeConfig,
			"prompt template %s is not a valid template", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, errors.ErrTypeInternal,
			"failed to render prompt template %s", name)
	}

	return buf.String(), nil
}

func (l *Loader) read(name string) ([]byte, error) {
	filename := name + ".yaml"

	if l.overrideDir != "" {
		overridePath := filepath.Join(l.overrideDir, filename)
		if data, err := os.ReadFile(overridePath); err == nil {
			return data, nil
		}
	}

	data, err := defaultTemplates.ReadFile("templates/" + filename)
	if err != nil {
		return nil, errors.Newf(errors.ErrTypeConfig, "unknown prompt template: %s", name)
	}

	return data, nil
}
