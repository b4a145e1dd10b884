// Package render is the built-in template renderer. The materializer only
// depends on the Renderer interface, so this implementation is swappable;
// it exists so a checkout works without any external rendering tool.
package render

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"gopkg.in/yaml.v3"

	"github.com/strata-tools/strata/internal/document"
)

// TemplateRenderer renders Go templates with the sprig function map plus a
// few strata-specific helpers. Referencing an undefined parameter is an
// error, never an empty string.
type TemplateRenderer struct{}

// New creates a TemplateRenderer.
func New() *TemplateRenderer {
	return &TemplateRenderer{}
}

// Render parses and executes one template file against params and decodes
// the output as a YAML document.
func (r *TemplateRenderer) Render(ctx context.Context, templatePath string, params map[string]any) (document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	tmpl := template.New(filepath.Base(templatePath)).
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		Funcs(strataFuncs(filepath.Dir(templatePath)))

	tmpl, err = tmpl.Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return nil, fmt.Errorf("execute template: %w", err)
	}

	doc, err := document.Parse(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("template output is not a document: %w", err)
	}
	return doc, nil
}

// strataFuncs returns the template helpers available alongside sprig.
func strataFuncs(baseDir string) template.FuncMap {
	return template.FuncMap{
		"b64encode": func(s string) string {
			return base64.StdEncoding.EncodeToString([]byte(s))
		},
		"md5sum": func(s string) string {
			sum := md5.Sum([]byte(s))
			return hex.EncodeToString(sum[:])
		},
		"toYaml": func(v any) (string, error) {
			data, err := yaml.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("toYaml: %w", err)
			}
			return string(data), nil
		},
		// includeRaw loads a sibling file verbatim, without rendering it.
		"includeRaw": func(name string) (string, error) {
			data, err := os.ReadFile(filepath.Join(baseDir, name))
			if err != nil {
				return "", fmt.Errorf("includeRaw %s: %w", name, err)
			}
			return string(data), nil
		},
	}
}
