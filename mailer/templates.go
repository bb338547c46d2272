package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/django/v3"
)

//go:embed templates/*.html
var templatesFS embed.FS

// TemplateRenderer renders the embedded HTML mail templates. Template names
// are file names without the .html extension.
type TemplateRenderer struct {
	engine *django.Engine
}

// NewTemplateRenderer loads every embedded template up front so a broken
// template fails at startup.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("mailer: templates: %w", err)
	}

	engine := django.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, fmt.Errorf("mailer: load templates: %w", err)
	}
	return &TemplateRenderer{engine: engine}, nil
}

func (r *TemplateRenderer) Render(name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Render(&buf, name, data); err != nil {
		return "", fmt.Errorf("mailer: render %s: %w", name, err)
	}
	return buf.String(), nil
}
