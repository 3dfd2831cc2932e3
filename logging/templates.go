package logging

import (
	"embed"
	"html/template"

	"github.com/katalab/kata-runner/templates"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// GetHTMLTemplate returns the embedded HTML template for the specified name
func GetHTMLTemplate(name string) (*template.Template, error) {
	return template.New(name).Funcs(templates.GetTemplateFunc()).ParseFS(templateFS, "templates/"+name)
}
