package server

import (
	"embed"
	"html/template"
	"io"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type pageData struct {
	Languages       []string
	DefaultLanguage string
	MaxTextBytes    int
}

func renderIndex(w io.Writer, data pageData) error {
	return indexTemplate.Execute(w, data)
}
