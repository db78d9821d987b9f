package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return "Unknown"
		}
		return t.Local().Format("Jan 2, 2006 3:04 PM")
	},
}

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a page together with the shared layout
func ParseTemplate(name string) (*template.Template, error) {
	return template.New(name).Funcs(templateFuncs).ParseFS(TemplateFilesFS(), name, "layout.html")
}

// render executes a page, or only its named block for htmx swaps.
func (s *Server) render(w http.ResponseWriter, status int, page, block string, data any) {
	tmpl, ok := s.pages[page]
	if !ok {
		http.Error(w, "500 - Unknown page", http.StatusInternalServerError)
		return
	}
	if block == "" {
		block = page
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, block, data); err != nil {
		log.Err(err).Str("page", page).Str("block", block).Msg("Failed to render template")
	}
}
