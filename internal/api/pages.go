package api

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/gdrive-files/internal/files"
)

//go:embed templates/*.html
var templatesFS embed.FS

// listPage is the data for templates/base.html.
type listPage struct {
	Title  string
	Prefix string
	Folder string
	Files  []files.FileRef
	Listed bool
}

type pages struct {
	tmpl   *template.Template
	prefix string
}

func newPages(prefix string) *pages {
	return &pages{
		tmpl:   template.Must(template.ParseFS(templatesFS, "templates/base.html")),
		prefix: prefix,
	}
}

// render executes the page into a buffer first so a template error never
// produces a half-written 200.
func (p *pages) render(w http.ResponseWriter, r *http.Request, logger *slog.Logger, data listPage) {
	data.Prefix = p.prefix

	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		logger.Error("rendering page",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		sendDetail(w, http.StatusInternalServerError, "Internal server error")

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
