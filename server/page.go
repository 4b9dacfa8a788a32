package server

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/etnz/dca/renderer"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Stack Summary</title>
<style>
body { font-family: sans-serif; max-width: 56em; margin: 2em auto; }
table { border-collapse: collapse; }
td, th { padding: 0.2em 0.8em; border-bottom: 1px solid #ddd; }
</style>
</head>
<body>
{{ . }}
</body>
</html>
`))

// handleSummaryPage renders the markdown summary as HTML.
func (s *Server) handleSummaryPage(w http.ResponseWriter, r *http.Request) {
	goal, err := s.prefs.Goal(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	privacy, err := s.prefs.Privacy(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	report := renderer.NewSummary(s.ledger.Snapshot(), s.quote(r), goal, privacy)
	md := renderer.RenderSummary(report, renderer.SummaryRenderOptions{})

	var body bytes.Buffer
	if err := markdown.Convert([]byte(md), &body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page.Execute(w, template.HTML(body.String()))
}
