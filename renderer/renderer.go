// Package renderer turns ledger summaries and market data into markdown reports.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var templatesFS embed.FS

// templates holds the markdown templates by file name.
var templates, _ = fs.Sub(templatesFS, "templates")

// SummaryRenderOptions holds configuration for rendering a summary report.
type SummaryRenderOptions struct {
	SkipEntries bool // Do not render the purchases section.
	SkipHistory bool // Do not render the 24h price section, even if available.
}

// RenderSummary renders the summary of a stack to a markdown string.
func RenderSummary(s *Summary, opts SummaryRenderOptions) string {
	partials := map[string]string{
		"summary_title":      "summary_title.md",
		"summary_totals":     "summary_totals.md",
		"summary_goal":       "summary_goal.md",
		"summary_allocation": "summary_allocation.md",
		"summary_history":    "",
		"entries":            "",
	}
	// An empty file name results in an empty section.
	if s.History != nil && !opts.SkipHistory {
		partials["summary_history"] = "history_stats.md"
	}
	if !opts.SkipEntries {
		partials["entries"] = "entries.md"
	}
	return renderTemplate("summary", "summary.md", partials, funcs(s.Currency, s.Privacy), s)
}

// RenderEntries renders the purchases table alone.
func RenderEntries(e *Entries) string {
	partials := map[string]string{"entries": "entries.md"}
	return renderTemplate("entries_only", "entries_only.md", partials, funcs(e.Currency, e.Privacy), e)
}

// RenderPrice renders the current price slot.
func RenderPrice(p *Price) string {
	return renderTemplate("price", "price.md", nil, funcs(p.Currency, false), p)
}

// RenderHistory renders 24h price statistics and hourly samples.
func RenderHistory(h *History) string {
	partials := map[string]string{"summary_history": "history_stats.md"}
	return renderTemplate("history", "history.md", partials, funcs(h.Currency, false), h)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, funcs template.FuncMap, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		var content []byte
		if file != "" {
			content, err = fs.ReadFile(templates, file)
			if err != nil {
				return fmt.Sprintf("error reading partial template %q: %v", file, err)
			}
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
