// Package export renders the scenario library and watchlist memory as JSON,
// Markdown or HTML.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/netguy47/Scenario-Atlas/internal/scenario"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

// ParseFormat accepts a format name or a common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "json":
		return FormatJSON, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	if f == FormatMarkdown {
		return ".md"
	}
	return "." + string(f)
}

// Document is everything an export may contain. Empty sections are omitted.
type Document struct {
	Title      string
	Generated  time.Time
	Entries    []scenario.Entry
	Watchlists []scenario.Watchlist
	Saved      []scenario.SavedScenario
}

// Write renders doc to w in format f.
func Write(w io.Writer, f Format, doc Document) error {
	switch f {
	case FormatJSON:
		return JSON(w, doc)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(doc))
		return err
	case FormatHTML:
		return HTML(w, doc)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// JSON writes the document as indented JSON. Entries are flattened to their
// raw or library record.
func JSON(w io.Writer, doc Document) error {
	records := make([]any, len(doc.Entries))
	for i, e := range doc.Entries {
		if e.Library != nil {
			records[i] = e.Library
		} else {
			records[i] = e.Raw
		}
	}
	out := struct {
		Title      string                   `json:"title"`
		Generated  time.Time                `json:"generated"`
		Stats      statsJSON                `json:"stats"`
		Scenarios  []any                    `json:"scenarios"`
		Watchlists []scenario.Watchlist     `json:"watchlists,omitempty"`
		Saved      []scenario.SavedScenario `json:"saved,omitempty"`
	}{
		Title:      doc.Title,
		Generated:  doc.Generated,
		Stats:      newStatsJSON(scenario.ComputeStats(doc.Entries)),
		Scenarios:  records,
		Watchlists: doc.Watchlists,
		Saved:      doc.Saved,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

type statsJSON struct {
	Total      int            `json:"total"`
	Curated    int            `json:"curated"`
	ByCategory map[string]int `json:"byCategory"`
}

func newStatsJSON(s scenario.Stats) statsJSON {
	out := statsJSON{Total: s.Total, Curated: s.Curated, ByCategory: make(map[string]int, len(s.ByCategory))}
	for c, n := range s.ByCategory {
		out.ByCategory[string(c)] = n
	}
	return out
}

// Markdown renders the document as Markdown: library entries grouped by
// category in canonical order, then one section per watchlist.
func Markdown(doc Document) string {
	var sections []string

	header := "# " + doc.Title
	if !doc.Generated.IsZero() {
		header += fmt.Sprintf("\n\n*Generated %s*", doc.Generated.UTC().Format("2006-01-02 15:04 MST"))
	}
	sections = append(sections, header)

	if len(doc.Entries) > 0 {
		sections = append(sections, libraryMarkdown(doc.Entries))
	}
	if len(doc.Watchlists) > 0 {
		sections = append(sections, watchlistMarkdown(doc.Watchlists, doc.Saved))
	}
	return strings.Join(sections, "\n\n---\n\n") + "\n"
}

func libraryMarkdown(entries []scenario.Entry) string {
	stats := scenario.ComputeStats(entries)
	var b strings.Builder
	fmt.Fprintf(&b, "## Library\n\n%d scenarios, %d curated.\n", stats.Total, stats.Curated)

	groups := make(map[scenario.Category][]scenario.LibraryEntry)
	for _, e := range entries {
		l := e.AsLibrary()
		groups[l.Category] = append(groups[l.Category], l)
	}

	for _, c := range categoryOrder(groups) {
		fmt.Fprintf(&b, "\n### %s\n", categoryHeading(c))
		for _, l := range groups[c] {
			fmt.Fprintf(&b, "\n#### %s\n\n> %s\n\n", l.Title, l.CanonicalQuestion)
			fmt.Fprintf(&b, "- **ID:** `%s`\n", l.ScenarioID)
			if l.SystemActor != "" {
				fmt.Fprintf(&b, "- **Actor:** %s\n", l.SystemActor)
			}
			if l.IssueFocus != "" {
				fmt.Fprintf(&b, "- **Issue:** %s\n", l.IssueFocus)
			}
			fmt.Fprintf(&b, "- **Horizon:** %s\n", l.TimeHorizon)
			if l.Domain != "" {
				fmt.Fprintf(&b, "- **Domain:** %s\n", l.Domain)
			}
			if l.Geography != "" {
				fmt.Fprintf(&b, "- **Geography:** %s\n", l.Geography)
			}
			if l.Difficulty != "" {
				fmt.Fprintf(&b, "- **Difficulty:** %s · **Reusability:** %s\n", l.Difficulty, l.Reusability)
			}
			if len(l.IdealUseCases) > 0 {
				fmt.Fprintf(&b, "- **Use cases:** %s\n", joinUseCases(l.IdealUseCases))
			}
			if len(l.Tags) > 0 {
				fmt.Fprintf(&b, "- **Tags:** %s\n", strings.Join(l.Tags, ", "))
			}
			if l.Notes != "" {
				fmt.Fprintf(&b, "\n%s\n", l.Notes)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func watchlistMarkdown(watchlists []scenario.Watchlist, saved []scenario.SavedScenario) string {
	byList := make(map[string][]scenario.SavedScenario)
	for _, s := range saved {
		byList[s.WatchlistID] = append(byList[s.WatchlistID], s)
	}

	var b strings.Builder
	b.WriteString("## Watchlists\n")
	for _, w := range watchlists {
		kind := string(w.Type)
		if w.Subtype != "" {
			kind += "/" + string(w.Subtype)
		}
		fmt.Fprintf(&b, "\n### %s (%s)\n", w.Name, kind)

		items := byList[w.ID]
		if len(items) == 0 {
			b.WriteString("\n*No saved scenarios.*\n")
			continue
		}
		for _, s := range items {
			fmt.Fprintf(&b, "\n#### %s\n\n", s.Title)
			fmt.Fprintf(&b, "- **Drift:** %s · **Runs:** %d", s.DriftStatus, s.RunCount)
			if s.LastRunDate != nil {
				fmt.Fprintf(&b, " · **Last run:** %s", s.LastRunDate.UTC().Format("2006-01-02"))
			}
			b.WriteString("\n")
			for _, v := range s.Versions {
				fmt.Fprintf(&b, "- v%d (%s): %s", v.VersionNumber, v.Type, v.Text)
				if len(v.Changes) > 0 {
					fmt.Fprintf(&b, " *[%s]*", strings.Join(v.Changes, "; "))
				}
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// categoryOrder lists the canonical categories first, then any unknown
// labels alphabetically.
func categoryOrder(groups map[scenario.Category][]scenario.LibraryEntry) []scenario.Category {
	var out []scenario.Category
	for _, c := range scenario.Categories {
		if len(groups[c]) > 0 {
			out = append(out, c)
		}
	}
	var extra []scenario.Category
	for c := range groups {
		if !c.Valid() {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

func categoryHeading(c scenario.Category) string {
	if c == "" {
		return "Uncategorized"
	}
	return string(c)
}

func joinUseCases(ucs []scenario.UseCase) string {
	parts := make([]string, len(ucs))
	for i, u := range ucs {
		parts[i] = string(u)
	}
	return strings.Join(parts, ", ")
}

var md = goldmark.New(goldmark.WithExtensions(extension.Table))

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; line-height: 1.5; }
blockquote { border-left: 3px solid #888; margin-left: 0; padding-left: 1rem; color: #333; }
code { background: #f3f3f3; padding: 0 .25rem; }
</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// HTML renders the Markdown form through goldmark inside a standalone page.
func HTML(w io.Writer, doc Document) error {
	body, err := RenderMarkdown(Markdown(doc))
	if err != nil {
		return err
	}
	return page.Execute(w, struct {
		Title string
		Body  template.HTML
	}{Title: doc.Title, Body: body})
}

// RenderMarkdown converts Markdown to HTML. Raw HTML in the input is
// omitted by goldmark's default renderer.
func RenderMarkdown(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return template.HTML(buf.String()), nil //nolint: gosec
}
