package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"
)

const styleTagLen = 8 // len("</style>")

// Section represents a chart section within a page.
type Section struct {
	Title    string
	Subtitle string
	Chart    Renderable
}

// Page represents a complete visualization page.
type Page struct {
	Title       string
	Description string
	Theme       Theme
	Sections    []Section
}

// NewPage creates a new visualization page with the default dark theme.
func NewPage(title, description string) *Page {
	return &Page{
		Title:       title,
		Description: description,
		Theme:       ThemeDark,
	}
}

// WithTheme sets the theme for the page.
func (p *Page) WithTheme(theme Theme) *Page {
	p.Theme = theme

	return p
}

// Add appends sections to the page.
func (p *Page) Add(sections ...Section) {
	p.Sections = append(p.Sections, sections...)
}

// Render writes the page as HTML.
func (p *Page) Render(w io.Writer) error {
	return HTMLRenderer{}.Render(w, p)
}

// Renderable is the interface for chart components.
type Renderable interface {
	Render(w io.Writer) error
}

// HTMLRenderer renders pages as HTML.
type HTMLRenderer struct{}

const pageTemplateText = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="https://go-echarts.github.io/go-echarts-assets/assets/echarts.min.js"></script>
<style>
body { margin: 0; font-family: -apple-system, "Segoe UI", Helvetica, Arial, sans-serif;
       background: {{.Theme.Background}}; color: {{.Theme.TextPrimary}}; }
header { padding: 24px 32px 8px; }
header h1 { margin: 0 0 4px; font-size: 22px; }
header p { margin: 0; color: {{.Theme.TextSecondary}}; font-size: 14px; }
section { margin: 16px 32px; padding: 16px; background: {{.Theme.Surface}};
          border: 1px solid {{.Theme.Border}}; border-radius: 8px; }
section h2 { margin: 0 0 2px; font-size: 16px; }
section .subtitle { margin: 0 0 12px; color: {{.Theme.TextMuted}}; font-size: 13px; }
.echart-box .item { margin: 0 auto; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<p>{{.Description}}</p>
</header>
{{range .Sections}}
<section>
<h2>{{.Title}}</h2>
<p class="subtitle">{{.Subtitle}}</p>
{{.Chart}}
</section>
{{end}}
</body>
</html>
`

var (
	pageTemplate     *template.Template
	pageTemplateOnce sync.Once
	errPageTemplate  error
)

func getPageTemplate() (*template.Template, error) {
	pageTemplateOnce.Do(func() {
		pageTemplate, errPageTemplate = template.New("page").Parse(pageTemplateText)
	})

	return pageTemplate, errPageTemplate
}

type pageData struct {
	Title       string
	Description string
	Theme       ThemeConfig
	Sections    []sectionData
}

type sectionData struct {
	Title    string
	Subtitle string
	Chart    template.HTML
}

// Render writes the page as HTML to the writer.
func (r HTMLRenderer) Render(w io.Writer, page *Page) error {
	tmpl, err := getPageTemplate()
	if err != nil {
		return fmt.Errorf("parse page template: %w", err)
	}

	data := pageData{
		Title:       page.Title,
		Description: page.Description,
		Theme:       GetThemeConfig(page.Theme),
	}

	for _, section := range page.Sections {
		chartHTML, chartErr := renderChart(section.Chart)
		if chartErr != nil {
			return fmt.Errorf("render section %q: %w", section.Title, chartErr)
		}

		data.Sections = append(data.Sections, sectionData{
			Title:    section.Title,
			Subtitle: section.Subtitle,
			Chart:    template.HTML(chartHTML),
		})
	}

	err = tmpl.Execute(w, data)
	if err != nil {
		return fmt.Errorf("execute page template: %w", err)
	}

	return nil
}

// renderChart renders an echarts chart and strips its standalone page
// wrapping so it can be embedded in a section.
func renderChart(chart Renderable) (string, error) {
	if chart == nil {
		return "", nil
	}

	var buf bytes.Buffer

	err := chart.Render(&buf)
	if err != nil {
		return "", fmt.Errorf("rendering chart: %w", err)
	}

	return extractChartContent(buf.String()), nil
}

func extractChartContent(html string) string {
	// Echarts output is a full standalone page; anything else is already a
	// fragment and passes through.
	trimmed := strings.TrimSpace(html)
	if !strings.HasPrefix(trimmed, "<!DOCTYPE") && !strings.HasPrefix(trimmed, "<html") {
		return html
	}

	start := strings.Index(html, `<div class="container">`)
	if start == -1 {
		return html
	}

	end := strings.Index(html, `</body>`)
	if end == -1 {
		return html
	}

	content := html[start:end]
	content = strings.ReplaceAll(content, `class="container"`, `class="echart-box"`)
	content = removeStyleTags(content)

	return content
}

func removeStyleTags(content string) string {
	for {
		i := strings.Index(content, `<style>`)
		if i == -1 {
			break
		}

		j := strings.Index(content[i:], `</style>`)
		if j == -1 {
			break
		}

		content = content[:i] + content[i+j+styleTagLen:]
	}

	return content
}
