package banner

import (
	"sort"
	"strings"

	"github.com/fulmenhq/licensebanner/pkg/ascii"
	"github.com/fulmenhq/licensebanner/pkg/licenses"
)

// Format selects how rows are rendered.
type Format string

const (
	FormatJSDoc Format = "jsdoc"
	FormatTable Format = "table"
)

// ParseFormat maps a configuration value to a Format. Only "table" selects
// the table layout; anything else renders JSDoc blocks.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatTable)) {
		return FormatTable
	}
	return FormatJSDoc
}

const (
	// DefaultTitle heads the table banner.
	DefaultTitle = "Third-party licenses"

	// DefaultTemplate renders one JSDoc block per row. It has no trailing
	// newline: blocks are concatenated back to back.
	DefaultTemplate = "/*!\n" +
		" * @package {{{name}}}\n" +
		" * @version {{{version}}}\n" +
		" * @license {{{license}}}\n" +
		" * @author {{{publisher}}}\n" +
		" * @url {{{url}}}\n" +
		" */"

	publisherWidth = 30
	sourceWidth    = 65
)

var tableHeader = []string{"Name", "Version", "License(s)", "Publisher", "Source"}

// Render formats rows with the configured strategy.
func (c *Collector) Render(rows []Row) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if ParseFormat(string(c.opts.Format)) == FormatTable {
		title := c.opts.Title
		if title == "" {
			title = DefaultTitle
		}
		return RenderTable(rows, title, c.opts.Sort), nil
	}
	return c.renderJSDoc(rows)
}

func (c *Collector) renderJSDoc(rows []Row) (string, error) {
	var sb strings.Builder
	for _, row := range rows {
		out, err := c.jsdoc.Exec(templateContext(row))
		if err != nil {
			return "", err
		}
		sb.WriteString(out)
	}
	return sb.String(), nil
}

func templateContext(row Row) map[string]any {
	r := row.Record
	return map[string]any{
		"name":              commentSafe(row.Entry.Name),
		"version":           commentSafe(row.Entry.Version),
		"license":           commentSafe(r.Licenses),
		"licenseUrl":        licenses.LicenseURL(r.Licenses),
		"publisher":         commentSafe(r.Publisher),
		"email":             commentSafe(r.Email),
		"repository":        commentSafe(r.Repository),
		"url":               commentSafe(r.Source()),
		"dependency":        commentSafe(r.Name),
		"dependencyVersion": commentSafe(r.Version),
	}
}

// RenderTable renders rows as a single comment holding a title line and an
// aligned table. When sorted is set rows are ordered by package name,
// keeping lookup order among rows of the same package.
func RenderTable(rows []Row, title string, sorted bool) string {
	if len(rows) == 0 {
		return ""
	}
	if sorted {
		rows = append([]Row(nil), rows...)
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Entry.Name < rows[j].Entry.Name
		})
	}

	cells := make([][]string, 0, len(rows)+1)
	cells = append(cells, tableHeader)
	for _, row := range rows {
		cells = append(cells, []string{
			commentSafe(row.Entry.Name),
			commentSafe(row.Entry.Version),
			commentSafe(row.Record.Licenses),
			commentSafe(ascii.Truncate(row.Record.Publisher, publisherWidth)),
			commentSafe(ascii.Truncate(row.Record.Source(), sourceWidth)),
		})
	}

	var sb strings.Builder
	sb.WriteString("/*!\n")
	sb.WriteString(" * " + commentSafe(title) + "\n")
	sb.WriteString(" *\n")
	for _, line := range ascii.Table(cells) {
		sb.WriteString(" * " + line + "\n")
	}
	sb.WriteString(" */")
	return sb.String()
}

// commentSafe keeps manifest values from closing the banner comment early.
func commentSafe(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "*/", "*\\/")
}
