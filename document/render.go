/*
render.go - Document packing

PURPOSE:
  Packs a document tree into bytes. Two formats are supported:

  markdown: GitHub-flavored Markdown, tables as pipe tables
  text:     Plain text with padded columns, for email bodies and the CLI

  The packer never computes or rounds figures; every cell arrives as
  a finished string from the builder.
*/
package document

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Format is an output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f == FormatMarkdown || f == FormatText
}

// ContentType is the MIME type of the packed body.
func (f Format) ContentType() string {
	if f == FormatText {
		return "text/plain; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

// Extension is the file extension for the packed body.
func (f Format) Extension() string {
	if f == FormatText {
		return "txt"
	}
	return "md"
}

// Render packs doc in the given format.
func Render(doc *Document, f Format) ([]byte, error) {
	switch f {
	case FormatMarkdown:
		return renderMarkdown(doc), nil
	case FormatText:
		return renderText(doc), nil
	default:
		return nil, fmt.Errorf("unknown document format %q", f)
	}
}

// =============================================================================
// MARKDOWN
// =============================================================================

func renderMarkdown(doc *Document) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n", doc.Title)
	if doc.Subtitle != "" {
		fmt.Fprintf(&b, "\n*%s*\n", doc.Subtitle)
	}

	for _, s := range doc.Sections {
		fmt.Fprintf(&b, "\n## %s\n", s.Heading)
		for _, blk := range s.Blocks {
			b.WriteString("\n")
			switch v := blk.(type) {
			case Paragraph:
				b.WriteString(v.Text + "\n")
			case Definitions:
				for _, item := range v.Items {
					fmt.Fprintf(&b, "- **%s:** %s\n", item.Term, item.Value)
				}
			case Table:
				writeMarkdownTable(&b, v)
			case Signature:
				fmt.Fprintf(&b, "**%s**\n\nBy: ______________________________\n\nName: %s\n", v.Party, v.Name)
				if v.Title != "" {
					fmt.Fprintf(&b, "\nTitle: %s\n", v.Title)
				}
			}
		}
	}
	return b.Bytes()
}

func writeMarkdownTable(b *bytes.Buffer, t Table) {
	if t.Caption != "" {
		fmt.Fprintf(b, "*%s*\n\n", t.Caption)
	}
	b.WriteString("| " + strings.Join(escapeCells(t.Headers), " | ") + " |\n")

	seps := make([]string, len(t.Headers))
	for i := range seps {
		seps[i] = "---"
		if rightAligned(t, i) {
			seps[i] = "---:"
		}
	}
	b.WriteString("| " + strings.Join(seps, " | ") + " |\n")

	for _, row := range t.Rows {
		b.WriteString("| " + strings.Join(escapeCells(row), " | ") + " |\n")
	}
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	return out
}

// =============================================================================
// TEXT
// =============================================================================

func renderText(doc *Document) []byte {
	var b bytes.Buffer
	title := strings.ToUpper(doc.Title)
	b.WriteString(title + "\n")
	b.WriteString(strings.Repeat("=", utf8.RuneCountInString(title)) + "\n")
	if doc.Subtitle != "" {
		b.WriteString(doc.Subtitle + "\n")
	}

	for _, s := range doc.Sections {
		b.WriteString("\n" + s.Heading + "\n")
		b.WriteString(strings.Repeat("-", utf8.RuneCountInString(s.Heading)) + "\n")
		for _, blk := range s.Blocks {
			b.WriteString("\n")
			switch v := blk.(type) {
			case Paragraph:
				b.WriteString(v.Text + "\n")
			case Definitions:
				width := 0
				for _, item := range v.Items {
					width = max(width, utf8.RuneCountInString(item.Term))
				}
				for _, item := range v.Items {
					b.WriteString(pad(item.Term+":", width+1, false) + "  " + item.Value + "\n")
				}
			case Table:
				writeTextTable(&b, v)
			case Signature:
				fmt.Fprintf(&b, "%s\n\nBy: ______________________________\nName: %s\n", strings.ToUpper(v.Party), v.Name)
				if v.Title != "" {
					fmt.Fprintf(&b, "Title: %s\n", v.Title)
				}
			}
		}
	}
	return b.Bytes()
}

func writeTextTable(b *bytes.Buffer, t Table) {
	if t.Caption != "" {
		b.WriteString(t.Caption + "\n\n")
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], utf8.RuneCountInString(row[i]))
		}
	}

	line := func(cells []string) {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			parts[i] = pad(cell, widths[i], rightAligned(t, i))
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " ") + "\n")
	}

	line(t.Headers)
	rules := make([]string, len(widths))
	for i, w := range widths {
		rules[i] = strings.Repeat("-", w)
	}
	b.WriteString(strings.Join(rules, "  ") + "\n")
	for _, row := range t.Rows {
		line(row)
	}
}

func pad(s string, width int, right bool) string {
	n := width - utf8.RuneCountInString(s)
	if n <= 0 {
		return s
	}
	if right {
		return strings.Repeat(" ", n) + s
	}
	return s + strings.Repeat(" ", n)
}

func rightAligned(t Table, col int) bool {
	return col < len(t.RightAlign) && t.RightAlign[col]
}
