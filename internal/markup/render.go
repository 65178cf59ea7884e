package markup

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	wsRe       = regexp.MustCompile(`\s+`)
	spaceRunRe = regexp.MustCompile(` {2,}`)
)

// inlineEscaper over-escapes emphasis characters; the post-processor
// removes the escapes that turn out to be unnecessary. Backslashes are
// escaped too, so a literal backslash in the source is distinguishable
// from an escape this renderer introduced.
var inlineEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`)

// blockKinds is the fixed set of element kinds rendered as blocks.
var blockKinds = map[atom.Atom]bool{
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.P: true, atom.Ul: true, atom.Ol: true, atom.Pre: true, atom.Blockquote: true,
	atom.Table: true, atom.Details: true, atom.Hr: true,
	atom.Div: true, atom.Section: true, atom.Article: true, atom.Figure: true,
	atom.Header: true, atom.Footer: true, atom.Thead: true, atom.Tbody: true, atom.Tfoot: true,
}

func isBlock(n *html.Node) bool {
	return n.Type == html.ElementNode && blockKinds[n.DataAtom]
}

// render emits raw Markdown for the normalized tree rooted at root.
func render(root *html.Node) string {
	return renderBlocks(root)
}

// renderBlocks renders the children of n as a sequence of blocks.
// Consecutive inline nodes are grouped into implicit paragraphs.
func renderBlocks(n *html.Node) string {
	var sb strings.Builder
	var run []*html.Node
	flush := func() {
		if len(run) == 0 {
			return
		}
		var ib strings.Builder
		for _, c := range run {
			ib.WriteString(renderInlineNode(c))
		}
		run = nil
		if txt := strings.TrimSpace(spaceRunRe.ReplaceAllString(ib.String(), " ")); txt != "" {
			sb.WriteString(txt + "\n\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isBlock(c) {
			flush()
			sb.WriteString(renderBlock(c))
		} else {
			run = append(run, c)
		}
	}
	flush()
	return sb.String()
}

// renderBlock dispatches on the element kind. The rule set is fixed;
// wrapper elements fall through to rendering their children unchanged.
func renderBlock(n *html.Node) string {
	switch n.DataAtom {
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		txt := strings.TrimSpace(renderInline(n))
		if txt == "" {
			return ""
		}
		return strings.Repeat("#", level) + " " + txt + "\n\n"
	case atom.P:
		txt := strings.TrimSpace(renderInline(n))
		if txt == "" {
			return ""
		}
		return txt + "\n\n"
	case atom.Ul, atom.Ol:
		return renderList(n, 0) + "\n"
	case atom.Pre:
		return renderCodeBlock(n)
	case atom.Blockquote:
		return renderBlockquote(n)
	case atom.Table:
		return renderTable(n)
	case atom.Details:
		return renderDetails(n)
	case atom.Hr:
		return "---\n\n"
	default:
		return renderBlocks(n)
	}
}

// renderInline renders the children of n as inline Markdown. Space runs
// left behind by removed inline elements collapse to a single space.
func renderInline(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		sb.WriteString(renderInlineNode(c))
	}
	return spaceRunRe.ReplaceAllString(sb.String(), " ")
}

func renderInlineNode(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return inlineEscaper.Replace(wsRe.ReplaceAllString(n.Data, " "))
	case html.ElementNode:
		// handled below
	default:
		return ""
	}
	switch n.DataAtom {
	case atom.Strong, atom.B:
		return wrapInline(n, "**")
	case atom.Em, atom.I:
		return wrapInline(n, "*")
	case atom.Del, atom.S, atom.Strike:
		return wrapInline(n, "~~")
	case atom.Code:
		return "`" + textContent(n) + "`"
	case atom.A:
		href := attr(n, "href")
		label := strings.TrimSpace(renderInline(n))
		if label == "" {
			label = href
		}
		if href == "" {
			return label
		}
		return "[" + label + "](" + href + ")"
	case atom.Img:
		return "![" + attr(n, "alt") + "](" + attr(n, "src") + ")"
	case atom.Br:
		return "\n"
	case atom.Ul, atom.Ol:
		// A list forced into inline context keeps its line structure.
		return "\n" + renderList(n, 0)
	default:
		// span, u, sub, sup, and any other leftover wrapper pass
		// their rendered children through unchanged.
		return renderInline(n)
	}
}

func wrapInline(n *html.Node, delim string) string {
	inner := strings.TrimSpace(renderInline(n))
	if inner == "" {
		return ""
	}
	return delim + inner + delim
}

// renderList emits one line per item, `-` bullets for unordered lists and
// incrementing numbers for ordered ones, indenting nested lists.
func renderList(n *html.Node, depth int) string {
	var sb strings.Builder
	ordered := n.DataAtom == atom.Ol
	indent := strings.Repeat("  ", depth)
	i := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		i++
		marker := "-"
		if ordered {
			marker = fmt.Sprintf("%d.", i)
		}

		var content strings.Builder
		var nested []*html.Node
		for lc := c.FirstChild; lc != nil; lc = lc.NextSibling {
			if lc.Type == html.ElementNode && (lc.DataAtom == atom.Ul || lc.DataAtom == atom.Ol) {
				nested = append(nested, lc)
				continue
			}
			content.WriteString(renderInlineNode(lc))
		}
		line := strings.TrimSpace(spaceRunRe.ReplaceAllString(content.String(), " "))
		sb.WriteString(indent + marker + " " + line + "\n")
		for _, nl := range nested {
			sb.WriteString(renderList(nl, depth+1))
		}
	}
	return sb.String()
}

// renderCodeBlock emits a fenced block tagged with the language from the
// code child's class attribute, body verbatim.
func renderCodeBlock(n *html.Node) string {
	lang := ""
	body := textContent(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Code {
			if cls := attr(c, "class"); strings.HasPrefix(cls, "language-") {
				lang = strings.TrimPrefix(cls, "language-")
			}
			body = textContent(c)
			break
		}
	}
	body = strings.Trim(body, "\n")
	return "```" + lang + "\n" + body + "\n```\n\n"
}

func renderBlockquote(n *html.Node) string {
	inner := strings.TrimRight(renderBlocks(n), "\n")
	if inner == "" {
		return ""
	}
	var sb strings.Builder
	for _, line := range strings.Split(inner, "\n") {
		if line == "" {
			sb.WriteString(">\n")
		} else {
			sb.WriteString("> " + line + "\n")
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

// renderDetails emits a bold summary line followed by the body. The
// summary node is detached first so its text is never duplicated inside
// the body.
func renderDetails(n *html.Node) string {
	title := ""
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Summary {
			title = strings.TrimSpace(renderInline(c))
			n.RemoveChild(c)
			break
		}
	}
	if title == "" {
		title = "Details"
	}
	return "**" + title + "**\n\n" + renderBlocks(n)
}

// renderTable emits a GFM table: header row, then exactly one separator
// row sized to the header, then body rows. The header is the first row
// containing th cells, defaulting to the first row.
func renderTable(n *html.Node) string {
	var rows []*html.Node
	var collect func(*html.Node)
	collect = func(c *html.Node) {
		for g := c.FirstChild; g != nil; g = g.NextSibling {
			if g.Type != html.ElementNode {
				continue
			}
			switch g.DataAtom {
			case atom.Tr:
				rows = append(rows, g)
			case atom.Thead, atom.Tbody, atom.Tfoot:
				collect(g)
			}
		}
	}
	collect(n)
	if len(rows) == 0 {
		return ""
	}

	headerIdx := 0
	for i, r := range rows {
		if rowHasHeaderCells(r) {
			headerIdx = i
			break
		}
	}

	var sb strings.Builder
	separatorDone := false
	for i, r := range rows {
		cells := rowCells(r)
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		if i == headerIdx && !separatorDone {
			sep := make([]string, len(cells))
			for j := range sep {
				sep[j] = "---"
			}
			sb.WriteString("| " + strings.Join(sep, " | ") + " |\n")
			separatorDone = true
		}
	}
	sb.WriteString("\n")
	return sb.String()
}

func rowHasHeaderCells(row *html.Node) bool {
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Th {
			return true
		}
	}
	return false
}

func rowCells(row *html.Node) []string {
	var cells []string
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Th && c.DataAtom != atom.Td) {
			continue
		}
		cell := strings.TrimSpace(renderInline(c))
		cell = strings.ReplaceAll(cell, "\n", " ")
		cell = strings.ReplaceAll(cell, "|", `\|`)
		cells = append(cells, cell)
	}
	return cells
}
