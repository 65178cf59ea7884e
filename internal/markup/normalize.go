package markup

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Pseudo-schemes used for links that only make sense inside the wiki.
// The post-processor collapses them once the document is standalone.
const (
	SchemeInternalPage = "confluence://"
	SchemeAttachment   = "attachment://"
)

// macro is a decoded structured-macro element.
type macro struct {
	name   string
	params map[string]string
	rich   *html.Node   // rich-text body element, nil when absent
	plain  string       // plain-text body, empty when absent
	rest   []*html.Node // non-structural children, spliced back after the rewrite
}

// structuralChildren are consumed by their parent element's rewrite and
// must not be unwrapped on their own during the bottom-up pass.
var structuralChildren = map[string]bool{
	"ac:parameter":            true,
	"ac:rich-text-body":       true,
	"ac:plain-text-body":      true,
	"ac:link-body":            true,
	"ac:plain-text-link-body": true,
	"ri:page":                 true,
	"ri:attachment":           true,
	"ri:url":                  true,
	"ri:user":                 true,
}

// rewriteFunc produces the plain-HTML replacement for a macro.
// Returning nil removes the macro without a trace.
type rewriteFunc func(m *macro) []*html.Node

// macroRewrites dispatches macro names to their rewrite rules. Adding a
// macro kind is a one-entry addition; anything absent here falls through
// to unwrapMacro.
var macroRewrites = map[string]rewriteFunc{
	"code":    rewriteCode,
	"info":    calloutRewrite("Info"),
	"note":    calloutRewrite("Note"),
	"warning": calloutRewrite("Warning"),
	"tip":     calloutRewrite("Tip"),
	"panel":   rewritePanel,
	"expand":  rewriteExpand,
	"status":  rewriteStatus,
	"toc":     func(*macro) []*html.Node { return nil },
}

// Normalize rewrites every proprietary macro element under root into a
// plain-HTML equivalent, in place. Children are processed before their
// parents so nested macro bodies are already macro-free when the outer
// wrapper is replaced.
func Normalize(root *html.Node) {
	child := root.FirstChild
	for child != nil {
		// The rewrite may detach child, so capture the successor first.
		next := child.NextSibling
		Normalize(child)
		normalizeNode(child)
		child = next
	}
}

func normalizeNode(n *html.Node) {
	if n.Type != html.ElementNode {
		return
	}
	switch {
	case structuralChildren[n.Data]:
		// Consumed by the parent's rewrite; leave in place.
	case n.Data == "ac:structured-macro" || n.Data == "ac:macro":
		m := decodeMacro(n)
		rw, ok := macroRewrites[m.name]
		if !ok {
			rw = unwrapMacro
		}
		// The parser ignores self-closing syntax on unknown elements, so
		// following siblings may have been swallowed as extra children.
		// decodeMacro set them aside; splice them back after the rewrite.
		replaceNode(n, append(rw(m), m.rest...))
	case n.Data == "ac:link":
		replaceNode(n, rewriteLink(n))
	case n.Data == "ac:image":
		replaceNode(n, rewriteImage(n))
	case n.Data == "ac:emoticon":
		// The HTML parser does not honour self-closing syntax on unknown
		// elements, so trailing content may have been swallowed as
		// children. Hoist it after the replacement token.
		token := emoticonToken(attr(n, "ac:name"))
		var repl []*html.Node
		if token != "" {
			repl = append(repl, text(token))
		}
		repl = append(repl, detachChildren(n)...)
		replaceNode(n, repl)
	case strings.HasPrefix(n.Data, "ac:") || strings.HasPrefix(n.Data, "ri:"):
		// Leftover namespaced wrappers unwrap to their children.
		replaceNode(n, detachChildren(n))
	}
}

// decodeMacro pulls the name, parameters, and bodies out of a macro element.
// Missing pieces stay zero-valued so malformed macros degrade gracefully.
func decodeMacro(n *html.Node) *macro {
	m := &macro{name: attr(n, "ac:name"), params: map[string]string{}}
	c := n.FirstChild
	for c != nil {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			switch c.Data {
			case "ac:parameter":
				m.params[attr(c, "ac:name")] = strings.TrimSpace(textContent(c))
				c = next
				continue
			case "ac:rich-text-body":
				m.rich = c
				c = next
				continue
			case "ac:plain-text-body":
				m.plain = textContent(c)
				c = next
				continue
			}
		}
		n.RemoveChild(c)
		m.rest = append(m.rest, c)
		c = next
	}
	return m
}

// unwrapMacro is the fallback rule: replace an unknown macro with its
// rich-text body if it has one, otherwise drop it entirely.
func unwrapMacro(m *macro) []*html.Node {
	if m.rich == nil {
		return nil
	}
	return detachChildren(m.rich)
}

// rewriteCode maps a code macro onto pre>code with a language class.
func rewriteCode(m *macro) []*html.Node {
	body := m.plain
	if body == "" && m.rich != nil {
		body = textContent(m.rich)
	}
	code := elem(atom.Code)
	if lang := m.params["language"]; lang != "" {
		code.Attr = append(code.Attr, html.Attribute{Key: "class", Val: "language-" + lang})
	}
	code.AppendChild(text(body))
	pre := elem(atom.Pre)
	pre.AppendChild(code)
	return []*html.Node{pre}
}

// calloutRewrite maps info/note/warning/tip macros onto a blockquote whose
// first line is a bold label naming the callout kind.
func calloutRewrite(label string) rewriteFunc {
	return func(m *macro) []*html.Node {
		return []*html.Node{blockquoteWithLabel(label, m)}
	}
}

// rewritePanel maps a panel onto a blockquote; the title, when present,
// becomes a bold line of its own.
func rewritePanel(m *macro) []*html.Node {
	return []*html.Node{blockquoteWithLabel(m.params["title"], m)}
}

func blockquoteWithLabel(label string, m *macro) *html.Node {
	bq := elem(atom.Blockquote)
	if label != "" {
		p := elem(atom.P)
		strong := elem(atom.Strong)
		strong.AppendChild(text(label))
		p.AppendChild(strong)
		bq.AppendChild(p)
	}
	for _, c := range macroBody(m) {
		bq.AppendChild(c)
	}
	return bq
}

// rewriteExpand maps an expand macro onto details>summary so the renderer
// can emit both the summary line and the hidden content.
func rewriteExpand(m *macro) []*html.Node {
	title := m.params["title"]
	if title == "" {
		title = "Details"
	}
	details := elem(atom.Details)
	summary := elem(atom.Summary)
	summary.AppendChild(text(title))
	details.AppendChild(summary)
	for _, c := range macroBody(m) {
		details.AppendChild(c)
	}
	return []*html.Node{details}
}

// rewriteStatus maps a status macro onto an inline bold bracketed badge.
func rewriteStatus(m *macro) []*html.Node {
	title := m.params["title"]
	if title == "" {
		return nil
	}
	strong := elem(atom.Strong)
	strong.AppendChild(text("[" + title + "]"))
	return []*html.Node{strong}
}

// macroBody returns the macro's body content as detached nodes.
func macroBody(m *macro) []*html.Node {
	if m.rich != nil {
		return detachChildren(m.rich)
	}
	if m.plain != "" {
		p := elem(atom.P)
		p.AppendChild(text(m.plain))
		return []*html.Node{p}
	}
	return nil
}

// rewriteLink maps an internal page link onto an anchor with an
// internal-scheme href built from the percent-encoded page title.
func rewriteLink(n *html.Node) []*html.Node {
	var title, display string
	// Descendant walk rather than direct children: a self-closing ri:page
	// swallows the link body element into itself.
	walkElements(n, func(c *html.Node) {
		switch c.Data {
		case "ri:page":
			title = attr(c, "ri:content-title")
		case "ac:plain-text-link-body", "ac:link-body":
			display = strings.TrimSpace(textContent(c))
		}
	})
	if title == "" {
		return nil
	}
	if display == "" {
		display = title
	}
	a := elem(atom.A, html.Attribute{Key: "href", Val: SchemeInternalPage + url.PathEscape(title)})
	a.AppendChild(text(display))
	return []*html.Node{a}
}

// rewriteImage maps an attachment or external image reference onto img.
func rewriteImage(n *html.Node) []*html.Node {
	var out []*html.Node
	walkElements(n, func(c *html.Node) {
		if out != nil {
			return
		}
		switch c.Data {
		case "ri:attachment":
			if filename := attr(c, "ri:filename"); filename != "" {
				out = []*html.Node{elem(atom.Img,
					html.Attribute{Key: "src", Val: SchemeAttachment + url.PathEscape(filename)},
					html.Attribute{Key: "alt", Val: filename},
				)}
			}
		case "ri:url":
			if v := attr(c, "ri:value"); v != "" {
				out = []*html.Node{elem(atom.Img,
					html.Attribute{Key: "src", Val: v},
					html.Attribute{Key: "alt", Val: attr(n, "ac:alt")},
				)}
			}
		}
	})
	return out
}

// walkElements calls fn for every element in n's subtree, excluding n.
func walkElements(n *html.Node, fn func(*html.Node)) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			fn(c)
		}
		walkElements(c, fn)
	}
}
