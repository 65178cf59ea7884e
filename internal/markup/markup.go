// Package markup converts wiki storage-format markup into Markdown.
//
// The pipeline has three stages: the normalizer rewrites proprietary macro
// elements into plain HTML, the renderer walks the normalized tree and emits
// Markdown, and the post-processor cleans the raw output. Each stage is
// independently testable; ToMarkdown runs all three.
package markup

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ToMarkdown converts raw storage-format markup into clean Markdown.
// Malformed input degrades to best-effort partial output, never an error
// beyond a parser failure.
func ToMarkdown(raw string) (string, error) {
	root, err := parse(raw)
	if err != nil {
		return "", fmt.Errorf("markup: parse: %w", err)
	}
	Normalize(root)
	return Postprocess(render(root)), nil
}

// parse parses a markup fragment and returns a synthetic container element
// holding the parsed nodes, so rewrites always have a parent to splice into.
func parse(raw string) (*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(raw), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		ctx.AppendChild(n)
	}
	return ctx, nil
}

// attr returns the value of the named attribute, or empty string.
func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// textContent returns the concatenated text of n's subtree. CDATA sections
// survive HTML parsing as comment nodes, so their payload is unwrapped here.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		switch c.Type {
		case html.TextNode:
			sb.WriteString(c.Data)
		case html.CommentNode:
			if strings.HasPrefix(c.Data, "[CDATA[") {
				sb.WriteString(strings.TrimSuffix(strings.TrimPrefix(c.Data, "[CDATA["), "]]"))
			}
		}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			walk(gc)
		}
	}
	walk(n)
	return sb.String()
}

// replaceNode splices replacements into n's position and removes n.
// A nil or empty replacement simply removes n.
func replaceNode(n *html.Node, replacements []*html.Node) {
	parent := n.Parent
	if parent == nil {
		return
	}
	for _, r := range replacements {
		if r.Parent != nil {
			r.Parent.RemoveChild(r)
		}
		parent.InsertBefore(r, n)
	}
	parent.RemoveChild(n)
}

// detachChildren removes and returns all children of n in order.
func detachChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for n.FirstChild != nil {
		c := n.FirstChild
		n.RemoveChild(c)
		out = append(out, c)
	}
	return out
}

// elem builds an element node with optional attributes.
func elem(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

// text builds a text node.
func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}
