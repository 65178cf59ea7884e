package markup

import (
	"strings"
	"testing"
)

func mustMarkdown(t *testing.T, raw string) string {
	t.Helper()
	out, err := ToMarkdown(raw)
	if err != nil {
		t.Fatalf("ToMarkdown: %v", err)
	}
	return out
}

func TestToMarkdown_Basics(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "heading and paragraph",
			in:   `<h2>Setup</h2><p>Install the thing.</p>`,
			want: "## Setup\n\nInstall the thing.",
		},
		{
			name: "emphasis",
			in:   `<p><strong>bold</strong> and <em>italic</em> and <code>x()</code></p>`,
			want: "**bold** and *italic* and `x()`",
		},
		{
			name: "strikethrough",
			in:   `<p><del>gone</del></p>`,
			want: "~~gone~~",
		},
		{
			name: "nested list",
			in:   `<ul><li>one</li><li>two<ul><li>deep</li></ul></li></ul>`,
			want: "- one\n- two\n  - deep",
		},
		{
			name: "ordered list",
			in:   `<ol><li>first</li><li>second</li></ol>`,
			want: "1. first\n2. second",
		},
		{
			name: "external link",
			in:   `<p><a href="https://example.com">docs</a></p>`,
			want: "[docs](https://example.com)",
		},
		{
			name: "horizontal rule",
			in:   `<p>a</p><hr/><p>b</p>`,
			want: "a\n\n---\n\nb",
		},
		{
			name: "literal emphasis characters survive",
			in:   `<p>a * b and snake_case</p>`,
			want: "a * b and snake_case",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustMarkdown(t, tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToMarkdown_CodeMacro(t *testing.T) {
	in := `<ac:structured-macro ac:name="code">` +
		`<ac:parameter ac:name="language">javascript</ac:parameter>` +
		`<ac:plain-text-body><![CDATA[if (a < b) { swap(a, b); }]]></ac:plain-text-body>` +
		`</ac:structured-macro>`
	want := "```javascript\nif (a < b) { swap(a, b); }\n```"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_CodeBodyNotPostprocessed(t *testing.T) {
	// Emphasis characters and entities inside a fence must stay verbatim.
	in := `<ac:structured-macro ac:name="code">` +
		`<ac:plain-text-body><![CDATA[a * b and _private]]></ac:plain-text-body>` +
		`</ac:structured-macro>`
	got := mustMarkdown(t, in)
	if !strings.Contains(got, "a * b and _private") {
		t.Errorf("code body altered: %q", got)
	}
}

func TestToMarkdown_InfoMacro(t *testing.T) {
	in := `<ac:structured-macro ac:name="info"><ac:rich-text-body><p>X</p></ac:rich-text-body></ac:structured-macro>`
	want := "> **Info**\n>\n> X"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_PanelWithTitle(t *testing.T) {
	in := `<ac:structured-macro ac:name="panel">` +
		`<ac:parameter ac:name="title">Heads up</ac:parameter>` +
		`<ac:rich-text-body><p>Body</p></ac:rich-text-body>` +
		`</ac:structured-macro>`
	want := "> **Heads up**\n>\n> Body"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_ExpandMacro(t *testing.T) {
	in := `<ac:structured-macro ac:name="expand">` +
		`<ac:parameter ac:name="title">More</ac:parameter>` +
		`<ac:rich-text-body><p>Hidden</p></ac:rich-text-body>` +
		`</ac:structured-macro>`
	want := "**More**\n\nHidden"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_StatusMacro(t *testing.T) {
	in := `<p>State: <ac:structured-macro ac:name="status"><ac:parameter ac:name="title">DONE</ac:parameter></ac:structured-macro></p>`
	want := "State: **[DONE]**"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_TocRemovedSurroundingsKept(t *testing.T) {
	// Self-closing syntax is not honoured on unknown elements, so the
	// following paragraph gets swallowed as a macro child; it must still
	// survive the removal.
	in := `<p>Before</p><ac:structured-macro ac:name="toc" /><p>After</p>`
	want := "Before\n\nAfter"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_UnknownMacroUnwraps(t *testing.T) {
	in := `<ac:structured-macro ac:name="mystery"><ac:rich-text-body><p>Kept</p></ac:rich-text-body></ac:structured-macro>`
	if got := mustMarkdown(t, in); got != "Kept" {
		t.Errorf("got %q, want %q", got, "Kept")
	}
}

func TestToMarkdown_UnknownMacroWithoutBodyDropped(t *testing.T) {
	in := `<p>a</p><ac:structured-macro ac:name="mystery"><ac:parameter ac:name="x">1</ac:parameter></ac:structured-macro><p>b</p>`
	want := "a\n\nb"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_NestedMacros(t *testing.T) {
	// A macro body must be macro-free before its wrapper is replaced:
	// panel containing an expand containing a list.
	in := `<ac:structured-macro ac:name="panel">` +
		`<ac:parameter ac:name="title">Outer</ac:parameter>` +
		`<ac:rich-text-body>` +
		`<ac:structured-macro ac:name="expand">` +
		`<ac:parameter ac:name="title">Inner</ac:parameter>` +
		`<ac:rich-text-body><ul><li>deep</li></ul></ac:rich-text-body>` +
		`</ac:structured-macro>` +
		`</ac:rich-text-body>` +
		`</ac:structured-macro>`
	want := "> **Outer**\n>\n> **Inner**\n>\n> - deep"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_NestedMacroInCallout(t *testing.T) {
	in := `<ac:structured-macro ac:name="info"><ac:rich-text-body>` +
		`<p>State: <ac:structured-macro ac:name="status"><ac:parameter ac:name="title">OPEN</ac:parameter></ac:structured-macro></p>` +
		`</ac:rich-text-body></ac:structured-macro>`
	want := "> **Info**\n>\n> State: **[OPEN]**"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_InternalLinkCollapses(t *testing.T) {
	in := `<p>See <ac:link><ri:page ri:content-title="Target Page" /><ac:plain-text-link-body><![CDATA[click]]></ac:plain-text-link-body></ac:link> now</p>`
	want := "See [click] now"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_InternalLinkDefaultsToTitle(t *testing.T) {
	in := `<p><ac:link><ri:page ri:content-title="Other Page" /></ac:link></p>`
	want := "[Other Page]"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_AttachmentImageCollapses(t *testing.T) {
	in := `<p><ac:image><ri:attachment ri:filename="diagram.png" /></ac:image></p>`
	want := "[diagram.png]"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_ExternalImageKept(t *testing.T) {
	in := `<p><ac:image ac:alt="logo"><ri:url ri:value="https://example.com/logo.png" /></ac:image></p>`
	want := "![logo](https://example.com/logo.png)"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_Emoticon(t *testing.T) {
	in := `<p>Great <ac:emoticon ac:name="smile" /> work</p>`
	want := "Great 😄 work"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_UnknownEmoticonDropped(t *testing.T) {
	in := `<p>a <ac:emoticon ac:name="nonexistent" /> b</p>`
	want := "a b"
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_Table(t *testing.T) {
	in := `<table><tbody>` +
		`<tr><th>A</th><th>B</th></tr>` +
		`<tr><td>1</td><td>2</td></tr>` +
		`</tbody></table>`
	want := "| A | B |\n| --- | --- |\n| 1 | 2 |"
	got := mustMarkdown(t, in)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if strings.Count(got, "---") != 2 {
		t.Errorf("expected exactly one separator row, got %q", got)
	}
}

func TestToMarkdown_TableCellEscapesPipe(t *testing.T) {
	in := `<table><tbody><tr><th>H</th></tr><tr><td>a|b</td></tr></tbody></table>`
	got := mustMarkdown(t, in)
	if !strings.Contains(got, `a\|b`) {
		t.Errorf("pipe not escaped: %q", got)
	}
}

func TestToMarkdown_Entities(t *testing.T) {
	in := `<p>fish &amp; chips &quot;fresh&quot;</p>`
	want := `fish & chips "fresh"`
	if got := mustMarkdown(t, in); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestToMarkdown_LiteralBackslashBeforeEmphasis(t *testing.T) {
	// A source backslash stays escaped in the output, so the emphasis
	// escape after it survives repeated post-processing.
	got := mustMarkdown(t, `<p>a \* b</p>`)
	want := `a \\* b`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if again := Postprocess(got); again != got {
		t.Errorf("output not stable: %q -> %q", got, again)
	}
}

func TestPostprocess_Idempotent(t *testing.T) {
	samples := []string{
		"a\n\n\n\nb",
		"[x](confluence://Some%20Page) and ![y](attachment://f.png)",
		"text with \\* escape and <span>tag</span>",
		"```\nkeep \\* this\n```\noutside \\_here\\_",
		`literal \\* stays`,
		`a \\\* b`,
		`path C:\\dir\\_file`,
	}
	for _, s := range samples {
		once := Postprocess(s)
		twice := Postprocess(once)
		if once != twice {
			t.Errorf("not idempotent for %q: first %q, second %q", s, once, twice)
		}
	}
}

func TestPostprocess_StripsResidualTagsKeepsAnchors(t *testing.T) {
	in := `<span>plain</span> <a href="https://example.com">kept</a>`
	got := Postprocess(in)
	if strings.Contains(got, "<span>") {
		t.Errorf("span not stripped: %q", got)
	}
	if !strings.Contains(got, `<a href="https://example.com">kept</a>`) {
		t.Errorf("anchor not preserved: %q", got)
	}
}

func TestPostprocess_CollapsesBlankLines(t *testing.T) {
	got := Postprocess("a\n\n\n\n\nb")
	if got != "a\n\nb" {
		t.Errorf("got %q", got)
	}
}

func TestToMarkdown_MalformedInputDegrades(t *testing.T) {
	// Unclosed tags and stray markup must not produce an error.
	in := `<p>ok<ac:structured-macro ac:name="info"><ac:rich-text-body><p>trailing`
	out, err := ToMarkdown(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "ok") {
		t.Errorf("lost leading content: %q", out)
	}
}

func TestToMarkdown_EmptyInput(t *testing.T) {
	if got := mustMarkdown(t, ""); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
