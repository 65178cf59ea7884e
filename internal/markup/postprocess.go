package markup

import (
	"html"
	"regexp"
	"strings"
)

var (
	residualTagRe     = regexp.MustCompile(`</?([a-zA-Z][a-zA-Z0-9:-]*)\b[^>]*>`)
	attachmentImgMDRe = regexp.MustCompile(`!\[([^\]]*)\]\(attachment://[^)]*\)`)
	internalLinkMDRe  = regexp.MustCompile(`\[([^\]]*)\]\(confluence://[^)]*\)`)
	internalAnchorRe  = regexp.MustCompile(`(?s)<a\s[^>]*href="confluence://[^"]*"[^>]*>(.*?)</a>`)
	attachmentImgRe   = regexp.MustCompile(`<img\s[^>]*src="attachment://[^"]*"[^>]*/?>`)
	imgAltRe          = regexp.MustCompile(`alt="([^"]*)"`)
	tripleNewlineRe   = regexp.MustCompile(`\n{3,}`)
)

// Postprocess applies the ordered cleanup passes to raw transformer output:
// entity decoding, residual tag removal, internal-scheme link collapsing,
// blank-line collapsing, emphasis unescaping, and whole-document trimming.
// Fenced code blocks pass through untouched. The function is idempotent.
func Postprocess(s string) string {
	var sb strings.Builder
	for _, seg := range splitFences(s) {
		if seg.fenced {
			sb.WriteString(seg.text)
			continue
		}
		sb.WriteString(cleanSegment(seg.text))
	}
	return strings.TrimSpace(sb.String())
}

func cleanSegment(s string) string {
	s = html.UnescapeString(s)
	s = stripResidualTags(s)
	s = collapseInternalLinks(s)
	s = tripleNewlineRe.ReplaceAllString(s, "\n\n")
	s = unescapeEmphasis(s)
	return s
}

// unescapeEmphasis removes the emphasis escapes the renderer introduced.
// Escaped backslashes are copied through untouched, so an emphasis escape
// following a literal backslash stays put and reapplying the pass changes
// nothing.
func unescapeEmphasis(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case '\\':
				b.WriteString(`\\`)
				i++
				continue
			case '*', '_':
				b.WriteByte(s[i+1])
				i++
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// stripResidualTags removes raw tags the transformer did not consume,
// preserving anchor and image tags verbatim.
func stripResidualTags(s string) string {
	return residualTagRe.ReplaceAllStringFunc(s, func(tag string) string {
		m := residualTagRe.FindStringSubmatch(tag)
		name := strings.ToLower(m[1])
		if name == "a" || name == "img" {
			return tag
		}
		return ""
	})
}

// collapseInternalLinks flattens links and images that use the internal
// pseudo-schemes down to bracketed text; they have no meaning once the
// document is standalone.
func collapseInternalLinks(s string) string {
	s = attachmentImgMDRe.ReplaceAllStringFunc(s, func(img string) string {
		m := attachmentImgMDRe.FindStringSubmatch(img)
		if m[1] == "" {
			return ""
		}
		return "[" + m[1] + "]"
	})
	s = internalLinkMDRe.ReplaceAllString(s, "[$1]")
	s = internalAnchorRe.ReplaceAllString(s, "[$1]")
	s = attachmentImgRe.ReplaceAllStringFunc(s, func(img string) string {
		if m := imgAltRe.FindStringSubmatch(img); m != nil && m[1] != "" {
			return "[" + m[1] + "]"
		}
		return ""
	})
	return s
}

type fenceSegment struct {
	text   string
	fenced bool
}

// splitFences partitions s into alternating plain and fenced-code segments.
// A fenced segment includes its opening and closing fence lines.
func splitFences(s string) []fenceSegment {
	var segs []fenceSegment
	var cur strings.Builder
	fenced := false
	flush := func(f bool) {
		if cur.Len() > 0 {
			segs = append(segs, fenceSegment{text: cur.String(), fenced: f})
			cur.Reset()
		}
	}
	for _, line := range strings.SplitAfter(s, "\n") {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "```") {
			if !fenced {
				flush(false)
				fenced = true
				cur.WriteString(line)
			} else {
				cur.WriteString(line)
				flush(true)
				fenced = false
			}
			continue
		}
		cur.WriteString(line)
	}
	flush(fenced)
	return segs
}
