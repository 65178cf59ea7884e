package mcpserver

// FrontmatterFormat describes the provenance frontmatter present in every
// synced Markdown file, for LLM consumers reading pages.
const FrontmatterFormat = `# Ansuz Synced Page Frontmatter

Every Markdown file synced from the remote wiki starts with a YAML
frontmatter block carrying its provenance. Treat these fields as
read-only metadata; the body below the closing fence is the page content.

## Structure

` + "```" + `markdown
---
title: "Page title"                    # remote page title at last sync
remote_id: "12345"                     # remote page id (stable)
remote_url: "https://wiki.example.com/pages/12345"
space_key: "DOCS"                      # remote space key, may be absent
version: 7                             # remote version number at last sync
author: "jane.doe"                     # last remote editor
labels: ["how-to", "onboarding"]       # remote labels, [] when none
synced_at: "2026-08-23T10:00:00Z"      # when this copy was written
modified_at: "2026-08-20T09:30:00Z"    # remote last-modified timestamp
---

Page body in Markdown.
` + "```" + `

## Rules

1. The frontmatter is regenerated on every sync; local edits to it are
   overwritten when the remote version advances.
2. ` + "`" + `remote_id` + "`" + ` uniquely identifies the page; at most one local file
   tracks a given remote id.
3. Timestamps are RFC 3339 in UTC.
4. Internal wiki links appear in the body as bracketed page titles
   (e.g. ` + "`" + `[Other Page]` + "`" + `); attachment images appear as their alt text.
`
