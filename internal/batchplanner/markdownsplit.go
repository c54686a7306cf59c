package batchplanner

import "strings"

// SplitMarkdownPerPage splits one neural-engine Markdown conversion back into
// per-page text, in the order the §4.4 fallback cascade specifies:
//  1. Split on a horizontal rule line ("---" alone on its line), the marker
//     most neural Markdown converters emit between source pages.
//  2. Otherwise split on a run of 2+ blank lines, approximating a page break.
//  3. Otherwise assign the whole document to the first page and record a
//     warning -- better to over-attribute than to silently drop text.
func SplitMarkdownPerPage(markdown string, wantPages int) (pages []string, warning string) {
	if wantPages <= 0 {
		return nil, ""
	}
	if wantPages == 1 {
		return []string{markdown}, ""
	}

	if parts := splitOnRule(markdown); len(parts) == wantPages {
		return parts, ""
	}
	if parts := splitOnBlankRun(markdown); len(parts) == wantPages {
		return parts, ""
	}

	pages = make([]string, wantPages)
	pages[0] = markdown
	return pages, "could not align markdown output to page boundaries; assigned all text to page 1"
}

func splitOnRule(markdown string) []string {
	lines := strings.Split(markdown, "\n")
	var parts []string
	var cur []string
	for _, line := range lines {
		if isHorizontalRule(line) {
			parts = append(parts, strings.TrimSpace(strings.Join(cur, "\n")))
			cur = nil
			continue
		}
		cur = append(cur, line)
	}
	parts = append(parts, strings.TrimSpace(strings.Join(cur, "\n")))
	return parts
}

func isHorizontalRule(line string) bool {
	t := strings.TrimSpace(line)
	if len(t) < 3 {
		return false
	}
	for _, r := range []byte{'-', '*', '_'} {
		if strings.Count(t, string(r)) == len(t) {
			return true
		}
	}
	return false
}

func splitOnBlankRun(markdown string) []string {
	lines := strings.Split(markdown, "\n")
	var parts []string
	var cur []string
	blank := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			blank++
			if blank == 2 {
				parts = append(parts, strings.TrimSpace(strings.Join(cur, "\n")))
				cur = nil
			}
			continue
		}
		blank = 0
		cur = append(cur, line)
	}
	parts = append(parts, strings.TrimSpace(strings.Join(cur, "\n")))

	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
