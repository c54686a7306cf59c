package pdf

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// textBlock is one positioned text fragment parsed out of a page's HTML
// rendering, used to detect and reorder multi-column academic layouts.
type textBlock struct {
	Text string
	X, Y float64
}

var (
	pTagRe    = regexp.MustCompile(`<p[^>]*style="([^"]*)"[^>]*>(.*?)</p>`)
	leftPosRe = regexp.MustCompile(`left:\s*(\d+(?:\.\d+)?)pt`)
	topPosRe  = regexp.MustCompile(`top:\s*(\d+(?:\.\d+)?)pt`)
	widthRe   = regexp.MustCompile(`width:\s*(\d+(?:\.\d+)?)pt`)
	tagStripRe = regexp.MustCompile(`<[^>]+>`)
)

// detectColumns parses a page's HTML rendering into positioned blocks.
func detectColumns(html string) []textBlock {
	var blocks []textBlock
	for _, match := range pTagRe.FindAllStringSubmatch(html, -1) {
		if len(match) < 3 {
			continue
		}
		style, content := match[1], match[2]
		var x, y float64
		if m := leftPosRe.FindStringSubmatch(style); len(m) > 1 {
			x, _ = strconv.ParseFloat(m[1], 64)
		}
		if m := topPosRe.FindStringSubmatch(style); len(m) > 1 {
			y, _ = strconv.ParseFloat(m[1], 64)
		}
		text := strings.TrimSpace(tagStripRe.ReplaceAllString(content, ""))
		if text != "" {
			blocks = append(blocks, textBlock{Text: text, X: x, Y: y})
		}
	}
	return blocks
}

// reorderColumnsLeftToRight clusters blocks into (at most) two columns by
// their most common X positions and reads the left column fully before the
// right, the reading order academic two-column layouts expect. Single-
// column pages (no two well-separated clusters) pass through unchanged.
func reorderColumnsLeftToRight(blocks []textBlock) []textBlock {
	if len(blocks) < 8 {
		return blocks
	}

	counts := make(map[float64]int)
	for _, b := range blocks {
		rounded := float64(int(b.X/5)) * 5
		counts[rounded]++
	}
	type xCount struct {
		x     float64
		count int
	}
	var ranked []xCount
	for x, c := range counts {
		ranked = append(ranked, xCount{x, c})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].count > ranked[j].count })
	if len(ranked) < 2 {
		return blocks
	}

	x1, x2 := ranked[0].x, ranked[1].x
	c1, c2 := ranked[0].count, ranked[1].count
	if x1 > x2 {
		x1, x2 = x2, x1
		c1, c2 = c2, c1
	}
	if x2-x1 < 100 {
		return blocks // columns not separated enough; treat as single column
	}
	minPerColumn := len(blocks) / 10
	if c1 < minPerColumn || c2 < minPerColumn {
		return blocks
	}

	boundary := (x1 + x2) / 2
	var left, right []textBlock
	for _, b := range blocks {
		if b.X < boundary {
			left = append(left, b)
		} else {
			right = append(right, b)
		}
	}
	sort.Slice(left, func(i, j int) bool { return left[i].Y < left[j].Y })
	sort.Slice(right, func(i, j int) bool { return right[i].Y < right[j].Y })
	return append(left, right...)
}

func joinBlocks(blocks []textBlock) string {
	var sb strings.Builder
	for i, b := range blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(b.Text)
	}
	return sb.String()
}
