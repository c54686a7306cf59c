// Package pdf wraps the PDF primitives the pipeline needs: scoped
// open/close of a document, per-page text extraction, page-range
// extraction/replacement, page counting, and page-to-pixmap rendering.
// Grounded on the teacher's internal/mupdf (go-fitz text extraction),
// internal/imagerender (go-fitz rasterization), and the pdfcpu-based page
// count in internal/orchestrator/pagecount.go -- stripped of that file's
// S3/HTTP remote-ref resolution, which has no place in this port's
// file-based input model.
package pdf

import (
	"fmt"
	"image"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
)

// Document is a scoped handle on one open PDF. Callers must call Close.
type Document struct {
	path string
	doc  *fitz.Document
}

// Open acquires a document handle for the duration of one caller's use.
func Open(path string) (*Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &Document{path: path, doc: doc}, nil
}

// Close releases the underlying MuPDF document. Safe to call once.
func (d *Document) Close() error {
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}

// PageCount returns the number of pages via pdfcpu's lightweight structural
// reader, which avoids a full MuPDF load for a question this cheap.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("pdf page count: %w", err)
	}
	return n, nil
}

// NumPage returns the page count of an already-open document.
func (d *Document) NumPage() int {
	return d.doc.NumPage()
}

var (
	pageNumberRe = regexp.MustCompile(`^\s*\d{1,4}\s*$`)
	headerFooterRe = regexp.MustCompile(`(?i)^\s*(chapter|page)\s+\d+`)
)

// ExtractTextByPage returns the cleaned text of one 1-indexed page, using
// HTML-block extraction so multi-column layouts reorder left-to-right
// before the blocks are joined.
func (d *Document) ExtractTextByPage(pageNum int) (string, error) {
	pageIndex := pageNum - 1
	if pageIndex < 0 || pageIndex >= d.doc.NumPage() {
		return "", fmt.Errorf("page %d out of range (document has %d pages)", pageNum, d.doc.NumPage())
	}

	htmlText, err := d.doc.HTML(pageIndex, false)
	if err != nil || strings.TrimSpace(htmlText) == "" {
		text, plainErr := d.doc.Text(pageIndex)
		if plainErr != nil {
			return "", fmt.Errorf("extract text page %d: %w", pageNum, plainErr)
		}
		return cleanText(text), nil
	}

	blocks := detectColumns(htmlText)
	ordered := reorderColumnsLeftToRight(blocks)
	return cleanText(joinBlocks(ordered)), nil
}

// ExtractAllText concatenates every page's cleaned text, separated by blank
// lines, for whole-document convenience operations.
func (d *Document) ExtractAllText() (string, error) {
	var sb strings.Builder
	for i := 1; i <= d.doc.NumPage(); i++ {
		text, err := d.ExtractTextByPage(i)
		if err != nil {
			log.Warn().Err(err).Int("page", i).Msg("failed to extract text from page")
			continue
		}
		if i > 1 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}

// RenderPageToPixmap rasterizes one 1-indexed page at the given DPI,
// returning the decoded image for downstream quality estimation or re-OCR.
func (d *Document) RenderPageToPixmap(pageNum, dpi int) (image.Image, error) {
	img, err := d.doc.ImageDPI(pageNum-1, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", pageNum, err)
	}
	return img, nil
}

// ExtractPages extracts the given 1-indexed page numbers of srcPath into
// destDir, one single-page PDF per page; the page list is sorted ascending
// before extraction.
func ExtractPages(srcPath, destDir string, pages []int) error {
	if len(pages) == 0 {
		return fmt.Errorf("extract pages: empty page list")
	}
	sorted := append([]int(nil), pages...)
	sort.Ints(sorted)
	if err := api.ExtractPagesFile(srcPath, destDir, sorted, nil); err != nil {
		return fmt.Errorf("extract pages %v: %w", pages, err)
	}
	return nil
}

// ReplacePages produces a new PDF at destPath by splicing replacement into
// src at the 1-indexed page range [start, end], shifting subsequent pages.
// It works by extracting the untouched prefix/suffix ranges and concatenating
// them with the replacement via pdfcpu's merge.
func ReplacePages(srcPath, replacementPath, destPath string, start, end int) error {
	total, err := PageCount(srcPath)
	if err != nil {
		return err
	}
	if start < 1 || end < start || end > total {
		return fmt.Errorf("replace pages: invalid range [%d,%d] for %d-page document", start, end, total)
	}

	tmp, err := os.MkdirTemp("", "hybridocr-replace-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	parts := []string{}
	if start > 1 {
		prefix := tmp + "/prefix.pdf"
		if err := api.TrimFile(srcPath, prefix, pagesRange(1, start-1), nil); err != nil {
			return fmt.Errorf("replace pages: extract prefix: %w", err)
		}
		parts = append(parts, prefix)
	}
	parts = append(parts, replacementPath)
	if end < total {
		suffix := tmp + "/suffix.pdf"
		if err := api.TrimFile(srcPath, suffix, pagesRange(end+1, total), nil); err != nil {
			return fmt.Errorf("replace pages: extract suffix: %w", err)
		}
		parts = append(parts, suffix)
	}

	if err := api.MergeCreateFile(parts, destPath, false, nil); err != nil {
		return fmt.Errorf("replace pages: merge: %w", err)
	}
	return nil
}

// CombinePagesFromMultiplePDFs merges single-page PDFs (as produced by
// per-page re-OCR) back into one document in the given order.
func CombinePagesFromMultiplePDFs(pagePaths []string, destPath string) error {
	if len(pagePaths) == 0 {
		return fmt.Errorf("combine pages: empty input list")
	}
	if err := api.MergeCreateFile(pagePaths, destPath, false, nil); err != nil {
		return fmt.Errorf("combine pages: %w", err)
	}
	return nil
}

func pagesRange(start, end int) []string {
	return []string{fmt.Sprintf("%d-%d", start, end)}
}

func isPageNumber(line string) bool {
	return pageNumberRe.MatchString(line)
}

func isHeaderFooter(line string) bool {
	return headerFooterRe.MatchString(line)
}

func isNoise(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || isPageNumber(trimmed) || isHeaderFooter(trimmed)
}

func cleanText(text string) string {
	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if isNoise(line) {
			continue
		}
		kept = append(kept, line)
	}
	return fixBrokenLines(strings.Join(kept, "\n"))
}

// fixBrokenLines rejoins lines the renderer split mid-sentence: a line with
// no terminal punctuation followed by a lowercase continuation.
func fixBrokenLines(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		for i+1 < len(lines) && continuesOnNextLine(line, lines[i+1]) {
			i++
			line = strings.TrimRight(line, " ") + " " + strings.TrimLeft(lines[i], " ")
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func continuesOnNextLine(line, next string) bool {
	t := strings.TrimSpace(line)
	n := strings.TrimSpace(next)
	if t == "" || n == "" {
		return false
	}
	last := t[len(t)-1]
	if last == '.' || last == '!' || last == '?' || last == ':' {
		return false
	}
	first := rune(n[0])
	return first >= 'a' && first <= 'z'
}
