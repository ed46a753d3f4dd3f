package loader

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var _ port.Loader = (*Registry)(nil)

// Extractor pulls plain text out of one file format.
type Extractor interface {
	FileType() domain.FileType
	// Extract returns the raw text and the number of pages (1 for flat formats).
	Extract(data []byte) (text string, pages int, err error)
}

// Registry picks an extractor by file extension and normalizes its output.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a registry with the text, PDF, DOCX and Markdown extractors.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(".txt", Text{})
	r.Register(".pdf", PDF{})
	r.Register(".docx", DOCX{})
	r.Register(".md", Markdown{})
	r.Register(".markdown", Markdown{})
	return r
}

func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[strings.ToLower(ext)] = e
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func (r *Registry) Supports(filename string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// Load extracts and normalizes the text of one file. The returned document
// has no ID; ingestion assigns one.
func (r *Registry) Load(filename string, data []byte) (domain.Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	e, ok := r.byExt[ext]
	if !ok {
		return domain.Document{}, fmt.Errorf("%w: %q (supported: %s)", domain.ErrUnsupportedType, filename, strings.Join(r.Extensions(), ", "))
	}

	text, pages, err := e.Extract(data)
	if err != nil {
		return domain.Document{}, fmt.Errorf("load %s: %w", filename, err)
	}

	sum := sha256.Sum256(data)
	return domain.Document{
		Filename: filepath.Base(filename),
		FileType: e.FileType(),
		Size:     int64(len(data)),
		Checksum: hex.EncodeToString(sum[:]),
		Pages:    pages,
		Text:     Normalize(text),
	}, nil
}

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// Normalize produces the canonical text the splitter sees: NFC, LF line
// endings, no control characters, at most one blank line in a row, trimmed.
func Normalize(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\f", "\n\n")
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	s = trailingSpace.ReplaceAllString(s, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
